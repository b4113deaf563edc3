package storage

import (
	"context"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/board"
	"github.com/KevinKickass/OpenPowerCore/internal/power"
	"go.uber.org/zap"
)

// EventSink persists journal records. *PostgresClient implements it.
type EventSink interface {
	InsertEvent(ctx context.Context, rec EventRecord) error
}

// Journal writes events to a sink from its own goroutine so listeners on
// the sampler and power paths never wait on the database.
type Journal struct {
	sink         EventSink
	queue        chan EventRecord
	writeTimeout time.Duration
	logger       *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewJournal(sink EventSink, bufferSize int, logger *zap.Logger) *Journal {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Journal{
		sink:         sink,
		queue:        make(chan EventRecord, bufferSize),
		writeTimeout: 5 * time.Second,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

func (j *Journal) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}
	j.running = true
	j.wg.Add(1)
	go j.writeLoop()

	j.logger.Info("Event journal started")
}

// Stop drains queued records, giving up when ctx ends.
func (j *Journal) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = false
	close(j.stopChan)
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("Event journal stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record queues rec. It reports false when the queue is full and the
// record was dropped.
func (j *Journal) Record(rec EventRecord) bool {
	select {
	case j.queue <- rec:
		return true
	default:
		j.logger.Warn("Event journal full, record dropped",
			zap.String("interface", rec.Interface),
			zap.String("kind", string(rec.Kind)))
		return false
	}
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()

	for {
		select {
		case rec := <-j.queue:
			j.write(rec)
		case <-j.stopChan:
			for {
				select {
				case rec := <-j.queue:
					j.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) write(rec EventRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), j.writeTimeout)
	defer cancel()

	if err := j.sink.InsertEvent(ctx, rec); err != nil {
		j.logger.Error("Failed to journal event",
			zap.String("interface", rec.Interface),
			zap.String("kind", string(rec.Kind)),
			zap.Error(err))
	}
}

func (j *Journal) HotplugListener() board.HotplugListener {
	return func(ev board.HotplugEvent) {
		j.Record(EventRecord{
			ID:        ev.ID,
			Interface: ev.Interface,
			Kind:      EventKindHotplug,
			FromState: ev.From.String(),
			ToState:   ev.To.String(),
			CreatedAt: ev.Timestamp,
		})
	}
}

// PowerListener journals the interface's powered state before and after
// each set-power call.
func (j *Journal) PowerListener() power.PowerListener {
	return func(ev power.PowerEvent) {
		j.Record(EventRecord{
			ID:        ev.ID,
			Interface: ev.Interface,
			Kind:      EventKindPower,
			FromState: poweredLabel(ev.PreviousVsysUseCount),
			ToState:   poweredLabel(ev.VsysUseCount),
			CreatedAt: ev.Timestamp,
		})
	}
}

func poweredLabel(useCount int32) string {
	if useCount > 0 {
		return "on"
	}
	return "off"
}
