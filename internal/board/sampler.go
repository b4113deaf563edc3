package board

import (
	"sync"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/debounce"
	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/hotplug"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HotplugEvent is delivered once per presence transition.
type HotplugEvent struct {
	ID          uuid.UUID      `json:"id"`
	Interface   string         `json:"interface"`
	InterfaceID ID             `json:"interface_id"`
	From        hotplug.State  `json:"from"`
	To          hotplug.State  `json:"to"`
	Detect      debounce.State `json:"detect_state"`
	Timestamp   time.Time      `json:"timestamp"`
}

// HotplugListener is called from the sampler goroutine and must not block.
type HotplugListener func(HotplugEvent)

// Sampler advances every module port's debounce engine on a fixed tick.
type Sampler struct {
	registry *Registry
	driver   gpio.Driver
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex

	listenersMu sync.RWMutex
	listeners   []HotplugListener
}

func NewSampler(registry *Registry, driver gpio.Driver, interval time.Duration, logger *zap.Logger) *Sampler {
	return &Sampler{
		registry: registry,
		driver:   driver,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Subscribe registers a listener for hotplug changes.
func (s *Sampler) Subscribe(l HotplugListener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.running = true
	s.wg.Add(1)

	go s.sampleLoop()

	s.logger.Info("Detect sampler started", zap.Duration("interval", s.interval))

	return nil
}

func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("Detect sampler stopped")
}

func (s *Sampler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sampler) sampleLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick samples every module port once.
func (s *Sampler) Tick() {
	for iface := range s.registry.Interfaces(ModulePorts) {
		d := iface.Detect()
		change, changed, skipped, err := d.sample(s.driver)
		if err != nil {
			s.logger.Error("Detect sample failed",
				zap.String("interface", iface.Name()),
				zap.Error(err))
			continue
		}
		if skipped || !changed {
			continue
		}

		ev := HotplugEvent{
			ID:          uuid.New(),
			Interface:   iface.Name(),
			InterfaceID: iface.ID(),
			From:        change.From,
			To:          change.To,
			Detect:      d.State().Current,
			Timestamp:   time.Now(),
		}

		s.logger.Info("Hotplug state changed",
			zap.String("interface", ev.Interface),
			zap.Stringer("from", ev.From),
			zap.Stringer("to", ev.To))

		s.listenersMu.RLock()
		for _, l := range s.listeners {
			l(ev)
		}
		s.listenersMu.RUnlock()
	}
}
