package wakeout

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"go.uber.org/zap/zaptest"
)

func TestPulseDrivesAndRestores(t *testing.T) {
	tests := []struct {
		name       string
		activeHigh bool
		want       []gpio.Write
	}{
		{"active high", true, []gpio.Write{{Pin: 3, High: true}, {Pin: 3, High: false}}},
		{"active low", false, []gpio.Write{{Pin: 3, High: false}, {Pin: 3, High: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := gpio.NewSim()
			var slept time.Duration
			g := NewGenerator(3, tt.activeHigh, sim, zaptest.NewLogger(t),
				WithSleep(func(d time.Duration) { slept = d }))

			if err := g.Pulse(500 * time.Microsecond); err != nil {
				t.Fatalf("pulse: %v", err)
			}
			if slept != 500*time.Microsecond {
				t.Errorf("expected 500us hold, got %v", slept)
			}
			got := sim.Writes()
			if len(got) != 2 || got[0] != tt.want[0] || got[1] != tt.want[1] {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolveLength(t *testing.T) {
	if got := ResolveLength(UseDefault, 30000); got != 30*time.Millisecond {
		t.Errorf("default: got %v", got)
	}
	if got := ResolveLength(0, 100); got != 100*time.Microsecond {
		t.Errorf("zero: got %v", got)
	}
	if got := ResolveLength(750, 100); got != 750*time.Microsecond {
		t.Errorf("explicit: got %v", got)
	}
}

func TestPulseAssertFault(t *testing.T) {
	sim := gpio.NewSim()
	sim.FailWrites(3, errors.New("line busy"))
	slept := false
	g := NewGenerator(3, true, sim, zaptest.NewLogger(t),
		WithSleep(func(time.Duration) { slept = true }))

	err := g.Pulse(time.Millisecond)
	if !errors.Is(err, types.ErrHardwareFault) {
		t.Fatalf("expected hardware fault, got %v", err)
	}
	if slept {
		t.Error("failed assert must not hold")
	}
}

func TestSuspendWrapsPulse(t *testing.T) {
	sim := gpio.NewSim()
	var events []string
	g := NewGenerator(3, true, sim, zaptest.NewLogger(t),
		WithSleep(func(time.Duration) { events = append(events, "hold") }),
		WithSuspend(func() func() {
			events = append(events, "suspend")
			return func() { events = append(events, "resume") }
		}))

	if err := g.Pulse(time.Millisecond); err != nil {
		t.Fatalf("pulse: %v", err)
	}
	want := []string{"suspend", "hold", "resume"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], events[i])
		}
	}
}

func TestConcurrentPulsesAreSerialized(t *testing.T) {
	sim := gpio.NewSim()
	var inFlight, maxInFlight atomic.Int32
	g := NewGenerator(3, true, sim, zaptest.NewLogger(t),
		WithSleep(func(time.Duration) {
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Pulse(time.Millisecond); err != nil {
				t.Errorf("pulse: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("pulses overlapped: max in flight %d", maxInFlight.Load())
	}
	writes := sim.Writes()
	for i := 0; i < len(writes); i += 2 {
		if !writes[i].High || writes[i+1].High {
			t.Fatalf("pulse %d not an assert/release pair: %v", i/2, writes[i:i+2])
		}
	}
}
