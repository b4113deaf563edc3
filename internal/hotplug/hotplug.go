// Package hotplug derives module presence from the debounced detect line.
package hotplug

import (
	"fmt"
	"sync"

	"github.com/KevinKickass/OpenPowerCore/internal/debounce"
)

type State int

const (
	StateUnknown State = iota
	StatePlugged
	StateUnplugged
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StatePlugged:
		return "plugged"
	case StateUnplugged:
		return "unplugged"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Classify maps a debounce state to a presence state. Debounce and invalid
// states are always unknown so bouncing contacts are never reported plugged.
func Classify(s debounce.State) State {
	switch s {
	case debounce.StateActiveStable:
		return StatePlugged
	case debounce.StateInactiveStable:
		return StateUnplugged
	default:
		return StateUnknown
	}
}

// Change is a presence transition reported by a Tracker.
type Change struct {
	From State
	To   State
}

// Tracker remembers the last reported presence state so a change is
// reported once per transition rather than once per tick.
type Tracker struct {
	mu       sync.Mutex
	reported State
}

// Observe is called with the debounce state after every step. It reports a
// Change only when s is stable and classifies differently from the last
// reported state.
func (t *Tracker) Observe(s debounce.State) (Change, bool) {
	if !s.IsStable() {
		return Change{}, false
	}

	next := Classify(s)

	t.mu.Lock()
	defer t.mu.Unlock()

	if next == t.reported {
		return Change{}, false
	}
	c := Change{From: t.reported, To: next}
	t.reported = next
	return c, true
}

// Reported returns the last reported presence state.
func (t *Tracker) Reported() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reported
}
