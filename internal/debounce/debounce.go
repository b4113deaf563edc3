// Package debounce filters a sampled digital line into a stable level.
package debounce

import "fmt"

type State int

const (
	StateInvalid State = iota
	StateInactiveDebounce
	StateActiveDebounce
	StateInactiveStable
	StateActiveStable
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateInactiveDebounce:
		return "inactive debounce"
	case StateActiveDebounce:
		return "active debounce"
	case StateInactiveStable:
		return "inactive stable"
	case StateActiveStable:
		return "active stable"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsStable reports whether s is one of the two stable states.
func (s State) IsStable() bool {
	return s == StateInactiveStable || s == StateActiveStable
}

func stableFor(active bool) State {
	if active {
		return StateActiveStable
	}
	return StateInactiveStable
}

func debounceFor(active bool) State {
	if active {
		return StateActiveDebounce
	}
	return StateInactiveDebounce
}

// Transition is the result of one Step.
type Transition struct {
	From    State
	To      State
	Changed bool
}

// Engine is the per-line state machine. It is not safe for concurrent use:
// a single sampler owns each Engine.
type Engine struct {
	depth    int
	current  State
	previous State
	count    int
}

// NewEngine returns an engine that accepts a new level after depth
// consecutive agreeing samples. depth below 1 is treated as 1.
func NewEngine(depth int) *Engine {
	if depth < 1 {
		depth = 1
	}
	return &Engine{depth: depth}
}

func (e *Engine) Depth() int { return e.depth }

func (e *Engine) Current() State { return e.current }

func (e *Engine) Previous() State { return e.previous }

// Reset returns the engine to StateInvalid.
func (e *Engine) Reset() {
	e.current = StateInvalid
	e.previous = StateInvalid
	e.count = 0
}

// Step feeds one logical sample (polarity already applied).
func (e *Engine) Step(active bool) Transition {
	switch e.current {
	case StateInvalid:
		return e.move(stableFor(active))

	case StateInactiveStable, StateActiveStable:
		if active == (e.current == StateActiveStable) {
			return e.stay()
		}
		e.count = 1
		if e.count >= e.depth {
			return e.move(stableFor(active))
		}
		return e.move(debounceFor(active))

	case StateInactiveDebounce, StateActiveDebounce:
		target := e.current == StateActiveDebounce
		if active != target {
			// Reverted before the depth elapsed: noise.
			e.count = 0
			return e.move(stableFor(!target))
		}
		e.count++
		if e.count >= e.depth {
			e.count = 0
			return e.move(stableFor(target))
		}
		return e.stay()
	}

	return e.move(stableFor(active))
}

func (e *Engine) move(to State) Transition {
	t := Transition{From: e.current, To: to, Changed: true}
	e.previous = e.current
	e.current = to
	return t
}

func (e *Engine) stay() Transition {
	return Transition{From: e.current, To: e.current}
}
