package debounce

import "testing"

func TestFirstSampleGoesStraightToStable(t *testing.T) {
	tests := []struct {
		name   string
		sample bool
		want   State
	}{
		{"low", false, StateInactiveStable},
		{"high", true, StateActiveStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(3)
			tr := e.Step(tt.sample)
			if !tr.Changed || tr.From != StateInvalid || tr.To != tt.want {
				t.Errorf("unexpected transition %+v", tr)
			}
			if e.Previous() != StateInvalid {
				t.Errorf("previous should be invalid, got %s", e.Previous())
			}
		})
	}
}

func TestLowToHighScenario(t *testing.T) {
	e := NewEngine(3)
	e.Step(false) // settle in inactive stable

	samples := []bool{false, false, true, true, true, true}
	want := []State{
		StateInactiveStable,
		StateInactiveStable,
		StateActiveDebounce,
		StateActiveDebounce,
		StateActiveStable,
		StateActiveStable,
	}
	for i, s := range samples {
		e.Step(s)
		if e.Current() != want[i] {
			t.Errorf("sample %d: expected %s, got %s", i+1, want[i], e.Current())
		}
	}
	if e.Previous() != StateActiveDebounce {
		t.Errorf("previous should be active debounce, got %s", e.Previous())
	}
}

func TestRevertIsNoise(t *testing.T) {
	e := NewEngine(3)
	e.Step(true)

	e.Step(false)
	if e.Current() != StateInactiveDebounce {
		t.Fatalf("expected inactive debounce, got %s", e.Current())
	}
	e.Step(false)
	tr := e.Step(true)
	if tr.To != StateActiveStable || tr.From != StateInactiveDebounce {
		t.Errorf("expected return to active stable, got %+v", tr)
	}

	// The counter restarts after noise: two low samples are not enough.
	e.Step(false)
	e.Step(false)
	if e.Current() != StateInactiveDebounce {
		t.Errorf("counter was not reset, state %s", e.Current())
	}
	e.Step(false)
	if e.Current() != StateInactiveStable {
		t.Errorf("expected inactive stable, got %s", e.Current())
	}
}

func TestSteadyStateReportsNoChange(t *testing.T) {
	e := NewEngine(2)
	e.Step(true)
	prev := e.Previous()
	for i := 0; i < 5; i++ {
		if tr := e.Step(true); tr.Changed {
			t.Fatalf("steady input reported change %+v", tr)
		}
	}
	if e.Previous() != prev {
		t.Errorf("previous changed without a transition")
	}
}

func TestDepthOneSkipsDebounce(t *testing.T) {
	e := NewEngine(0)
	if e.Depth() != 1 {
		t.Fatalf("depth should clamp to 1, got %d", e.Depth())
	}
	e.Step(false)
	tr := e.Step(true)
	if tr.To != StateActiveStable {
		t.Errorf("expected immediate stable transition, got %+v", tr)
	}
}

func TestReset(t *testing.T) {
	e := NewEngine(3)
	e.Step(true)
	e.Step(false)
	e.Reset()
	if e.Current() != StateInvalid || e.Previous() != StateInvalid {
		t.Errorf("reset left %s/%s", e.Current(), e.Previous())
	}
}

func TestStateString(t *testing.T) {
	if StateInactiveDebounce.String() != "inactive debounce" {
		t.Errorf("unexpected label %q", StateInactiveDebounce.String())
	}
	if State(42).String() != "State(42)" {
		t.Errorf("unexpected label %q", State(42).String())
	}
}
