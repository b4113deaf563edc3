package gpio

import (
	"errors"
	"testing"
)

func TestSimRecordsWrites(t *testing.T) {
	s := NewSim()
	if err := s.Write(4, true); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := s.Write(5, false); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := s.Writes()
	want := []Write{{Pin: 4, High: true}, {Pin: 5, High: false}}
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if !s.Level(4) {
		t.Error("pin 4 should be high")
	}
}

func TestSimFaults(t *testing.T) {
	s := NewSim()
	boom := errors.New("boom")

	s.FailWrites(7, boom)
	if err := s.Write(7, true); !errors.Is(err, boom) {
		t.Errorf("expected injected write fault, got %v", err)
	}
	if len(s.Writes()) != 0 {
		t.Error("failed write must not be recorded")
	}
	s.FailWrites(7, nil)
	if err := s.Write(7, true); err != nil {
		t.Errorf("fault should be cleared: %v", err)
	}

	s.FailReads(8, boom)
	if _, err := s.Read(8); !errors.Is(err, boom) {
		t.Errorf("expected injected read fault, got %v", err)
	}
}

func TestOpenBackends(t *testing.T) {
	d, err := Open("sim", "", "test")
	if err != nil {
		t.Fatalf("sim backend: %v", err)
	}
	if _, ok := d.(*Sim); !ok {
		t.Errorf("expected *Sim, got %T", d)
	}

	if _, err := Open("bogus", "", ""); err == nil {
		t.Error("unknown backend should fail")
	}
}
