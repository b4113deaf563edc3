package gpio

import (
	"sync"
)

// Write is one recorded line write.
type Write struct {
	Pin  uint32
	High bool
}

// Sim is an in-memory Driver. Inputs are set with SetInput, writes are
// recorded, and faults can be injected per pin.
type Sim struct {
	mu         sync.Mutex
	levels     map[uint32]bool
	writes     []Write
	writeFault map[uint32]error
	readFault  map[uint32]error
}

func NewSim() *Sim {
	return &Sim{
		levels:     make(map[uint32]bool),
		writeFault: make(map[uint32]error),
		readFault:  make(map[uint32]error),
	}
}

func (s *Sim) Write(pin uint32, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFault[pin]; err != nil {
		return err
	}
	s.levels[pin] = high
	s.writes = append(s.writes, Write{Pin: pin, High: high})
	return nil
}

func (s *Sim) Read(pin uint32) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readFault[pin]; err != nil {
		return false, err
	}
	return s.levels[pin], nil
}

func (s *Sim) Close() error {
	return nil
}

// SetInput sets the electrical level seen by the next Read of pin.
func (s *Sim) SetInput(pin uint32, high bool) {
	s.mu.Lock()
	s.levels[pin] = high
	s.mu.Unlock()
}

// Level returns the current level of pin.
func (s *Sim) Level(pin uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[pin]
}

// FailWrites makes every write to pin return err. A nil err clears the fault.
func (s *Sim) FailWrites(pin uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.writeFault, pin)
		return
	}
	s.writeFault[pin] = err
}

// FailReads makes every read of pin return err. A nil err clears the fault.
func (s *Sim) FailReads(pin uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.readFault, pin)
		return
	}
	s.readFault[pin] = err
}

// Writes returns a copy of the write history.
func (s *Sim) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Write, len(s.writes))
	copy(out, s.writes)
	return out
}

// ResetWrites clears the write history.
func (s *Sim) ResetWrites() {
	s.mu.Lock()
	s.writes = nil
	s.mu.Unlock()
}
