// Package gpio abstracts the digital lines the power controller drives and
// samples. The simulated backend keeps levels in memory and records every
// write; the cdev backend talks to the Linux GPIO character device.
package gpio

import (
	"fmt"
	"strings"
)

// Driver reads and writes physical line levels. Levels are electrical:
// polarity is applied by the caller.
type Driver interface {
	// Write drives pin as an output at the given level.
	Write(pin uint32, high bool) error

	// Read samples pin as an input.
	Read(pin uint32) (bool, error)

	// Close releases all requested lines.
	Close() error
}

const (
	BackendSim  = "sim"
	BackendCdev = "cdev"
)

// Open returns the driver for the configured backend.
func Open(backend, chip, consumer string) (Driver, error) {
	switch strings.ToLower(backend) {
	case "", BackendSim:
		return NewSim(), nil
	case BackendCdev:
		return NewCdev(chip, consumer)
	default:
		return nil, fmt.Errorf("unknown gpio backend: %s", backend)
	}
}
