// Package wakeout drives timed pulses on a module's wake line.
package wakeout

import (
	"sync"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"go.uber.org/zap"
)

// UseDefault asks for the board default pulse length.
const UseDefault = -1

// Generator owns one wake line. Pulses on the same line are serialized and
// run to completion; there is no cancellation.
type Generator struct {
	gpio       uint32
	activeHigh bool
	driver     gpio.Driver
	logger     *zap.Logger
	sleep      func(time.Duration)
	suspend    func() (resume func())

	mu sync.Mutex
}

type Option func(*Generator)

// WithSleep replaces time.Sleep for the pulse hold.
func WithSleep(sleep func(time.Duration)) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// WithSuspend registers a hook run around every pulse. It is used when the
// wake line is also the detect line, so the sampler does not debounce our
// own drive.
func WithSuspend(suspend func() (resume func())) Option {
	return func(g *Generator) {
		g.suspend = suspend
	}
}

func NewGenerator(pin uint32, activeHigh bool, driver gpio.Driver, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		gpio:       pin,
		activeHigh: activeHigh,
		driver:     driver,
		logger:     logger,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) GPIO() uint32 { return g.gpio }

func (g *Generator) ActiveHigh() bool { return g.activeHigh }

// ResolveLength turns a caller-supplied microsecond length into a duration.
// Zero or negative lengths select boardDefaultUs.
func ResolveLength(lengthUs, boardDefaultUs int) time.Duration {
	if lengthUs <= 0 {
		lengthUs = boardDefaultUs
	}
	return time.Duration(lengthUs) * time.Microsecond
}

// Pulse drives the line active for length, then back inactive.
func (g *Generator) Pulse(length time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.suspend != nil {
		resume := g.suspend()
		defer resume()
	}

	if err := g.driver.Write(g.gpio, g.activeHigh); err != nil {
		g.logger.Error("Wakeout assert failed", zap.Uint32("gpio", g.gpio), zap.Error(err))
		return types.NewHardwareFault("wakeout assert", g.gpio, err)
	}

	g.sleep(length)

	if err := g.driver.Write(g.gpio, !g.activeHigh); err != nil {
		g.logger.Error("Wakeout release failed", zap.Uint32("gpio", g.gpio), zap.Error(err))
		return types.NewHardwareFault("wakeout release", g.gpio, err)
	}

	g.logger.Debug("Wakeout pulse sent",
		zap.Uint32("gpio", g.gpio),
		zap.Duration("length", length))
	return nil
}
