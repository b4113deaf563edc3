// Package vreg sequences groups of voltage rails with reference counting.
package vreg

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"go.uber.org/zap"
)

// Rail is a single switchable power line. Immutable after configuration.
type Rail struct {
	GPIO       uint32
	HoldTime   time.Duration
	ActiveHigh bool
	DefVal     uint8
}

func (r Rail) level(active bool) bool {
	if active {
		return r.ActiveHigh
	}
	return !r.ActiveHigh
}

// Group is an ordered set of rails powered together for one purpose.
// Enable and Disable are serialized per group; UseCount and PowerEnabled
// never block.
type Group struct {
	name   string
	rails  []Rail
	driver gpio.Driver
	logger *zap.Logger
	sleep  func(time.Duration)

	mu       sync.Mutex
	useCount atomic.Int32
}

type Option func(*Group)

// WithSleep replaces time.Sleep for rail hold times.
func WithSleep(sleep func(time.Duration)) Option {
	return func(g *Group) {
		g.sleep = sleep
	}
}

func NewGroup(name string, rails []Rail, driver gpio.Driver, logger *zap.Logger, opts ...Option) *Group {
	g := &Group{
		name:   name,
		rails:  append([]Rail(nil), rails...),
		driver: driver,
		logger: logger,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Group) Name() string { return g.name }

// Rails returns a copy of the configured rails in sequencing order.
func (g *Group) Rails() []Rail {
	return append([]Rail(nil), g.rails...)
}

func (g *Group) UseCount() int32 { return g.useCount.Load() }

// PowerEnabled is derived from the use count so the two can never disagree.
func (g *Group) PowerEnabled() bool { return g.useCount.Load() > 0 }

// Reset drives every rail to its reset-time level. Called once at
// construction of the owning interface, before any Enable.
func (g *Group) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, r := range g.rails {
		if err := g.driver.Write(r.GPIO, r.DefVal != 0); err != nil {
			return types.NewHardwareFault("reset "+g.name, r.GPIO, err)
		}
	}
	return nil
}

// Enable takes a reference. The first reference drives the rails active in
// order, waiting each rail's hold time before the next.
func (g *Group) Enable() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := g.useCount.Load()
	if count > 0 {
		g.useCount.Store(count + 1)
		g.logger.Debug("Vreg reference taken",
			zap.String("vreg", g.name),
			zap.Int32("use_count", count+1))
		return nil
	}

	for i, r := range g.rails {
		if err := g.driver.Write(r.GPIO, r.level(true)); err != nil {
			fault := types.NewHardwareFault("enable "+g.name, r.GPIO, err)
			g.logger.Error("Rail enable failed",
				zap.String("vreg", g.name),
				zap.Uint32("gpio", r.GPIO),
				zap.Error(err))
			g.rollback(i)
			return fault
		}
		g.logger.Debug("Rail enabled",
			zap.String("vreg", g.name),
			zap.Uint32("gpio", r.GPIO),
			zap.Duration("hold_time", r.HoldTime))
		if r.HoldTime > 0 {
			g.sleep(r.HoldTime)
		}
	}

	g.useCount.Store(1)
	g.logger.Info("Vreg powered on", zap.String("vreg", g.name))
	return nil
}

// rollback drives rails [0, n) back inactive in reverse order after a
// failed enable. Errors are logged; the original fault is what the caller sees.
func (g *Group) rollback(n int) {
	for i := n - 1; i >= 0; i-- {
		r := g.rails[i]
		if err := g.driver.Write(r.GPIO, r.level(false)); err != nil {
			g.logger.Error("Rail rollback failed",
				zap.String("vreg", g.name),
				zap.Uint32("gpio", r.GPIO),
				zap.Error(err))
		}
	}
}

// Disable drops a reference. The last reference drives the rails inactive
// in reverse order. Disable with no outstanding references returns
// ErrMisuse and changes nothing.
func (g *Group) Disable() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := g.useCount.Load()
	if count == 0 {
		g.logger.Warn("Vreg disable with zero use count", zap.String("vreg", g.name))
		return fmt.Errorf("disable %s with zero use count: %w", g.name, types.ErrMisuse)
	}
	if count > 1 {
		g.useCount.Store(count - 1)
		g.logger.Debug("Vreg reference released",
			zap.String("vreg", g.name),
			zap.Int32("use_count", count-1))
		return nil
	}

	// Every rail is attempted even after a failure so nothing is left on.
	var errs []error
	for i := len(g.rails) - 1; i >= 0; i-- {
		r := g.rails[i]
		if err := g.driver.Write(r.GPIO, r.level(false)); err != nil {
			g.logger.Error("Rail disable failed",
				zap.String("vreg", g.name),
				zap.Uint32("gpio", r.GPIO),
				zap.Error(err))
			errs = append(errs, types.NewHardwareFault("disable "+g.name, r.GPIO, err))
			continue
		}
		g.logger.Debug("Rail disabled",
			zap.String("vreg", g.name),
			zap.Uint32("gpio", r.GPIO))
	}

	g.useCount.Store(0)
	g.logger.Info("Vreg powered off", zap.String("vreg", g.name))
	return errors.Join(errs...)
}
