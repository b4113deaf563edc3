// Package board holds the fixed table of hot-pluggable interfaces built from
// the static board profile, and the periodic task that debounces their
// detect lines.
package board

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/debounce"
	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/hotplug"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"github.com/KevinKickass/OpenPowerCore/internal/vreg"
	"github.com/KevinKickass/OpenPowerCore/internal/wakeout"
	"go.uber.org/zap"
)

// ID is an interface's stable 1-based index in the registry.
type ID int

// DetectState is the published view of a detect line. Readers get it
// without blocking the sampler.
type DetectState struct {
	Current  debounce.State
	Previous debounce.State
}

// Detect is the wake/detect input of a module port. Only the sampler
// advances it.
type Detect struct {
	GPIO       uint32
	ActiveHigh bool

	engine  *debounce.Engine
	tracker hotplug.Tracker
	state   atomic.Pointer[DetectState]

	// Held by a wake pulse on a shared line; the sampler skips the tick
	// instead of waiting.
	line sync.Mutex
}

func newDetect(cfg *types.DetectConfig, depth int) *Detect {
	d := &Detect{
		GPIO:       cfg.GPIO,
		ActiveHigh: cfg.ActiveHigh,
		engine:     debounce.NewEngine(depth),
	}
	d.state.Store(&DetectState{})
	return d
}

// State returns the latest published debounce states.
func (d *Detect) State() DetectState {
	return *d.state.Load()
}

func (d *Detect) suspend() func() {
	d.line.Lock()
	return d.line.Unlock
}

// sample reads the line once and advances the engine. skipped is true when
// a wake pulse owns the line.
func (d *Detect) sample(driver gpio.Driver) (change hotplug.Change, changed, skipped bool, err error) {
	if !d.line.TryLock() {
		return hotplug.Change{}, false, true, nil
	}
	defer d.line.Unlock()

	raw, err := driver.Read(d.GPIO)
	if err != nil {
		return hotplug.Change{}, false, false, types.NewHardwareFault("detect sample", d.GPIO, err)
	}

	tr := d.engine.Step(raw == d.ActiveHigh)
	if tr.Changed {
		d.state.Store(&DetectState{Current: d.engine.Current(), Previous: d.engine.Previous()})
	}

	change, changed = d.tracker.Observe(d.engine.Current())
	return change, changed, false, nil
}

type Interface struct {
	id         ID
	name       string
	switchPort *int
	ifType     types.InterfaceType
	order      types.InterfaceOrder

	vsys   *vreg.Group
	refclk *vreg.Group

	wake             *wakeout.Generator
	detect           *Detect
	wakeoutDefaultUs int

	powerMu sync.Mutex

	logger *zap.Logger
}

func newInterface(id ID, cfg types.InterfaceConfig, driver gpio.Driver, wakeoutDefaultUs int, o *options) (*Interface, error) {
	logger := o.logger.With(zap.String("interface", cfg.Name))

	iface := &Interface{
		id:               id,
		name:             cfg.Name,
		ifType:           cfg.Type,
		order:            cfg.Order,
		wakeoutDefaultUs: wakeoutDefaultUs,
		logger:           logger,
	}
	if cfg.SwitchPort != nil {
		port := *cfg.SwitchPort
		iface.switchPort = &port
	}

	iface.vsys = vreg.NewGroup(cfg.Vsys.Name, railsFrom(cfg.Vsys), driver, logger, vreg.WithSleep(o.sleep))
	iface.refclk = vreg.NewGroup(cfg.Refclk.Name, railsFrom(cfg.Refclk), driver, logger, vreg.WithSleep(o.sleep))

	for _, g := range []*vreg.Group{iface.vsys, iface.refclk} {
		if err := g.Reset(); err != nil {
			return nil, fmt.Errorf("interface %s: %w", cfg.Name, err)
		}
	}

	switch cfg.Type {
	case types.InterfaceTypeModulePort:
		iface.detect = newDetect(cfg.Detect, o.debounceDepth)
		iface.wake = wakeout.NewGenerator(cfg.Detect.GPIO, cfg.Detect.ActiveHigh, driver, logger,
			wakeout.WithSleep(o.sleep),
			wakeout.WithSuspend(iface.detect.suspend))

	case types.InterfaceTypeModulePort2:
		iface.detect = newDetect(cfg.Detect, o.debounceDepth)
		activeHigh := true
		if cfg.WakeActiveHigh != nil {
			activeHigh = *cfg.WakeActiveHigh
		}
		iface.wake = wakeout.NewGenerator(*cfg.WakeGPIO, activeHigh, driver, logger,
			wakeout.WithSleep(o.sleep))
		if err := driver.Write(*cfg.WakeGPIO, !activeHigh); err != nil {
			return nil, fmt.Errorf("interface %s: %w", cfg.Name,
				types.NewHardwareFault("wake reset", *cfg.WakeGPIO, err))
		}
	}

	return iface, nil
}

func railsFrom(cfg types.VregConfig) []vreg.Rail {
	rails := make([]vreg.Rail, 0, len(cfg.Rails))
	for _, r := range cfg.Rails {
		rails = append(rails, vreg.Rail{
			GPIO:       r.GPIO,
			HoldTime:   time.Duration(r.HoldTimeUs) * time.Microsecond,
			ActiveHigh: r.ActiveHigh,
			DefVal:     r.DefVal,
		})
	}
	return rails
}

func (i *Interface) ID() ID { return i.id }

func (i *Interface) Name() string { return i.name }

// SwitchPort returns the interface's switch port, if it has one.
func (i *Interface) SwitchPort() (int, bool) {
	if i.switchPort == nil {
		return 0, false
	}
	return *i.switchPort, true
}

func (i *Interface) Type() types.InterfaceType { return i.ifType }

func (i *Interface) Order() types.InterfaceOrder { return i.order }

func (i *Interface) IsModulePort() bool { return i.detect != nil }

func (i *Interface) Vsys() *vreg.Group { return i.vsys }

func (i *Interface) Refclk() *vreg.Group { return i.refclk }

// Detect returns the detect line, or nil for interfaces without one.
func (i *Interface) Detect() *Detect { return i.detect }

// WakeGPIO returns the line wake pulses are driven on.
func (i *Interface) WakeGPIO() (uint32, bool) {
	if i.wake == nil {
		return 0, false
	}
	return i.wake.GPIO(), true
}

// HotplugState is derived from the latest debounce state.
func (i *Interface) HotplugState() hotplug.State {
	if i.detect == nil {
		return hotplug.StateUnknown
	}
	return hotplug.Classify(i.detect.State().Current)
}

// PowerCounts is the reference count of both supplies at one instant.
type PowerCounts struct {
	Vsys   int32
	Refclk int32
}

// PowerChange is the supply state on either side of one power call, read
// while the interface is locked.
type PowerChange struct {
	Before PowerCounts
	After  PowerCounts
}

func (i *Interface) counts() PowerCounts {
	return PowerCounts{Vsys: i.vsys.UseCount(), Refclk: i.refclk.UseCount()}
}

// SetPower runs PowerOn or PowerOff as one unit with respect to other
// power calls on this interface.
func (i *Interface) SetPower(on bool) (PowerChange, error) {
	i.powerMu.Lock()
	defer i.powerMu.Unlock()

	change := PowerChange{Before: i.counts()}
	var err error
	if on {
		err = i.powerOn()
	} else {
		err = i.powerOff()
	}
	change.After = i.counts()
	return change, err
}

// PowerOn takes a reference on the system supply, then the reference clock.
func (i *Interface) PowerOn() error {
	_, err := i.SetPower(true)
	return err
}

// PowerOff drops the reference clock, then the system supply.
func (i *Interface) PowerOff() error {
	_, err := i.SetPower(false)
	return err
}

func (i *Interface) powerOn() error {
	if err := i.vsys.Enable(); err != nil {
		return fmt.Errorf("interface %s: %w", i.name, err)
	}
	if err := i.refclk.Enable(); err != nil {
		if rerr := i.vsys.Disable(); rerr != nil {
			i.logger.Error("Failed to release vsys after refclk failure", zap.Error(rerr))
		}
		return fmt.Errorf("interface %s: %w", i.name, err)
	}
	return nil
}

// powerOff leaves both supplies untouched when the reference clock holds no
// reference. After a refclk hardware fault vsys is still released and the
// fault is returned.
func (i *Interface) powerOff() error {
	errRefclk := i.refclk.Disable()
	if errors.Is(errRefclk, types.ErrMisuse) {
		return fmt.Errorf("interface %s: %w", i.name, errRefclk)
	}
	errVsys := i.vsys.Disable()
	if errRefclk != nil {
		if errVsys != nil {
			i.logger.Error("Failed to release vsys after refclk failure", zap.Error(errVsys))
		}
		return fmt.Errorf("interface %s: %w", i.name, errRefclk)
	}
	if errVsys != nil {
		return fmt.Errorf("interface %s: %w", i.name, errVsys)
	}
	return nil
}

// Wakeout pulses the wake line. lengthUs <= 0 uses the board default.
func (i *Interface) Wakeout(lengthUs int) error {
	if i.wake == nil {
		return fmt.Errorf("wakeout on %s: %w", i.name, types.ErrUnsupported)
	}
	if err := i.wake.Pulse(wakeout.ResolveLength(lengthUs, i.wakeoutDefaultUs)); err != nil {
		return fmt.Errorf("wakeout on %s: %w", i.name, err)
	}
	return nil
}
