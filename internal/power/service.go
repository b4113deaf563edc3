// Package power implements the operator verbs over the board registry:
// set power, wakeout, the default wakeout length, and dumpstate. Each verb
// targets one named interface or every interface.
package power

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/board"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"github.com/KevinKickass/OpenPowerCore/internal/wakeout"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PowerEvent is delivered after every successful power change on one
// interface.
type PowerEvent struct {
	ID             uuid.UUID `json:"id"`
	Interface      string    `json:"interface"`
	InterfaceID    board.ID  `json:"interface_id"`
	On             bool      `json:"on"`
	VsysUseCount   int32     `json:"vsys_use_count"`
	RefclkUseCount int32     `json:"refclk_use_count"`

	// Counts read just before the change, under the same lock.
	PreviousVsysUseCount   int32     `json:"previous_vsys_use_count"`
	PreviousRefclkUseCount int32     `json:"previous_refclk_use_count"`
	Timestamp              time.Time `json:"timestamp"`
}

type PowerListener func(PowerEvent)

// InterfaceInfo is one line of the interface usage listing.
type InterfaceInfo struct {
	ID         board.ID `json:"id"`
	Name       string   `json:"name"`
	SwitchPort *int     `json:"switch_port"`
	ModulePort bool     `json:"module_port"`
}

type Service struct {
	registry *board.Registry
	logger   *zap.Logger

	mu              sync.RWMutex
	wakeoutLengthUs int
	maxWakeoutUs    int

	listenersMu sync.RWMutex
	listeners   []PowerListener
}

// DefaultMaxWakeoutLengthUs caps explicit pulse lengths when no other
// limit is configured.
const DefaultMaxWakeoutLengthUs = 1_000_000

type Option func(*Service)

// WithMaxWakeoutLength caps explicit pulse lengths. Values below 1 keep
// DefaultMaxWakeoutLengthUs.
func WithMaxWakeoutLength(us int) Option {
	return func(s *Service) {
		if us > 0 {
			s.maxWakeoutUs = us
		}
	}
}

// NewService starts with the given default wakeout length;
// wakeout.UseDefault selects the board's own default.
func NewService(registry *board.Registry, wakeoutLengthUs int, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		registry:        registry,
		logger:          logger,
		wakeoutLengthUs: wakeoutLengthUs,
		maxWakeoutUs:    DefaultMaxWakeoutLengthUs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxWakeoutLength is the longest explicit pulse accepted, in microseconds.
func (s *Service) MaxWakeoutLength() int { return s.maxWakeoutUs }

// checkLength rejects explicit lengths above the cap. Zero and negative
// values select the board default and always pass.
func (s *Service) checkLength(us int) error {
	if us > s.maxWakeoutUs {
		return fmt.Errorf("wakeout length %dus exceeds maximum %dus: %w", us, s.maxWakeoutUs, types.ErrInvalidLength)
	}
	return nil
}

func (s *Service) Registry() *board.Registry { return s.registry }

func (s *Service) Subscribe(l PowerListener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// IsAllTarget reports whether target selects every interface.
func IsAllTarget(target string) bool {
	return target == board.AllInterfaces || target == strings.ToUpper(board.AllInterfaces)
}

func (s *Service) targets(target string) (iter.Seq[*board.Interface], error) {
	if IsAllTarget(target) {
		return s.registry.Interfaces(nil), nil
	}
	iface, err := s.registry.LookupByName(target)
	if err != nil {
		return nil, err
	}
	return func(yield func(*board.Interface) bool) { yield(iface) }, nil
}

// each runs fn over the target and stops at the first error.
func (s *Service) each(target string, fn func(*board.Interface) error) error {
	seq, err := s.targets(target)
	if err != nil {
		return err
	}
	for iface := range seq {
		if err := fn(iface); err != nil {
			return err
		}
	}
	return nil
}

// SetPower powers the target on or off. With an "all" target the first
// failure stops the walk and the remaining interfaces are left untouched.
func (s *Service) SetPower(target string, on bool) error {
	return s.each(target, func(iface *board.Interface) error {
		change, err := iface.SetPower(on)
		if err != nil {
			s.logger.Error("Set power failed",
				zap.String("interface", iface.Name()),
				zap.Bool("on", on),
				zap.Error(err))
			return err
		}

		ev := PowerEvent{
			ID:             uuid.New(),
			Interface:      iface.Name(),
			InterfaceID:    iface.ID(),
			On:             on,
			VsysUseCount:   change.After.Vsys,
			RefclkUseCount: change.After.Refclk,

			PreviousVsysUseCount:   change.Before.Vsys,
			PreviousRefclkUseCount: change.Before.Refclk,
			Timestamp:              time.Now(),
		}
		s.logger.Info("Interface power set",
			zap.String("interface", ev.Interface),
			zap.Bool("on", on),
			zap.Int32("vsys_use_count", ev.VsysUseCount))
		s.publish(ev)
		return nil
	})
}

func (s *Service) publish(ev PowerEvent) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, l := range s.listeners {
		l(ev)
	}
}

// Wakeout pulses the target's wake line. A nil lengthUs uses the current
// default wakeout length.
func (s *Service) Wakeout(target string, lengthUs *int) error {
	length := s.WakeoutLength()
	if lengthUs != nil {
		length = *lengthUs
	}
	if err := s.checkLength(length); err != nil {
		return err
	}

	return s.each(target, func(iface *board.Interface) error {
		if err := iface.Wakeout(length); err != nil {
			s.logger.Warn("Wakeout failed",
				zap.String("interface", iface.Name()),
				zap.Error(err))
			return err
		}
		s.logger.Info("Wakeout sent",
			zap.String("interface", iface.Name()),
			zap.Duration("length", wakeout.ResolveLength(length, s.registry.WakeoutDefaultUs())))
		return nil
	})
}

// WakeoutLength returns the default pulse length in microseconds.
func (s *Service) WakeoutLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wakeoutLengthUs
}

// SetWakeoutLength sets the default pulse length. Zero or negative values
// select the board default.
func (s *Service) SetWakeoutLength(us int) error {
	if err := s.checkLength(us); err != nil {
		return err
	}

	s.mu.Lock()
	s.wakeoutLengthUs = us
	s.mu.Unlock()

	s.logger.Info("Wakeout pulse length set", zap.Int("length_us", us))
	return nil
}

// EffectiveWakeoutLength is the pulse length a wakeout without an explicit
// length would use.
func (s *Service) EffectiveWakeoutLength() time.Duration {
	return wakeout.ResolveLength(s.WakeoutLength(), s.registry.WakeoutDefaultUs())
}

// DumpState snapshots the target without blocking power operations or the
// sampler.
func (s *Service) DumpState(target string) ([]board.InterfaceSnapshot, error) {
	var out []board.InterfaceSnapshot
	err := s.each(target, func(iface *board.Interface) error {
		out = append(out, s.registry.Snapshot(iface))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListInterfaces() []InterfaceInfo {
	out := make([]InterfaceInfo, 0, s.registry.Len())
	for iface := range s.registry.Interfaces(nil) {
		info := InterfaceInfo{
			ID:         iface.ID(),
			Name:       iface.Name(),
			ModulePort: iface.IsModulePort(),
		}
		if port, ok := iface.SwitchPort(); ok {
			info.SwitchPort = &port
		}
		out = append(out, info)
	}
	return out
}

// LookupIDByPort maps a switch port to an interface id.
func (s *Service) LookupIDByPort(port int) (board.ID, error) {
	id, err := s.registry.LookupIDByPort(port)
	if err != nil {
		return 0, fmt.Errorf("lookup port: %w", err)
	}
	return id, nil
}
