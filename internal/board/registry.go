package board

import (
	"fmt"
	"iter"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"go.uber.org/zap"
)

// AllInterfaces is the target name selecting every interface.
const AllInterfaces = "all"

type options struct {
	logger        *zap.Logger
	sleep         func(time.Duration)
	debounceDepth int
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSleep replaces time.Sleep for rail hold times and wake pulses.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) { o.sleep = sleep }
}

func WithDebounceDepth(depth int) Option {
	return func(o *options) { o.debounceDepth = depth }
}

// Registry owns every Interface. It is built once from the board profile
// and never changes shape afterwards.
type Registry struct {
	boardName        string
	wakeoutDefaultUs int

	interfaces []*Interface
	byName     map[string]ID
	byPort     map[int]ID
}

func NewRegistry(profile *types.BoardProfile, driver gpio.Driver, opts ...Option) (*Registry, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, fmt.Errorf("invalid board profile: %w", err)
	}

	o := &options{
		logger:        zap.NewNop(),
		sleep:         time.Sleep,
		debounceDepth: 3,
	}
	for _, opt := range opts {
		opt(o)
	}

	r := &Registry{
		boardName:        profile.Board.Name,
		wakeoutDefaultUs: profile.Board.WakeoutPulseUs,
		interfaces:       make([]*Interface, 0, len(profile.Interfaces)),
		byName:           make(map[string]ID, len(profile.Interfaces)),
		byPort:           make(map[int]ID),
	}

	for idx, cfg := range profile.Interfaces {
		id := ID(idx + 1)
		iface, err := newInterface(id, cfg, driver, r.wakeoutDefaultUs, o)
		if err != nil {
			return nil, err
		}

		r.interfaces = append(r.interfaces, iface)
		r.byName[cfg.Name] = id
		if port, ok := iface.SwitchPort(); ok {
			r.byPort[port] = id
		}
	}

	o.logger.Info("Board registry built",
		zap.String("board", r.boardName),
		zap.Int("interfaces", len(r.interfaces)))

	return r, nil
}

func (r *Registry) BoardName() string { return r.boardName }

// WakeoutDefaultUs is the board-hardcoded wake pulse length.
func (r *Registry) WakeoutDefaultUs() int { return r.wakeoutDefaultUs }

func (r *Registry) Len() int { return len(r.interfaces) }

// Get returns the interface with the given id.
func (r *Registry) Get(id ID) (*Interface, bool) {
	if id < 1 || int(id) > len(r.interfaces) {
		return nil, false
	}
	return r.interfaces[id-1], true
}

// LookupByName is an exact, case-sensitive match.
func (r *Registry) LookupByName(name string) (*Interface, error) {
	id, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("interface %q: %w", name, types.ErrNotFound)
	}
	return r.interfaces[id-1], nil
}

// LookupIDByPort maps a switch port to the id of the interface on it.
func (r *Registry) LookupIDByPort(port int) (ID, error) {
	id, ok := r.byPort[port]
	if !ok {
		return 0, fmt.Errorf("switch port %d: %w", port, types.ErrNoMapping)
	}
	return id, nil
}

// Interfaces yields interfaces in registration order. A nil filter yields
// all of them. The sequence can be ranged over any number of times.
func (r *Registry) Interfaces(filter func(*Interface) bool) iter.Seq[*Interface] {
	return func(yield func(*Interface) bool) {
		for _, iface := range r.interfaces {
			if filter != nil && !filter(iface) {
				continue
			}
			if !yield(iface) {
				return
			}
		}
	}
}

// ModulePorts is the filter selecting interfaces with a detect line.
func ModulePorts(i *Interface) bool { return i.IsModulePort() }
