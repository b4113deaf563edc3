package board

import (
	"github.com/KevinKickass/OpenPowerCore/internal/debounce"
	"github.com/KevinKickass/OpenPowerCore/internal/hotplug"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"github.com/KevinKickass/OpenPowerCore/internal/vreg"
)

type RailSnapshot struct {
	GPIO       uint32 `json:"gpio"`
	HoldTimeUs int64  `json:"hold_time_us"`
	ActiveHigh bool   `json:"active_high"`
	DefVal     uint8  `json:"def_val"`
}

type VregSnapshot struct {
	Name         string         `json:"name"`
	NrVregs      int            `json:"nr_vregs"`
	PowerEnabled bool           `json:"power_enabled"`
	UseCount     int32          `json:"use_count"`
	Rails        []RailSnapshot `json:"rails"`
}

type DetectSnapshot struct {
	GPIO       uint32         `json:"gpio"`
	ActiveHigh bool           `json:"active_high"`
	State      debounce.State `json:"db_state"`
	LastState  debounce.State `json:"last_state"`
}

// InterfaceSnapshot is the dumpstate view of one interface. Wake, Detect,
// Hotplug and Order are only set for module ports.
type InterfaceSnapshot struct {
	ID          ID                   `json:"id"`
	Name        string               `json:"name"`
	SwitchPort  *int                 `json:"switch_port"`
	InterfaceID *ID                  `json:"interface_id"`
	Vsys        VregSnapshot         `json:"vsys"`
	Refclk      VregSnapshot         `json:"refclk"`
	ModulePort  bool                 `json:"module_port"`
	SharedWake  bool                 `json:"shared_wake_detect,omitempty"`
	WakeGPIO    *uint32              `json:"wake_gpio,omitempty"`
	Detect      *DetectSnapshot      `json:"detect,omitempty"`
	Hotplug     *hotplug.State       `json:"hotplug_state,omitempty"`
	Order       types.InterfaceOrder `json:"order,omitempty"`
}

func snapshotVreg(g *vreg.Group) VregSnapshot {
	rails := g.Rails()
	count := g.UseCount()
	s := VregSnapshot{
		Name:         g.Name(),
		NrVregs:      len(rails),
		PowerEnabled: count > 0,
		UseCount:     count,
		Rails:        make([]RailSnapshot, 0, len(rails)),
	}
	for _, r := range rails {
		s.Rails = append(s.Rails, RailSnapshot{
			GPIO:       r.GPIO,
			HoldTimeUs: r.HoldTime.Microseconds(),
			ActiveHigh: r.ActiveHigh,
			DefVal:     r.DefVal,
		})
	}
	return s
}

// Snapshot reads the interface's live state without taking any group lock.
func (r *Registry) Snapshot(i *Interface) InterfaceSnapshot {
	s := InterfaceSnapshot{
		ID:     i.ID(),
		Name:   i.Name(),
		Vsys:   snapshotVreg(i.Vsys()),
		Refclk: snapshotVreg(i.Refclk()),
	}

	if port, ok := i.SwitchPort(); ok {
		s.SwitchPort = &port
		if id, err := r.LookupIDByPort(port); err == nil {
			s.InterfaceID = &id
		}
	}

	if !i.IsModulePort() {
		return s
	}

	s.ModulePort = true
	s.SharedWake = i.Type() == types.InterfaceTypeModulePort
	if pin, ok := i.WakeGPIO(); ok {
		s.WakeGPIO = &pin
	}

	d := i.Detect()
	st := d.State()
	s.Detect = &DetectSnapshot{
		GPIO:       d.GPIO,
		ActiveHigh: d.ActiveHigh,
		State:      st.Current,
		LastState:  st.Previous,
	}
	hp := hotplug.Classify(st.Current)
	s.Hotplug = &hp
	s.Order = i.Order()

	return s
}
