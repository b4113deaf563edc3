package types

// BoardProfile is the static board configuration: every interface the board
// exposes, in registration order.
type BoardProfile struct {
	Board      BoardInfo         `json:"board" yaml:"board"`
	Interfaces []InterfaceConfig `json:"interfaces" yaml:"interfaces"`
}

type BoardInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// WakeoutPulseUs is the board-hardcoded pulse length selected by the
	// "use default" sentinel.
	WakeoutPulseUs int `json:"wakeout_pulse_us" yaml:"wakeout_pulse_us"`
}

type InterfaceConfig struct {
	Name       string         `json:"name" yaml:"name"`
	SwitchPort *int           `json:"switch_port,omitempty" yaml:"switch_port,omitempty"`
	Type       InterfaceType  `json:"type" yaml:"type"`
	Order      InterfaceOrder `json:"order,omitempty" yaml:"order,omitempty"`
	Vsys       VregConfig     `json:"vsys" yaml:"vsys"`
	Refclk     VregConfig     `json:"refclk" yaml:"refclk"`

	// Only module_port2 has a dedicated wake line; module_port drives the
	// wake pulse on its detect line.
	WakeGPIO       *uint32       `json:"wake_gpio,omitempty" yaml:"wake_gpio,omitempty"`
	WakeActiveHigh *bool         `json:"wake_active_high,omitempty" yaml:"wake_active_high,omitempty"`
	Detect         *DetectConfig `json:"detect,omitempty" yaml:"detect,omitempty"`
}

type VregConfig struct {
	Name  string       `json:"name" yaml:"name"`
	Rails []RailConfig `json:"rails" yaml:"rails"`
}

type RailConfig struct {
	GPIO       uint32 `json:"gpio" yaml:"gpio"`
	HoldTimeUs uint32 `json:"hold_time_us" yaml:"hold_time_us"`
	ActiveHigh bool   `json:"active_high" yaml:"active_high"`
	DefVal     uint8  `json:"def_val" yaml:"def_val"`
}

type DetectConfig struct {
	GPIO       uint32 `json:"gpio" yaml:"gpio"`
	ActiveHigh bool   `json:"active_high" yaml:"active_high"`
}

type InterfaceType string

const (
	InterfaceTypePlain       InterfaceType = "plain"
	InterfaceTypeModulePort  InterfaceType = "module_port"
	InterfaceTypeModulePort2 InterfaceType = "module_port2"
)

// IsModulePort reports whether interfaces of this type carry a detect line.
func (t InterfaceType) IsModulePort() bool {
	return t == InterfaceTypeModulePort || t == InterfaceTypeModulePort2
}

type InterfaceOrder string

const (
	InterfaceOrderUnknown   InterfaceOrder = "unknown"
	InterfaceOrderPrimary   InterfaceOrder = "primary"
	InterfaceOrderSecondary InterfaceOrder = "secondary"
)
