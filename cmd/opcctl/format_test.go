package main

import (
	"bytes"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestPrintInterfaces(t *testing.T) {
	var buf bytes.Buffer
	printInterfaces(&buf, &InterfaceList{
		Board: "evt2",
		Interfaces: []InterfaceInfo{
			{ID: 1, Name: "apb1", SwitchPort: intPtr(0)},
			{ID: 2, Name: "spring1"},
		},
	})

	want := "Legal <interface> values on board evt2:\n" +
		"  \"all\" -- all interfaces\n" +
		"  apb1\t(switch port 0)\n" +
		"  spring1\t(no switch port)\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestPrintInterfaceState(t *testing.T) {
	wake := uint32(31)
	plain := InterfaceState{
		Name: "apb1",
		Vsys: VregState{
			Name:    "apb1_vsys",
			NrVregs: 1,
			Rails:   []RailState{{GPIO: 10, HoldTimeUs: 100, ActiveHigh: true}},
		},
		Refclk: VregState{Name: "apb1_refclk"},
	}
	module := InterfaceState{
		Name:        "spring2",
		SwitchPort:  intPtr(6),
		InterfaceID: intPtr(3),
		Vsys:        VregState{Name: "spring2_vsys", NrVregs: 1, PowerEnabled: true, UseCount: 2, Rails: []RailState{{GPIO: 30, DefVal: 1}}},
		Refclk:      VregState{Name: "spring2_refclk"},
		ModulePort:  true,
		WakeGPIO:    &wake,
		Detect:      &DetectState{GPIO: 32, State: "active stable", LastState: "active debounce"},
		Hotplug:     "plugged",
		Order:       "secondary",
	}

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		printInterfaceState(&buf, plain)
		out := buf.String()

		for _, want := range []string{
			"Interface apb1:\n",
			"\tswitch_portid=<none>\n\tinterface ID=<unknown>\n",
			"\t\tvregs[0]: gpio 10, hold_time 100, active_high 1, def_val 0\n",
			"\tvreg: apb1_refclk\n\t\t(no vregs)\n\t\tnr_vregs=0\n",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q in:\n%s", want, out)
			}
		}
		if strings.Contains(out, "hotplug state") {
			t.Error("plain interface printed detect state")
		}
	})

	t.Run("module port with dedicated wake", func(t *testing.T) {
		var buf bytes.Buffer
		printInterfaceState(&buf, module)
		out := buf.String()

		for _, want := range []string{
			"\tswitch_portid=6\n\tinterface ID=3\n",
			"\t\tpower_enabled=true\n\t\tuse_count=2\n",
			"\twake:\n\t\tgpio: 31\n\tdetect:\n\t\tgpio: 32\n\t\tpolarity: low\n",
			"\t\tdb_state: active stable\n\t\tlast_state: active debounce\n",
			"\thotplug state: plugged\n\torder: secondary\n",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q in:\n%s", want, out)
			}
		}
	})

	t.Run("shared wake/detect line", func(t *testing.T) {
		shared := module
		shared.SharedWake = true
		shared.WakeGPIO = nil

		var buf bytes.Buffer
		printInterfaceState(&buf, shared)
		if out := buf.String(); !strings.Contains(out, "\twake/detect:\n\t\tgpio: 32\n") {
			t.Errorf("missing shared line header in:\n%s", out)
		}
	})
}
