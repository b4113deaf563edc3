package main

import (
	"fmt"
	"io"
)

func printInterfaces(w io.Writer, list *InterfaceList) {
	fmt.Fprintf(w, "Legal <interface> values on board %s:\n", list.Board)
	fmt.Fprintln(w, "  \"all\" -- all interfaces")
	for _, iface := range list.Interfaces {
		if iface.SwitchPort != nil {
			fmt.Fprintf(w, "  %s\t(switch port %d)\n", iface.Name, *iface.SwitchPort)
		} else {
			fmt.Fprintf(w, "  %s\t(no switch port)\n", iface.Name)
		}
	}
}

func printVreg(w io.Writer, v VregState) {
	fmt.Fprintf(w, "\tvreg: %s\n", v.Name)
	if len(v.Rails) == 0 {
		fmt.Fprintln(w, "\t\t(no vregs)")
	}
	fmt.Fprintf(w, "\t\tnr_vregs=%d\n", v.NrVregs)
	fmt.Fprintf(w, "\t\tpower_enabled=%t\n", v.PowerEnabled)
	fmt.Fprintf(w, "\t\tuse_count=%d\n", v.UseCount)
	for i, r := range v.Rails {
		fmt.Fprintf(w, "\t\tvregs[%d]: gpio %d, hold_time %d, active_high %d, def_val %d\n",
			i, r.GPIO, r.HoldTimeUs, boolDigit(r.ActiveHigh), r.DefVal)
	}
}

func printInterfaceState(w io.Writer, s InterfaceState) {
	fmt.Fprintf(w, "Interface %s:\n", s.Name)

	if s.SwitchPort == nil {
		fmt.Fprintln(w, "\tswitch_portid=<none>")
		fmt.Fprintln(w, "\tinterface ID=<unknown>")
	} else {
		fmt.Fprintf(w, "\tswitch_portid=%d\n", *s.SwitchPort)
		if s.InterfaceID != nil {
			fmt.Fprintf(w, "\tinterface ID=%d\n", *s.InterfaceID)
		} else {
			fmt.Fprintln(w, "\tinterface ID=<unknown>")
		}
	}

	printVreg(w, s.Vsys)
	printVreg(w, s.Refclk)

	if !s.ModulePort || s.Detect == nil {
		return
	}

	if s.SharedWake {
		fmt.Fprintln(w, "\twake/detect:")
	} else {
		fmt.Fprintln(w, "\twake:")
		if s.WakeGPIO != nil {
			fmt.Fprintf(w, "\t\tgpio: %d\n", *s.WakeGPIO)
		}
		fmt.Fprintln(w, "\tdetect:")
	}
	fmt.Fprintf(w, "\t\tgpio: %d\n", s.Detect.GPIO)
	fmt.Fprintf(w, "\t\tpolarity: %s\n", polarity(s.Detect.ActiveHigh))
	fmt.Fprintf(w, "\t\tdb_state: %s\n", s.Detect.State)
	fmt.Fprintf(w, "\t\tlast_state: %s\n", s.Detect.LastState)
	fmt.Fprintf(w, "\thotplug state: %s\n", s.Hotplug)
	fmt.Fprintf(w, "\torder: %s\n", s.Order)
}

func polarity(activeHigh bool) string {
	if activeHigh {
		return "high"
	}
	return "low"
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}
