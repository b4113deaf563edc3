package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPowerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "power <interface> <0|1>",
		Short: "Set the power state of an interface",
		Long: `Power an interface off (0) or on (1).

Every "on" takes a reference on the vsys and refclk supplies and every
"off" drops one, so repeated calls stack. This may interfere with the
power subsystem's own bookkeeping.

  opcctl power spring1 1
  opcctl power all 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch args[1] {
			case "0":
			case "1":
				on = true
			default:
				return fmt.Errorf("power state must be 0 or 1, got %q", args[1])
			}

			if err := newClient().SetPower(cmd.Context(), args[0], on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: power %s\n", args[0], onOff(on))
			return nil
		},
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
