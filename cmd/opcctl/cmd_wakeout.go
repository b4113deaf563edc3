package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newWakeoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wakeout <interface> [<length>]",
		Short: "Send a WAKEOUT pulse to an interface",
		Long: `Drive the interface's wake line for <length> microseconds.

Without a length the daemon's current wakeout length is used. A length
of 0 or less selects the board default.

  opcctl wakeout spring1
  opcctl wakeout spring1 500`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var length *int
			if len(args) == 2 {
				v, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid pulse length %q", args[1])
				}
				length = &v
			}

			used, err := newClient().Wakeout(cmd.Context(), args[0], length)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: WAKEOUT sent (length %d us)\n", args[0], used)
			return nil
		},
	}
}

func newWakeoutLengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wakeout-length [<length>]",
		Short: "Show or set the default WAKEOUT pulse length",
		Long: `Show the WAKEOUT pulse length, or set it in microseconds.
-1 selects the board's hardcoded default.

  opcctl wakeout-length
  opcctl wakeout-length 500
  opcctl wakeout-length -- -1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()

			var (
				wl  *WakeoutLength
				err error
			)
			if len(args) == 1 {
				v, convErr := strconv.Atoi(args[0])
				if convErr != nil {
					return fmt.Errorf("invalid pulse length %q", args[0])
				}
				wl, err = client.SetWakeoutLength(cmd.Context(), v)
			} else {
				wl, err = client.GetWakeoutLength(cmd.Context())
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(wl)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "WAKEOUT pulse length is set to %d (effective %d us, board default %d us)\n",
				wl.LengthUs, wl.EffectiveUs, wl.BoardDefaultUs)
			return nil
		},
	}
}
