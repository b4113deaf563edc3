package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newInterfacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List the legal <interface> values on this board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newClient().ListInterfaces(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(list)
			}
			printInterfaces(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newDumpstateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dumpstate <interface>",
		Short: "Dump power system state",
		Long: `Print supply, detect and hotplug state for one interface or "all".

  opcctl dumpstate all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := newClient().DumpState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(states)
			}
			for _, s := range states {
				printInterfaceState(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
