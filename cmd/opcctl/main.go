// opcctl is the operator console for an OpenPowerCore daemon.
//
// Usage:
//
//	opcctl interfaces                   List interfaces and switch ports
//	opcctl power <interface> <0|1>      Power an interface off or on
//	opcctl wakeout <interface> [<us>]   Send a WAKEOUT pulse
//	opcctl wakeout-length [<us>]        Show or set the pulse length
//	opcctl dumpstate <interface>        Dump power and detect state
//	opcctl login <username>             Obtain an access token
//	opcctl hash-password                Hash a password for the config
//	opcctl new-token                    Generate a service token
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	token      string
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "opcctl",
	Short:             "Operator console for OpenPowerCore",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `opcctl drives the power sequencing daemon over its REST API.

The target interface is a name from "opcctl interfaces" or "all".

  opcctl power spring1 1`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("OPC_SERVER", "http://localhost:8080"), "daemon base URL")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", os.Getenv("OPC_TOKEN"), "bearer token (access or service token)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")

	rootCmd.AddCommand(
		newInterfacesCmd(),
		newPowerCmd(),
		newWakeoutCmd(),
		newWakeoutLengthCmd(),
		newDumpstateCmd(),
		newLoginCmd(),
		newHashPasswordCmd(),
		newNewTokenCmd(),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() *Client {
	return NewClient(serverURL, token)
}
