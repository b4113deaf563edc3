package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KevinKickass/OpenPowerCore/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Obtain an access token",
		Long: `Log in as an operator and print the access token.

  export OPC_TOKEN=$(opcctl login admin)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}

			res, err := newClient().Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.AccessToken)
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for auth.operators[].password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			if term.IsTerminal(int(os.Stdin.Fd())) {
				confirm, err := readPassword(cmd.ErrOrStderr(), "Confirm: ")
				if err != nil {
					return err
				}
				if confirm != password {
					return fmt.Errorf("passwords do not match")
				}
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newNewTokenCmd() *cobra.Command {
	var name, role string

	cmd := &cobra.Command{
		Use:   "new-token",
		Short: "Generate a service token and its config entry",
		Long: `Generate a service token for automation clients.

The token is printed once. Only its hash goes into the daemon config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, hash, err := auth.GenerateServiceToken()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "token: %s\n\n", tok)
			fmt.Fprintln(w, "auth:")
			fmt.Fprintln(w, "  service_tokens:")
			fmt.Fprintf(w, "    - name: %s\n", name)
			fmt.Fprintf(w, "      token_hash: %s\n", hash)
			fmt.Fprintf(w, "      role: %s\n", role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "automation", "token name")
	cmd.Flags().StringVar(&role, "role", "operator", "viewer, operator or admin")
	return cmd
}

// readPassword prompts on a terminal without echo, or reads one line from
// piped stdin.
func readPassword(prompt io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
