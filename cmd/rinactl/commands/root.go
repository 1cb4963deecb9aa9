// Package commands implements the CLI commands for rinactl, the operator
// client for a running rinad daemon's control-API surface.
package commands

import (
	"os"

	"github.com/rina-go/rinad/cmd/rinactl/cmdutil"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rinactl",
	Short: "rinactl - operator client for the rinad control-API",
	Long: `rinactl talks to a running rinad daemon over its control-API
surface: inspect flows, connections and the PDU Forwarding Function
table, and assign IPC processes to a DIF.

Use "rinactl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands and runs the root command. Called once
// by main.main.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.ServerURL, "server", "", "Control-API HTTP address (overrides saved session)")
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.Token, "token", "", "Session token (overrides saved session)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(flowCmd)
	rootCmd.AddCommand(connCmd)
	rootCmd.AddCommand(pffCmd)
	rootCmd.AddCommand(difCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Exit prints an error to stderr and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
