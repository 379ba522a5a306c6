// Package cli implements the agrovihan command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agrovihan/agrovihan/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the agrovihan CLI.
// It wires up logging and tracing, then registers every subcommand.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:     "agrovihan",
		Short:   "Farm carbon credit calculator with offline sync",
		Long:    "agrovihan: calculate CO2 savings and carbon credits from farming practices, queue them offline and sync them to the ledger",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().Bool("offline", false, "never contact the ledger, queue calculations locally")
	cmd.AddCommand(
		NewCalcCmd(),
		newQueueCmd(),
		NewTotalsCmd(),
		NewHistoryCmd(),
		NewVerifyCmd(),
		NewStatusCmd(),
		newConfigCmd(),
	)

	return cmd
}

const rootCmdExample = `  # Calculate credits for 10 trees and a solar pump
  agrovihan calc --email farmer@example.com --trees 10 --solar-pumps 1

  # Calculate without contacting the ledger
  agrovihan calc --offline --email farmer@example.com --cows-reduced 2

  # Upload queued calculations
  agrovihan queue sync

  # Show running totals
  agrovihan totals --email farmer@example.com

  # Watch sync status interactively
  agrovihan status --watch

  # Set a default identity
  agrovihan config set identity.email farmer@example.com`

// newQueueCmd creates the queue command group.
func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Offline queue commands"}
	cmd.AddCommand(NewQueueListCmd(), NewQueueSyncCmd(), NewQueuePurgeCmd())
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(
		NewConfigInitCmd(), NewConfigSetCmd(), NewConfigGetCmd(),
		NewConfigListCmd(), NewConfigValidateCmd(),
	)
	return cmd
}
