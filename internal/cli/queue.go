package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agrovihan/agrovihan/internal/carbon"
	"github.com/agrovihan/agrovihan/internal/config"
	"github.com/agrovihan/agrovihan/internal/logging"
	"github.com/agrovihan/agrovihan/internal/queue"
	"github.com/agrovihan/agrovihan/internal/syncer"
)

// NewQueueListCmd lists queued calculations.
func NewQueueListCmd() *cobra.Command {
	var (
		all    bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List calculations waiting to be synced",
		Example: `  # Pending calculations
  agrovihan queue list

  # Include local copies that are already synced
  agrovihan queue list --all --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQueueList(cmd, all, output)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include synced records")
	cmd.Flags().StringVar(&output, "output", "", "Output format: table, json (defaults to output.default_format)")
	return cmd
}

func runQueueList(cmd *cobra.Command, all bool, output string) error {
	if output == "" {
		output = config.GetDefaultOutputFormat()
	}

	store := queue.NewStore(config.GetGlobalConfig().Storage.QueueDir)
	if err := store.Initialize(); err != nil {
		return err
	}

	var (
		records []queue.Record
		err     error
	)
	if all {
		records, err = store.List()
	} else {
		records, err = store.ListPending()
	}
	if err != nil {
		var storageErr *queue.StorageError
		if !errors.As(err, &storageErr) || len(records) == 0 {
			return err
		}
		cmd.PrintErrf("Warning: %v\n", err)
	}

	switch output {
	case outputJSON:
		if records == nil {
			records = []queue.Record{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if encErr := encoder.Encode(records); encErr != nil {
			return fmt.Errorf("encoding queue JSON: %w", encErr)
		}
		return nil
	case outputTable:
		return renderQueueTable(cmd, records)
	default:
		return fmt.Errorf("unsupported output format: %s", output)
	}
}

func renderQueueTable(cmd *cobra.Command, records []queue.Record) error {
	if len(records) == 0 {
		cmd.Println("No queued calculations.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tEMAIL\tCO2 (kg)\tCREDITS\tSYNCED")
	fmt.Fprintln(tw, "--\t-------\t-----\t--------\t-------\t------")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Email,
			carbon.FormatFloat(r.CO2Saved, 0),
			carbon.FormatFloat(r.CarbonCredits, 2),
			r.Synced,
		)
	}
	return tw.Flush()
}

// NewQueueSyncCmd uploads pending calculations.
func NewQueueSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload pending calculations to the ledger",
		Long: `Uploads every pending calculation, one at a time. A calculation that fails
to upload stays pending and the others are still attempted.`,
		RunE: runQueueSync,
	}
}

func runQueueSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	svc, err := openServices(cmd, syncer.WithProgress(func(p syncer.ProgressSnapshot) {
		log.Debug().
			Ctx(ctx).
			Str("component", "cli").
			Str("operation", "queue_sync").
			Int("processed", p.Processed).
			Int("total", p.Total).
			Float64("records_per_second", p.RecordsPerSecond()).
			Dur("eta", p.EstimatedTimeRemaining()).
			Msg("sync progress")
	}))
	if err != nil {
		return err
	}
	defer svc.close()

	report, err := svc.coordinator.SyncAll(ctx)
	if err != nil {
		return err
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "cli").
		Str("operation", "queue_sync").
		Int("synced", len(report.Synced)).
		Int("failed", len(report.Failed)).
		Msg("sync finished")

	return renderSyncReport(cmd, report)
}

func renderSyncReport(cmd *cobra.Command, report syncer.Report) error {
	if report.Skipped {
		cmd.Printf("Offline: nothing uploaded, %d calculation(s) pending.\n", report.Pending)
		return nil
	}
	if report.Attempted == 0 {
		cmd.Println("All data synced with the server.")
		return nil
	}

	cmd.Printf("Synced %d of %d calculation(s).\n", len(report.Synced), report.Attempted)
	for _, f := range report.Failed {
		cmd.PrintErrf("  %s: %v\n", f.ID, f.Err)
	}
	if report.Pending > 0 {
		cmd.Printf("%d calculation(s) still pending.\n", report.Pending)
	}
	if !report.OK() {
		return &SyncIncompleteError{Failed: len(report.Failed)}
	}
	return nil
}

// ExitCodeSyncIncomplete is the exit code when some calculations failed to sync.
const ExitCodeSyncIncomplete = 3

// SyncIncompleteError reports a sync pass that left failed records pending.
type SyncIncompleteError struct {
	Failed int
}

func (e *SyncIncompleteError) Error() string {
	return fmt.Sprintf("%d calculation(s) failed to sync and remain pending", e.Failed)
}

// ExitCode is the process exit code for this error.
func (e *SyncIncompleteError) ExitCode() int { return ExitCodeSyncIncomplete }

// NewQueuePurgeCmd removes local copies that are already synced.
func NewQueuePurgeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete local copies of synced calculations",
		Long: `Deletes queue files whose calculations are already on the ledger. Pending
calculations are never touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQueuePurge(cmd, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runQueuePurge(cmd *cobra.Command, yes bool) error {
	store := queue.NewStore(config.GetGlobalConfig().Storage.QueueDir)
	if err := store.Initialize(); err != nil {
		return err
	}

	records, err := store.List()
	if err != nil {
		return err
	}
	synced := 0
	for _, r := range records {
		if r.Synced {
			synced++
		}
	}
	if synced == 0 {
		cmd.Println("No synced calculations to remove.")
		return nil
	}

	if !yes {
		if !isTerminal(os.Stdin) {
			return errors.New("refusing to purge without --yes in a non-interactive session")
		}
		question := fmt.Sprintf("Delete %d synced calculation(s) from the local queue?", synced)
		answer := Confirm(cmd.OutOrStdout(), cmd.InOrStdin(), question)
		if answer.Cancelled {
			return errors.New("could not read confirmation")
		}
		if !answer.Accepted {
			cmd.Println("Aborted.")
			return nil
		}
	}

	n, err := store.PurgeSynced()
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d synced calculation(s).\n", n)
	return nil
}
