package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/agrovihan/agrovihan/internal/logging"
	"github.com/agrovihan/agrovihan/internal/tui"
)

// NewStatusCmd shows connectivity and queue status.
func NewStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and pending uploads",
		Long: `Shows whether the ledger is reachable and how many calculations are waiting
to upload.

With --watch an interactive view stays open: queued calculations upload
automatically whenever connectivity returns, the pending count follows
calculations queued by other processes, and 's' starts a sync manually.`,
		Example: `  agrovihan status
  agrovihan status --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch {
				if !isTerminal(os.Stdout) || !isTerminal(os.Stdin) {
					return errors.New("--watch requires an interactive terminal")
				}
				return runStatusWatch(cmd)
			}
			return runStatusOnce(cmd)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep an interactive status view open")
	return cmd
}

func runStatusOnce(cmd *cobra.Command) error {
	svc, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	svc.coordinator.RefreshPending(cmd.Context())
	cmd.Println(tui.RenderStatus(svc.coordinator.State(), ""))
	return nil
}

func runStatusWatch(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	log := logging.FromContext(ctx)

	svc, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.prober != nil {
		svc.prober.Start(ctx)
	}
	if err = svc.coordinator.Start(ctx); err != nil {
		return err
	}

	// Follow enqueues and drains made by other agrovihan processes.
	if ticks, watchErr := svc.queue.Watch(ctx); watchErr != nil {
		log.Warn().Ctx(ctx).Str("component", "cli").Err(watchErr).Msg("queue watch unavailable")
	} else {
		go func() {
			for range ticks {
				svc.coordinator.RefreshPending(ctx)
			}
		}()
	}

	var toggle func()
	if svc.manual != nil && svc.ledger != nil {
		toggle = svc.manual.Toggle
	}

	model := tui.NewStatusModel(ctx, svc.coordinator, toggle)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
	if _, err = p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running status view: %w", err)
	}
	return nil
}
