package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrovihan/agrovihan/internal/config"
	"github.com/agrovihan/agrovihan/internal/connectivity"
	"github.com/agrovihan/agrovihan/internal/ledger"
	"github.com/agrovihan/agrovihan/internal/logging"
	"github.com/agrovihan/agrovihan/internal/queue"
	"github.com/agrovihan/agrovihan/internal/syncer"
)

// services bundles the stores and the sync coordinator a command works with.
type services struct {
	cfg         *config.Config
	queue       *queue.Store
	ledger      *ledger.SQLite
	ledgerErr   error
	observer    connectivity.Observer
	manual      *connectivity.Switch
	prober      *connectivity.Prober
	coordinator *syncer.Coordinator
}

// unavailableLedger stands in for a ledger that could not be opened so
// calculations still fall back to the queue.
type unavailableLedger struct{ err error }

func (u unavailableLedger) Save(context.Context, ledger.Submission) (ledger.Entry, error) {
	return ledger.Entry{}, u.err
}

// openServices wires the queue, ledger, connectivity observer and coordinator
// from the global config and the --offline flag. Local storage and ledger
// problems are reported as warnings; only the commands that need the ledger
// directly fail on them (see requireLedger). opts are passed to the coordinator.
func openServices(cmd *cobra.Command, opts ...syncer.Option) (*services, error) {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	cfg := config.GetGlobalConfig()
	svc := &services{cfg: cfg}

	svc.queue = queue.NewStore(cfg.Storage.QueueDir)
	if err := svc.queue.Initialize(); err != nil {
		log.Warn().Ctx(ctx).Str("component", "cli").Err(err).Msg("offline queue unavailable")
		cmd.PrintErrf("Warning: offline queue unavailable: %v\n", err)
	}

	var writer syncer.Writer
	l, err := ledger.OpenSQLite(cfg.Storage.LedgerPath)
	if err != nil {
		svc.ledgerErr = fmt.Errorf("opening ledger: %w", err)
		log.Warn().Ctx(ctx).Str("component", "cli").Err(err).Msg("ledger unavailable")
		writer = unavailableLedger{err: svc.ledgerErr}
	} else {
		svc.ledger = l
		writer = l
	}

	offline, _ := cmd.Flags().GetBool("offline")
	switch {
	case offline || cfg.Sync.Offline || svc.ledger == nil:
		svc.manual = connectivity.NewSwitch(false)
		svc.observer = svc.manual
	case cfg.Sync.ProbeAddress != "":
		p, probeErr := connectivity.NewProber(cfg.Sync.ProbeAddress,
			connectivity.WithInterval(cfg.Sync.ProbeInterval),
			connectivity.WithTimeout(cfg.Sync.ProbeTimeout),
		)
		if probeErr != nil {
			svc.close()
			return nil, probeErr
		}
		p.Probe(ctx)
		svc.prober = p
		svc.observer = p
	default:
		svc.manual = connectivity.NewSwitch(true)
		svc.observer = svc.manual
	}

	opts = append([]syncer.Option{syncer.WithRemoveAfterSync(cfg.Sync.RemoveAfterSync)}, opts...)
	svc.coordinator = syncer.New(svc.queue, writer, svc.observer, opts...)
	return svc, nil
}

// requireLedger returns the ledger or the reason it is unavailable.
func (s *services) requireLedger() (*ledger.SQLite, error) {
	if s.ledger == nil {
		if s.ledgerErr != nil {
			return nil, s.ledgerErr
		}
		return nil, errors.New("ledger unavailable")
	}
	return s.ledger, nil
}

func (s *services) close() {
	if s.coordinator != nil {
		s.coordinator.Close()
	}
	if s.prober != nil {
		s.prober.Stop()
	}
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
}

// resolveIdentity fills empty email/username from the config defaults.
func resolveIdentity(email, username string) (string, string) {
	id := config.GetDefaultIdentity()
	if email == "" {
		email = id.Email
	}
	if username == "" {
		username = id.Username
	}
	return email, username
}
