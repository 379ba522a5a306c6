package syncer

import (
	"context"
	"fmt"

	"github.com/agrovihan/agrovihan/internal/carbon"
	"github.com/agrovihan/agrovihan/internal/ledger"
	"github.com/agrovihan/agrovihan/internal/logging"
	"github.com/agrovihan/agrovihan/internal/queue"
)

// Owner identifies who a calculation belongs to.
type Owner struct {
	Email    string
	Username string
}

// Outcome is the result of recording one calculation.
type Outcome struct {
	// Result is always populated, whatever happened to persistence.
	Result carbon.Result

	// Entry is the ledger document when the direct write succeeded.
	Entry *ledger.Entry
	// QueuedID is the local record id when the calculation was queued.
	QueuedID string

	// RemoteErr is the ledger failure that caused queueing, if any.
	RemoteErr error
	// Warning is set when the calculation could not be persisted anywhere.
	Warning string
}

// Saved reports whether the calculation reached the ledger.
func (o Outcome) Saved() bool { return o.Entry != nil }

// Queued reports whether the calculation went to the local queue.
func (o Outcome) Queued() bool { return o.QueuedID != "" }

// Record calculates practices and persists the result: straight to the
// ledger when online, otherwise (or when that write fails) to the local
// queue. Failing to persist never hides the calculation.
func (c *Coordinator) Record(ctx context.Context, owner Owner, practices carbon.Practices) (Outcome, error) {
	if owner.Email == "" {
		return Outcome{}, ErrMissingEmail
	}

	log := logging.FromContext(ctx)
	result := carbon.Calculate(practices)
	out := Outcome{Result: result}

	if c.observer.Online() {
		entry, err := c.writer.Save(ctx, ledger.Submission{
			Email:         owner.Email,
			Username:      owner.Username,
			CarbonCredits: result.Credits,
			CO2Saved:      result.TotalCO2,
			Details:       practices,
		})
		if err == nil {
			out.Entry = &entry
			return out, nil
		}
		out.RemoteErr = fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
		log.Warn().Ctx(ctx).
			Str("component", "syncer").
			Str("operation", "record").
			Err(err).
			Msg("ledger write failed, queueing locally")
	}

	id, err := c.queue.Enqueue(queue.NewInput(owner.Email, owner.Username, practices, result))
	if err != nil {
		out.Warning = fmt.Sprintf("calculation not saved: %v", err)
		c.warn(ctx, out.Warning)
		return out, nil
	}
	out.QueuedID = id
	c.RefreshPending(ctx)

	log.Info().Ctx(ctx).
		Str("component", "syncer").
		Str("operation", "record").
		Str("record_id", id).
		Msg("calculation queued for sync")
	return out, nil
}
