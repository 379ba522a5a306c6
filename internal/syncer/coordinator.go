package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/agrovihan/agrovihan/internal/connectivity"
	"github.com/agrovihan/agrovihan/internal/ledger"
	"github.com/agrovihan/agrovihan/internal/logging"
	"github.com/agrovihan/agrovihan/internal/queue"
)

// Queue is the local store the coordinator drains.
type Queue interface {
	// LockSync blocks until no other pass, in any process, is draining the
	// same queue.
	LockSync(ctx context.Context) (func(), error)
	Enqueue(in queue.Input) (string, error)
	ListPending() ([]queue.Record, error)
	PendingCount() (int, error)
	MarkSynced(id string) error
	Remove(id string) error
}

// Writer is the part of the ledger the coordinator writes to.
type Writer interface {
	Save(ctx context.Context, sub ledger.Submission) (ledger.Entry, error)
}

const syncFlightKey = "sync"

// Coordinator drains the local queue into the ledger when online.
type Coordinator struct {
	queue    Queue
	writer   Writer
	observer connectivity.Observer

	removeAfterSync bool
	now             func() time.Time
	onProgress      func(ProgressSnapshot)

	flight singleflight.Group
	// callers counts SyncAll calls waiting on a pass.
	callers atomic.Int32

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRemoveAfterSync deletes local copies once they are synced instead of
// keeping them flagged.
func WithRemoveAfterSync(remove bool) Option {
	return func(c *Coordinator) { c.removeAfterSync = remove }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithProgress registers a callback invoked after every record of a pass.
func WithProgress(fn func(ProgressSnapshot)) Option {
	return func(c *Coordinator) { c.onProgress = fn }
}

// New returns an idle Coordinator. Call Start to begin observing connectivity.
func New(q Queue, w Writer, observer connectivity.Observer, opts ...Option) *Coordinator {
	c := &Coordinator{
		queue:    q,
		writer:   w,
		observer: observer,
		now:      time.Now,
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Online = observer.Online()
	return c
}

// Start publishes the initial pending count and begins reacting to
// connectivity transitions. A storage failure while counting becomes a
// warning in State.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.update(func(s *State) { s.Online = c.observer.Online() })
	c.RefreshPending(ctx)

	events, unsubscribe := c.observer.Subscribe()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer unsubscribe()
		c.watchConnectivity(ctx, events)
	}()

	return nil
}

// Close stops observing connectivity, waits for the event loop and closes
// every subscription. A pass started by the event loop is cancelled.
func (c *Coordinator) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Coordinator) watchConnectivity(ctx context.Context, events <-chan connectivity.Event) {
	log := logging.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.update(func(s *State) { s.Online = ev.Online })
			log.Debug().Ctx(ctx).
				Str("component", "syncer").
				Bool("online", ev.Online).
				Msg("connectivity transition")
			if !ev.Online {
				continue
			}
			if _, err := c.SyncAll(ctx); err != nil {
				log.Warn().Ctx(ctx).
					Str("component", "syncer").
					Err(err).
					Msg("sync after reconnect failed")
			}
		}
	}
}

// SyncAll uploads every pending record. Concurrent calls share one pass and
// receive the same Report. Passes in other processes sharing the queue
// directory are waited for, so a record is never uploaded by two of them.
// The error is non-nil only when the queue could not be listed or locked;
// per-record failures are in the Report.
func (c *Coordinator) SyncAll(ctx context.Context) (Report, error) {
	ch := c.flight.DoChan(syncFlightKey, func() (any, error) {
		return c.syncPass(ctx)
	})
	c.callers.Add(1)
	res := <-ch
	c.callers.Add(-1)

	report, _ := res.Val.(Report)
	return report, res.Err
}

func (c *Coordinator) syncPass(ctx context.Context) (Report, error) {
	log := logging.FromContext(ctx)
	start := c.now()

	if !c.observer.Online() {
		c.update(func(s *State) { s.Online = false })
		log.Debug().Ctx(ctx).
			Str("component", "syncer").
			Str("operation", "sync").
			Msg("offline, sync skipped")
		return Report{Skipped: true, Pending: c.RefreshPending(ctx)}, nil
	}

	unlock, err := c.queue.LockSync(ctx)
	if err != nil {
		c.update(func(s *State) { s.Warning = err.Error() })
		return Report{}, fmt.Errorf("waiting for sync lock: %w", err)
	}
	defer unlock()

	pending, listErr := c.queue.ListPending()
	if listErr != nil {
		c.update(func(s *State) { s.Warning = listErr.Error() })
		if len(pending) == 0 {
			return Report{}, fmt.Errorf("listing pending records: %w", listErr)
		}
		log.Warn().Ctx(ctx).
			Str("component", "syncer").
			Err(listErr).
			Int("readable", len(pending)).
			Msg("some queued records are unreadable, syncing the rest")
	}

	if len(pending) == 0 {
		c.update(func(s *State) {
			s.Online = true
			s.Pending = 0
		})
		return Report{Duration: c.now().Sub(start)}, nil
	}

	log.Info().Ctx(ctx).
		Str("component", "syncer").
		Str("operation", "sync").
		Int("pending", len(pending)).
		Msg("sync started")

	progress := NewProgress(len(pending), start)
	c.update(func(s *State) {
		s.Online = true
		s.Phase = PhaseSyncing
		s.Progress = progress.Snapshot()
		s.LastError = nil
	})

	report := Report{}
	var lastErr error
	for _, rec := range pending {
		report.Attempted++
		err := c.upload(ctx, rec)
		if err != nil {
			lastErr = err
			report.Failed = append(report.Failed, Failure{ID: rec.ID, Err: err})
			log.Warn().Ctx(ctx).
				Str("component", "syncer").
				Str("record_id", rec.ID).
				Err(err).
				Msg("record left pending")
		} else {
			report.Synced = append(report.Synced, rec.ID)
		}

		progress.Done(err == nil, c.now())
		snap := progress.Snapshot()
		c.update(func(s *State) { s.Progress = snap })
		if c.onProgress != nil {
			c.onProgress(snap)
		}
	}

	finished := c.now()
	c.update(func(s *State) {
		s.Phase = PhaseIdle
		s.LastError = lastErr
		s.LastSync = finished
	})
	report.Pending = c.RefreshPending(ctx)
	report.Duration = finished.Sub(start)

	log.Info().Ctx(ctx).
		Str("component", "syncer").
		Str("operation", "sync").
		Int("synced", len(report.Synced)).
		Int("failed", len(report.Failed)).
		Int("pending", report.Pending).
		Dur("duration", report.Duration).
		Msg("sync finished")

	return report, nil
}

// upload writes one record and flags it synced. A local bookkeeping failure
// after a successful write is only a warning: the record is on the ledger.
func (c *Coordinator) upload(ctx context.Context, rec queue.Record) error {
	in := rec.Input()
	_, err := c.writer.Save(ctx, ledger.Submission{
		Email:         in.Email,
		Username:      in.Username,
		CarbonCredits: in.CarbonCredits,
		CO2Saved:      in.CO2Saved,
		Details:       in.Details,
	})
	if err != nil {
		return fmt.Errorf("%w: record %s: %w", ErrRemoteWriteFailed, rec.ID, err)
	}

	if err := c.queue.MarkSynced(rec.ID); err != nil {
		c.warn(ctx, fmt.Sprintf("record %s uploaded but not marked synced: %v", rec.ID, err))
		return nil
	}
	if c.removeAfterSync {
		if err := c.queue.Remove(rec.ID); err != nil {
			c.warn(ctx, fmt.Sprintf("record %s synced but local copy not removed: %v", rec.ID, err))
		}
	}
	return nil
}

// RefreshPending recounts the queue, publishes the count and returns it.
// On failure the previous count is kept and a warning is published.
func (c *Coordinator) RefreshPending(ctx context.Context) int {
	n, err := c.queue.PendingCount()
	if err != nil {
		c.warn(ctx, fmt.Sprintf("could not count pending uploads: %v", err))
		return c.State().Pending
	}
	c.update(func(s *State) { s.Pending = n })
	return n
}

func (c *Coordinator) warn(ctx context.Context, msg string) {
	logging.FromContext(ctx).Warn().Ctx(ctx).
		Str("component", "syncer").
		Msg(msg)
	c.update(func(s *State) { s.Warning = msg })
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel that receives the latest State after every
// change, starting with the current one. Slow readers only see the newest
// value. The channel is closed by cancel or Close.
func (c *Coordinator) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 1)
	ch <- c.state
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (c *Coordinator) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn(&c.state)
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.state
	}
}
