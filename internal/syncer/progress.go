package syncer

import (
	"sync"
	"time"
)

const percentMultiplier = 100

// Progress tracks a sync pass. It is safe for concurrent use.
type Progress struct {
	total     int
	processed int
	failed    int
	started   time.Time
	updated   time.Time

	mu sync.RWMutex
}

// ProgressSnapshot is an immutable copy of a Progress.
type ProgressSnapshot struct {
	Total     int
	Processed int
	Failed    int
	StartTime time.Time
	Elapsed   time.Duration
}

// NewProgress starts tracking a pass over total records.
func NewProgress(total int, now time.Time) *Progress {
	return &Progress{total: total, started: now, updated: now}
}

// Done records the outcome of one record.
func (p *Progress) Done(ok bool, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if !ok {
		p.failed++
	}
	p.updated = now
}

// Snapshot returns the current values.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		Total:     p.total,
		Processed: p.processed,
		Failed:    p.failed,
		StartTime: p.started,
		Elapsed:   p.updated.Sub(p.started),
	}
}

// PercentComplete returns processed/total as 0-100. An empty pass is complete.
func (s ProgressSnapshot) PercentComplete() float64 {
	if s.Total == 0 {
		return percentMultiplier
	}
	return float64(s.Processed) / float64(s.Total) * percentMultiplier
}

// IsComplete reports whether every record was processed.
func (s ProgressSnapshot) IsComplete() bool {
	return s.Processed >= s.Total
}

// RecordsPerSecond is the observed throughput.
func (s ProgressSnapshot) RecordsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Processed) / s.Elapsed.Seconds()
}

// EstimatedTimeRemaining extrapolates from the observed rate. It returns 0
// until at least one record was processed.
func (s ProgressSnapshot) EstimatedTimeRemaining() time.Duration {
	rate := s.RecordsPerSecond()
	if rate == 0 || s.IsComplete() {
		return 0
	}
	remaining := s.Total - s.Processed
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}
