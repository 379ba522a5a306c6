package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProgress(4, start)

	snap := p.Snapshot()
	assert.Equal(t, 0.0, snap.PercentComplete())
	assert.False(t, snap.IsComplete())
	assert.Zero(t, snap.EstimatedTimeRemaining())

	p.Done(true, start.Add(time.Second))
	p.Done(false, start.Add(2*time.Second))

	snap = p.Snapshot()
	assert.Equal(t, 50.0, snap.PercentComplete())
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 2*time.Second, snap.Elapsed)
	assert.InDelta(t, 1.0, snap.RecordsPerSecond(), 1e-9)
	assert.Equal(t, 2*time.Second, snap.EstimatedTimeRemaining())

	p.Done(true, start.Add(3*time.Second))
	p.Done(true, start.Add(4*time.Second))
	snap = p.Snapshot()
	assert.True(t, snap.IsComplete())
	assert.Equal(t, 100.0, snap.PercentComplete())
	assert.Zero(t, snap.EstimatedTimeRemaining())
}

func TestProgress_EmptyPassIsComplete(t *testing.T) {
	snap := NewProgress(0, time.Now()).Snapshot()
	assert.True(t, snap.IsComplete())
	assert.Equal(t, 100.0, snap.PercentComplete())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "syncing", PhaseSyncing.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
