package syncer

import (
	"time"
)

// Phase is the coordinator's activity. It only has meaning while online.
type Phase int

// Phases.
const (
	PhaseIdle Phase = iota
	PhaseSyncing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// State is the observable status of a Coordinator.
type State struct {
	Online  bool
	Phase   Phase
	Pending int

	// Progress of the current or most recent pass.
	Progress ProgressSnapshot

	// LastError is the most recent record failure of the last pass, or nil.
	LastError error
	// LastSync is when the last pass that reached the ledger finished.
	LastSync time.Time
	// Warning describes a non-fatal local storage problem.
	Warning string
}

// Failure is a record that could not be uploaded.
type Failure struct {
	ID  string
	Err error
}

// Report summarizes one sync pass.
type Report struct {
	// Skipped is true when the pass did not run because the coordinator was offline.
	Skipped bool
	// Attempted counts records written to the ledger, successful or not.
	Attempted int
	Synced    []string
	Failed    []Failure
	// Pending is the queue length after the pass.
	Pending  int
	Duration time.Duration
}

// OK reports whether every attempted record was synced.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}
