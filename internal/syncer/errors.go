package syncer

import "errors"

// Sentinel errors.
var (
	// ErrRemoteWriteFailed wraps a ledger failure for a single record.
	ErrRemoteWriteFailed = errors.New("remote write failed")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("coordinator already started")

	// ErrMissingEmail is returned by Record for an anonymous owner.
	ErrMissingEmail = errors.New("owner email is required")
)
