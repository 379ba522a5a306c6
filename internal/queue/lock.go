package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// syncLockFile guards sync passes across every process sharing the directory.
	syncLockFile = ".sync.lock"

	// lockRetryDelay is how often a waiting LockSync retries.
	lockRetryDelay = 50 * time.Millisecond
)

// LockSync takes the directory-wide sync lock, waiting until it is free or ctx
// is done. Stores in different processes, or different Stores in one process,
// never hold it at the same time. Call the returned function to release it.
func (s *Store) LockSync(ctx context.Context) (func(), error) {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()
	if !initialized {
		return nil, ErrStorageUnavailable
	}

	lock := flock.New(filepath.Join(s.directory, syncLockFile))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, &StorageError{Op: "lock", Err: err}
	}
	if !locked {
		return nil, &StorageError{Op: "lock", Err: fmt.Errorf("sync lock not acquired")}
	}
	return func() { _ = lock.Unlock() }, nil
}
