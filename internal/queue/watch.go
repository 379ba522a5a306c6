package queue

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/agrovihan/agrovihan/internal/logging"
)

// Watch emits a tick whenever a record file in the store directory is created,
// rewritten or removed, including by other processes. Bursts are coalesced:
// a tick is dropped when the previous one has not been consumed yet.
// The channel is closed when ctx is done or the watcher fails.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()
	if !initialized {
		return nil, ErrStorageUnavailable
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &StorageError{Op: "watch", Err: err}
	}
	if err := watcher.Add(s.directory); err != nil {
		_ = watcher.Close()
		return nil, &StorageError{Op: "watch", Err: fmt.Errorf("add %s: %w", s.directory, err)}
	}

	ticks := make(chan struct{}, 1)
	go func() {
		defer close(ticks)
		defer watcher.Close()

		log := logging.FromContext(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != recordFileExtension {
					continue
				}
				select {
				case ticks <- struct{}{}:
				default:
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().
					Ctx(ctx).
					Str("component", "queue").
					Str("operation", "watch").
					Err(werr).
					Msg("queue directory watcher error")
			}
		}
	}()

	return ticks, nil
}
