package queue

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them.
var (
	// ErrStorageUnavailable means the host has no usable persistent directory.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("local storage error")
)

// StorageError reports a failed store operation.
type StorageError struct {
	// Op is the store operation, e.g. "enqueue" or "list".
	Op string
	// ID is the record involved, if any.
	ID string
	// Err is the underlying cause.
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("queue %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
