package queue

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// recordFileExtension is the extension of committed record files.
	recordFileExtension = ".json"

	// tempFileExtension marks a record file that is still being written.
	tempFileExtension = ".tmp"

	dirPerm  = 0o750
	filePerm = 0o600
)

// Store is a directory-backed queue of calculation records.
// It is safe for concurrent use within one process; LockSync coordinates
// sync passes across processes.
type Store struct {
	directory string

	mu          sync.RWMutex
	initialized bool

	idMu    sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the clock used for CreatedAt and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store rooted at directory. Call Initialize before use.
func NewStore(directory string, opts ...Option) *Store {
	s := &Store{
		directory: directory,
		entropy:   ulid.Monotonic(rand.Reader, 0),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.directory
}

// Initialize creates the directory and checks that it is writable.
// It is idempotent. Failures match ErrStorageUnavailable.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if s.directory == "" {
		return fmt.Errorf("%w: no queue directory configured", ErrStorageUnavailable)
	}
	if err := os.MkdirAll(s.directory, dirPerm); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	probe, err := os.CreateTemp(s.directory, ".probe-*"+tempFileExtension)
	if err != nil {
		return fmt.Errorf("%w: directory not writable: %w", ErrStorageUnavailable, err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	s.initialized = true
	return nil
}

// Enqueue persists a new pending record and returns its id.
// Identical inputs are stored as separate records.
func (s *Store) Enqueue(in Input) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return "", ErrStorageUnavailable
	}

	now := s.now()
	rec := Record{
		ID:            s.newID(now),
		Email:         in.Email,
		Username:      in.Username,
		CarbonCredits: in.CarbonCredits,
		CO2Saved:      in.CO2Saved,
		Details:       in.Details,
		Synced:        false,
		CreatedAt:     now,
	}
	if err := s.writeLocked(rec); err != nil {
		return "", &StorageError{Op: "enqueue", ID: rec.ID, Err: err}
	}
	return rec.ID, nil
}

// List returns every record, synced or not, in creation order.
//
// Unreadable record files are skipped; when any are found the readable records
// are returned together with a *StorageError naming them.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrStorageUnavailable
	}
	return s.listLocked()
}

// ListPending returns records not yet synced, in creation order.
// Partial results follow the same rules as List.
func (s *Store) ListPending() ([]Record, error) {
	all, err := s.List()
	if all == nil {
		return nil, err
	}

	pending := make([]Record, 0, len(all))
	for _, rec := range all {
		if !rec.Synced {
			pending = append(pending, rec)
		}
	}
	return pending, err
}

// PendingCount returns the number of unsynced records.
func (s *Store) PendingCount() (int, error) {
	pending, err := s.ListPending()
	return len(pending), err
}

// MarkSynced flags a record as committed. Missing ids are ignored.
func (s *Store) MarkSynced(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrStorageUnavailable
	}

	rec, err := s.readLocked(id)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &StorageError{Op: "mark synced", ID: id, Err: err}
	}
	if rec.Synced {
		return nil
	}

	rec.Synced = true
	if err := s.writeLocked(rec); err != nil {
		return &StorageError{Op: "mark synced", ID: id, Err: err}
	}
	return nil
}

// Remove deletes a record. Missing ids are ignored.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrStorageUnavailable
	}

	err := os.Remove(s.idToFilePath(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &StorageError{Op: "remove", ID: id, Err: err}
	}
	return nil
}

// PurgeSynced removes every synced record and returns how many were removed.
func (s *Store) PurgeSynced() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return 0, ErrStorageUnavailable
	}

	records, listErr := s.listLocked()
	removed := 0
	for _, rec := range records {
		if !rec.Synced {
			continue
		}
		if err := os.Remove(s.idToFilePath(rec.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, &StorageError{Op: "purge", ID: rec.ID, Err: err}
		}
		removed++
	}
	return removed, listErr
}

func (s *Store) listLocked() ([]Record, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	records := make([]Record, 0, len(entries))
	var unreadable []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordFileExtension {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), recordFileExtension)
		rec, readErr := s.readLocked(id)
		if readErr != nil {
			unreadable = append(unreadable, entry.Name())
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	if len(unreadable) > 0 {
		return records, &StorageError{
			Op:  "list",
			Err: fmt.Errorf("%d unreadable record file(s): %s", len(unreadable), strings.Join(unreadable, ", ")),
		}
	}
	return records, nil
}

func (s *Store) readLocked(id string) (Record, error) {
	data, err := os.ReadFile(s.idToFilePath(id))
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// writeLocked writes rec to a temporary file and renames it into place.
func (s *Store) writeLocked(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	path := s.idToFilePath(rec.ID)
	tempPath := path + tempFileExtension
	if err := os.WriteFile(tempPath, data, filePerm); err != nil {
		return fmt.Errorf("write record file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename record file: %w", err)
	}
	return nil
}

func (s *Store) newID(now time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

// idToFilePath maps a record id to its file, keeping ids from escaping the directory.
func (s *Store) idToFilePath(id string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id)
	return filepath.Join(s.directory, safe+recordFileExtension)
}
