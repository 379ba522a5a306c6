package queue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovihan/agrovihan/internal/carbon"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "queue"))
	require.NoError(t, store.Initialize())
	return store
}

func sampleInput(email string) Input {
	practices := carbon.Practices{TreesPlanted: 10, OrganicFertilizerAcres: 2, SolarPumps: 1, RainwaterHarvesting: true}
	return NewInput(email, "Asha", practices, carbon.Calculate(practices))
}

func TestStore_Initialize(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "nested", "queue"))
		require.NoError(t, store.Initialize())
		require.NoError(t, store.Initialize())
		assert.DirExists(t, store.Dir())
	})

	t.Run("no directory", func(t *testing.T) {
		err := NewStore("").Initialize()
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		err := NewStore(file).Initialize()
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("operations before initialize", func(t *testing.T) {
		store := NewStore(t.TempDir())
		_, err := store.Enqueue(sampleInput("a@example.com"))
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		_, err = store.ListPending()
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, store.MarkSynced("x"), ErrStorageUnavailable)
		assert.ErrorIs(t, store.Remove("x"), ErrStorageUnavailable)
	})
}

func TestStore_EnqueueThenListPending(t *testing.T) {
	store := newTestStore(t)
	in := sampleInput("farmer@example.com")

	id, err := store.Enqueue(in)
	require.NoError(t, err)
	assert.Len(t, id, 26)

	pending, err := store.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	rec := pending[0]
	assert.Equal(t, id, rec.ID)
	assert.False(t, rec.Synced)
	assert.Equal(t, in, rec.Input())
	assert.InDelta(t, 2.13, rec.CarbonCredits, 1e-9)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, 5*time.Second)
}

func TestStore_EnqueueAlwaysAppends(t *testing.T) {
	store := newTestStore(t)
	in := sampleInput("same@example.com")

	first, err := store.Enqueue(in)
	require.NoError(t, err)
	second, err := store.Enqueue(in)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	count, err := store.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_ListOrderFollowsCreation(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	store := NewStore(t.TempDir(), WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))
	require.NoError(t, store.Initialize())

	var ids []string
	for range 5 {
		id, err := store.Enqueue(sampleInput("order@example.com"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	pending, err := store.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 5)
	for i, rec := range pending {
		assert.Equal(t, ids[i], rec.ID)
	}
}

func TestStore_MarkSynced(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Enqueue(sampleInput("sync@example.com"))
	require.NoError(t, err)

	require.NoError(t, store.MarkSynced(id))
	require.NoError(t, store.MarkSynced(id), "second call is a no-op")

	pending, err := store.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Synced)

	assert.NoError(t, store.MarkSynced("01ARZ3NDEKTSV4RRFFQ69G5FAV"), "unknown id is ignored")
}

func TestStore_Remove(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Enqueue(sampleInput("rm@example.com"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(id))
	require.NoError(t, store.Remove(id), "removing twice is a no-op")

	all, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_PurgeSynced(t *testing.T) {
	store := newTestStore(t)
	keep, err := store.Enqueue(sampleInput("a@example.com"))
	require.NoError(t, err)
	drop, err := store.Enqueue(sampleInput("b@example.com"))
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(drop))

	removed, err := store.PurgeSynced()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep, all[0].ID)
}

func TestStore_CorruptedRecordReported(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Enqueue(sampleInput("ok@example.com"))
	require.NoError(t, err)

	corrupt := filepath.Join(store.Dir(), "01BX5ZZKBKACTAV9WEVGEMMVRZ.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))

	pending, err := store.ListPending()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "list", storageErr.Op)
	assert.Contains(t, storageErr.Error(), "01BX5ZZKBKACTAV9WEVGEMMVRZ.json")

	require.Len(t, pending, 1, "healthy records are still returned")
	assert.Equal(t, id, pending[0].ID)
}

func TestStore_IgnoresForeignFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "half.json.tmp"), []byte("{"), 0o600))

	all, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageError{Op: "enqueue", ID: "abc", Err: cause}

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "queue enqueue abc: disk full", err.Error())
	assert.Equal(t, "queue list: disk full", (&StorageError{Op: "list", Err: cause}).Error())
}
