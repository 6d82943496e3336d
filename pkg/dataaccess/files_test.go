package dataaccess

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type counterRecord struct {
	Value int `json:"value"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	rec := new(counterRecord)
	err := store.Load("missing/record", rec)
	require.ErrorIs(t, err, ErrNotExists)
}

func TestStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("tickets/guild-1/chan-1", &counterRecord{Value: 42}))

	rec := new(counterRecord)
	require.NoError(t, store.Load("tickets/guild-1/chan-1", rec))
	require.Equal(t, 42, rec.Value)
}

func TestStore_CorruptRecord(t *testing.T) {
	store := newTestStore(t)

	// A malformed record must fail loudly, not read as a default.
	path := filepath.Join(store.Dir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	rec := new(counterRecord)
	err := store.Load("broken", rec)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotExists)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	// Deleting a missing record is not an error.
	require.NoError(t, store.Delete("missing"))

	require.NoError(t, store.Save("gone", &counterRecord{Value: 1}))
	require.NoError(t, store.Delete("gone"))

	err := store.Load("gone", new(counterRecord))
	require.ErrorIs(t, err, ErrNotExists)
}

func TestStore_PathEscapeRejected(t *testing.T) {
	store := newTestStore(t)

	err := store.Save("../evil", &counterRecord{Value: 1})
	require.Error(t, err)
}

func TestStore_MutateMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Mutate("missing", new(counterRecord), func() (bool, error) {
		return true, nil
	})
	require.ErrorIs(t, err, ErrNotExists)
}

func TestStore_MutateSerializes(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("counter", &counterRecord{}))

	const workers = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for n := 0; n < workers; n++ {
		go func() {
			defer wg.Done()
			rec := new(counterRecord)
			err := store.Mutate("counter", rec, func() (bool, error) {
				rec.Value++
				return true, nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	rec := new(counterRecord)
	require.NoError(t, store.Load("counter", rec))
	require.Equal(t, workers, rec.Value)
}

func TestStore_MutateUnchangedSkipsSave(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("readonly", &counterRecord{Value: 7}))

	path := filepath.Join(store.Dir(), "readonly.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	rec := new(counterRecord)
	require.NoError(t, store.Mutate("readonly", rec, func() (bool, error) {
		rec.Value = 999
		return false, nil
	}))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestStore_Upsert(t *testing.T) {
	store := newTestStore(t)

	// First call starts from the zero value.
	rec := new(counterRecord)
	require.NoError(t, store.Upsert("ups", rec, func() error {
		rec.Value++
		return nil
	}))

	// Second call loads what the first one saved.
	rec = new(counterRecord)
	require.NoError(t, store.Upsert("ups", rec, func() error {
		rec.Value++
		return nil
	}))

	rec = new(counterRecord)
	require.NoError(t, store.Load("ups", rec))
	require.Equal(t, 2, rec.Value)
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("vending/guild-1/aaa", &counterRecord{}))
	require.NoError(t, store.Save("vending/guild-1/bbb", &counterRecord{}))
	require.NoError(t, store.Save("vending/guild-2/ccc", &counterRecord{}))

	keys, err := store.List("vending/guild-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"vending/guild-1/aaa", "vending/guild-1/bbb"}, keys)
}
