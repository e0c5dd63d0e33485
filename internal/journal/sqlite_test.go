package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, Entry{Op: "shelf.add", Target: "world;1;2;3", Outcome: OutcomeSuccess, Duration: 12 * time.Millisecond}))
	require.NoError(t, store.Append(ctx, Entry{
		Op:      "shelf.delete",
		Target:  "world;1;2;3",
		Outcome: OutcomeRejected,
		Reason:  "slot_empty",
		Error:   "No book in slot 4",
		Details: map[string]string{"slot": "4"},
	}))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "shelf.delete", entries[0].Op)
	assert.Equal(t, OutcomeRejected, entries[0].Outcome)
	assert.Equal(t, "slot_empty", entries[0].Reason)
	assert.Equal(t, map[string]string{"slot": "4"}, entries[0].Details)
	assert.False(t, entries[0].At.IsZero())

	assert.Equal(t, 12*time.Millisecond, entries[1].Duration)
	assert.Nil(t, entries[1].Details)
}

func TestByTargetAndLimit(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	for range 3 {
		require.NoError(t, store.Append(ctx, Entry{Op: "owner.edit", Target: "Alex/primary", Outcome: OutcomeSuccess}))
	}
	require.NoError(t, store.Append(ctx, Entry{Op: "owner.edit", Target: "Steve/primary", Outcome: OutcomeFailed}))

	entries, err := store.ByTarget(ctx, "Alex/primary", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "Alex/primary", e.Target)
	}

	entries, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), Entry{Op: "shelf.lock", Target: "w;0;0;0", Outcome: OutcomeSuccess}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shelf.lock", entries[0].Op)
}

func TestDiscard(t *testing.T) {
	var s Store = Discard{}
	require.NoError(t, s.Append(t.Context(), Entry{}))
	entries, err := s.Recent(t.Context(), 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
