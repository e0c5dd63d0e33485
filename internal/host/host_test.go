package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

func TestParseContainer(t *testing.T) {
	tests := []struct {
		in   string
		want Container
	}{
		{"", Primary},
		{"primary", Primary},
		{"INVENTORY", Primary},
		{"secondary", Secondary},
		{"EnderChest", Secondary},
		{"ender", Secondary},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContainer(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseContainer("barrel")
	require.Error(t, err)
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonInvalidContainer))
}

func TestPlayerDataStore_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	store := NewPlayerDataStore(dir)
	id := uuid.New()

	_, err := store.Read(t.Context(), id)
	require.Error(t, err)
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonOwnerNotFound))

	require.NoError(t, store.Write(t.Context(), id, []byte("first")))
	require.NoError(t, store.Write(t.Context(), id, []byte("second")))

	got, err := store.Read(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	old, err := os.ReadFile(filepath.Join(dir, id.String()+".dat_old"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), old)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

const usercacheFixture = `[
  {"name":"Steve","uuid":"8667ba71-b85a-4004-af54-457a9734eed7","expiresOn":"2026-11-01 12:00:00 +0000"},
  {"name":"alex","uuid":"ec561538-f3fd-461d-aff5-086b22154bce","expiresOn":"not a date"},
  {"name":"broken","uuid":"nope","expiresOn":""}
]`

func TestUserCache_Resolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usercache.json")
	require.NoError(t, os.WriteFile(path, []byte(usercacheFixture), 0o600))

	cache := NewUserCache(path, nil)
	require.NoError(t, cache.Reload())

	known := cache.Known()
	require.Len(t, known, 2)
	assert.Equal(t, "alex", known[0].Name)
	assert.Equal(t, "Steve", known[1].Name)
	assert.Equal(t, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC), known[1].LastSeen.UTC())

	rec, err := cache.Resolve("steve")
	require.NoError(t, err)
	assert.Equal(t, "8667ba71-b85a-4004-af54-457a9734eed7", rec.ID.String())

	rec, err = cache.Resolve("ec561538-f3fd-461d-aff5-086b22154bce")
	require.NoError(t, err)
	assert.Equal(t, "alex", rec.Name)

	unknown := uuid.New()
	rec, err = cache.Resolve(unknown.String())
	require.NoError(t, err)
	assert.Equal(t, unknown, rec.ID)
	assert.Empty(t, rec.Name)

	_, err = cache.Resolve("herobrine")
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonOwnerNotFound))

	_, online := cache.Online(rec.ID)
	assert.False(t, online)
}

func TestUserCache_MissingFileIsEmpty(t *testing.T) {
	cache := NewUserCache(filepath.Join(t.TempDir(), "usercache.json"), nil)
	require.NoError(t, cache.Reload())
	assert.Empty(t, cache.Known())
}

func TestUserCache_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usercache.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	cache := NewUserCache(path, nil)
	require.NoError(t, cache.Reload())

	reloaded := make(chan int, 4)
	require.NoError(t, cache.Watch(t.Context(), 20*time.Millisecond, func(n int) { reloaded <- n }))

	require.NoError(t, os.WriteFile(path, []byte(usercacheFixture), 0o600))

	select {
	case n := <-reloaded:
		assert.Equal(t, 2, n)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for usercache reload")
	}
}

func TestDetached(t *testing.T) {
	d := NewDetached(NewUserCache("unused", nil), NewPlayerDataStore(t.TempDir()))

	_, err := d.World("world")
	assert.True(t, ferrors.HasReason(err, ferrors.ReasonWorldNotFound))
	assert.Empty(t, d.Worlds())
	assert.True(t, ferrors.HasCategory(d.Dispatch(ReplaceItem{}), ferrors.CategoryRuntime))
	assert.NotNil(t, d.Owners())
	assert.NotNil(t, d.OwnerFiles())
}
