package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SetGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)

	_, found, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_Overwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "first", time.Minute))
	require.NoError(t, store.Set(ctx, "k", "second", time.Minute))

	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", val)
}

func TestSQLiteStore_TTLBoundary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 100*time.Millisecond))

	// fresh right after write
	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", val)

	// gone once the TTL passed
	time.Sleep(150 * time.Millisecond)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestSQLiteStore_Keys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "analysis:markets", "a", time.Minute))
	require.NoError(t, store.Set(ctx, "analysis:crypto", "b", time.Minute))
	require.NoError(t, store.Set(ctx, "feed:snapshot", "c", time.Minute))
	require.NoError(t, store.Set(ctx, "analysis:stale", "d", -time.Second)) // already expired

	keys, err := store.Keys(ctx, "analysis:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"analysis:markets", "analysis:crypto"}, keys)

	all, err := store.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNewStore(t *testing.T) {
	t.Run("sqlite backend", func(t *testing.T) {
		store, err := NewStore("sqlite", "", filepath.Join(t.TempDir(), "c.db"))
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.NoError(t, store.Close())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewStore("memcached", "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown cache backend")
	})
}
