package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	backend := NewMemoryBackend(10, 0)
	ctx := context.Background()

	value := map[string]interface{}{"name": "alice", "count": 3}
	require.NoError(t, backend.Set(ctx, "k1", NewEntry("k1", value, time.Hour, []string{"a"})))

	entry, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, value, entry.Value)
	assert.Equal(t, []string{"a"}, entry.Tags)
	assert.Greater(t, entry.Size, int64(0))
}

func TestMemoryBackendMissingKey(t *testing.T) {
	backend := NewMemoryBackend(10, 0)

	entry, err := backend.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryBackendLazyExpiration(t *testing.T) {
	backend := NewMemoryBackend(10, 0)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", NewEntry("k1", "v", 10*time.Millisecond, nil)))
	time.Sleep(20 * time.Millisecond)

	// Expired entries are removed on read, not returned stale
	entry, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	size, err := backend.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestMemoryBackendEntryLimit(t *testing.T) {
	backend := NewMemoryBackend(3, 0)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, backend.Set(ctx, key, NewEntry(key, key, 0, nil)))
	}

	size, err := backend.Size(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, size, 3)
}

func TestMemoryBackendLRUOrder(t *testing.T) {
	// maxEntries=2: set a, set b, touch a, set c -> b is evicted
	backend := NewMemoryBackend(2, 0)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "a", NewEntry("a", 1, 0, nil)))
	require.NoError(t, backend.Set(ctx, "b", NewEntry("b", 2, 0, nil)))

	_, err := backend.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, backend.Set(ctx, "c", NewEntry("c", 3, 0, nil)))

	entry, err := backend.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, entry, "recently accessed key must survive")

	entry, err = backend.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, entry, "least recently used key must be evicted")

	entry, err = backend.Get(ctx, "c")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestMemoryBackendByteBudget(t *testing.T) {
	// An oversized incoming entry must evict several small ones
	backend := NewMemoryBackend(100, 60)
	ctx := context.Background()

	// Each value serializes to ~12 bytes
	require.NoError(t, backend.Set(ctx, "a", NewEntry("a", "aaaaaaaaaa", 0, nil)))
	require.NoError(t, backend.Set(ctx, "b", NewEntry("b", "bbbbbbbbbb", 0, nil)))
	require.NoError(t, backend.Set(ctx, "c", NewEntry("c", "cccccccccc", 0, nil)))

	// A 40-byte value forces out more than one resident entry
	big := "dddddddddddddddddddddddddddddddddddddd"
	require.NoError(t, backend.Set(ctx, "d", NewEntry("d", big, 0, nil)))

	assert.LessOrEqual(t, backend.CurrentBytes(), int64(60))

	entry, err := backend.Get(ctx, "d")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, big, entry.Value)
}

func TestMemoryBackendEvictionCallback(t *testing.T) {
	backend := NewMemoryBackend(2, 0)
	ctx := context.Background()

	var evicted []string
	backend.SetEvictionCallback(func(key string) {
		evicted = append(evicted, key)
	})

	require.NoError(t, backend.Set(ctx, "a", NewEntry("a", 1, 0, nil)))
	require.NoError(t, backend.Set(ctx, "b", NewEntry("b", 2, 0, nil)))
	require.NoError(t, backend.Set(ctx, "c", NewEntry("c", 3, 0, nil)))

	assert.Equal(t, []string{"a"}, evicted)
}

func TestMemoryBackendReplaceExistingKey(t *testing.T) {
	backend := NewMemoryBackend(10, 0)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", NewEntry("k", "first value, longer", 0, nil)))
	firstBytes := backend.CurrentBytes()

	require.NoError(t, backend.Set(ctx, "k", NewEntry("k", "second", 0, nil)))

	entry, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "second", entry.Value)

	size, err := backend.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
	assert.Less(t, backend.CurrentBytes(), firstBytes, "old entry's bytes must be released")
}

func TestMemoryBackendDelete(t *testing.T) {
	backend := NewMemoryBackend(10, 0)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", NewEntry("k", "v", 0, nil)))

	deleted, err := backend.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	// Deleting an absent key reports false
	deleted, err = backend.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemoryBackendClear(t *testing.T) {
	backend := NewMemoryBackend(10, 0)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "a", NewEntry("a", 1, 0, nil)))
	require.NoError(t, backend.Set(ctx, "b", NewEntry("b", 2, 0, nil)))

	require.NoError(t, backend.Clear(ctx))

	size, err := backend.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
	assert.Equal(t, int64(0), backend.CurrentBytes())
}

func TestMemoryBackendKeysPattern(t *testing.T) {
	backend := NewMemoryBackend(10, 0)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "res:http:one", NewEntry("res:http:one", 1, 0, nil)))
	require.NoError(t, backend.Set(ctx, "res:http:two", NewEntry("res:http:two", 2, 0, nil)))
	require.NoError(t, backend.Set(ctx, "other", NewEntry("other", 3, 0, nil)))

	keys, err := backend.Keys(ctx, "res:http:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"res:http:one", "res:http:two"}, keys)

	all, err := backend.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
