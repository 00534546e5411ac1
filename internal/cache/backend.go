// Package cache implements the caching engine: a storage-agnostic backend
// contract with in-memory and Redis implementations, and a manager that adds
// hit/miss accounting, tag-based invalidation, and background warming on top.
//
// The package consists of:
//
// 1. Entry: a cached value plus bookkeeping (timestamps, TTL, tags, size)
// 2. Backend: the storage contract (MemoryBackend, RemoteBackend)
// 3. Manager: orchestration - statistics, tag index, warming, read-through
//
// Example usage:
//
//	backend := cache.NewMemoryBackend(1000, 100<<20)
//	manager, err := cache.NewManager(backend, cache.WithDefaultTTL(time.Hour))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer manager.Cleanup()
//
//	manager.Set(ctx, "users:42", profile, time.Hour, "kind:http", "host:api.example.com")
//	value, found, err := manager.Get(ctx, "users:42")
//	n, _ := manager.InvalidateByTag(ctx, "host:api.example.com")
package cache

import "context"

// Backend is the storage-agnostic contract behind the cache manager. A miss
// is reported as (nil, nil) rather than an error so callers can distinguish
// absence from backend failure.
//
// Implementations must be safe for concurrent use; callers impose no
// external locking.
type Backend interface {
	// Get returns the live entry for key, or nil when the key is absent or
	// expired. Backends handle expiration lazily on read and touch the
	// entry's access metadata on a successful lookup.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores the entry under key, replacing any previous entry.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes the entry for key, reporting whether it was present.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every entry in the backend's namespace.
	Clear(ctx context.Context) error

	// Keys returns the keys matching a glob pattern ("*" for all).
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Size returns the number of stored entries.
	Size(ctx context.Context) (int, error)
}

// evictionNotifier is implemented by backends that evict entries under
// capacity pressure. The manager registers a callback to count evictions.
type evictionNotifier interface {
	SetEvictionCallback(fn func(key string))
}
