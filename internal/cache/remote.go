package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "resource-cache/internal/common/errors"
	"resource-cache/internal/common/logging"
)

// RemoteBackend stores entries in a Redis-compatible key-value store. Every
// key is namespaced with a configurable prefix so the cache can share a
// store with unrelated data. Entries are JSON-serialized whole, and TTLs are
// delegated to the store's native expiry: an entry without a TTL persists
// until explicitly deleted or the store evicts it under its own memory
// pressure policy, which this backend does not observe.
type RemoteBackend struct {
	client *redis.Client
	prefix string
	logger logging.Logger
}

// NewRemoteBackend creates a Redis-backed cache backend.
func NewRemoteBackend(client *redis.Client, keyPrefix string) *RemoteBackend {
	return &RemoteBackend{
		client: client,
		prefix: keyPrefix,
		logger: logging.GetGlobalLogger(),
	}
}

// Get returns the entry for key. A successful read touches the entry and
// re-writes it so the updated access metadata survives in the store; that
// costs one extra round-trip per hit, a deliberate simplicity tradeoff.
// A payload that fails to deserialize is deleted and reported as a miss.
func (r *RemoteBackend) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ConnectionError("cache backend get failed", err).
			WithContext("key", key)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		// Corrupt or foreign payload; drop it and treat as a miss
		r.client.Del(ctx, r.prefix+key)
		r.logger.Warn("Deleted corrupt cache entry",
			logging.String("key", key),
			logging.Err(err),
		)
		return nil, nil
	}

	entry.Touch()

	expiration := time.Duration(0)
	if entry.TTL > 0 {
		expiration = entry.TTL - time.Since(entry.CreatedAt)
		if expiration <= 0 {
			// The store should have expired this already; don't resurrect it
			r.client.Del(ctx, r.prefix+key)
			return nil, nil
		}
	}

	if payload, err := json.Marshal(&entry); err == nil {
		if err := r.client.Set(ctx, r.prefix+key, payload, expiration).Err(); err != nil {
			r.logger.Warn("Failed to persist access metadata",
				logging.String("key", key),
				logging.Err(err),
			)
		}
	}

	return &entry, nil
}

// Set serializes the whole entry and stores it, delegating any TTL to the
// store's native expiry.
func (r *RemoteBackend) Set(ctx context.Context, key string, entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return apperrors.SerializationError("failed to serialize cache entry", err).
			WithContext("key", key)
	}
	entry.Size = int64(len(payload))

	// Re-serialize so the stored payload carries the computed size
	payload, err = json.Marshal(entry)
	if err != nil {
		return apperrors.SerializationError("failed to serialize cache entry", err).
			WithContext("key", key)
	}

	expiration := time.Duration(0)
	if entry.TTL > 0 {
		expiration = entry.TTL
	}

	if err := r.client.Set(ctx, r.prefix+key, payload, expiration).Err(); err != nil {
		return apperrors.ConnectionError("cache backend set failed", err).
			WithContext("key", key)
	}
	return nil
}

// Delete removes the entry for key, reporting whether it was present.
func (r *RemoteBackend) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, r.prefix+key).Result()
	if err != nil {
		return false, apperrors.ConnectionError("cache backend delete failed", err).
			WithContext("key", key)
	}
	return n > 0, nil
}

// Clear removes every key under the backend's prefix using SCAN, leaving
// unrelated data in the shared store untouched.
func (r *RemoteBackend) Clear(ctx context.Context) error {
	keys, err := r.scan(ctx, "*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return apperrors.ConnectionError("cache backend clear failed", err)
	}
	return nil
}

// Keys returns the unprefixed keys matching the glob pattern.
func (r *RemoteBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	prefixed, err := r.scan(ctx, pattern)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(prefixed))
	for _, k := range prefixed {
		keys = append(keys, strings.TrimPrefix(k, r.prefix))
	}
	return keys, nil
}

// Size returns the number of keys under the backend's prefix.
func (r *RemoteBackend) Size(ctx context.Context) (int, error) {
	keys, err := r.scan(ctx, "*")
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// scan collects the prefixed keys matching pattern.
func (r *RemoteBackend) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.ConnectionError("cache backend scan failed", err).
			WithContext("pattern", pattern)
	}
	return keys, nil
}
