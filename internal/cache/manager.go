package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "resource-cache/internal/common/errors"
	"resource-cache/internal/common/logging"
)

// DefaultTTL is the entry lifetime used when callers pass a negative TTL.
const DefaultTTL = time.Hour

// ValueFactory produces a value for a key on demand, used by Warm and
// GetOrSet to populate the cache.
type ValueFactory func(ctx context.Context) (interface{}, error)

// Manager orchestrates a cache backend. It adds hit/miss accounting, a
// tag-to-key index for group invalidation, background warming with task
// supervision, and a read-through GetOrSet.
//
// The tag index and statistics are guarded by the manager mutex; the manager
// never calls into the backend while holding it.
type Manager struct {
	backend    Backend
	strategy   Strategy
	defaultTTL time.Duration
	logger     logging.Logger

	mu        sync.Mutex
	tagIndex  map[string]map[string]struct{}
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64

	warmCtx    context.Context
	warmCancel context.CancelFunc
	warmGroup  sync.WaitGroup
	warmActive int64

	flight singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDefaultTTL sets the TTL applied when callers pass a negative TTL.
func WithDefaultTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.defaultTTL = ttl
	}
}

// WithStrategy sets the eviction strategy. Only LRU is implemented;
// NewManager rejects the others.
func WithStrategy(s Strategy) ManagerOption {
	return func(m *Manager) {
		m.strategy = s
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager around the given backend.
func NewManager(backend Backend, opts ...ManagerOption) (*Manager, error) {
	if backend == nil {
		return nil, apperrors.ConfigError("cache backend is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		backend:    backend,
		strategy:   StrategyLRU,
		defaultTTL: DefaultTTL,
		logger:     logging.GetGlobalLogger(),
		tagIndex:   make(map[string]map[string]struct{}),
		warmCtx:    ctx,
		warmCancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	if !m.strategy.Implemented() {
		cancel()
		return nil, apperrors.ConfigError(
			fmt.Sprintf("eviction strategy %q is not implemented", m.strategy))
	}

	if notifier, ok := backend.(evictionNotifier); ok {
		notifier.SetEvictionCallback(m.recordEviction)
	}

	return m, nil
}

// DefaultTTL returns the TTL applied when callers pass a negative TTL.
func (m *Manager) DefaultTTL() time.Duration {
	return m.defaultTTL
}

// Get returns the raw cached value for key. A backend failure is returned
// as an error without moving the hit/miss counters.
func (m *Manager) Get(ctx context.Context, key string) (interface{}, bool, error) {
	entry, err := m.backend.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	if entry == nil {
		m.misses++
	} else {
		m.hits++
	}
	m.mu.Unlock()

	if entry == nil {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set wraps the value in a new entry stamped with the current time and
// stores it. A negative ttl substitutes the manager default; zero means the
// entry never expires. On success the key is unioned into each tag's index
// set.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	if ttl < 0 {
		ttl = m.defaultTTL
	}

	entry := NewEntry(key, value, ttl, tags)
	if err := m.backend.Set(ctx, key, entry); err != nil {
		return err
	}

	m.mu.Lock()
	m.sets++
	for _, tag := range tags {
		keys, ok := m.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tagIndex[tag] = keys
		}
		keys[key] = struct{}{}
	}
	m.mu.Unlock()

	return nil
}

// Delete removes the entry for key. On success the key is removed from
// every tag's index set; deleting an absent key leaves stats and index
// unchanged.
func (m *Manager) Delete(ctx context.Context, key string) (bool, error) {
	deleted, err := m.backend.Delete(ctx, key)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	m.mu.Lock()
	m.deletes++
	m.unindexKeyLocked(key)
	m.mu.Unlock()

	return true, nil
}

// InvalidateByTag deletes every key currently indexed under tag and drops
// the tag from the index, returning the number of entries deleted. The key
// set is snapshotted before iterating; deleting while walking the live set
// is unsafe.
func (m *Manager) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	m.mu.Lock()
	keySet := m.tagIndex[tag]
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	deleted := 0
	for _, key := range keys {
		ok, err := m.Delete(ctx, key)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}

	m.mu.Lock()
	delete(m.tagIndex, tag)
	m.mu.Unlock()

	return deleted, nil
}

// Exists reports whether a live entry exists for key without touching it or
// moving the hit/miss counters. The key is matched literally; glob
// metacharacters in it are escaped before the backend lookup.
func (m *Manager) Exists(ctx context.Context, key string) bool {
	keys, err := m.backend.Keys(ctx, escapeGlob(key))
	if err != nil {
		return false
	}
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// escapeGlob backslash-escapes glob metacharacters so a key is matched
// literally by both path.Match and Redis SCAN patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Warm schedules a background task that computes the value via factory and
// caches it. Warming is best-effort: factory and write failures are logged,
// never propagated, and never retried. Tasks are tracked so Cleanup can
// cancel and wait on them.
func (m *Manager) Warm(key string, factory ValueFactory, ttl time.Duration, tags ...string) {
	m.warmGroup.Add(1)
	atomic.AddInt64(&m.warmActive, 1)

	go func() {
		defer m.warmGroup.Done()
		defer atomic.AddInt64(&m.warmActive, -1)

		value, err := factory(m.warmCtx)
		if err != nil {
			m.logger.Warn("Cache warming factory failed",
				logging.String("key", key),
				logging.Err(err),
			)
			return
		}

		if err := m.Set(m.warmCtx, key, value, ttl, tags...); err != nil {
			m.logger.Warn("Cache warming write failed",
				logging.String("key", key),
				logging.Err(err),
			)
			return
		}

		m.logger.Debug("Cache entry warmed", logging.String("key", key))
	}()
}

// GetOrSet returns the cached value for key, computing and caching it via
// factory on a miss. Concurrent callers for the same missing key coalesce
// onto a single factory invocation.
func (m *Manager) GetOrSet(ctx context.Context, key string, factory ValueFactory, ttl time.Duration, tags ...string) (interface{}, error) {
	value, found, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		return value, nil
	}

	result, err, _ := m.flight.Do(key, func() (interface{}, error) {
		// A coalesced caller may arrive after the leader already wrote
		if entry, err := m.backend.Get(ctx, key); err == nil && entry != nil {
			return entry.Value, nil
		}

		value, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		if err := m.Set(ctx, key, value, ttl, tags...); err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		Hits:               m.hits,
		Misses:             m.misses,
		Sets:               m.sets,
		Deletes:            m.deletes,
		Evictions:          m.evictions,
		TotalRequests:      m.hits + m.misses,
		ActiveWarmingTasks: int(atomic.LoadInt64(&m.warmActive)),
	}
	if stats.TotalRequests > 0 {
		stats.HitRate = float64(m.hits) / float64(stats.TotalRequests)
	}
	return stats
}

// RebuildTagIndex re-derives the tag index from the backend's live entries.
// The index is never persisted; when the backend itself is persistent this
// restores invalidation after a restart.
func (m *Manager) RebuildTagIndex(ctx context.Context) error {
	keys, err := m.backend.Keys(ctx, "*")
	if err != nil {
		return err
	}

	index := make(map[string]map[string]struct{})
	for _, key := range keys {
		entry, err := m.backend.Get(ctx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		for _, tag := range entry.Tags {
			tagKeys, ok := index[tag]
			if !ok {
				tagKeys = make(map[string]struct{})
				index[tag] = tagKeys
			}
			tagKeys[key] = struct{}{}
		}
	}

	m.mu.Lock()
	m.tagIndex = index
	m.mu.Unlock()

	m.logger.Info("Rebuilt cache tag index",
		logging.Int("keys", len(keys)),
		logging.Int("tags", len(index)),
	)
	return nil
}

// Cleanup cancels all tracked warming tasks and waits for them to settle.
// Cancellation is advisory; a task mid-write may still complete its write.
// Cleanup is idempotent.
func (m *Manager) Cleanup() {
	m.warmCancel()
	m.warmGroup.Wait()
}

// recordEviction is registered with eviction-capable backends.
func (m *Manager) recordEviction(key string) {
	m.mu.Lock()
	m.evictions++
	m.unindexKeyLocked(key)
	m.mu.Unlock()
}

// unindexKeyLocked removes key from every tag's index set, dropping tags
// whose sets become empty. Caller holds m.mu.
func (m *Manager) unindexKeyLocked(key string) {
	for tag, keys := range m.tagIndex {
		if _, ok := keys[key]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.tagIndex, tag)
			}
		}
	}
}
