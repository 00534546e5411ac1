package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"path"
	"sync"

	apperrors "resource-cache/internal/common/errors"
)

// Default bounds for the memory backend.
const (
	DefaultMaxEntries = 1000
	DefaultMaxBytes   = 100 << 20 // 100 MiB
)

// MemoryBackend is an in-process backend bounded by entry count and by the
// aggregate serialized size of its values. When either bound would be
// exceeded it evicts least-recently-used entries until the incoming entry
// fits.
type MemoryBackend struct {
	mu           sync.Mutex
	maxEntries   int
	maxBytes     int64
	currentBytes int64
	entries      map[string]*list.Element
	order        *list.List // front = least recently used, back = most recently used
	onEvict      func(key string)
}

// NewMemoryBackend creates a memory backend with the given bounds.
// Non-positive bounds fall back to the defaults.
func NewMemoryBackend(maxEntries int, maxBytes int64) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &MemoryBackend{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// SetEvictionCallback registers a callback invoked with the key of every
// entry evicted under capacity pressure. Lazy expiration and explicit
// deletes do not count as evictions.
func (m *MemoryBackend) SetEvictionCallback(fn func(key string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// Get returns the entry for key, moving it to the most-recently-used end of
// the access order. An expired entry is removed and reported as a miss
// rather than returned stale.
func (m *MemoryBackend) Get(ctx context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return nil, nil
	}

	entry := elem.Value.(*Entry)
	if entry.IsExpired() {
		m.removeLocked(key, elem)
		return nil, nil
	}

	entry.Touch()
	m.order.MoveToBack(elem)
	return entry, nil
}

// Set stores the entry, computing its serialized size for eviction
// accounting. An existing entry under the same key is removed first so both
// size and access order are recomputed. Eviction runs before insertion and
// loops: one oversized incoming entry may push out several small ones.
func (m *MemoryBackend) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry.Value)
	if err != nil {
		return apperrors.SerializationError("failed to serialize cache value", err).
			WithContext("key", key)
	}
	entry.Size = int64(len(data))

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.removeLocked(key, elem)
	}

	for m.order.Len() > 0 &&
		(m.order.Len() >= m.maxEntries || m.currentBytes+entry.Size > m.maxBytes) {
		m.evictLocked()
	}

	elem := m.order.PushBack(entry)
	m.entries[key] = elem
	m.currentBytes += entry.Size
	return nil
}

// Delete removes the entry for key, reporting whether it was present.
func (m *MemoryBackend) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	m.removeLocked(key, elem)
	return true, nil
}

// Clear removes all entries.
func (m *MemoryBackend) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*list.Element)
	m.order.Init()
	m.currentBytes = 0
	return nil
}

// Keys returns the keys of live entries matching the glob pattern. Expired
// entries are skipped but left in place for the lazy read path to collect.
func (m *MemoryBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	for key, elem := range m.entries {
		if elem.Value.(*Entry).IsExpired() {
			continue
		}
		if matched, err := path.Match(pattern, key); err != nil {
			return nil, apperrors.ValidationError("invalid key pattern").
				WithContext("pattern", pattern)
		} else if matched {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Size returns the number of stored entries, including any expired entries
// not yet collected by the lazy read path.
func (m *MemoryBackend) Size(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// CurrentBytes returns the aggregate serialized size of stored values.
func (m *MemoryBackend) CurrentBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentBytes
}

// evictLocked removes the least-recently-used entry. Caller holds m.mu.
func (m *MemoryBackend) evictLocked() {
	front := m.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(*Entry)
	m.removeLocked(entry.Key, front)
	if m.onEvict != nil {
		m.onEvict(entry.Key)
	}
}

// removeLocked unlinks an entry from the key table and access order and
// returns its bytes to the budget. Caller holds m.mu.
func (m *MemoryBackend) removeLocked(key string, elem *list.Element) {
	entry := elem.Value.(*Entry)
	m.order.Remove(elem)
	delete(m.entries, key)
	m.currentBytes -= entry.Size
}
