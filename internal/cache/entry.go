package cache

import "time"

// Entry is a cached value plus its bookkeeping metadata. The whole entry is
// what backends store and serialize, so every field carries a JSON tag.
type Entry struct {
	Key          string        `json:"key"`           // Unique key within the backend namespace
	Value        interface{}   `json:"value"`         // Opaque serializable payload
	CreatedAt    time.Time     `json:"created_at"`    // When the entry was written
	LastAccessed time.Time     `json:"last_accessed"` // Updated on every successful read
	AccessCount  int64         `json:"access_count"`  // Incremented on every successful read
	TTL          time.Duration `json:"ttl,omitempty"` // Zero means the entry never expires by time
	Tags         []string      `json:"tags,omitempty"` // Labels for group invalidation
	Size         int64         `json:"size"`          // Serialized byte footprint, computed at write time
}

// NewEntry creates an entry stamped with the current time.
func NewEntry(key string, value interface{}, ttl time.Duration, tags []string) *Entry {
	now := time.Now()
	return &Entry{
		Key:          key,
		Value:        value,
		CreatedAt:    now,
		LastAccessed: now,
		TTL:          ttl,
		Tags:         tags,
	}
}

// IsExpired reports whether the entry's TTL has elapsed. Entries without a
// TTL never expire by time. Expiration is checked lazily on read; there is
// no active timer firing on expiry.
func (e *Entry) IsExpired() bool {
	if e.TTL <= 0 {
		return false
	}
	return time.Since(e.CreatedAt) > e.TTL
}

// Touch records a successful read. It updates LastAccessed and AccessCount
// and must not change CreatedAt or TTL.
func (e *Entry) Touch() {
	e.LastAccessed = time.Now()
	e.AccessCount++
}

// HasTag reports whether the entry carries the given tag.
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
