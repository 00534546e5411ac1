// Package resource integrates the cache engine with the resource-fetch
// components. For every inbound request it resolves the owning fetcher,
// derives a cache key, and decides whether to serve from cache or trigger a
// fresh fetch, writing successful results back with the fetcher's TTL and
// tags. It also owns named warming patterns: groups of requests proactively
// re-warmed on an interval by a cron runner.
package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"resource-cache/internal/cache"
	apperrors "resource-cache/internal/common/errors"
	"resource-cache/internal/common/logging"
	"resource-cache/internal/fetchers"
)

// Metadata keys the cache layer writes into fetch results.
const (
	metaCacheHit  = "cache_hit"
	metaCacheKey  = "cache_key"
	metaCacheTags = "cache_tags"
	metaCachedAt  = "cached_at"
	metaFetchedAt = "fetched_at"
)

// Manager is the cached resource pipeline. It consults the cache manager
// before delegating to fetch components and degrades to miss semantics when
// the cache subsystem fails: only origin-fetch failures are visible to the
// caller.
type Manager struct {
	cache               *cache.Manager
	registry            *fetchers.Registry
	warmingEnabled      bool
	invalidationEnabled bool
	logger              logging.Logger

	mu       sync.Mutex
	patterns map[string]*WarmingPattern
	cronIDs  map[string]cron.EntryID
	cron     *cron.Cron
}

// Option configures a Manager.
type Option func(*Manager)

// WithWarming enables or disables proactive warming.
func WithWarming(enabled bool) Option {
	return func(m *Manager) {
		m.warmingEnabled = enabled
	}
}

// WithInvalidation enables or disables tag-based invalidation.
func WithInvalidation(enabled bool) Option {
	return func(m *Manager) {
		m.invalidationEnabled = enabled
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a cached resource manager over a cache manager and a
// fetcher registry.
func NewManager(cacheManager *cache.Manager, registry *fetchers.Registry, opts ...Option) *Manager {
	m := &Manager{
		cache:               cacheManager,
		registry:            registry,
		warmingEnabled:      true,
		invalidationEnabled: true,
		logger:              logging.GetGlobalLogger(),
		patterns:            make(map[string]*WarmingPattern),
		cronIDs:             make(map[string]cron.EntryID),
		cron:                cron.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins running registered warming patterns on their intervals.
func (m *Manager) Start() {
	if m.warmingEnabled {
		m.cron.Start()
	}
}

// Stop halts the warming runner, waiting for an in-flight run to finish.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}

// FetchResource serves a resource request, from cache when possible.
//
// Caching is skipped when the request opts out or no cache key is
// derivable; the result is then tagged cache_hit=false and returned
// directly. Otherwise a hit is annotated and returned without calling the
// component, and a miss triggers a fetch whose successful result is written
// back with the component's TTL and tags. Cache subsystem failures fall
// back to a fresh fetch rather than failing the request.
func (m *Manager) FetchResource(ctx context.Context, req *fetchers.Request) (*fetchers.Result, error) {
	fetcher, err := m.registry.Resolve(req.Kind)
	if err != nil {
		return nil, err
	}

	key := m.cacheKeyFor(fetcher, req)
	if req.NoCache || key == "" {
		result, err := fetcher.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		annotate(result, map[string]interface{}{metaCacheHit: false})
		return result, nil
	}

	value, found, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Warn("Cache read failed, falling back to fetch",
			logging.String("key", key),
			logging.Err(err),
		)
	} else if found {
		if cached, ok := fetchers.DecodeResult(value); ok {
			annotate(cached, map[string]interface{}{
				metaCacheHit: true,
				metaCacheKey: key,
			})
			return cached, nil
		}
		m.logger.Warn("Cached value is not a fetch result, refetching",
			logging.String("key", key),
		)
	}

	result, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		metaCacheHit:  false,
		metaFetchedAt: result.FetchedAt,
	}

	// Only successful results are cached
	if result.Success {
		ttl := fetcher.CacheTTL(req)
		if ttl <= 0 {
			ttl = -1 // manager default
		}
		tags := fetcher.CacheTags(req)

		if err := m.cache.Set(ctx, key, result.Clone(), ttl, tags...); err != nil {
			m.logger.Warn("Cache write failed",
				logging.String("key", key),
				logging.Err(err),
			)
		} else {
			fields[metaCacheKey] = key
			fields[metaCacheTags] = tags
			fields[metaCachedAt] = time.Now()
		}
	}

	annotate(result, fields)
	return result, nil
}

// WarmCache proactively populates the cache for a request. It skips the
// request when a live entry already exists, unless force is set, and
// reports whether a warming task was scheduled. Only successful fetch
// results are written.
func (m *Manager) WarmCache(ctx context.Context, req *fetchers.Request, force bool) (bool, error) {
	if !m.warmingEnabled {
		return false, apperrors.ConfigError("cache warming is disabled")
	}

	fetcher, err := m.registry.Resolve(req.Kind)
	if err != nil {
		return false, err
	}

	key := m.cacheKeyFor(fetcher, req)
	if key == "" {
		return false, apperrors.ValidationError("no cache key derivable for warming request")
	}

	if !force && m.cache.Exists(ctx, key) {
		return false, nil
	}

	ttl := fetcher.CacheTTL(req)
	if ttl <= 0 {
		ttl = -1
	}
	tags := fetcher.CacheTags(req)

	m.cache.Warm(key, func(ctx context.Context) (interface{}, error) {
		result, err := fetcher.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		if !result.Success {
			return nil, apperrors.FetchError("warming fetch failed: "+result.Error, nil)
		}
		return result.Clone(), nil
	}, ttl, tags...)

	return true, nil
}

// AddWarmingPattern registers a named group of requests to warm on an
// interval. An existing pattern with the same name is replaced.
func (m *Manager) AddWarmingPattern(name string, requests []*fetchers.Request, interval time.Duration) error {
	if name == "" {
		return apperrors.ValidationError("warming pattern name is required")
	}
	if len(requests) == 0 {
		return apperrors.ValidationError("warming pattern requires at least one request")
	}
	if interval <= 0 {
		return apperrors.ValidationError("warming pattern interval must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.cronIDs[name]; ok {
		m.cron.Remove(id)
		delete(m.cronIDs, name)
	}

	m.patterns[name] = &WarmingPattern{
		Name:     name,
		Requests: requests,
		Interval: interval,
	}

	if m.warmingEnabled {
		id, err := m.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
			m.runPatternByName(context.Background(), name)
		})
		if err != nil {
			delete(m.patterns, name)
			return apperrors.InternalError("failed to schedule warming pattern", err).
				WithContext("pattern", name)
		}
		m.cronIDs[name] = id
	}

	m.logger.Info("Registered warming pattern",
		logging.String("pattern", name),
		logging.Int("requests", len(requests)),
		logging.Duration("interval", interval),
	)
	return nil
}

// RemoveWarmingPattern unregisters a pattern, reporting whether it existed.
func (m *Manager) RemoveWarmingPattern(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patterns[name]; !ok {
		return false
	}
	if id, ok := m.cronIDs[name]; ok {
		m.cron.Remove(id)
		delete(m.cronIDs, name)
	}
	delete(m.patterns, name)
	return true
}

// RunWarmingPatterns runs every registered pattern once, returning how many
// requests each pattern actually warmed.
func (m *Manager) RunWarmingPatterns(ctx context.Context) map[string]int {
	m.mu.Lock()
	names := make([]string, 0, len(m.patterns))
	for name := range m.patterns {
		names = append(names, name)
	}
	m.mu.Unlock()

	counts := make(map[string]int, len(names))
	for _, name := range names {
		counts[name] = m.runPatternByName(ctx, name)
	}
	return counts
}

// WarmingPatterns returns a snapshot of the registered patterns.
func (m *Manager) WarmingPatterns() []*WarmingPattern {
	m.mu.Lock()
	defer m.mu.Unlock()

	patterns := make([]*WarmingPattern, 0, len(m.patterns))
	for _, p := range m.patterns {
		c := *p
		patterns = append(patterns, &c)
	}
	return patterns
}

// InvalidateByTag removes every cached entry carrying the tag, returning
// the number deleted.
func (m *Manager) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	if !m.invalidationEnabled {
		return 0, apperrors.ConfigError("cache invalidation is disabled")
	}
	return m.cache.InvalidateByTag(ctx, tag)
}

// InvalidateByHost removes every cached entry fetched from the host.
func (m *Manager) InvalidateByHost(ctx context.Context, host string) (int, error) {
	return m.InvalidateByTag(ctx, "host:"+host)
}

// InvalidateByKind removes every cached entry of the resource kind.
func (m *Manager) InvalidateByKind(ctx context.Context, kind string) (int, error) {
	return m.InvalidateByTag(ctx, "kind:"+kind)
}

// CacheStats bundles the cache manager's counters with the resource
// manager's warming state.
type CacheStats struct {
	cache.Stats
	WarmingPatterns     int  `json:"warming_patterns"`
	WarmingEnabled      bool `json:"warming_enabled"`
	InvalidationEnabled bool `json:"invalidation_enabled"`
}

// CacheStats returns the combined cache and warming statistics.
func (m *Manager) CacheStats() CacheStats {
	m.mu.Lock()
	patternCount := len(m.patterns)
	m.mu.Unlock()

	return CacheStats{
		Stats:               m.cache.Stats(),
		WarmingPatterns:     patternCount,
		WarmingEnabled:      m.warmingEnabled,
		InvalidationEnabled: m.invalidationEnabled,
	}
}

// runPatternByName warms a pattern's requests in registration order and
// stamps its LastRun, returning how many requests were warmed.
func (m *Manager) runPatternByName(ctx context.Context, name string) int {
	m.mu.Lock()
	pattern, ok := m.patterns[name]
	var requests []*fetchers.Request
	if ok {
		requests = pattern.Requests
	}
	m.mu.Unlock()

	if !ok {
		return 0
	}

	warmed := 0
	for _, req := range requests {
		scheduled, err := m.WarmCache(ctx, req, false)
		if err != nil {
			m.logger.Warn("Warming request skipped",
				logging.String("pattern", name),
				logging.String("uri", req.URI),
				logging.Err(err),
			)
			continue
		}
		if scheduled {
			warmed++
		}
	}

	m.mu.Lock()
	if pattern, ok := m.patterns[name]; ok {
		pattern.LastRun = time.Now()
	}
	m.mu.Unlock()

	m.logger.Debug("Warming pattern run complete",
		logging.String("pattern", name),
		logging.Int("warmed", warmed),
	)
	return warmed
}

// cacheKeyFor prefers the component's deterministic key and falls back to
// the generic hash.
func (m *Manager) cacheKeyFor(fetcher fetchers.Fetcher, req *fetchers.Request) string {
	if key := fetcher.CacheKey(req); key != "" {
		return key
	}
	return deriveKey(req)
}

// annotate merges cache bookkeeping into a result's metadata.
func annotate(result *fetchers.Result, fields map[string]interface{}) {
	if result.Metadata == nil {
		result.Metadata = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		result.Metadata[k] = v
	}
}
