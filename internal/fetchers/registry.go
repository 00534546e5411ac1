// Package fetchers provides registry functionality for managing fetch components.
// The registry is thread-safe and allows dynamic registration and resolution of fetchers.
package fetchers

import (
	"sort"
	"sync"

	apperrors "resource-cache/internal/common/errors"
)

// Registry manages fetch components and provides thread-safe resolution by
// resource kind.
type Registry struct {
	// fetchers maps resource kinds to their registered fetcher
	fetchers map[string]Fetcher

	// mu provides thread-safe access to the fetchers map
	mu sync.RWMutex
}

// NewRegistry creates a new empty fetcher registry.
// The registry is thread-safe and can be used concurrently by multiple goroutines.
func NewRegistry() *Registry {
	return &Registry{
		fetchers: make(map[string]Fetcher),
	}
}

// Register adds a fetcher to the registry under its kind.
// If a fetcher for the same kind already exists, it will be replaced.
func (r *Registry) Register(fetcher Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[fetcher.Kind()] = fetcher
}

// Resolve returns the fetcher registered for the given kind.
func (r *Registry) Resolve(kind string) (Fetcher, error) {
	r.mu.RLock()
	fetcher, exists := r.fetchers[kind]
	r.mu.RUnlock()

	if !exists {
		return nil, apperrors.NotFoundError("fetcher for kind " + kind)
	}
	return fetcher, nil
}

// Kinds returns a sorted list of all registered resource kinds.
// The returned slice is a copy and can be safely modified by the caller.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.fetchers))
	for kind := range r.fetchers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// IsRegistered checks whether a fetcher exists for the given kind.
func (r *Registry) IsRegistered(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.fetchers[kind]
	return exists
}

// DefaultRegistry is a package-level registry instance for convenient global access.
var DefaultRegistry = NewRegistry()

// Register adds a fetcher to the default registry.
func Register(fetcher Fetcher) {
	DefaultRegistry.Register(fetcher)
}

// Resolve returns the fetcher for kind from the default registry.
func Resolve(kind string) (Fetcher, error) {
	return DefaultRegistry.Resolve(kind)
}

// Kinds returns all resource kinds registered with the default registry.
func Kinds() []string {
	return DefaultRegistry.Kinds()
}
