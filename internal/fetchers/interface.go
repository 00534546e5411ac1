// Package fetchers defines the resource-fetch component boundary consumed by
// the cached resource pipeline.
//
// A Fetcher owns one resource kind (http, rss, graphql, ...) and supplies
// three per-request caching hints alongside its fetch capability: a
// deterministic cache key (or none, in which case the pipeline derives a
// hash-based key), an entry TTL, and a set of invalidation tags. Tags are
// expected to include "kind:<kind>" and, when the request URI resolves to a
// host, "host:<host>", so that group invalidation by kind and host works.
//
// Fetchers are registered with a Registry and resolved per request by kind:
//
//	fetchers.Register(fetchers.NewHTTPFetcher(30*time.Second, 2))
//	f, err := fetchers.Resolve("http")
//	result, err := f.Fetch(ctx, req)
package fetchers

import (
	"context"
	"time"
)

// Request describes one resource to fetch.
type Request struct {
	ID      string                 `json:"id"`                // Unique request identifier
	Kind    string                 `json:"kind"`              // Resource kind, selects the fetcher
	URI     string                 `json:"uri"`               // Resource location
	Headers map[string]string      `json:"headers,omitempty"` // Transport headers
	Options map[string]interface{} `json:"options,omitempty"` // Fetcher-specific options
	Timeout time.Duration          `json:"timeout,omitempty"` // Per-request timeout override
	NoCache bool                   `json:"no_cache,omitempty"` // Explicit caching opt-out
}

// Result carries the outcome of a fetch. The cache layer augments Metadata
// in place with cache bookkeeping (cache_hit, cache_key, ...).
type Result struct {
	Success    bool                   `json:"success"`               // Whether the fetch succeeded
	StatusCode int                    `json:"status_code,omitempty"` // Transport status, when applicable
	Data       interface{}            `json:"data,omitempty"`        // Fetched payload
	Error      string                 `json:"error,omitempty"`       // Failure description
	Metadata   map[string]interface{} `json:"metadata,omitempty"`    // Fetch and cache bookkeeping
	FetchedAt  time.Time              `json:"fetched_at"`            // When the fetch completed
}

// Fetcher is the contract a resource-fetch component implements. All
// caching-hint methods must be cheap and side-effect free.
type Fetcher interface {
	// Kind returns the resource kind this fetcher owns.
	Kind() string

	// Fetch retrieves the resource. Transport-level failures should be
	// reported as a Result with Success=false rather than an error where
	// possible; errors are reserved for requests that could not be issued.
	Fetch(ctx context.Context, req *Request) (*Result, error)

	// CacheKey returns a deterministic cache key for the request, or the
	// empty string when the fetcher has none and the pipeline should derive
	// a hash-based key.
	CacheKey(req *Request) string

	// CacheTTL returns the entry lifetime for the request. Zero means the
	// pipeline should apply its default TTL.
	CacheTTL(req *Request) time.Duration

	// CacheTags returns the invalidation tags for the request.
	CacheTags(req *Request) []string
}
