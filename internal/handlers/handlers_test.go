package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-cache/internal/cache"
	"resource-cache/internal/fetchers"
	"resource-cache/internal/resource"
)

// echoFetcher answers every request successfully with its URI.
type echoFetcher struct{}

func (e *echoFetcher) Kind() string { return "http" }

func (e *echoFetcher) Fetch(ctx context.Context, req *fetchers.Request) (*fetchers.Result, error) {
	return &fetchers.Result{
		Success:    true,
		StatusCode: 200,
		Data:       req.URI,
		Metadata:   map[string]interface{}{"kind": "http"},
		FetchedAt:  time.Now(),
	}, nil
}

func (e *echoFetcher) CacheKey(req *fetchers.Request) string { return "http:" + req.URI }

func (e *echoFetcher) CacheTTL(req *fetchers.Request) time.Duration { return 0 }

func (e *echoFetcher) CacheTags(req *fetchers.Request) []string {
	return []string{"kind:http", "host:example.com"}
}

func setupRouter(t *testing.T, backendCheck func() error) (*mux.Router, *cache.Manager) {
	cacheManager, err := cache.NewManager(cache.NewMemoryBackend(100, 0))
	require.NoError(t, err)
	t.Cleanup(cacheManager.Cleanup)

	registry := fetchers.NewRegistry()
	registry.Register(&echoFetcher{})

	resources := resource.NewManager(cacheManager, registry)
	t.Cleanup(resources.Stop)

	r := mux.NewRouter()
	New(resources, backendCheck).SetupRoutes(r)
	return r, cacheManager
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Only object bodies decode into the map; array responses (the pattern
	// list) are decoded by the caller from rec.Body
	var decoded map[string]interface{}
	if trimmed := bytes.TrimSpace(rec.Body.Bytes()); bytes.HasPrefix(trimmed, []byte("{")) {
		require.NoError(t, json.Unmarshal(trimmed, &decoded))
	}
	return rec, decoded
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t, nil)

	rec, body := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	router, _ := setupRouter(t, func() error { return errors.New("connection refused") })

	rec, body := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, body["status"], "degraded")
}

func TestFetchEndpoint(t *testing.T) {
	router, _ := setupRouter(t, nil)

	payload := map[string]interface{}{"kind": "http", "uri": "https://example.com/feed"}

	rec, body := doJSON(t, router, http.MethodPost, "/api/fetch", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://example.com/feed", body["data"])

	metadata, ok := body["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, metadata["cache_hit"])

	// Second request is a hit
	rec, body = doJSON(t, router, http.MethodPost, "/api/fetch", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	metadata = body["metadata"].(map[string]interface{})
	assert.Equal(t, true, metadata["cache_hit"])
}

func TestFetchEndpointValidation(t *testing.T) {
	router, _ := setupRouter(t, nil)

	// Missing kind
	rec, _ := doJSON(t, router, http.MethodPost, "/api/fetch", map[string]interface{}{"uri": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown kind
	rec, _ = doJSON(t, router, http.MethodPost, "/api/fetch", map[string]interface{}{
		"kind": "graphql", "uri": "x",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/fetch", bytes.NewReader([]byte("{")))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestCacheStatsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, nil)

	payload := map[string]interface{}{"kind": "http", "uri": "https://example.com/feed"}
	doJSON(t, router, http.MethodPost, "/api/fetch", payload)
	doJSON(t, router, http.MethodPost, "/api/fetch", payload)

	rec, body := doJSON(t, router, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["hits"])
	assert.Equal(t, float64(1), body["misses"])
	assert.Equal(t, float64(0.5), body["hit_rate"])
	assert.Equal(t, true, body["warming_enabled"])
}

func TestInvalidateEndpoints(t *testing.T) {
	router, cacheManager := setupRouter(t, nil)
	ctx := context.Background()

	doJSON(t, router, http.MethodPost, "/api/fetch", map[string]interface{}{
		"kind": "http", "uri": "https://example.com/a",
	})
	doJSON(t, router, http.MethodPost, "/api/fetch", map[string]interface{}{
		"kind": "http", "uri": "https://example.com/b",
	})

	rec, body := doJSON(t, router, http.MethodDelete, "/api/cache/hosts/example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "example.com", body["host"])
	assert.Equal(t, float64(2), body["invalidated"])

	assert.False(t, cacheManager.Exists(ctx, "http:https://example.com/a"))

	rec, body = doJSON(t, router, http.MethodDelete, "/api/cache/kinds/http", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["invalidated"])

	rec, body = doJSON(t, router, http.MethodDelete, "/api/cache/tags/kind:http", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kind:http", body["tag"])
}

func TestWarmingPatternEndpoints(t *testing.T) {
	router, cacheManager := setupRouter(t, nil)
	ctx := context.Background()

	pattern := map[string]interface{}{
		"name":     "popular",
		"interval": "5m",
		"requests": []map[string]interface{}{
			{"kind": "http", "uri": "https://example.com/a"},
			{"kind": "http", "uri": "https://example.com/b"},
		},
	}

	rec, body := doJSON(t, router, http.MethodPost, "/api/cache/warming/patterns", pattern)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "popular", body["name"])
	assert.Equal(t, float64(2), body["requests"])

	rec, _ = doJSON(t, router, http.MethodGet, "/api/cache/warming/patterns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var patterns []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patterns))
	require.Len(t, patterns, 1)
	assert.Equal(t, "popular", patterns[0]["name"])

	rec, body = doJSON(t, router, http.MethodPost, "/api/cache/warming/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	warmed, ok := body["warmed"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), warmed["popular"])

	require.Eventually(t, func() bool {
		return cacheManager.Exists(ctx, "http:https://example.com/a") &&
			cacheManager.Exists(ctx, "http:https://example.com/b")
	}, time.Second, 10*time.Millisecond)

	rec, body = doJSON(t, router, http.MethodDelete, "/api/cache/warming/patterns/popular", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["removed"])

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/cache/warming/patterns/popular", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWarmingPatternValidation(t *testing.T) {
	router, _ := setupRouter(t, nil)

	// Bad interval
	rec, _ := doJSON(t, router, http.MethodPost, "/api/cache/warming/patterns", map[string]interface{}{
		"name": "p", "interval": "often", "requests": []map[string]interface{}{{"kind": "http", "uri": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No requests
	rec, _ = doJSON(t, router, http.MethodPost, "/api/cache/warming/patterns", map[string]interface{}{
		"name": "p", "interval": "5m",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
