package fetchers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7, "title": "hello"}`))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 0)
	result, err := fetcher.Fetch(context.Background(), &Request{
		Kind:    KindHTTP,
		URI:     srv.URL,
		Headers: map[string]string{"Authorization": "token"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, map[string]interface{}{"id": float64(7), "title": "hello"}, result.Data)
	assert.Equal(t, KindHTTP, result.Metadata["kind"])
	assert.Contains(t, result.Metadata["content_type"], "json")
}

func TestHTTPFetcherPlainTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain body"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 0)
	result, err := fetcher.Fetch(context.Background(), &Request{Kind: KindHTTP, URI: srv.URL})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "plain body", result.Data)
}

func TestHTTPFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 0)
	result, err := fetcher.Fetch(context.Background(), &Request{Kind: KindHTTP, URI: srv.URL})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Equal(t, "http 500", result.Error)
}

func TestHTTPFetcherTransportFailure(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 0)
	result, err := fetcher.Fetch(context.Background(), &Request{
		Kind: KindHTTP,
		URI:  "http://127.0.0.1:1",
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestHTTPFetcherRequiresURI(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 0)

	_, err := fetcher.Fetch(context.Background(), &Request{Kind: KindHTTP})
	assert.Error(t, err)
}

func TestHTTPFetcherMethodOverride(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 0)
	result, err := fetcher.Fetch(context.Background(), &Request{
		Kind:    KindHTTP,
		URI:     srv.URL,
		Options: map[string]interface{}{"method": "post"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestHTTPFetcherCacheKey(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 0)

	get := &Request{Kind: KindHTTP, URI: "https://example.com/feed"}
	key := fetcher.CacheKey(get)
	assert.NotEmpty(t, key)
	assert.Contains(t, key, "http:")
	assert.Equal(t, key, fetcher.CacheKey(get), "key must be deterministic")

	other := &Request{Kind: KindHTTP, URI: "https://example.com/other"}
	assert.NotEqual(t, key, fetcher.CacheKey(other))

	// Only plain GETs are keyed; writes never cache
	post := &Request{
		Kind:    KindHTTP,
		URI:     "https://example.com/feed",
		Options: map[string]interface{}{"method": "POST"},
	}
	assert.Empty(t, fetcher.CacheKey(post))
}

func TestHTTPFetcherCacheTTL(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 0)

	tests := []struct {
		name    string
		options map[string]interface{}
		want    time.Duration
	}{
		{name: "absent", options: nil, want: 0},
		{name: "duration string", options: map[string]interface{}{"cache_ttl": "5m"}, want: 5 * time.Minute},
		{name: "json number seconds", options: map[string]interface{}{"cache_ttl": float64(90)}, want: 90 * time.Second},
		{name: "invalid string", options: map[string]interface{}{"cache_ttl": "soon"}, want: 0},
		{name: "negative", options: map[string]interface{}{"cache_ttl": float64(-1)}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{Kind: KindHTTP, URI: "https://example.com", Options: tt.options}
			assert.Equal(t, tt.want, fetcher.CacheTTL(req))
		})
	}
}

func TestHTTPFetcherCacheTags(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 0)

	tags := fetcher.CacheTags(&Request{
		Kind: KindHTTP,
		URI:  "https://news.example.com/feed",
		Options: map[string]interface{}{
			"cache_tags": []interface{}{"section:world", "priority:high"},
		},
	})

	assert.ElementsMatch(t, []string{
		"kind:http",
		"host:news.example.com",
		"section:world",
		"priority:high",
	}, tags)
}

func TestDecodeResult(t *testing.T) {
	original := &Result{
		Success:    true,
		StatusCode: 200,
		Data:       "payload",
		Metadata:   map[string]interface{}{"kind": "http"},
		FetchedAt:  time.Now().UTC().Truncate(time.Second),
	}

	t.Run("pointer", func(t *testing.T) {
		decoded, ok := DecodeResult(original)
		require.True(t, ok)
		assert.Equal(t, original.Data, decoded.Data)

		// Mutating the copy's metadata must not touch the original
		decoded.Metadata["cache_hit"] = true
		assert.NotContains(t, original.Metadata, "cache_hit")
	})

	t.Run("json round trip", func(t *testing.T) {
		// The remote backend hands back the generic JSON form
		generic := map[string]interface{}{
			"success":     true,
			"status_code": float64(200),
			"data":        "payload",
			"metadata":    map[string]interface{}{"kind": "http"},
			"fetched_at":  original.FetchedAt.Format(time.RFC3339),
		}

		decoded, ok := DecodeResult(generic)
		require.True(t, ok)
		assert.True(t, decoded.Success)
		assert.Equal(t, 200, decoded.StatusCode)
		assert.Equal(t, "payload", decoded.Data)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, ok := DecodeResult(42)
		assert.False(t, ok)
	})
}
