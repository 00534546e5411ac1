package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resource-cache/internal/fetchers"
)

func TestDeriveKey(t *testing.T) {
	base := &fetchers.Request{
		Kind:    "http",
		URI:     "https://example.com/feed",
		Headers: map[string]string{"Accept": "application/json", "X-Trace": "abc"},
	}

	key := deriveKey(base)
	assert.Regexp(t, `^res:http:[0-9a-f]{32}$`, key)

	// Header map iteration order must not change the key
	reordered := &fetchers.Request{
		Kind:    "http",
		URI:     "https://example.com/feed",
		Headers: map[string]string{"X-Trace": "abc", "Accept": "application/json"},
	}
	assert.Equal(t, key, deriveKey(reordered))

	// Any input change yields a different key
	assert.NotEqual(t, key, deriveKey(&fetchers.Request{Kind: "rss", URI: base.URI, Headers: base.Headers}))
	assert.NotEqual(t, key, deriveKey(&fetchers.Request{Kind: "http", URI: "https://example.com/other", Headers: base.Headers}))
	assert.NotEqual(t, key, deriveKey(&fetchers.Request{Kind: "http", URI: base.URI}))

	withOptions := &fetchers.Request{
		Kind:    "http",
		URI:     base.URI,
		Headers: base.Headers,
		Options: map[string]interface{}{"method": "POST"},
	}
	assert.NotEqual(t, key, deriveKey(withOptions))
}

func TestDeriveKeyEmptyURI(t *testing.T) {
	assert.Empty(t, deriveKey(&fetchers.Request{Kind: "http"}))
}
