package fetchers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "resource-cache/internal/common/errors"
	"resource-cache/internal/common/logging"
)

// KindHTTP is the resource kind served by HTTPFetcher.
const KindHTTP = "http"

// HTTPFetcher fetches resources over HTTP(S) using a shared resty client.
// The request method defaults to GET and can be overridden via
// Options["method"]; Options["cache_ttl"] (a duration string) and
// Options["cache_tags"] feed the caching hints.
type HTTPFetcher struct {
	client *resty.Client
	logger logging.Logger
}

// NewHTTPFetcher creates an HTTP fetcher with the given default timeout and
// retry count.
func NewHTTPFetcher(timeout time.Duration, retries int) *HTTPFetcher {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if retries > 0 {
		client.SetRetryCount(retries)
	}

	return &HTTPFetcher{
		client: client,
		logger: logging.GetGlobalLogger(),
	}
}

// Kind returns "http".
func (f *HTTPFetcher) Kind() string {
	return KindHTTP
}

// Fetch issues the HTTP request. Transport failures and error status codes
// are reported as a failed Result; an error is returned only when the
// request itself is malformed.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	if req.URI == "" {
		return nil, apperrors.ValidationError("http fetch requires a uri")
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	r := f.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}

	method := requestMethod(req)

	resp, err := r.Execute(method, req.URI)
	if err != nil {
		f.logger.Warn("HTTP fetch failed",
			logging.String("uri", req.URI),
			logging.Err(err),
		)
		return &Result{
			Success:   false,
			Error:     err.Error(),
			Metadata:  map[string]interface{}{"kind": KindHTTP},
			FetchedAt: time.Now(),
		}, nil
	}

	result := &Result{
		Success:    !resp.IsError(),
		StatusCode: resp.StatusCode(),
		Data:       decodeBody(resp),
		Metadata: map[string]interface{}{
			"kind":         KindHTTP,
			"content_type": resp.Header().Get("Content-Type"),
			"duration_ms":  resp.Time().Milliseconds(),
			"size":         len(resp.Body()),
		},
		FetchedAt: time.Now(),
	}
	if resp.IsError() {
		result.Error = fmt.Sprintf("http %d", resp.StatusCode())
	}
	return result, nil
}

// CacheKey returns a deterministic key for plain GET requests. Requests
// with other methods get no component key; the pipeline falls back to its
// generic hash.
func (f *HTTPFetcher) CacheKey(req *Request) string {
	if requestMethod(req) != resty.MethodGet || req.URI == "" {
		return ""
	}
	digest := sha256.Sum256([]byte(req.URI))
	return KindHTTP + ":" + hex.EncodeToString(digest[:])[:32]
}

// CacheTTL reads Options["cache_ttl"] as a duration string, returning zero
// (pipeline default) when absent or invalid.
func (f *HTTPFetcher) CacheTTL(req *Request) time.Duration {
	raw, ok := req.Options["cache_ttl"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	case float64:
		// JSON numbers decode as float64; treat as seconds
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	}
	return 0
}

// CacheTags returns kind and host tags plus any tags supplied via
// Options["cache_tags"].
func (f *HTTPFetcher) CacheTags(req *Request) []string {
	tags := []string{"kind:" + KindHTTP}

	if u, err := url.Parse(req.URI); err == nil && u.Host != "" {
		tags = append(tags, "host:"+u.Hostname())
	}

	switch extra := req.Options["cache_tags"].(type) {
	case []string:
		tags = append(tags, extra...)
	case []interface{}:
		for _, t := range extra {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
	}
	return tags
}

// requestMethod returns the HTTP method for a request, defaulting to GET.
func requestMethod(req *Request) string {
	if raw, ok := req.Options["method"].(string); ok && raw != "" {
		return strings.ToUpper(raw)
	}
	return resty.MethodGet
}

// decodeBody returns the response body as structured data for JSON payloads
// and as a string otherwise.
func decodeBody(resp *resty.Response) interface{} {
	body := resp.Body()
	if len(body) == 0 {
		return nil
	}

	contentType := resp.Header().Get("Content-Type")
	if strings.Contains(contentType, "json") {
		var data interface{}
		if err := json.Unmarshal(body, &data); err == nil {
			return data
		}
	}
	return string(body)
}
