// Package ratelimit provides per-client request throttling for the API
// surface using a token bucket per client identifier.
package ratelimit

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Config controls the limiter.
type Config struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// Limiter hands out one token bucket per client identifier.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   Config
}

// NewLimiter creates a limiter from config.
func NewLimiter(config Config) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// Allow reports whether a request from the identifier may proceed.
func (l *Limiter) Allow(identifier string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	limiter, exists := l.limiters[identifier]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
		l.limiters[identifier] = limiter

		// Bound the map so a churn of unique clients cannot grow it forever
		if len(l.limiters) > 10000 {
			l.cleanup()
		}
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// cleanup drops half the tracked buckets. Evicted clients simply start a
// fresh bucket on their next request.
func (l *Limiter) cleanup() {
	target := len(l.limiters) / 2
	count := 0
	for key := range l.limiters {
		delete(l.limiters, key)
		count++
		if count >= target {
			break
		}
	}
}

// Stats returns limiter statistics.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"enabled":             l.config.Enabled,
		"limiters_count":      len(l.limiters),
		"requests_per_second": l.config.RequestsPerSecond,
		"burst":               l.config.Burst,
	}
}

// HTTPMiddleware rejects over-limit requests with 429. keyFunc derives the
// client identifier; requests without one pass through unthrottled.
func (l *Limiter) HTTPMiddleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !l.Allow(key) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPBasedKey identifies clients by their forwarded or remote address.
func IPBasedKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return fmt.Sprintf("ip:%s", ip)
}
