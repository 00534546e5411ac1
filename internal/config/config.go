// Package config provides configuration management for the resource cache service.
// It handles loading configuration from environment variables with sensible defaults
// and validates the configuration to ensure the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Cache Configuration:
//   - CACHE_BACKEND: Cache backend - "memory" or "remote" (default: memory)
//   - CACHE_MAX_ENTRIES: Memory backend entry limit (default: 1000)
//   - CACHE_MAX_BYTES: Memory backend byte budget (default: 104857600, 100 MiB)
//   - CACHE_KEY_PREFIX: Remote backend key namespace (default: cache:)
//   - CACHE_DEFAULT_TTL: Default entry TTL (default: 1h)
//   - CACHE_STRATEGY: Eviction strategy - lru, lfu, ttl, adaptive (default: lru; only lru is implemented)
//   - CACHE_ENABLE_WARMING: Enable proactive cache warming (default: true)
//   - CACHE_ENABLE_INVALIDATION: Enable tag-based invalidation (default: true)
//
// Redis Configuration (remote backend):
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Fetching:
//   - FETCH_TIMEOUT: Per-request fetch timeout (default: 30s)
//   - FETCH_RETRIES: HTTP fetch retry count (default: 2)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable per-client API throttling (default: false)
//   - RATE_LIMIT_RPS: Sustained requests per second per client (default: 100)
//   - RATE_LIMIT_BURST: Burst allowance per client (default: 200)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the resource cache service.
// All fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Cache engine configuration
	CacheBackend       string // Cache backend: "memory" or "remote"
	CacheMaxEntries    string // Memory backend entry limit
	CacheMaxBytes      string // Memory backend byte budget
	CacheKeyPrefix     string // Remote backend key namespace
	CacheDefaultTTL    string // Default entry TTL (duration, e.g. "1h")
	CacheStrategy      string // Eviction strategy tag (lru, lfu, ttl, adaptive)
	EnableWarming      bool   // Whether proactive warming is enabled
	EnableInvalidation bool   // Whether tag invalidation is enabled

	// Redis configuration for the remote backend
	RedisAddress  string // Redis server address (host:port)
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
	RedisPoolSize string // Redis connection pool size

	// Fetch configuration
	FetchTimeout string // Per-request fetch timeout (duration)
	FetchRetries string // HTTP fetch retry count

	// API rate limiting
	RateLimitEnabled bool   // Whether per-client API throttling is enabled
	RateLimitRPS     string // Sustained requests per second per client
	RateLimitBurst   string // Burst allowance per client
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Cache configuration
		CacheBackend:       getEnv("CACHE_BACKEND", "memory"),
		CacheMaxEntries:    getEnv("CACHE_MAX_ENTRIES", "1000"),
		CacheMaxBytes:      getEnv("CACHE_MAX_BYTES", "104857600"),
		CacheKeyPrefix:     getEnv("CACHE_KEY_PREFIX", "cache:"),
		CacheDefaultTTL:    getEnv("CACHE_DEFAULT_TTL", "1h"),
		CacheStrategy:      getEnv("CACHE_STRATEGY", "lru"),
		EnableWarming:      getBoolEnv("CACHE_ENABLE_WARMING", true),
		EnableInvalidation: getBoolEnv("CACHE_ENABLE_INVALIDATION", true),

		// Redis configuration
		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		// Fetch configuration
		FetchTimeout: getEnv("FETCH_TIMEOUT", "30s"),
		FetchRetries: getEnv("FETCH_RETRIES", "2"),

		// Rate limiting
		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", false),
		RateLimitRPS:     getEnv("RATE_LIMIT_RPS", "100"),
		RateLimitBurst:   getEnv("RATE_LIMIT_BURST", "200"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate performs comprehensive validation on the configuration to ensure
// all required fields are present and all values are valid.
//
// This method checks:
//   - Field format validation (ports, durations, numeric bounds)
//   - Cross-field dependencies (Redis configuration for the remote backend)
//   - That the configured eviction strategy names a known variant
//
// The application should call this method after loading configuration and
// before starting to ensure safe operation.
func (c *Config) Validate() error {
	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	// Validate cache backend
	switch c.CacheBackend {
	case "memory", "remote":
		// Valid backends
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'memory' or 'remote'")
	}

	// Validate memory backend bounds
	if maxEntries, err := strconv.Atoi(c.CacheMaxEntries); err != nil || maxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be a positive number")
	}
	if maxBytes, err := strconv.ParseInt(c.CacheMaxBytes, 10, 64); err != nil || maxBytes < 1 {
		return fmt.Errorf("CACHE_MAX_BYTES must be a positive number")
	}

	// Validate default TTL format
	if _, err := time.ParseDuration(c.CacheDefaultTTL); err != nil {
		return fmt.Errorf("CACHE_DEFAULT_TTL must be a valid duration (e.g., '1h', '300s')")
	}

	// Validate strategy names a known variant
	switch c.CacheStrategy {
	case "lru", "lfu", "ttl", "adaptive":
		// Known strategies; the cache manager rejects the unimplemented ones
	default:
		return fmt.Errorf("CACHE_STRATEGY must be one of 'lru', 'lfu', 'ttl', 'adaptive'")
	}

	// Validate Redis config if using the remote backend
	if c.CacheBackend == "remote" {
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when using the remote backend")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	// Validate fetch configuration
	if _, err := time.ParseDuration(c.FetchTimeout); err != nil {
		return fmt.Errorf("FETCH_TIMEOUT must be a valid duration (e.g., '30s')")
	}
	if retries, err := strconv.Atoi(c.FetchRetries); err != nil || retries < 0 {
		return fmt.Errorf("FETCH_RETRIES must be a non-negative number")
	}

	// Validate rate limiting bounds when enabled
	if c.RateLimitEnabled {
		if rps, err := strconv.ParseFloat(c.RateLimitRPS, 64); err != nil || rps <= 0 {
			return fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
		}
		if burst, err := strconv.Atoi(c.RateLimitBurst); err != nil || burst < 1 {
			return fmt.Errorf("RATE_LIMIT_BURST must be a positive number")
		}
	}

	return nil
}

// MaxEntries returns the parsed memory backend entry limit.
func (c *Config) MaxEntries() int {
	n, _ := strconv.Atoi(c.CacheMaxEntries)
	return n
}

// MaxBytes returns the parsed memory backend byte budget.
func (c *Config) MaxBytes() int64 {
	n, _ := strconv.ParseInt(c.CacheMaxBytes, 10, 64)
	return n
}

// DefaultTTL returns the parsed default entry TTL.
func (c *Config) DefaultTTL() time.Duration {
	d, _ := time.ParseDuration(c.CacheDefaultTTL)
	return d
}

// FetchTimeoutDuration returns the parsed fetch timeout.
func (c *Config) FetchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FetchTimeout)
	return d
}

// FetchRetryCount returns the parsed HTTP fetch retry count.
func (c *Config) FetchRetryCount() int {
	n, _ := strconv.Atoi(c.FetchRetries)
	return n
}

// RateLimitRPSValue returns the parsed per-client requests per second.
func (c *Config) RateLimitRPSValue() float64 {
	f, _ := strconv.ParseFloat(c.RateLimitRPS, 64)
	return f
}

// RateLimitBurstValue returns the parsed per-client burst allowance.
func (c *Config) RateLimitBurstValue() int {
	n, _ := strconv.Atoi(c.RateLimitBurst)
	return n
}
