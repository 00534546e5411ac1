// Package app wires the cache service together: configuration, logging,
// cache backend selection, the cache and resource managers, the fetcher
// registry, and the HTTP server.
package app

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"resource-cache/internal/cache"
	"resource-cache/internal/common/logging"
	"resource-cache/internal/config"
	"resource-cache/internal/fetchers"
	"resource-cache/internal/handlers"
	"resource-cache/internal/middleware"
	"resource-cache/internal/ratelimit"
	"resource-cache/internal/redis"
	"resource-cache/internal/resource"
)

// App holds the assembled application components.
type App struct {
	Config       *config.Config
	Redis        *redis.Client
	CacheManager *cache.Manager
	Registry     *fetchers.Registry
	Resources    *resource.Manager
}

// New assembles the application from validated configuration.
func New(cfg *config.Config) (*App, error) {
	strategy, err := cache.ParseStrategy(cfg.CacheStrategy)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	var backend cache.Backend
	switch cfg.CacheBackend {
	case "remote":
		client, err := redis.NewClient(&redis.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       atoi(cfg.RedisDB),
			PoolSize: atoi(cfg.RedisPoolSize),
		})
		if err != nil {
			return nil, err
		}
		app.Redis = client
		backend = cache.NewRemoteBackend(client.Underlying(), cfg.CacheKeyPrefix)
	default:
		backend = cache.NewMemoryBackend(cfg.MaxEntries(), cfg.MaxBytes())
	}

	manager, err := cache.NewManager(backend,
		cache.WithDefaultTTL(cfg.DefaultTTL()),
		cache.WithStrategy(strategy),
	)
	if err != nil {
		if app.Redis != nil {
			app.Redis.Close()
		}
		return nil, err
	}
	app.CacheManager = manager

	// The remote backend survives restarts; re-derive the tag index from
	// its live entries so invalidation keeps working
	if cfg.CacheBackend == "remote" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := manager.RebuildTagIndex(ctx); err != nil {
			logging.Warn("Tag index rebuild failed, starting with an empty index",
				logging.Err(err),
			)
		}
	}

	app.Registry = fetchers.NewRegistry()
	app.Registry.Register(fetchers.NewHTTPFetcher(cfg.FetchTimeoutDuration(), cfg.FetchRetryCount()))

	app.Resources = resource.NewManager(manager, app.Registry,
		resource.WithWarming(cfg.EnableWarming),
		resource.WithInvalidation(cfg.EnableInvalidation),
	)
	app.Resources.Start()

	logging.Info("Application initialized",
		logging.String("backend", cfg.CacheBackend),
		logging.String("strategy", cfg.CacheStrategy),
		logging.Bool("warming", cfg.EnableWarming),
		logging.Bool("invalidation", cfg.EnableInvalidation),
	)
	return app, nil
}

// Router builds the HTTP routing table.
func (a *App) Router() http.Handler {
	var backendCheck func() error
	if a.Redis != nil {
		backendCheck = a.Redis.Health
	}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	if a.Config.RateLimitEnabled {
		limiter := ratelimit.NewLimiter(ratelimit.Config{
			Enabled:           true,
			RequestsPerSecond: a.Config.RateLimitRPSValue(),
			Burst:             a.Config.RateLimitBurstValue(),
		})
		r.Use(limiter.HTTPMiddleware(ratelimit.IPBasedKey))
	}

	handlers.New(a.Resources, backendCheck).SetupRoutes(r)
	return r
}

// Cleanup releases application resources: the warming scheduler, tracked
// warming tasks, and the Redis connection pool.
func (a *App) Cleanup() {
	if a.Resources != nil {
		a.Resources.Stop()
	}
	if a.CacheManager != nil {
		a.CacheManager.Cleanup()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logging.Warn("Failed to close Redis connection", logging.Err(err))
		}
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
