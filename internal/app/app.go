// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"gatewire/config"
	"gatewire/internal/assets"
	"gatewire/internal/async"
	"gatewire/internal/cache"
	"gatewire/internal/core"
	"gatewire/internal/httpclient"
	"gatewire/internal/objectstore"
	"gatewire/internal/providers"
	"gatewire/internal/responses"
	"gatewire/internal/server"
	"gatewire/internal/storage"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config   *config.Config
	registry *providers.Registry
	storage  storage.Storage
	store    async.Store
	server   *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}

	app := &App{config: cfg}

	registry, err := providers.NewRegistry(cfg.Providers, cfg.Resilience, httpclient.NewHTTPClient(ptr(httpclient.FromConfig(cfg.HTTP))))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	app.registry = registry

	objects, err := objectstore.New(cfg.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	var env *core.Env
	if objects != nil {
		env = &core.Env{Storage: objects, PublicBaseURL: cfg.ObjectStore.PublicBaseURL}
	}

	shared, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.storage = shared

	store, err := async.NewStore(ctx, shared)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize invocation store: %w", err), app.closeStorage())
	}

	invocationCache, err := cache.New(cfg.Cache)
	if err != nil {
		closeErr := errors.Join(store.Close(), app.closeStorage())
		if closeErr != nil {
			return nil, fmt.Errorf("failed to initialize invocation cache: %w (also: close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize invocation cache: %w", err)
	}
	app.store = async.WithCache(store, invocationCache)

	formatter := responses.New(assets.NewPersister(httpclient.NewAssetClient(cfg.HTTP)))

	app.logStartupInfo()

	handler := server.NewHandler(server.Dependencies{
		Registry:       registry,
		Formatter:      formatter,
		Tracker:        async.NewTracker(formatter, env, cfg.Async.PollIntervalMs),
		Store:          app.store,
		Env:            env,
		MaxResyncBytes: cfg.Streaming.MaxResyncBytes,
	})
	app.server = server.New(handler, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
	})

	return app, nil
}

func ptr[T any](v T) *T { return &v }

// Registry returns the configured provider adapters.
func (a *App) Registry() *providers.Registry {
	return a.registry
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first, then the invocation store and cache, then the
// storage connection.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every step and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("invocation store close error", "error", err)
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	if err := a.closeStorage(); err != nil {
		slog.Error("storage close error", "error", err)
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

func (a *App) closeStorage() error {
	if a.storage == nil {
		return nil
	}
	return a.storage.Close()
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: GATEWIRE_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set GATEWIRE_MASTER_KEY environment variable to secure this gateway")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("providers configured", "count", a.registry.Len())
	slog.Info("storage configured", "type", cfg.Storage.Type)

	if cfg.Cache.RedisURL != "" {
		slog.Info("invocation cache", "backend", "redis", "ttl", cfg.Cache.TTL)
	} else {
		slog.Info("invocation cache", "backend", "local", "ttl", cfg.Cache.TTL)
	}

	switch {
	case cfg.ObjectStore.Type == "" || cfg.ObjectStore.Type == objectstore.TypeNone:
		slog.Info("media persistence disabled")
	case cfg.ObjectStore.PublicBaseURL == "":
		slog.Warn("object store configured without PUBLIC_BASE_URL - media persistence requests will fail",
			"type", cfg.ObjectStore.Type)
	default:
		slog.Info("media persistence enabled",
			"type", cfg.ObjectStore.Type,
			"public_base_url", cfg.ObjectStore.PublicBaseURL)
	}
}
