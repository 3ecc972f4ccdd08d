// Package cli wires configuration, logging, the cache and the backend
// together for the commands under cmd/dinerito.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Ryuko2/dinerito/internal/backend"
	"github.com/Ryuko2/dinerito/internal/config"
	"github.com/Ryuko2/dinerito/internal/localcache"
	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/sync"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the configured level.
func SetupLogger(level string) *log.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return log.New(log.Config{
		Level:     l,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}),
	})
}

// LoadAndValidateConfig loads configuration and fails fast when it is
// unusable.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App is everything a command needs to run.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Cache   *localcache.Cache
	Backend *backend.Backend
}

// Bootstrap builds the full application stack: env file, config,
// logger, cache, remote store and managers. Managers are not started.
func Bootstrap() (*App, error) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := SetupLogger(cfg.LogLevel)

	cache, err := localcache.Open(cfg.CacheDBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	b, err := backend.New(cfg, cache, logger)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("init backend: %w", err)
	}

	return &App{Config: cfg, Logger: logger, Cache: cache, Backend: b}, nil
}

// Close releases the store and the cache.
func (a *App) Close() {
	a.Backend.Store.Close()
	a.Cache.Close()
}

// WaitReady blocks until every manager has left the initializing
// states or the timeout passes. Degraded counts as ready: a cached
// snapshot is still usable data.
func (a *App) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ready := true
		for _, m := range a.Backend.Managers.All() {
			if m.State() == sync.StateInitializing || m.State() == sync.StateSubscribing {
				ready = false
			}
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("collections not ready after %v", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
