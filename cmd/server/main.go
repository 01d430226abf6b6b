// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/statlinehq/statline/internal/api"
	"github.com/statlinehq/statline/internal/cache"
	"github.com/statlinehq/statline/internal/coalesce"
	"github.com/statlinehq/statline/internal/config"
	"github.com/statlinehq/statline/internal/logging"
	"github.com/statlinehq/statline/internal/snapshot"
	"github.com/statlinehq/statline/internal/supervisor"
	"github.com/statlinehq/statline/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration error")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
	logging.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, badgerStore, err := openSnapshotStore(cfg.Snapshot)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Err(cerr).Msg("closing snapshot store")
		}
	}()

	cacheStore := cache.NewWithJanitor(cfg.Cache.TTL, cfg.Cache.JanitorInterval)
	defer cacheStore.Close()

	group := coalesce.New(coalesce.Config{
		Timeout:         cfg.Coalesce.Timeout,
		CleanupInterval: cfg.Coalesce.CleanupInterval,
		AutoCleanup:     cfg.Coalesce.AutoCleanup,
	})
	defer group.Dispose()

	handler := api.NewHandler(store, cacheStore, group)
	router := api.NewRouter(handler, cacheStore, group, api.RouterConfig{
		RateLimitRequests:  cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	if len(cfg.Snapshot.WarmKeys) > 0 {
		// Warm-up failures are logged, not fatal; serving degrades to cold
		// cache behavior.
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := api.Warm(warmCtx, router, cfg.Snapshot.WarmKeys); err != nil {
			logging.Warn().Err(err).Msg("cache warm-up failed")
		}
		cancel()
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	if badgerStore != nil {
		tree.AddStorageService(services.NewBadgerGCService(badgerStore.DB(), 0))
	}

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("backend", cfg.Snapshot.Backend).
		Msg("statline starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openSnapshotStore builds the configured snapshot backend, wrapped in a
// circuit breaker when enabled. The *BadgerStore is returned separately so
// the GC service can reach the underlying database.
func openSnapshotStore(cfg config.SnapshotConfig) (snapshot.Store, *snapshot.BadgerStore, error) {
	var (
		store  snapshot.Store
		badger *snapshot.BadgerStore
		err    error
	)

	switch cfg.Backend {
	case "badger":
		badger, err = snapshot.OpenBadger(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store = badger
	case "fs":
		store, err = snapshot.NewFSStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}

	if cfg.Breaker.Enabled {
		store = snapshot.NewBreakerStore(store, snapshot.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Timeout:          cfg.Breaker.Timeout,
		})
	}
	return store, badger, nil
}
