// Package main is the entry point for the pattern generation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emojigen/config"
	"emojigen/internal/cache"
	"emojigen/internal/localgen"
	"emojigen/internal/logging"
	"emojigen/internal/orchestrator"
	"emojigen/internal/server"
	"emojigen/internal/services"
	"emojigen/internal/services/remoteapi"
	"emojigen/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Environment, cfg.LogLevel)

	slog.Info("starting emojigen",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	store := buildCache(cfg)
	defer func() {
		_ = store.Close()
	}()

	registry := services.NewRegistry()
	tracker := services.NewTracker()
	for _, svcCfg := range cfg.Services {
		svc := remoteapi.New(svcCfg)
		registry.Register(svc)
		tracker.Init(svc.Name())
	}
	if registry.Len() == 0 {
		slog.Info("no remote services configured, all generation will be local")
	}

	monitor := services.NewMonitor(registry, tracker, cfg.Health.ProbeInterval)
	monitor.Start(context.Background())
	defer monitor.Stop()

	orch := orchestrator.New(orchestrator.Config{
		Registry: registry,
		Tracker:  tracker,
		Engine:   localgen.New(logger),
		Cache:    store,
		Hybrid:   cfg.Hybrid,
		Logger:   logger,
		CacheTTL: cfg.Cache.TTL,
	})

	if cfg.Server.MasterKey == "" {
		slog.Warn("MASTER_KEY not set, server accepts unauthenticated requests")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	srv := server.New(orch, &server.Config{
		MasterKey:      cfg.Server.MasterKey,
		MetricsEnabled: cfg.Server.MetricsEnabled,
		BodySizeLimit:  cfg.Server.BodySizeLimit,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

// buildCache creates the configured cache backend. A Redis backend that
// cannot be reached falls back to the in-memory store so startup never
// depends on the cache.
func buildCache(cfg *config.Config) cache.Store {
	if cfg.Cache.Backend == "redis" {
		store, err := cache.NewRedisStore(cache.RedisConfig{
			URL:    cfg.Cache.RedisURL,
			Prefix: cfg.Cache.RedisPrefix,
		})
		if err == nil {
			slog.Info("using redis result cache", "url", cfg.Cache.RedisURL)
			return store
		}
		slog.Warn("redis cache unavailable, falling back to in-memory", "error", err)
	}
	return cache.NewLocalStore(cfg.Cache.MaxEntries, cfg.Cache.MaxBytes)
}
