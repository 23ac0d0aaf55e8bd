// TICPE - fuel tax rebate eligibility and recovery engine.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-finance/ticpe/internal/api"
	"github.com/opensource-finance/ticpe/internal/bus"
	"github.com/opensource-finance/ticpe/internal/cache"
	"github.com/opensource-finance/ticpe/internal/config"
	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/engine"
	"github.com/opensource-finance/ticpe/internal/reference"
	"github.com/opensource-finance/ticpe/internal/repository"
	"github.com/opensource-finance/ticpe/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	logLevel := new(slog.LevelVar)
	if os.Getenv("TICPE_DEBUG") == "true" {
		logLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("starting ticpe",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg, err := config.Load(os.Getenv("TICPE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	configureLogging(cfg.Logging, logLevel)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"reference_source", cfg.Reference.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("ticpe stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("ticpe shutdown complete")
}

// configureLogging applies the configured level and format. TICPE_DEBUG
// keeps precedence over the configured level.
func configureLogging(cfg domain.LoggingConfig, level *slog.LevelVar) {
	if os.Getenv("TICPE_DEBUG") != "true" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(cfg.Level)); err == nil {
			level.Set(l)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
}

func run(ctx context.Context, cfg *domain.Config) error {
	ds, err := loadDataset(cfg.Reference)
	if err != nil {
		return err
	}
	slog.Info("reference dataset loaded", "version", ds.Version, "year", ds.Year)

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("initialize repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	if cfg.Reference.Seed {
		if err := repo.SeedReference(ctx, &ds.ReferenceTables); err != nil {
			return fmt.Errorf("seed reference tables: %w", err)
		}
		slog.Info("reference tables seeded", "version", ds.Version)
	}

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	source, err := referenceSource(ctx, cfg.Reference, ds, repo, cacheImpl)
	if err != nil {
		return err
	}

	eng, err := engine.New(source, ds)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	slog.Info("engine initialized", "dataset_version", eng.Version(), "rules_count", len(ds.Rules))

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(busImpl, repo, eng)
		if err := asyncWorker.Start(worker.Config{TenantIDs: cfg.Worker.Tenants}); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
	}

	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, eng, asyncWorker)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("ticpe is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)
	printBanner(cfg, ds)

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	// Stop the worker first so no calculation is picked up mid-shutdown.
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	return nil
}

func loadDataset(cfg domain.ReferenceConfig) (*reference.Dataset, error) {
	if cfg.Path == "" {
		return reference.Default(), nil
	}
	ds, err := reference.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load reference dataset: %w", err)
	}
	return ds, nil
}

// referenceSource picks the lookup backend of the engine and wraps it in the
// lookup cache when a TTL is configured.
func referenceSource(ctx context.Context, cfg domain.ReferenceConfig, ds *reference.Dataset, repo *repository.SQLRepository, c domain.Cache) (domain.ReferenceSource, error) {
	var source domain.ReferenceSource = ds.Source()
	if cfg.Source == "database" {
		sqlSource, err := repo.Source(ctx, ds.Version)
		if err != nil {
			return nil, fmt.Errorf("open reference tables %s: %w", ds.Version, err)
		}
		source = sqlSource
	}

	if cfg.CacheTTL <= 0 {
		return source, nil
	}

	cached := reference.NewCachedSource(source, c, ds.Version, cfg.CacheTTL)
	// A shared cache may hold lookups of a previous seed of this version.
	if cfg.Seed {
		if err := cached.Invalidate(ctx); err != nil {
			slog.Warn("failed to invalidate reference cache", "version", ds.Version, "error", err)
		}
	}
	slog.Info("reference lookups cached", "ttl", cfg.CacheTTL)
	return cached, nil
}

func printBanner(cfg *domain.Config, ds *reference.Dataset) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                  TICPE                    |")
	fmt.Println("  |   Fuel tax rebate eligibility engine      |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  Dataset:  %s (%d)\n", ds.Version, ds.Year)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /calculations         - Run a calculation (sync or async)")
	fmt.Println("    GET  /calculations         - List calculations")
	fmt.Println("    GET  /calculations/{id}    - Get calculation by ID")
	fmt.Println("    POST /profile              - Extract a profile")
	fmt.Println("    GET  /reference            - Dataset summary")
	fmt.Println("    GET  /reference/sectors    - Sector table")
	fmt.Println("    GET  /reference/benchmarks - Benchmark table")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println()
}
