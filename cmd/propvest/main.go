// Propvest - Real-estate investment recommendations over HTTP.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/propvest/internal/advisor"
	"github.com/opensource-finance/propvest/internal/api"
	"github.com/opensource-finance/propvest/internal/bus"
	"github.com/opensource-finance/propvest/internal/cache"
	"github.com/opensource-finance/propvest/internal/config"
	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/observability"
	"github.com/opensource-finance/propvest/internal/repository"
	"github.com/opensource-finance/propvest/internal/scoring"
	"github.com/opensource-finance/propvest/internal/screening"
	"github.com/opensource-finance/propvest/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("propvest exited")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet.
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return err
	}
	observability.SetupGlobal(cfg.Logging.Env, cfg.Logging.Level)

	log.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("starting propvest")
	log.Info().
		Str("tier", string(cfg.Tier)).
		Str("repository", cfg.Repository.Driver).
		Str("cache", cfg.Cache.Type).
		Str("eventbus", cfg.EventBus.Type).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("initialize repository: %w", err)
	}
	defer repo.Close()
	log.Info().Str("driver", cfg.Repository.Driver).Msg("repository initialized")

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	log.Info().Str("type", cfg.Cache.Type).Msg("cache initialized")

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	defer busImpl.Close()
	log.Info().Str("type", cfg.EventBus.Type).Msg("event bus initialized")

	scorer := scoring.NewScorer(loadTuning(cfg.Scoring.TuningPath))

	screener, err := screening.NewEngine()
	if err != nil {
		return fmt.Errorf("initialize screening engine: %w", err)
	}
	if path := cfg.Scoring.ScreeningPath; path != "" {
		if err := screener.LoadRulesFromFile(path); err != nil {
			return fmt.Errorf("load screening rules: %w", err)
		}
	}
	log.Info().Int("rules_count", screener.RulesCount()).Msg("screening engine initialized")

	svc := advisor.New(repo, cacheImpl, busImpl, scorer, screener, advisor.Config{
		DefaultTopN:  cfg.Scoring.DefaultTopN,
		MaxTopN:      cfg.Scoring.MaxTopN,
		HistoryLimit: cfg.Scoring.HistoryLimit,
		ResultTTL:    cfg.Cache.ResultTTL,
	})

	historyWorker := worker.NewWorker(busImpl, repo)
	if err := historyWorker.Start(); err != nil {
		return fmt.Errorf("start history worker: %w", err)
	}
	defer func() {
		if err := historyWorker.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop history worker")
		}
	}()

	reg := observability.InitRegistry()
	srv := api.NewServer(cfg.Server, svc, reg, Version)

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = observability.NewMetricsServer(cfg.Metrics.Addr, reg)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("propvest is ready")
	printBanner(cfg, Version)

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("propvest shutdown complete")
	return nil
}

// loadTuning falls back to the default tuning when the file is missing or invalid.
func loadTuning(path string) scoring.Tuning {
	if path == "" {
		return scoring.DefaultTuning()
	}
	t, err := scoring.LoadTuningFromFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("using default scoring tuning")
		return scoring.DefaultTuning()
	}
	log.Info().Str("path", path).Msg("scoring tuning loaded")
	return t
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                 PROPVEST                  |")
	fmt.Println("  |     Real-Estate Investment Advisor        |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Metrics.Addr != "" {
		fmt.Printf("  Metrics:  %s/metrics\n", cfg.Metrics.Addr)
	}
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /properties              - List properties")
	fmt.Println("    POST /properties              - Add a property")
	fmt.Println("    GET  /properties/{id}         - Get property by ID")
	fmt.Println("    GET  /profiles                - List presets and saved profiles")
	fmt.Println("    POST /profiles                - Save a custom profile")
	fmt.Println("    GET  /profiles/{id}           - Get profile by key or ID")
	fmt.Println("    POST /recommendations         - Rank properties for a profile")
	fmt.Println("    GET  /recommendations/history - Recent recommendation runs")
	fmt.Println("    POST /compare                 - Compare properties side by side")
	fmt.Println("    GET  /analytics               - Portfolio analytics")
	fmt.Println("    GET  /health                  - Health check")
	fmt.Println()
}
