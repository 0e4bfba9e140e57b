// Package main is the entry point for the ledgerline portfolio valuation
// service. It maintains a live price cache for held symbols, materializes
// periodic portfolio snapshots, and serves the dashboard query API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ledgerline/ledgerline/internal/activity"
	"github.com/ledgerline/ledgerline/internal/clientcache"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/dashboard"
	"github.com/ledgerline/ledgerline/internal/dashboard/handlers"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/positions"
	"github.com/ledgerline/ledgerline/internal/pricing"
	"github.com/ledgerline/ledgerline/internal/scheduler"
	"github.com/ledgerline/ledgerline/internal/server"
	"github.com/ledgerline/ledgerline/internal/snapshots"
	"github.com/ledgerline/ledgerline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting ledgerline")

	// Two databases: durable portfolio state and the ephemeral client cache.
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_cache.db"),
		Profile: database.ProfileCache,
		Name:    "client_cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	// Repositories
	positionRepo := positions.NewRepository(portfolioDB.Conn(), log)
	snapshotRepo := snapshots.NewRepository(portfolioDB.Conn(), log)
	activityRepo := activity.NewRepository(portfolioDB.Conn(), log)
	cacheRepo := clientcache.NewRepository(cacheDB.Conn())

	// Pricing
	priceCache := pricing.NewCache()
	quoteClient := pricing.NewQuoteClient(pricing.QuoteClientConfig{
		BaseURL:           cfg.QuoteAPIBaseURL,
		APIKey:            cfg.QuoteAPIKey,
		APISecret:         cfg.QuoteAPISecret,
		Timeout:           cfg.QuoteTimeout,
		RequestsPerSecond: cfg.QuoteRateLimit,
	}, log)
	refreshSvc := pricing.NewRefreshService(pricing.RefreshConfig{
		Quotes:    quoteClient,
		Cache:     priceCache,
		Positions: positionRepo,
		BatchSize: cfg.QuoteBatchSize,
		Timeout:   cfg.QuoteTimeout,
	}, log)
	valuator := pricing.NewLiveValuator(priceCache, positionRepo, cfg.FreshnessWindow)

	// Services
	snapshotSvc := snapshots.NewService(snapshotRepo, priceCache, positionRepo, activityRepo, log)
	querySvc := dashboard.NewQueryService(snapshotRepo, activityRepo, positionRepo, valuator, nil, log)
	cleanupTask := clientcache.NewCleanupTask(cacheRepo, log)

	// Background tasks
	sched := scheduler.New(log)
	sched.Register(&scheduler.Task{
		Name:     "price_refresh",
		Interval: cfg.PriceRefreshPeriod,
		Run:      refreshSvc.Run,
	})
	sched.Register(&scheduler.Task{
		Name:     "snapshot",
		Interval: cfg.SnapshotPeriod,
		Run:      snapshotSvc.Run,
	})
	sched.Register(&scheduler.Task{
		Name:     "client_cache_cleanup",
		Interval: cfg.ClientCacheTTL,
		Run:      cleanupTask.Run,
	})
	sched.Start()

	srv := server.New(server.Config{
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Log:       log,
		Dashboard: handlers.New(querySvc, positionRepo, valuator, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Scheduler first so no task writes race the closing databases.
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
