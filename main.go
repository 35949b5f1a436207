package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smc-signal-engine/config"
	"smc-signal-engine/internal/api"
	"smc-signal-engine/internal/cache"
	"smc-signal-engine/internal/database"
	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/events"
	"smc-signal-engine/internal/logging"
	"smc-signal-engine/internal/marketdata"
	"smc-signal-engine/internal/scanner"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "generate-config" {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			logging.Default().Fatal("failed to write sample configuration", "error", err)
		}
		logging.Default().Info("sample configuration written", "file", "config.json")
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal("failed to load configuration", "error", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	logger.Info("structured logging initialized")

	// Event bus connects the engine to the delivery paths.
	eventBus := events.NewEventBus()
	eventBus.SubscribeAll(func(ev events.Event) {
		logger.Debug("event", "type", string(ev.Type))
	})

	// Signal persistence (optional; the engine runs without it).
	var repo *database.Repository
	if cfg.DatabaseConfig.URL != "" {
		db, err := database.NewDB(cfg.DatabaseConfig.URL, logger)
		if err != nil {
			logger.Warn("database unavailable, signal feed disabled", "error", err)
		} else {
			defer db.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := db.RunMigrations(ctx); err != nil {
				logger.Fatal("database migrations failed", "error", err)
			}
			cancel()
			repo = database.NewRepository(db)
		}
	} else {
		logger.Warn("DATABASE_URL not set, signal feed disabled")
	}

	// Redis cache (optional, degrades gracefully).
	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig, logger)
		if err != nil {
			logger.Warn("redis cache disabled", "error", err)
			cacheService = nil
		} else {
			defer cacheService.Close()
		}
	}

	// Market data provider chain.
	var primary marketdata.Provider
	if cfg.MarketDataConfig.Provider == "mock" || cfg.MarketDataConfig.APIKey == "" {
		if cfg.MarketDataConfig.Provider != "mock" {
			logger.Warn("no market data API key configured, using simulated data")
		}
		primary = marketdata.NewMockProvider()
	} else {
		primary = marketdata.NewFMPProvider(
			cfg.MarketDataConfig.BaseURL,
			cfg.MarketDataConfig.APIKey,
			time.Duration(cfg.MarketDataConfig.TimeoutSecs)*time.Second,
			cfg.MarketDataConfig.MaxRetries,
			logger,
		)
	}
	var fallback marketdata.Provider
	if cfg.MarketDataConfig.MockFallback && primary.Name() != "mock" {
		fallback = marketdata.NewMockProvider()
	}
	fetcher := marketdata.NewFetcher(primary, fallback,
		time.Duration(cfg.MarketDataConfig.PriceCacheSecs)*time.Second, logger)

	// The signal engine.
	engineCfg := engine.Config{
		LookbackSwing:               cfg.EngineConfig.LookbackSwing,
		LookbackInternal:            cfg.EngineConfig.LookbackInternal,
		RiskRewardRatio:             cfg.EngineConfig.RiskRewardRatio,
		Cooldown:                    cfg.EngineConfig.CooldownDuration(),
		MinConfirmations:            cfg.EngineConfig.MinConfirmations,
		MinConfidence:               cfg.EngineConfig.MinConfidence,
		UseInternalConfluenceFilter: cfg.EngineConfig.UseInternalConfluenceFilter,
		HistoryCapacity:             cfg.EngineConfig.HistoryCapacity,
		MinBars:                     cfg.EngineConfig.MinBars,
		MaxInstruments:              cfg.EngineConfig.MaxInstruments,
	}
	if err := engineCfg.Validate(); err != nil {
		logger.Fatal("invalid engine configuration", "error", err)
	}
	eng := engine.New(engineCfg, logger, eventBus)
	logger.Info("signal engine initialized",
		"lookback_swing", engineCfg.LookbackSwing,
		"lookback_internal", engineCfg.LookbackInternal,
		"min_confidence", engineCfg.MinConfidence)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Scan loop.
	if cfg.ScannerConfig.Enabled {
		sc := scanner.New(cfg.ScannerConfig, eng, fetcher, repo, cacheService, eventBus, logger)
		go sc.Run(ctx)
	}

	// HTTP API.
	server := api.NewServer(cfg.ServerConfig, eng, repo, cacheService, eventBus, logger)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("API server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}
