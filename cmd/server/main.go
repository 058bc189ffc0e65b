package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bioage-mcp-server/internal/api"
	"github.com/bioage-mcp-server/internal/cache"
	"github.com/bioage-mcp-server/internal/config"
	"github.com/bioage-mcp-server/internal/database"
	"github.com/bioage-mcp-server/internal/history"
	"github.com/bioage-mcp-server/internal/logging"
	"github.com/bioage-mcp-server/internal/monitoring"
	"github.com/bioage-mcp-server/internal/repository"
	"github.com/bioage-mcp-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.NewLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Schema
	migrations, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := migrations.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	migrations.Close()

	// Profiles on pgx
	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	profiles := repository.NewProfileRepository(db.Pool, logger)

	// History on database/sql
	store, err := history.NewPostgresStoreFromURL(
		configManager.GetDatabaseURL(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}

	checkers := []api.HealthChecker{db, store}

	// The redis tier is optional; the service runs on memory caching without it.
	var redisTier cache.Tier
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, continuing with memory cache only")
		} else {
			defer redisCache.Close()
			redisTier = redisCache
			checkers = append(checkers, redisCache)
		}
	}

	cached := cache.NewCachedStore(
		store,
		cache.NewMemoryCache(cfg.Cache.MemoryMaxItems, cfg.Cache.MemoryTTL),
		redisTier,
		cfg.Assessment.HistoryPageSize,
		logger,
	)
	defer cached.Close()

	metrics := monitoring.NewMetrics()
	engine, err := service.BuildEngine(cfg.Assessment, cfg.AI, nil, metrics, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build scoring engine")
	}

	assessments := service.NewAssessmentService(engine, nil, cached, cfg.Assessment, logger,
		service.WithProfiles(profiles),
		service.WithMetrics(metrics),
	)

	server := api.NewServer(cfg, api.Dependencies{
		Assessments: assessments,
		Trends:      service.NewTrendService(cached),
		Metrics:     metrics,
		Logger:      logger,
		Health:      checkers,
	})

	logger.WithField("engine", engine.Name()).Infof("Starting bio-age server on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
