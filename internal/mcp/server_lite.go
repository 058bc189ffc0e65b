package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/cache"
	litecfg "github.com/bioage-mcp-server/internal/config"
	"github.com/bioage-mcp-server/internal/history"
	"github.com/bioage-mcp-server/internal/logging"
	"github.com/bioage-mcp-server/internal/service"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for persistence.
type LiteServer struct {
	*Server

	config *litecfg.LiteConfig
	store  history.Store
	cached *cache.CachedStore
	logger *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithHistoryStore sets a custom history store instead of the SQLite file.
func WithHistoryStore(store history.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		// stdout carries the protocol
		logger: logging.NewLoggerWithOutput(cfg.LoggingConfig(), os.Stderr),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.store == nil {
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.store = store
	}

	assessmentCfg := cfg.AssessmentConfig()
	server.cached = cache.NewCachedStore(
		server.store,
		cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL),
		nil,
		assessmentCfg.HistoryPageSize,
		server.logger,
	)

	engine, err := service.BuildEngine(assessmentCfg, cfg.AIConfig(), nil, nil, server.logger)
	if err != nil {
		server.store.Close()
		return nil, fmt.Errorf("failed to build scoring engine: %w", err)
	}

	assessments := service.NewAssessmentService(engine, nil, server.cached, assessmentCfg, server.logger)
	trends := service.NewTrendService(server.cached)

	mcpServer, err := NewServer(assessments, trends, cfg.OwnerID, server.logger)
	if err != nil {
		server.store.Close()
		return nil, err
	}
	server.Server = mcpServer

	server.logger.WithField("engine", engine.Name()).Info("Lite server initialized successfully")
	return server, nil
}

// Start starts the lite MCP server on stdio.
func (s *LiteServer) Start(ctx context.Context) error {
	return s.Server.Start(ctx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if err := s.store.Close(); err != nil {
		s.logger.WithError(err).Error("Failed to close history store")
		return err
	}
	return nil
}

// CacheStats returns the history cache counters.
func (s *LiteServer) CacheStats() cache.Stats {
	return s.cached.GetStats()
}
