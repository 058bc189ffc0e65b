// Package api serves the assessment service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/middleware"
	"github.com/bioage-mcp-server/internal/monitoring"
	"github.com/bioage-mcp-server/internal/service"
)

// Version is reported by /health.
const Version = "1.0.0"

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	Name() string
	Health(ctx context.Context) error
}

// Dependencies are the services the HTTP server routes to.
type Dependencies struct {
	Assessments *service.AssessmentService
	Trends      *service.TrendService
	Metrics     *monitoring.Metrics
	Logger      *logrus.Logger
	Health      []HealthChecker
}

// Server represents the HTTP server
type Server struct {
	config  *domain.Config
	deps    Dependencies
	limiter *middleware.OwnerRateLimiter
	router  *gin.Engine
	server  *http.Server
	now     func() time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(config *domain.Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}

	// Set Gin mode based on environment
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(middleware.RequestTimeout(config.Server.RequestTimeout))

	s := &Server{
		config: config,
		deps:   deps,
		router: router,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if config.RateLimit.Enabled {
		s.limiter = middleware.NewOwnerRateLimiter(config.RateLimit, deps.Logger)
	}

	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and shuts it down gracefully when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	if s.limiter != nil {
		s.limiter.StartCleanup(ctx, time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.GET("/catalog", s.handleCatalog)

	owned := v1.Group("")
	owned.Use(middleware.Authenticate(s.config.Auth))
	if s.limiter != nil {
		owned.Use(s.limiter.Middleware())
	}
	{
		owned.POST("/assessments", s.handleCalculate)
		owned.GET("/assessments", s.handleHistory)
		owned.GET("/assessments/:id", s.handleGetAssessment)
		owned.DELETE("/assessments", s.handleClearHistory)
		owned.GET("/trends", s.handleTrend)
		owned.GET("/profile", s.handleGetProfile)
		owned.PUT("/profile", s.handleUpdateProfile)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-User-ID, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "X-Correlation-ID, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
