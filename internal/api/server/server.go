package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/aggregator"
	"github.com/nextplace/prediction-engine/internal/api/middleware"
	"github.com/nextplace/prediction-engine/internal/api/rest"
	"github.com/nextplace/prediction-engine/internal/config"
	"github.com/nextplace/prediction-engine/internal/ingest"
	"github.com/nextplace/prediction-engine/internal/logger"
	"github.com/nextplace/prediction-engine/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Auth         config.AuthConfig
	RateLimit    config.RateLimitConfig
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	gate       *ingest.Gate
	aggregator aggregator.StatsAggregator
	limiter    adapter.RedisRateLimiter
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, st store.Store, gate *ingest.Gate, agg aggregator.StatsAggregator, limiter adapter.RedisRateLimiter) *Server {
	return &Server{
		config:     cfg,
		store:      st,
		gate:       gate,
		aggregator: agg,
		limiter:    limiter,
	}
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.WithRequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	// Create REST handler
	restHandler := rest.NewHandler(s.store, s.gate, s.aggregator, adapter.NewJSON())

	// Setup REST routes
	rateLimit := middleware.RateLimit(s.config.RateLimit, s.limiter)
	rest.SetupRoutes(router, restHandler, s.config.Auth, rateLimit)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	// Start server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
