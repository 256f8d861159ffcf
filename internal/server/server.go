// Package server implements the HTTP API for face embedding extraction and
// comparison.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/audit"
	"github.com/Arch3nemy7/face-recognition-service/internal/cache"
	"github.com/Arch3nemy7/face-recognition-service/internal/config"
	"github.com/Arch3nemy7/face-recognition-service/internal/events"
	"github.com/Arch3nemy7/face-recognition-service/internal/facemodel"
	"github.com/Arch3nemy7/face-recognition-service/internal/imaging"
	"github.com/Arch3nemy7/face-recognition-service/internal/logger"
	"github.com/Arch3nemy7/face-recognition-service/internal/security"
)

// Version is the service version reported by the root endpoint
const Version = "1.0.0"

// Server is the HTTP API server. All dependencies are injected at startup;
// request handlers hold no mutable state of their own.
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	model    *facemodel.Model
	fetcher  *imaging.Fetcher
	verifier *security.TokenVerifier
	limiter  *security.RateLimiter

	// Optional subsystems, nil when disabled
	cache *cache.EmbeddingCache
	audit *audit.Store
	hub   *events.Hub

	router *mux.Router
	server *http.Server
}

// New creates a server wired to the configured subsystems. Cache and audit
// failures are downgraded to warnings; the service runs without them.
func New(cfg *config.Config, log *logger.Logger, model *facemodel.Model) *Server {
	s := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		model:    model,
		fetcher:  imaging.NewFetcher(cfg.Image, log.WithComponent("fetcher").Logger),
		verifier: security.NewTokenVerifier(cfg.Security.APIToken),
		limiter:  security.NewRateLimiter(&cfg.Security),
	}

	if cfg.Cache.Enabled {
		c, err := cache.NewEmbeddingCache(cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			s.logger.Warn("Embedding cache unavailable, continuing without it", zap.Error(err))
		} else {
			s.cache = c
		}
	}

	if cfg.Audit.Enabled {
		a, err := audit.NewStore(cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			s.logger.Warn("Audit store unavailable, continuing without it", zap.Error(err))
		} else {
			s.audit = a
		}
	}

	if cfg.Events.Enabled {
		s.hub = events.NewHub(cfg.Events, log.WithComponent("events").Logger)
		go s.hub.Run()
	}

	s.limiter.StartCleanupRoutine()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)

	// Unauthenticated surface
	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	if s.hub != nil {
		s.router.HandleFunc(s.config.Events.Path, s.hub.HandleWebSocket)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.Use(s.authMiddleware)
	api.HandleFunc("/model-info", s.handleModelInfo).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/embed", s.handleEmbed).Methods(http.MethodPost)
	api.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	api.HandleFunc("/compare-photos", s.handleComparePhotos).Methods(http.MethodPost)
	api.HandleFunc("/compare-photos-upload", s.handleComparePhotosUpload).Methods(http.MethodPost)
}

// Handler exposes the configured router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("model_loaded", s.model.Loaded()),
		zap.Bool("auth_enabled", s.verifier.Enabled()),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("audit_enabled", s.audit != nil))

	if s.hub != nil {
		s.hub.BroadcastEvent(events.Event{
			Type:      events.EventTypeSystemStatus,
			Timestamp: time.Now(),
			Data: events.SystemStatusEvent{
				Status:      "started",
				ModelLoaded: s.model.Loaded(),
				ModelName:   s.config.Model.Name,
			},
		})
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down and releases subsystem resources
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	err := s.server.Shutdown(ctx)

	if s.cache != nil {
		if cerr := s.cache.Close(); cerr != nil {
			s.logger.Warn("Failed to close embedding cache", zap.Error(cerr))
		}
	}
	if s.audit != nil {
		if aerr := s.audit.Close(); aerr != nil {
			s.logger.Warn("Failed to close audit store", zap.Error(aerr))
		}
	}

	return err
}
