package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/metrics"
	"github.com/kozaktomas/photo-library/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	lib        *library.Library
	faceIndex  *database.FaceIndex
	metrics    *metrics.Metrics
	router     *chi.Mux
	httpServer *http.Server
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithFaceIndex enables face suggestions.
func WithFaceIndex(idx *database.FaceIndex) Option {
	return func(s *Server) { s.faceIndex = idx }
}

// WithMetrics serves m at /api/v1/metrics and counts failed commands.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, lib *library.Library, opts ...Option) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		lib:    lib,
		router: r,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
