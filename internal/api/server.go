package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/engine"
	"github.com/clearskin/accord/internal/history"
	"github.com/clearskin/accord/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, processor *report.Processor, hist *history.Service, version string) *Server {
	handler := NewHandler(repo, cache, bus, eng, processor, hist, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no clinic required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (clinic required)
	router.Route("/", func(r chi.Router) {
		r.Use(ClinicMiddleware)

		// Band reconciliation pipeline
		r.Post("/match", handler.Match)
		r.Post("/resolve", handler.Resolve)
		r.Post("/reconcile", handler.Reconcile)

		// Reconciliation retrieval
		r.Get("/reconciliations/{id}", handler.GetReconciliation)

		// Session intake
		r.Post("/sessions", handler.CreateSession)
		r.Get("/sessions/{id}", handler.GetSession)

		// Catalog introspection
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)

		// Static advisory routes
		r.Get("/advisories/sensitivity", handler.SensitivityAdvisory)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
