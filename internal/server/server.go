// Package server provides the HTTP API for coachmem.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/embedding"
	"github.com/hyperjump/coachmem/internal/search"
)

// maxBodyBytes caps request bodies; bulk imports are the largest.
const maxBodyBytes = 8 << 20

// Server is the HTTP server for the coachmem API.
type Server struct {
	engine   *search.Engine
	embedder embedding.Embedder
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. embedder serves
// the embed endpoint; it is normally the same provider the store uses.
func NewServer(
	engine *search.Engine,
	embedder embedding.Embedder,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:   engine,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/items", s.handleAddItem)
		r.Post("/items/bulk", s.handleBulkAdd)
		r.Get("/items", s.handleListItems)
		r.Post("/search", s.handleSearch)
		r.Post("/prune", s.handlePrune)
		r.Get("/status", s.handleStatus)
		r.Post("/embed", s.handleEmbed)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
