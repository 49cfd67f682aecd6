// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	chat       *chat.Service
	indexer    *indexer.Indexer
	storage    storage.Storage
	vectors    vector.Index
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
	rebuilding atomic.Bool
}

// NewServer creates a server with the given dependencies.
func NewServer(
	chatSvc *chat.Service,
	idx *indexer.Indexer,
	store storage.Storage,
	vectors vector.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		chat:    chatSvc,
		indexer: idx,
		storage: store,
		vectors: vectors,
		config:  cfg,
		logger:  logger,
	}
}

// Handler builds the route table. Exposed so tests can drive the API without
// binding a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(180 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/new_session", s.handleNewSession)
	r.Post("/chat", s.handleChat)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/rebuild", s.handleRebuild)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
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
