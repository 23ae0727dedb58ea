// Package server provides the HTTP API for the Kensho retrieval engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kensho/internal/config"
	"github.com/hyperjump/kensho/internal/embedding"
	"github.com/hyperjump/kensho/internal/extract"
	"github.com/hyperjump/kensho/internal/indexer"
	"github.com/hyperjump/kensho/internal/retrieval"
	"github.com/hyperjump/kensho/internal/validate"
	"github.com/hyperjump/kensho/internal/vector"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Kensho API.
type Server struct {
	retriever *retrieval.Retriever
	validator *validate.Validator
	extractor *extract.Extractor
	embedder  embedding.Embedder
	store     vector.Store
	indexer   *indexer.Indexer
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. indexer may be nil;
// the sync endpoint then responds 501.
func NewServer(
	retriever *retrieval.Retriever,
	validator *validate.Validator,
	extractor *extract.Extractor,
	embedder embedding.Embedder,
	store vector.Store,
	idx *indexer.Indexer,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		retriever: retriever,
		validator: validator,
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		indexer:   idx,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/retrieve", s.handleRetrieve)
	r.Post("/api/v1/validate", s.handleValidate)
	r.Post("/api/v1/extract", s.handleExtract)
	r.Post("/api/v1/embed", s.handleEmbed)
	r.Post("/api/v1/sync", s.handleSync)
	r.Post("/api/v1/documents", s.handleUpsertDocument)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
