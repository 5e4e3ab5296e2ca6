// Package server provides the HTTP API for the green finance platform.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ajadindian/greenfinanceplatform/internal/chartstore"
	"github.com/ajadindian/greenfinanceplatform/internal/chartsync"
	"github.com/ajadindian/greenfinanceplatform/internal/completion"
	"github.com/ajadindian/greenfinanceplatform/internal/config"
	"github.com/ajadindian/greenfinanceplatform/internal/docstore"
	"github.com/ajadindian/greenfinanceplatform/internal/ingest"
	"github.com/ajadindian/greenfinanceplatform/internal/retrieval"
)

// Server is the HTTP server for the platform API.
type Server struct {
	pipeline  *ingest.Pipeline
	retriever *retrieval.Engine
	completer completion.Service
	charts    chartstore.Store
	syncer    *chartsync.Engine
	docs      docstore.Store
	notes     *ingest.Buffer
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *ingest.Pipeline,
	retriever *retrieval.Engine,
	completer completion.Service,
	charts chartstore.Store,
	syncer *chartsync.Engine,
	docs docstore.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:  pipeline,
		retriever: retriever,
		completer: completer,
		charts:    charts,
		syncer:    syncer,
		docs:      docs,
		notes:     ingest.NewBuffer(cfg.Ingest.BufferMaxBytes),
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1/projects/{projectID}", func(r chi.Router) {
		r.Post("/files", s.handleUploadFile)
		r.Delete("/files", s.handleDeleteFile)
		r.Post("/query", s.handleQuery)
		r.Post("/sync", s.handleSync)

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", s.handleAppendNote)
			r.Post("/flush", s.handleFlushNotes)
			r.Delete("/", s.handleClearNotes)
		})

		r.Route("/charts", func(r chi.Router) {
			r.Post("/", s.handleSaveChart)
			r.Get("/", s.handleListCharts)
			r.Get("/pinned", s.handleListPinnedCharts)
			r.Get("/{chartID}", s.handleGetChart)
			r.Delete("/{chartID}", s.handleDeleteChart)
			r.Put("/{chartID}/pin", s.handleSetPinned)
		})

		r.Route("/layouts", func(r chi.Router) {
			r.Post("/", s.handleSaveLayout)
			r.Get("/", s.handleListLayouts)
			r.Get("/{layoutID}", s.handleGetLayout)
		})

		r.Get("/status", s.handleProjectStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
