// Package server provides the HTTP API over one textract session.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/textract/internal/config"
	"github.com/hyperjump/textract/internal/session"
	"go.uber.org/zap"
)

// WatchService manages inbox directories. A nil WatchService disables the watch endpoints.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the textract API.
type Server struct {
	session       *session.Session
	config        *config.ServerConfig
	logger        *zap.Logger
	watch         WatchService
	configPath    string
	watchConfig   *config.Config
	watchConfigMu sync.Mutex
	server        *http.Server
}

// NewServer creates a server with the given dependencies.
// When configPath and fullConfig are set, inbox directory changes are persisted to configPath.
func NewServer(
	sess *session.Session,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
	fullConfig *config.Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session:     sess,
		config:      cfg,
		logger:      logger,
		watch:       watch,
		configPath:  configPath,
		watchConfig: fullConfig,
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

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/files", s.handleListFiles)
		r.Post("/files", s.handleAddFiles)
		r.Delete("/files", s.handleRemoveFiles)
		r.Get("/preview", s.handlePreview)
		r.Get("/search", s.handleSearch)
		r.Post("/export", s.handleExport)
		r.Get("/export/{format}", s.handleDownload)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("session", s.session.ID()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
