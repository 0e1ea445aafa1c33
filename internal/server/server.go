// Package server provides the HTTP API for policy intake, questions and the card dashboard.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/policysimplify/internal/config"
	"github.com/hyperjump/policysimplify/internal/indexer"
	"github.com/hyperjump/policysimplify/internal/storage"
	"go.uber.org/zap"
)

// maxBodyBytes bounds ingest request bodies, base64 included.
const maxBodyBytes = 64 << 20

// APIKeyHeader carries the shared secret when one is configured.
const APIKeyHeader = "X-API-Key"

// WatchService is the subset of the inbox watcher used by the watch-directory routes.
type WatchService interface {
	Directories() []string
	AddDirectory(root string, syncExisting bool) error
	RemoveDirectory(root string) error
}

// Server is the HTTP server for the policy API.
type Server struct {
	indexer    *indexer.Indexer
	storage    storage.Storage
	config     *config.Config
	logger     *zap.Logger
	watch      WatchService
	configPath string
	configMu   sync.Mutex
	server     *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil, in which case the
// watch-directory routes answer 501. When configPath is set, watch-directory changes are saved
// back to it.
func NewServer(
	idx *indexer.Indexer,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		indexer:    idx,
		storage:    store,
		config:     cfg,
		logger:     logger,
		watch:      watch,
		configPath: configPath,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/ingest", s.handleIngest)
		r.Post("/qa", s.handleQA)
		r.Get("/cards", s.handleListCards)
		r.Get("/cards/search", s.handleSearchCards)
		r.With(middleware.Compress(5)).Get("/cards/export", s.handleExport)
		r.Get("/cards/{id}", s.handleGetCard)
		r.Post("/purge", s.handlePurge)
		r.Delete("/tenants/{tenant}", s.handleDeleteTenant)
		r.Get("/events", s.handleEvents)
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr),
		zap.Bool("api_key_required", s.config.Server.APISecret != ""))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requireAPIKey rejects requests without the configured secret. No secret disables the check.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.Server.APISecret
		if secret != "" {
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				s.respondError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
