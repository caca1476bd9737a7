// Package server provides the HTTP API for the Asha assistant.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/herkey/asha/internal/chat"
	"github.com/herkey/asha/internal/config"
	"github.com/herkey/asha/internal/recommender"
	"github.com/herkey/asha/internal/retrieval"
	"github.com/herkey/asha/internal/sessions"
)

// Server is the HTTP server for the Asha API.
type Server struct {
	bot     *chat.Bot
	rec     *recommender.Recommender
	manager *retrieval.Manager
	store   sessions.Store
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	bot *chat.Bot,
	rec *recommender.Recommender,
	manager *retrieval.Manager,
	store sessions.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		bot:     bot,
		rec:     rec,
		manager: manager,
		store:   store,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/api/v1/recommend", s.handleRecommend)
	r.Post("/api/v1/sessions", s.handleUpsertSession)
	r.Get("/api/v1/sessions", s.handleListSessions)
	r.Get("/api/v1/sessions/{id}", s.handleGetSession)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
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
