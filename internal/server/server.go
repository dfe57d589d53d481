// Package server provides the HTTP API for rssai.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/feed"
	"github.com/hyperjump/rssai/internal/indexer"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/search"
	"github.com/hyperjump/rssai/internal/storage"
	"github.com/hyperjump/rssai/internal/subscription"
	"github.com/hyperjump/rssai/pkg/utils"
)

// Store is the read access the server needs beyond the services.
type Store interface {
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	GetExtra(ctx context.Context, articleID int64) (*models.ArticleExtra, error)
	Stats(ctx context.Context) (*storage.Stats, error)
}

// Server is the HTTP server for the rssai API.
type Server struct {
	engine  *search.Engine
	feeds   *feed.Assembler
	subs    *subscription.Service
	indexer *indexer.Indexer
	store   Store
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	feeds *feed.Assembler,
	subs *subscription.Service,
	idx *indexer.Indexer,
	store Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:  engine,
		feeds:   feeds,
		subs:    subs,
		indexer: idx,
		store:   store,
		config:  cfg,
		logger:  utils.OrNop(logger),
	}
}

// Handler returns the router with all API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/front/v1", func(r chi.Router) {
		r.Get("/articles/search", s.handleSearch)
		r.Get("/articles/feed", s.handleFeed)
		r.Get("/articles/{id}", s.handleGetArticle)
		r.Get("/articles/{id}/extra", s.handleGetExtra)
		r.Get("/articles/{id}/recommendations", s.handleRecommend)
		r.Post("/topics", s.handleCreateTopic)
		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Post("/subscriptions", s.handleSubscribe)
		r.Delete("/subscriptions/{id}", s.handleUnsubscribe)
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/articles", s.handleImportArticles)
		r.Post("/favorites", s.handleAddFavorite)
		r.Delete("/favorites/{articleId}", s.handleRemoveFavorite)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
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
