package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/embedding"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/ranking"
	"github.com/hyperjump/rssai/internal/storage"
)

// Store is the persistence the engine reads from.
type Store interface {
	storage.ArticleReader
	SubscribedSourceIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Engine runs hybrid (lexical + semantic) search and recommendations.
type Engine struct {
	store     Store
	embedder  embedding.Embedder
	extractor KeywordExtractor
	ranker    *ranking.Ranker
	cfg       config.SearchConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine creates a search engine with the given dependencies. A nil extractor disables
// keyword broadening; a nil ranker uses the weights from cfg.
func NewEngine(
	store Store,
	embedder embedding.Embedder,
	extractor KeywordExtractor,
	ranker *ranking.Ranker,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	var c config.SearchConfig
	if cfg != nil {
		c = *cfg
	}
	if c.LexicalLimit <= 0 {
		c.LexicalLimit = 20
	}
	if c.VectorLimit <= 0 {
		c.VectorLimit = 50
	}
	if c.VectorThreshold <= 0 {
		c.VectorThreshold = 0.4
	}
	if c.RecommendLimit <= 0 {
		c.RecommendLimit = 2
	}
	if ranker == nil {
		ranker = ranking.NewRanker(c.Weights())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		ranker:    ranker,
		cfg:       c,
		logger:    logger,
		now:       time.Now,
	}
}

// Search runs hybrid search and returns ranked feed items.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) ([]*models.FeedItem, error) {
	scored, err := e.SearchScored(ctx, req)
	if err != nil {
		return nil, err
	}
	return Items(scored), nil
}

// SearchScored is Search with score components. Lexical and vector recall run concurrently;
// a failing path contributes nothing and is logged, it never fails the search.
func (e *Engine) SearchScored(ctx context.Context, req *models.SearchRequest) ([]*ScoredItem, error) {
	if req == nil {
		return nil, models.InvalidInputf("search request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := e.logger.With(zap.String("search_id", uuid.NewString()))

	scope, ok, err := e.resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Debug("empty search scope", zap.String("scope", string(req.Scope)))
		return []*ScoredItem{}, nil
	}

	lexCh := make(chan []int64, 1)
	vecCh := make(chan []storage.VectorHit, 1)
	go func() {
		ids, err := e.lexicalRecall(ctx, log, req.Query, scope)
		if err != nil {
			log.Warn("lexical recall failed, continuing without it", zap.Error(err))
			ids = nil
		}
		lexCh <- ids
	}()
	go func() {
		vecCh <- e.vectorRecall(ctx, log, req.Query, scope)
	}()

	var (
		lexicalIDs []int64
		hits       []storage.VectorHit
	)
	for pending := 2; pending > 0; pending-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case lexicalIDs = <-lexCh:
		case hits = <-vecCh:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := unionIDs(lexicalIDs, hits)
	if len(ids) == 0 {
		log.Debug("search found nothing", zap.String("query", req.Query), zap.Stringer("scope", scope))
		return []*ScoredItem{}, nil
	}
	feeds, err := e.store.FindFeedByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load search results: %w", err)
	}
	results := FuseScored(lexicalIDs, hits, feeds, e.now(), e.ranker.Weights())

	log.Debug("search completed",
		zap.String("query", req.Query),
		zap.Stringer("scope", scope),
		zap.Int("lexical", len(lexicalIDs)),
		zap.Int("vector", len(hits)),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)))
	return results, nil
}

// resolveScope maps the request to a storage scope. ok is false when the scope
// cannot match anything (no user, or no subscribed sources).
func (e *Engine) resolveScope(ctx context.Context, req *models.SearchRequest) (storage.Scope, bool, error) {
	if req.SourceID > 0 {
		return storage.SourceSet(req.SourceID), true, nil
	}
	switch req.Scope {
	case models.ScopeAll:
		return storage.AllSources(), true, nil
	case models.ScopeFavorite:
		if req.UserID == nil {
			return storage.Scope{}, false, nil
		}
		return storage.FavoritesOf(*req.UserID), true, nil
	case models.ScopeSubscribed:
		if req.UserID == nil {
			return storage.Scope{}, false, nil
		}
		sources, err := e.store.SubscribedSourceIDs(ctx, *req.UserID)
		if err != nil {
			return storage.Scope{}, false, fmt.Errorf("resolve subscribed sources: %w", err)
		}
		if len(sources) == 0 {
			return storage.Scope{}, false, nil
		}
		return storage.SourceSet(sources...), true, nil
	}
	return storage.Scope{}, false, models.InvalidInputf("unknown search scope %q", req.Scope)
}

// vectorRecall embeds the query and runs vector recall. Any failure yields no hits.
func (e *Engine) vectorRecall(ctx context.Context, log *zap.Logger, query string, scope storage.Scope) []storage.VectorHit {
	if e.embedder == nil {
		return nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("query embedding failed, searching lexically only", zap.Error(err))
		}
		return nil
	}
	if len(vec) == 0 {
		log.Warn("query embedding is empty, searching lexically only")
		return nil
	}
	hits, err := e.store.VectorRecall(ctx, vec, scope, e.cfg.VectorThreshold, e.cfg.VectorLimit)
	if err != nil {
		log.Warn("vector recall failed", zap.Error(err))
		return nil
	}
	return hits
}

// Recommend returns the articles nearest to articleID by embedding, nearest first.
// An article without a vector has no recommendations.
func (e *Engine) Recommend(ctx context.Context, articleID int64) ([]*models.FeedItem, error) {
	if articleID <= 0 {
		return nil, models.InvalidInputf("article id must be positive, got %d", articleID)
	}
	if _, err := e.store.GetArticle(ctx, articleID); err != nil {
		return nil, err
	}
	vec, err := e.store.GetArticleVector(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("load article vector: %w", err)
	}
	if len(vec) == 0 {
		return []*models.FeedItem{}, nil
	}
	hits, err := e.store.NearestNeighbors(ctx, vec, articleID, e.cfg.RecommendLimit)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}
	if len(hits) == 0 {
		return []*models.FeedItem{}, nil
	}
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ArticleID
	}
	feeds, err := e.store.FindFeedByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}
	items := make([]*models.FeedItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := feeds[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// Weights returns the fusion weights currently in effect.
func (e *Engine) Weights() ranking.Weights {
	return e.ranker.Weights()
}
