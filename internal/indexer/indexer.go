// Package indexer imports articles: it stores them, derives word count and cover image
// from the HTML body, generates embeddings and feeds the title index.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/embedding"
	"github.com/hyperjump/rssai/internal/keyword"
	"github.com/hyperjump/rssai/internal/models"
)

// maxEmbeddingRunes bounds the text sent to the embedding provider.
const maxEmbeddingRunes = 4000

// Store is the write side the indexer needs.
type Store interface {
	UpsertArticle(ctx context.Context, a *models.Article) (int64, error)
	SaveExtra(ctx context.Context, extra *models.ArticleExtra) error
}

// Indexer imports articles into storage, the embedding store and the title index.
type Indexer struct {
	store       Store
	embedder    embedding.Embedder
	terms       keyword.TermIndexer
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithTermIndex feeds imported titles into a term index.
func WithTermIndex(t keyword.TermIndexer) IndexerOption {
	return func(idx *Indexer) { idx.terms = t }
}

// NewIndexer creates an indexer. embedder may be nil, in which case every article is
// stored with a FAILED extra and no vector.
func NewIndexer(store Store, embedder embedding.Embedder, cfg *config.ImportConfig, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:       store,
		embedder:    embedder,
		concurrency: 4,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	if cfg != nil && cfg.Concurrency > 0 {
		idx.concurrency = cfg.Concurrency
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Result reports the outcome of importing one article.
type Result struct {
	ArticleID int64                 `json:"articleId,omitempty"`
	Link      string                `json:"link"`
	WordCount int64                 `json:"wordCount"`
	Status    models.AnalysisStatus `json:"status,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// ImportArticle stores one article. An embedding failure is recorded as a FAILED extra with
// no vector and is not returned as an error; the article stays searchable lexically.
func (idx *Indexer) ImportArticle(ctx context.Context, in *models.ArticleInput) (*Result, error) {
	if in == nil {
		return nil, models.InvalidInputf("article is required")
	}
	title := strings.TrimSpace(in.Title)
	link := strings.TrimSpace(in.Link)
	if title == "" {
		return nil, models.InvalidInputf("article title is required")
	}
	if link == "" {
		return nil, models.InvalidInputf("article link is required")
	}

	content, err := AnalyzeContent(in.Content)
	if err != nil {
		return nil, models.InvalidInputf("article %s: %v", link, err)
	}
	pub := in.PubDate
	if pub.IsZero() {
		pub = idx.now()
	}
	article := &models.Article{
		SourceID:   in.SourceID,
		SourceName: strings.TrimSpace(in.SourceName),
		Title:      title,
		Link:       link,
		Author:     strings.TrimSpace(in.Author),
		PubDate:    models.NormalizeTime(pub),
		WordCount:  content.WordCount,
		CoverImage: content.CoverImage,
	}
	id, err := idx.store.UpsertArticle(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("store article: %w", err)
	}

	extra := &models.ArticleExtra{
		ArticleID:      id,
		Overview:       strings.TrimSpace(in.Overview),
		KeyInformation: in.KeyInformation,
		Tags:           in.Tags,
		Status:         models.AnalysisSuccess,
	}
	text := embeddingText(&articleText{
		title:          title,
		overview:       extra.Overview,
		keyInformation: in.KeyInformation,
		body:           content.Text,
	}, maxEmbeddingRunes)
	if vec, err := idx.embed(ctx, text); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		idx.logger.Warn("article embedding failed",
			zap.Int64("article_id", id),
			zap.String("link", link),
			zap.Error(err))
		extra.Status = models.AnalysisFailed
		extra.ErrorMessage = err.Error()
	} else {
		extra.Vector = vec
	}
	if err := idx.store.SaveExtra(ctx, extra); err != nil {
		return nil, fmt.Errorf("store article extra: %w", err)
	}

	if idx.terms != nil {
		if err := idx.terms.IndexTitle(id, title); err != nil {
			idx.logger.Warn("title indexing failed", zap.Int64("article_id", id), zap.Error(err))
		}
	}

	idx.logger.Debug("article imported",
		zap.Int64("article_id", id),
		zap.String("link", link),
		zap.Int64("word_count", content.WordCount),
		zap.String("status", string(extra.Status)))
	return &Result{ArticleID: id, Link: link, WordCount: content.WordCount, Status: extra.Status}, nil
}

func (idx *Indexer) embed(ctx context.Context, text string) ([]float32, error) {
	if idx.embedder == nil {
		return nil, errors.New("no embedding provider configured")
	}
	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, embedding.ErrEmptyEmbedding
	}
	return vec, nil
}

// ImportBatch imports articles with bounded concurrency. Per-article failures are reported
// in the matching Result; only cancellation fails the batch.
func (idx *Indexer) ImportBatch(ctx context.Context, inputs []*models.ArticleInput) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := idx.ImportArticle(gctx, in)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res = &Result{Error: err.Error()}
				if in != nil {
					res.Link = in.Link
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// DecodeArticles reads a JSON array of articles, or a single article object.
func DecodeArticles(r io.Reader) ([]*models.ArticleInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var one models.ArticleInput
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, models.InvalidInputf("decode article: %v", err)
		}
		return []*models.ArticleInput{&one}, nil
	}
	var many []*models.ArticleInput
	if err := json.Unmarshal(data, &many); err != nil {
		return nil, models.InvalidInputf("decode articles: %v", err)
	}
	return many, nil
}
