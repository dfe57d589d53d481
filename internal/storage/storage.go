// Package storage persists articles, enrichment output, topics, subscriptions and
// favorites, and runs the recall and feed queries against SQLite or Postgres.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/rssai/internal/models"
)

// VectorHit is one vector recall result.
type VectorHit struct {
	ArticleID int64
	Distance  float64
}

// FeedQuery describes one page of the hybrid feed. Every branch applies the cursor predicate.
type FeedQuery struct {
	SourceIDs    []int64
	TopicVectors [][]float32
	Threshold    float64
	Cursor       models.FeedCursor
	Size         int
}

// Stats summarizes store contents for the status endpoint.
type Stats struct {
	Articles      int64 `json:"articles"`
	WithVectors   int64 `json:"withVectors"`
	FailedExtras  int64 `json:"failedExtras"`
	Topics        int64 `json:"topics"`
	Subscriptions int64 `json:"subscriptions"`
}

// ArticleReader is the read side used by search and recommendation.
type ArticleReader interface {
	// LexicalRecall returns IDs whose title, author or source name contains pattern
	// (case-insensitive, literal), newest first.
	LexicalRecall(ctx context.Context, pattern string, scope Scope, limit int) ([]int64, error)
	// VectorRecall returns hits with distance < threshold, nearest first.
	VectorRecall(ctx context.Context, query []float32, scope Scope, threshold float64, limit int) ([]VectorHit, error)
	// NearestNeighbors returns the limit nearest articles to query, excluding excludeID.
	NearestNeighbors(ctx context.Context, query []float32, excludeID int64, limit int) ([]VectorHit, error)
	// FindFeedByIDs returns feed metadata keyed by ID; unknown IDs are absent.
	FindFeedByIDs(ctx context.Context, ids []int64) (map[int64]*models.FeedItem, error)
	// GetArticle returns models.ErrNotFound when the article does not exist.
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	// GetArticleVector returns nil without error when the article has no vector.
	GetArticleVector(ctx context.Context, id int64) ([]float32, error)
}

// FeedReader runs the single-query hybrid feed.
type FeedReader interface {
	HybridFeed(ctx context.Context, q FeedQuery) ([]*models.FeedItem, error)
}

// ArticleWriter stores imported articles and their enrichment.
type ArticleWriter interface {
	// UpsertArticle inserts a or updates the row with the same link, and returns its ID.
	UpsertArticle(ctx context.Context, a *models.Article) (int64, error)
	SaveExtra(ctx context.Context, extra *models.ArticleExtra) error
	GetExtra(ctx context.Context, articleID int64) (*models.ArticleExtra, error)
}

// SubscriptionStore manages sources, topics, subscriptions and favorites.
type SubscriptionStore interface {
	CreateSource(ctx context.Context, s *models.Source) error
	GetSource(ctx context.Context, id int64) (*models.Source, error)

	CreateTopic(ctx context.Context, t *models.Topic) error
	GetTopic(ctx context.Context, id int64) (*models.Topic, error)
	GetTopicByContent(ctx context.Context, content string) (*models.Topic, error)

	CreateSubscription(ctx context.Context, s *models.Subscription) error
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	FindSubscription(ctx context.Context, userID int64, typ models.SubscriptionType, targetID int64) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]*models.Subscription, error)
	CountSubscriptions(ctx context.Context, userID int64) (int, error)
	DeleteSubscription(ctx context.Context, id int64) error
	SubscribedSourceIDs(ctx context.Context, userID int64) ([]int64, error)

	AddFavorite(ctx context.Context, userID, articleID int64) error
	RemoveFavorite(ctx context.Context, userID, articleID int64) error
}

// Store is the full persistence surface.
type Store interface {
	ArticleReader
	FeedReader
	ArticleWriter
	SubscriptionStore
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// nowUTC is replaced in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
