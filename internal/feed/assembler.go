// Package feed assembles a user's personalized article feed from RSS and topic subscriptions.
package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/storage"
)

// Store is what the assembler needs from persistence.
type Store interface {
	storage.FeedReader
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]*models.Subscription, error)
}

// Assembler builds feed pages. It keeps no state between calls; the cursor carries the position.
type Assembler struct {
	store  Store
	cfg    config.FeedConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewAssembler creates an Assembler. Zero config values take the defaults.
func NewAssembler(store Store, cfg *config.FeedConfig, logger *zap.Logger) *Assembler {
	var c config.FeedConfig
	if cfg != nil {
		c = *cfg
	}
	if c.DefaultSize <= 0 {
		c.DefaultSize = 20
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = 0.3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{store: store, cfg: c, logger: logger, now: time.Now}
}

// Page is one feed page and the cursor for the next one.
type Page struct {
	Items      []*models.FeedItem `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// GetFeed returns the page of the user's feed after cursor. With subscriptionID set the feed
// is narrowed to that subscription, which must belong to the user.
func (a *Assembler) GetFeed(ctx context.Context, userID int64, subscriptionID *int64, cursor string, size int) ([]*models.FeedItem, error) {
	req := models.FeedRequest{UserID: userID, SubscriptionID: subscriptionID, Cursor: cursor, Size: size}
	page, err := a.Page(ctx, &req)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Page is GetFeed taking a request and returning the next cursor alongside the items.
// NextCursor is empty when the page is short, since nothing follows it.
func (a *Assembler) Page(ctx context.Context, req *models.FeedRequest) (*Page, error) {
	cur, err := models.ParseCursor(req.Cursor, a.now())
	if err != nil {
		return nil, err
	}
	req.NormalizeSize(a.cfg.DefaultSize, a.cfg.MaxSize)

	subs, err := a.subscriptions(ctx, req.UserID, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	q := buildQuery(subs)
	if len(q.SourceIDs) == 0 && len(q.TopicVectors) == 0 {
		return &Page{Items: []*models.FeedItem{}}, nil
	}
	q.Threshold = a.cfg.SimilarityThreshold
	q.Cursor = cur
	q.Size = req.Size

	items, err := a.store.HybridFeed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	page := &Page{Items: items}
	if len(items) == req.Size {
		page.NextCursor = models.EncodeCursor(items[len(items)-1])
	}
	a.logger.Debug("feed page",
		zap.Int64("user_id", req.UserID),
		zap.Int("sources", len(q.SourceIDs)),
		zap.Int("topics", len(q.TopicVectors)),
		zap.String("cursor", cur.String()),
		zap.Int("items", len(items)))
	return page, nil
}

func (a *Assembler) subscriptions(ctx context.Context, userID int64, subscriptionID *int64) ([]*models.Subscription, error) {
	if subscriptionID == nil {
		subs, err := a.store.ListSubscriptions(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		return subs, nil
	}
	sub, err := a.store.GetSubscription(ctx, *subscriptionID)
	if err != nil {
		return nil, err
	}
	// another user's subscription looks the same as a missing one
	if sub.UserID != userID {
		return nil, models.NotFoundf("subscription %d", *subscriptionID)
	}
	return []*models.Subscription{sub}, nil
}

// buildQuery collects deduplicated source IDs and the vectors of topic subscriptions.
// Topics without a vector are skipped.
func buildQuery(subs []*models.Subscription) storage.FeedQuery {
	var q storage.FeedQuery
	seenSources := make(map[int64]struct{})
	seenTopics := make(map[int64]struct{})
	for _, s := range subs {
		switch s.Type {
		case models.SubscriptionRSS:
			if s.SourceID == nil {
				continue
			}
			if _, ok := seenSources[*s.SourceID]; ok {
				continue
			}
			seenSources[*s.SourceID] = struct{}{}
			q.SourceIDs = append(q.SourceIDs, *s.SourceID)
		case models.SubscriptionTopic:
			if s.TopicID == nil || len(s.TopicVector) == 0 {
				continue
			}
			if _, ok := seenTopics[*s.TopicID]; ok {
				continue
			}
			seenTopics[*s.TopicID] = struct{}{}
			q.TopicVectors = append(q.TopicVectors, s.TopicVector)
		}
	}
	return q
}
