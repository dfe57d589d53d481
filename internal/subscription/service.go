// Package subscription manages topics, per-user subscriptions and favorites.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/embedding"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/storage"
)

// Store is the persistence the service works against.
type Store interface {
	storage.SubscriptionStore
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
}

// Service implements topic creation, subscribing and favorites.
type Service struct {
	store    Store
	embedder embedding.Embedder
	cfg      config.SubscriptionConfig
	logger   *zap.Logger
}

// NewService creates a Service. Zero config values take the defaults.
func NewService(store Store, embedder embedding.Embedder, cfg *config.SubscriptionConfig, logger *zap.Logger) *Service {
	var c config.SubscriptionConfig
	if cfg != nil {
		c = *cfg
	}
	if c.Limit <= 0 {
		c.Limit = 200
	}
	if c.TopicMaxRune <= 0 {
		c.TopicMaxRune = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embedder: embedder, cfg: c, logger: logger}
}

// CreateTopic returns the topic with the given content, creating and embedding it if needed.
func (s *Service) CreateTopic(ctx context.Context, content string) (*models.Topic, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.InvalidInputf("topic content cannot be blank")
	}
	if n := utf8.RuneCountInString(content); n > s.cfg.TopicMaxRune {
		return nil, models.InvalidInputf("topic content must be at most %d characters, got %d", s.cfg.TopicMaxRune, n)
	}

	existing, err := s.store.GetTopicByContent(ctx, content)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup topic: %w", err)
	}

	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", models.ErrEmbeddingUnavailable)
	}
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.logger.Warn("topic embedding failed", zap.String("topic", content), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", models.ErrEmbeddingUnavailable)
	}

	topic := &models.Topic{Content: content, Vector: vec}
	// a concurrent creator may win; CreateTopic then returns the stored topic
	if err := s.store.CreateTopic(ctx, topic); err != nil {
		return nil, err
	}
	s.logger.Info("topic created", zap.Int64("topic_id", topic.ID), zap.String("topic", content))
	return topic, nil
}

// Subscribe subscribes the user to an RSS source or a topic. Subscribing twice returns
// the existing subscription.
func (s *Service) Subscribe(ctx context.Context, userID int64, req *models.CreateSubscriptionRequest) (*models.Subscription, error) {
	if userID <= 0 {
		return nil, models.InvalidInputf("user id must be positive")
	}
	if req == nil || req.Type == "" {
		return nil, models.InvalidInputf("subscription type is required")
	}
	if !req.Type.Valid() {
		return nil, models.InvalidInputf("unknown subscription type %q", req.Type)
	}
	if req.TargetID <= 0 {
		return nil, models.InvalidInputf("targetId must be positive")
	}

	sub := &models.Subscription{UserID: userID, Type: req.Type}
	target := req.TargetID
	switch req.Type {
	case models.SubscriptionRSS:
		if _, err := s.store.GetSource(ctx, target); err != nil {
			return nil, err
		}
		sub.SourceID = &target
	case models.SubscriptionTopic:
		if _, err := s.store.GetTopic(ctx, target); err != nil {
			return nil, err
		}
		sub.TopicID = &target
	}

	existing, err := s.store.FindSubscription(ctx, userID, req.Type, target)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup subscription: %w", err)
	}

	n, err := s.store.CountSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	if n >= s.cfg.Limit {
		return nil, models.InvalidInputf("subscription limit of %d reached", s.cfg.Limit)
	}

	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Debug("subscribed",
		zap.Int64("user_id", userID),
		zap.String("type", string(sub.Type)),
		zap.Int64("target_id", target))
	return sub, nil
}

// List returns the user's subscriptions.
func (s *Service) List(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	return s.store.ListSubscriptions(ctx, userID)
}

// Unsubscribe deletes a subscription owned by the user.
func (s *Service) Unsubscribe(ctx context.Context, userID, subscriptionID int64) error {
	if subscriptionID <= 0 {
		return models.InvalidInputf("subscription id must be positive")
	}
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return models.NotFoundf("subscription %d", subscriptionID)
	}
	return s.store.DeleteSubscription(ctx, subscriptionID)
}

// AddFavorite marks an existing article as a favorite of the user.
func (s *Service) AddFavorite(ctx context.Context, userID, articleID int64) error {
	if userID <= 0 || articleID <= 0 {
		return models.InvalidInputf("user id and article id must be positive")
	}
	if _, err := s.store.GetArticle(ctx, articleID); err != nil {
		return err
	}
	return s.store.AddFavorite(ctx, userID, articleID)
}

// RemoveFavorite unmarks a favorite. Removing a missing favorite is not an error.
func (s *Service) RemoveFavorite(ctx context.Context, userID, articleID int64) error {
	if userID <= 0 || articleID <= 0 {
		return models.InvalidInputf("user id and article id must be positive")
	}
	return s.store.RemoveFavorite(ctx, userID, articleID)
}
