package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/hyperjump/rssai/internal/models"
)

// CreateSource inserts s, or updates the name of the source with the same URL, and sets s.ID.
func (s *SQLStore) CreateSource(ctx context.Context, src *models.Source) error {
	query, args, err := s.d.builder().Insert("sources").
		Columns("name", "url").
		Values(src.Name, src.URL).
		Suffix("ON CONFLICT (url) DO UPDATE SET name = excluded.name RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&src.ID); err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// GetSource returns the source with the given ID.
func (s *SQLStore) GetSource(ctx context.Context, id int64) (*models.Source, error) {
	query, args, err := s.d.builder().Select("id", "name", "url").From("sources").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var src models.Source
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&src.ID, &src.Name, &src.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("source %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// CreateTopic inserts t. When a topic with the same content already exists, t is
// overwritten with the stored topic; the stored vector is never replaced.
func (s *SQLStore) CreateTopic(ctx context.Context, t *models.Topic) error {
	if len(t.Vector) == 0 {
		return models.InvalidInputf("topic vector is required")
	}
	created := models.NormalizeTime(nowUTC())
	query, args, err := s.d.builder().Insert("topics").
		Columns("content", "vector", "created_at").
		Values(t.Content, s.d.vectorArg(t.Vector), s.d.timeArg(created)).
		Suffix("ON CONFLICT (content) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetTopicByContent(ctx, t.Content)
		if getErr != nil {
			return fmt.Errorf("create topic: %w", getErr)
		}
		*t = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	t.ID = id
	t.CreatedAt = created
	return nil
}

func (s *SQLStore) getTopicWhere(ctx context.Context, pred sq.Sqlizer, what string) (*models.Topic, error) {
	query, args, err := s.d.builder().Select("id", "content", "vector", "created_at").From("topics").
		Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var (
		t       models.Topic
		created dbTime
	)
	vec := s.d.vectorScanner()
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.Content, vec, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("topic %s", what)
	}
	if err != nil {
		return nil, err
	}
	t.Vector = vec.Vec
	t.CreatedAt = created.Time
	return &t, nil
}

// GetTopic returns the topic with the given ID.
func (s *SQLStore) GetTopic(ctx context.Context, id int64) (*models.Topic, error) {
	return s.getTopicWhere(ctx, sq.Eq{"id": id}, fmt.Sprintf("%d", id))
}

// GetTopicByContent returns the topic with exactly this content.
func (s *SQLStore) GetTopicByContent(ctx context.Context, content string) (*models.Topic, error) {
	return s.getTopicWhere(ctx, sq.Eq{"content": content}, fmt.Sprintf("%q", content))
}

func (s *SQLStore) subscriptionSelect() sq.SelectBuilder {
	return s.d.builder().
		Select("s.id", "s.user_id", "s.type", "s.source_id", "COALESCE(src.name, '')",
			"s.topic_id", "COALESCE(t.content, '')", "t.vector", "s.created_at").
		From("subscriptions s").
		LeftJoin("sources src ON src.id = s.source_id").
		LeftJoin("topics t ON t.id = s.topic_id")
}

func (s *SQLStore) scanSubscription(r rowScanner) (*models.Subscription, error) {
	var (
		sub      models.Subscription
		typ      string
		sourceID sql.NullInt64
		topicID  sql.NullInt64
		created  dbTime
	)
	vec := s.d.vectorScanner()
	if err := r.Scan(&sub.ID, &sub.UserID, &typ, &sourceID, &sub.SourceName,
		&topicID, &sub.TopicName, vec, &created); err != nil {
		return nil, err
	}
	sub.Type = models.SubscriptionType(typ)
	sub.SourceID = idPtr(sourceID)
	sub.TopicID = idPtr(topicID)
	sub.TopicVector = vec.Vec
	sub.CreatedAt = created.Time
	return &sub, nil
}

func (s *SQLStore) getSubscriptionWhere(ctx context.Context, pred sq.Sqlizer) (*models.Subscription, error) {
	query, args, err := s.subscriptionSelect().Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	sub, err := s.scanSubscription(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("subscription")
	}
	return sub, err
}

// CreateSubscription inserts sub. An existing subscription of the same user to the same
// target is returned in place of a duplicate.
func (s *SQLStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if !sub.Type.Valid() {
		return models.InvalidInputf("unknown subscription type %q", sub.Type)
	}
	created := models.NormalizeTime(nowUTC())
	query, args, err := s.d.builder().Insert("subscriptions").
		Columns("user_id", "type", "source_id", "topic_id", "created_at").
		Values(sub.UserID, string(sub.Type), nullID(sub.SourceID), nullID(sub.TopicID), s.d.timeArg(created)).
		Suffix("ON CONFLICT DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		target := sub.SourceID
		if sub.Type == models.SubscriptionTopic {
			target = sub.TopicID
		}
		if target == nil {
			return fmt.Errorf("create subscription: conflict without target")
		}
		existing, getErr := s.FindSubscription(ctx, sub.UserID, sub.Type, *target)
		if getErr != nil {
			return fmt.Errorf("create subscription: %w", getErr)
		}
		*sub = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	stored, err := s.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	*sub = *stored
	return nil
}

// GetSubscription returns the subscription with the given ID.
func (s *SQLStore) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	return s.getSubscriptionWhere(ctx, sq.Eq{"s.id": id})
}

// FindSubscription returns the user's subscription to a source or topic.
func (s *SQLStore) FindSubscription(ctx context.Context, userID int64, typ models.SubscriptionType, targetID int64) (*models.Subscription, error) {
	col := "s.source_id"
	if typ == models.SubscriptionTopic {
		col = "s.topic_id"
	}
	return s.getSubscriptionWhere(ctx, sq.Eq{"s.user_id": userID, "s.type": string(typ), col: targetID})
}

// ListSubscriptions returns the user's subscriptions, oldest first, with topic vectors loaded.
func (s *SQLStore) ListSubscriptions(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	query, args, err := s.subscriptionSelect().Where(sq.Eq{"s.user_id": userID}).
		OrderBy("s.created_at ASC", "s.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]*models.Subscription, 0)
	for rows.Next() {
		sub, err := s.scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CountSubscriptions returns how many subscriptions the user has.
func (s *SQLStore) CountSubscriptions(ctx context.Context, userID int64) (int, error) {
	n, err := s.count(ctx, s.d.builder().Select("COUNT(*)").From("subscriptions").Where(sq.Eq{"user_id": userID}))
	return int(n), err
}

// DeleteSubscription removes a subscription by ID.
func (s *SQLStore) DeleteSubscription(ctx context.Context, id int64) error {
	query, args, err := s.d.builder().Delete("subscriptions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.NotFoundf("subscription %d", id)
	}
	return nil
}

// SubscribedSourceIDs returns the distinct RSS source IDs the user subscribes to.
func (s *SQLStore) SubscribedSourceIDs(ctx context.Context, userID int64) ([]int64, error) {
	q := s.d.builder().Select("DISTINCT source_id").From("subscriptions").
		Where(sq.Eq{"user_id": userID, "type": string(models.SubscriptionRSS)}).
		Where("source_id IS NOT NULL").
		OrderBy("source_id")
	ids, err := s.queryIDs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("subscribed sources: %w", err)
	}
	return ids, nil
}

// AddFavorite marks an article as a favorite of the user. Repeating it is a no-op.
func (s *SQLStore) AddFavorite(ctx context.Context, userID, articleID int64) error {
	query, args, err := s.d.builder().Insert("article_favorites").
		Columns("user_id", "article_id", "created_at").
		Values(userID, articleID, s.d.timeArg(nowUTC())).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unmarks a favorite.
func (s *SQLStore) RemoveFavorite(ctx context.Context, userID, articleID int64) error {
	query, args, err := s.d.builder().Delete("article_favorites").
		Where(sq.Eq{"user_id": userID, "article_id": articleID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}
