package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/models"
)

var feedColumns = []string{
	"a.id", "a.source_id", "a.source_name", "a.title", "a.cover_image", "a.pub_date", "a.word_count",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedItem(r rowScanner) (*models.FeedItem, error) {
	var (
		item     models.FeedItem
		sourceID sql.NullInt64
		pub      dbTime
	)
	if err := r.Scan(&item.ID, &sourceID, &item.SourceName, &item.Title, &item.CoverImage, &pub, &item.WordCount); err != nil {
		return nil, err
	}
	item.SourceID = idPtr(sourceID)
	item.PubDate = pub.Time
	return &item, nil
}

func (s *SQLStore) queryFeedItems(ctx context.Context, query string, args []any) ([]*models.FeedItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.FeedItem, 0)
	for rows.Next() {
		item, err := scanFeedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// LexicalRecall matches pattern against title, author and source name.
func (s *SQLStore) LexicalRecall(ctx context.Context, pattern string, scope Scope, limit int) ([]int64, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, models.InvalidInputf("lexical pattern cannot be blank")
	}
	like := containsPattern(pattern)
	q := s.d.builder().Select("a.id").From("articles a").
		Where(sq.Or{
			sq.Expr(s.d.containsFold("a.title"), like),
			sq.Expr(s.d.containsFold("a.author"), like),
			sq.Expr(s.d.containsFold("a.source_name"), like),
		}).
		OrderBy("a.pub_date DESC", "a.id DESC")
	if p := scope.predicate(s.d); p != nil {
		q = q.Where(p)
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	ids, err := s.queryIDs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lexical recall: %w", err)
	}
	return ids, nil
}

// VectorRecall returns articles whose vector lies within threshold of query.
func (s *SQLStore) VectorRecall(ctx context.Context, query []float32, scope Scope, threshold float64, limit int) ([]VectorHit, error) {
	if len(query) == 0 {
		return []VectorHit{}, nil
	}
	dist := s.d.distance("ae.vector")
	q := s.d.builder().Select("a.id").
		Column(sq.Expr(dist+" AS distance", s.d.vectorArg(query))).
		From("articles a").
		Join("article_extras ae ON ae.article_id = a.id").
		Where("ae.vector IS NOT NULL").
		Where(sq.Expr(dist+" < ?", s.d.vectorArg(query), threshold)).
		OrderBy("distance ASC", "a.id DESC")
	if p := scope.predicate(s.d); p != nil {
		q = q.Where(p)
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	hits, err := s.queryHits(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("vector recall: %w", err)
	}
	return hits, nil
}

// NearestNeighbors returns the closest articles to query regardless of threshold.
func (s *SQLStore) NearestNeighbors(ctx context.Context, query []float32, excludeID int64, limit int) ([]VectorHit, error) {
	if len(query) == 0 || limit <= 0 {
		return []VectorHit{}, nil
	}
	dist := s.d.distance("ae.vector")
	q := s.d.builder().Select("ae.article_id").
		Column(sq.Expr(dist+" AS distance", s.d.vectorArg(query))).
		From("article_extras ae").
		Where("ae.vector IS NOT NULL").
		Where(sq.NotEq{"ae.article_id": excludeID}).
		OrderBy("distance ASC", "ae.article_id DESC").
		Limit(uint64(limit))
	hits, err := s.queryHits(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}
	return hits, nil
}

// FindFeedByIDs batch-loads feed metadata.
func (s *SQLStore) FindFeedByIDs(ctx context.Context, ids []int64) (map[int64]*models.FeedItem, error) {
	out := make(map[int64]*models.FeedItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := s.d.builder().Select(feedColumns...).From("articles a").
		Where(s.d.inInt64("a.id", ids)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	items, err := s.queryFeedItems(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("find feed by ids: %w", err)
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// GetArticle returns the article with the given ID.
func (s *SQLStore) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	query, args, err := s.d.builder().
		Select("id", "source_id", "source_name", "title", "link", "author", "pub_date", "word_count", "cover_image").
		From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var (
		a        models.Article
		sourceID sql.NullInt64
		pub      dbTime
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &sourceID, &a.SourceName, &a.Title, &a.Link, &a.Author, &pub, &a.WordCount, &a.CoverImage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("article %d", id)
	}
	if err != nil {
		return nil, err
	}
	a.SourceID = idPtr(sourceID)
	a.PubDate = pub.Time
	return &a, nil
}

// GetArticleVector returns the stored embedding of an article, or nil.
func (s *SQLStore) GetArticleVector(ctx context.Context, id int64) ([]float32, error) {
	query, args, err := s.d.builder().Select("vector").From("article_extras").
		Where(sq.Eq{"article_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	v := s.d.vectorScanner()
	err = s.db.QueryRowContext(ctx, query, args...).Scan(v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.Vec, nil
}

// HybridFeed runs one UNION query: a chronological branch over q.SourceIDs and one similarity
// branch per topic vector, each already cut at the cursor and at q.Size.
func (s *SQLStore) HybridFeed(ctx context.Context, q FeedQuery) ([]*models.FeedItem, error) {
	if q.Size <= 0 {
		return nil, models.InvalidInputf("feed size must be positive, got %d", q.Size)
	}
	// Branches are rendered with ? placeholders and converted once after the UNION is assembled.
	plain := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	t := s.d.timeArg(q.Cursor.Time)
	cursor := sq.Or{
		sq.Expr("a.pub_date < ?", t),
		sq.And{sq.Expr("a.pub_date = ?", t), sq.Expr("a.id < ?", q.Cursor.ID)},
	}

	var branches []sq.SelectBuilder
	if len(q.SourceIDs) > 0 {
		branches = append(branches, plain.Select(feedColumns...).From("articles a").
			Where(s.d.inInt64("a.source_id", q.SourceIDs)).
			Where(cursor).
			OrderBy("a.pub_date DESC", "a.id DESC").
			Limit(uint64(q.Size)))
	}
	for _, tv := range q.TopicVectors {
		if len(tv) == 0 {
			continue
		}
		branches = append(branches, plain.Select(feedColumns...).From("articles a").
			Join("article_extras ae ON ae.article_id = a.id").
			Where("ae.vector IS NOT NULL").
			Where(sq.Expr(s.d.distance("ae.vector")+" < ?", s.d.vectorArg(tv), q.Threshold)).
			Where(cursor).
			OrderBy("a.pub_date DESC", "a.id DESC").
			Limit(uint64(q.Size)))
	}
	if len(branches) == 0 {
		return []*models.FeedItem{}, nil
	}

	parts := make([]string, 0, len(branches))
	var args []any
	for i, b := range branches {
		part, bArgs, err := b.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build feed branch %d: %w", i, err)
		}
		parts = append(parts, fmt.Sprintf("SELECT * FROM (%s) AS b%d", part, i))
		args = append(args, bArgs...)
	}
	query := strings.Join(parts, " UNION ") + " ORDER BY pub_date DESC, id DESC LIMIT ?"
	args = append(args, q.Size)
	query, err := s.d.placeholder.ReplacePlaceholders(query)
	if err != nil {
		return nil, fmt.Errorf("build feed query: %w", err)
	}

	items, err := s.queryFeedItems(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("hybrid feed: %w", err)
	}
	s.logger.Debug("hybrid feed",
		zap.Int("branches", len(branches)),
		zap.Int("items", len(items)))
	return items, nil
}

// UpsertArticle inserts a, or refreshes the row with the same link. The publish date of
// an existing row is never changed so cursors stay valid.
func (s *SQLStore) UpsertArticle(ctx context.Context, a *models.Article) (int64, error) {
	if strings.TrimSpace(a.Link) == "" {
		return 0, models.InvalidInputf("article link is required")
	}
	if strings.TrimSpace(a.Title) == "" {
		return 0, models.InvalidInputf("article title is required")
	}
	pub := models.NormalizeTime(a.PubDate)
	query, args, err := s.d.builder().Insert("articles").
		Columns("source_id", "source_name", "title", "link", "author", "pub_date", "word_count", "cover_image").
		Values(nullID(a.SourceID), a.SourceName, a.Title, a.Link, a.Author, s.d.timeArg(pub), a.WordCount, a.CoverImage).
		Suffix(`ON CONFLICT (link) DO UPDATE SET
			source_id = excluded.source_id,
			source_name = excluded.source_name,
			title = excluded.title,
			author = excluded.author,
			word_count = excluded.word_count,
			cover_image = excluded.cover_image
		RETURNING id`).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert article: %w", err)
	}
	a.ID = id
	return id, nil
}

// SaveExtra inserts or replaces the enrichment row for extra.ArticleID.
func (s *SQLStore) SaveExtra(ctx context.Context, extra *models.ArticleExtra) error {
	query, args, err := s.d.builder().Insert("article_extras").
		Columns("article_id", "overview", "key_information", "tags", "vector", "status", "error_message").
		Values(extra.ArticleID, extra.Overview, dbStrings(extra.KeyInformation), dbStrings(extra.Tags),
			s.d.vectorArg(extra.Vector), string(extra.Status), extra.ErrorMessage).
		Suffix(`ON CONFLICT (article_id) DO UPDATE SET
			overview = excluded.overview,
			key_information = excluded.key_information,
			tags = excluded.tags,
			vector = excluded.vector,
			status = excluded.status,
			error_message = excluded.error_message`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save article extra: %w", err)
	}
	return nil
}

// GetExtra returns the enrichment row of an article.
func (s *SQLStore) GetExtra(ctx context.Context, articleID int64) (*models.ArticleExtra, error) {
	query, args, err := s.d.builder().
		Select("article_id", "overview", "key_information", "tags", "vector", "status", "error_message").
		From("article_extras").Where(sq.Eq{"article_id": articleID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var (
		e      models.ArticleExtra
		keys   dbStrings
		tags   dbStrings
		status string
	)
	vec := s.d.vectorScanner()
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&e.ArticleID, &e.Overview, &keys, &tags, vec, &status, &e.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("extra for article %d", articleID)
	}
	if err != nil {
		return nil, err
	}
	e.KeyInformation = keys
	e.Tags = tags
	e.Vector = vec.Vec
	e.Status = models.AnalysisStatus(status)
	return &e, nil
}
