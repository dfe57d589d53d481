package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

// SQLStore implements Store on database/sql. The SQLite and Postgres constructors differ
// only in driver, schema and dialect.
type SQLStore struct {
	db     *sql.DB
	d      *dialect
	logger *zap.Logger
}

// StoreOption configures a SQLStore.
type StoreOption func(*SQLStore)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSQLStore(db *sql.DB, d *dialect, opts ...StoreOption) *SQLStore {
	s := &SQLStore{db: db, d: d, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dialect returns "sqlite" or "postgres".
func (s *SQLStore) Dialect() string {
	return s.d.name
}

// DB exposes the underlying handle for maintenance tasks.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) queryIDs(ctx context.Context, q sq.Sqlizer) ([]int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) queryHits(ctx context.Context, q sq.Sqlizer) ([]VectorHit, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]VectorHit, 0)
	for rows.Next() {
		var h VectorHit
		if err := rows.Scan(&h.ArticleID, &h.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *SQLStore) count(ctx context.Context, q sq.SelectBuilder) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Stats returns row counts.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	b := s.d.builder()
	var st Stats
	var err error
	if st.Articles, err = s.count(ctx, b.Select("COUNT(*)").From("articles")); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	if st.WithVectors, err = s.count(ctx, b.Select("COUNT(*)").From("article_extras").Where("vector IS NOT NULL")); err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	if st.FailedExtras, err = s.count(ctx, b.Select("COUNT(*)").From("article_extras").Where(sq.Eq{"status": "FAILED"})); err != nil {
		return nil, fmt.Errorf("count failed extras: %w", err)
	}
	if st.Topics, err = s.count(ctx, b.Select("COUNT(*)").From("topics")); err != nil {
		return nil, fmt.Errorf("count topics: %w", err)
	}
	if st.Subscriptions, err = s.count(ctx, b.Select("COUNT(*)").From("subscriptions")); err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	return &st, nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
