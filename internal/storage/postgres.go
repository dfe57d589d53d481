package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewPostgresStore connects to Postgres (with the pgvector and pg_trgm extensions available)
// and initializes the schema for vectors of the given dimension.
func NewPostgresStore(ctx context.Context, dsn string, dims int, opts ...StoreOption) (*SQLStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema(dims)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return newSQLStore(db, postgresDialect, opts...), nil
}
