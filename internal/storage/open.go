package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/config"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, dims int, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opt := WithLogger(logger.Named("storage"))
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(cfg.DatabasePath, opt)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, dims, opt)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
