package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/config"
)

// New builds the embedder selected by cfg.Provider, wrapped in a CachedEmbedder.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var inner Embedder
	switch cfg.Provider {
	case "http":
		retry := DefaultRetryConfig()
		if cfg.MaxRetries > 0 {
			retry.MaxRetries = cfg.MaxRetries
		}
		e, err := NewHTTPEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions, cfg.Timeout,
			WithRetry(retry), WithHTTPLogger(logger.Named("embedding")))
		if err != nil {
			return nil, err
		}
		inner = e
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		inner = e
	case "mock":
		inner = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", inner.Dimensions()))
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
