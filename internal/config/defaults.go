package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/rssai/data/db/rssai.db"
	}
	if cfg.Storage.TermIndexPath == "" {
		cfg.Storage.TermIndexPath = "/usr/local/var/rssai/data/indices/titles"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "http"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/rssai/data/models/bge-m3.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 512
	}
	if cfg.Search.LexicalLimit == 0 {
		cfg.Search.LexicalLimit = 20
	}
	if cfg.Search.VectorLimit == 0 {
		cfg.Search.VectorLimit = 50
	}
	if cfg.Search.VectorThreshold == 0 {
		cfg.Search.VectorThreshold = 0.4
	}
	if cfg.Search.RecommendLimit == 0 {
		cfg.Search.RecommendLimit = 2
	}
	if cfg.Search.SemanticWeight == 0 {
		cfg.Search.SemanticWeight = 1.5
	}
	if cfg.Search.LexicalWeight == 0 {
		cfg.Search.LexicalWeight = 1.0
	}
	if cfg.Search.DecayPerDay == 0 {
		cfg.Search.DecayPerDay = 0.1
	}
	if cfg.Feed.DefaultSize == 0 {
		cfg.Feed.DefaultSize = 20
	}
	if cfg.Feed.MaxSize == 0 {
		cfg.Feed.MaxSize = 100
	}
	if cfg.Feed.SimilarityThreshold == 0 {
		cfg.Feed.SimilarityThreshold = 0.3
	}
	if cfg.Subscription.Limit == 0 {
		cfg.Subscription.Limit = 200
	}
	if cfg.Subscription.TopicMaxRune == 0 {
		cfg.Subscription.TopicMaxRune = 30
	}
	if cfg.Import.Concurrency == 0 {
		cfg.Import.Concurrency = 4
	}
}

// Default returns a fully defaulted config, used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}
