// Package config provides configuration loading and structs for the rssai server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/rssai/internal/ranking"
)

// EnvEmbeddingAPIKey overrides embedding.api_key when set.
const EnvEmbeddingAPIKey = "RSSAI_EMBEDDING_API_KEY"

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	LogLevel     string             `yaml:"log_level,omitempty"`
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Search       SearchConfig       `yaml:"search"`
	Feed         FeedConfig         `yaml:"feed"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Import       ImportConfig       `yaml:"import"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig selects the relational backend and the term index location.
type StorageConfig struct {
	Driver        string `yaml:"driver"` // sqlite | postgres
	DatabasePath  string `yaml:"database_path"`
	DSN           string `yaml:"dsn"`
	TermIndexPath string `yaml:"term_index_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // http | onnx | mock
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key,omitempty"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	CacheSize  int           `yaml:"cache_size"`
	ModelPath  string        `yaml:"model_path"`
	MaxTokens  int           `yaml:"max_tokens"`
}

// SearchConfig holds recall limits and fusion weights for article search.
type SearchConfig struct {
	LexicalLimit    int     `yaml:"lexical_limit"`
	VectorLimit     int     `yaml:"vector_limit"`
	VectorThreshold float64 `yaml:"vector_threshold"`
	RecommendLimit  int     `yaml:"recommend_limit"`
	SemanticWeight  float64 `yaml:"semantic_weight"`
	LexicalWeight   float64 `yaml:"lexical_weight"`
	DecayPerDay     float64 `yaml:"decay_per_day"`
}

// Weights returns the fusion weights configured for search.
func (s SearchConfig) Weights() ranking.Weights {
	return ranking.Weights{
		SemanticWeight: s.SemanticWeight,
		LexicalWeight:  s.LexicalWeight,
		DecayPerDay:    s.DecayPerDay,
	}
}

// FeedConfig holds feed pagination and topic matching settings.
type FeedConfig struct {
	DefaultSize         int     `yaml:"default_size"`
	MaxSize             int     `yaml:"max_size"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// SubscriptionConfig holds per-user subscription limits.
type SubscriptionConfig struct {
	Limit        int `yaml:"limit"`
	TopicMaxRune int `yaml:"topic_max_length"`
}

// ImportConfig holds article import settings.
type ImportConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.TermIndexPath = expandPath(cfg.Storage.TermIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings after defaults have been applied.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Embedding.Provider {
	case "http", "onnx", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Search.VectorThreshold <= 0 || c.Search.VectorThreshold > 2 {
		return fmt.Errorf("search.vector_threshold must be in (0, 2], got %v", c.Search.VectorThreshold)
	}
	if c.Feed.SimilarityThreshold <= 0 || c.Feed.SimilarityThreshold > 2 {
		return fmt.Errorf("feed.similarity_threshold must be in (0, 2], got %v", c.Feed.SimilarityThreshold)
	}
	return nil
}

// Save writes the config to path. The API key is never persisted.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Embedding.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv(EnvEmbeddingAPIKey); key != "" {
		cfg.Embedding.APIKey = key
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths and ":memory:" are kept.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
