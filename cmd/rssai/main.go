// Package main is the rssai CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/cli"
	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/embedding"
	"github.com/hyperjump/rssai/internal/feed"
	"github.com/hyperjump/rssai/internal/indexer"
	"github.com/hyperjump/rssai/internal/keyword"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/ranking"
	"github.com/hyperjump/rssai/internal/search"
	"github.com/hyperjump/rssai/internal/server"
	"github.com/hyperjump/rssai/internal/storage"
	"github.com/hyperjump/rssai/internal/subscription"
	"github.com/hyperjump/rssai/internal/watcher"
	"github.com/hyperjump/rssai/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/rssai/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists, and a missing default file yields the built-in defaults.
// Returns the config and the path that was loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "feed":
		runFeed()
	case "import":
		runImport()
	case "version", "--version", "-v":
		fmt.Printf("rssai version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds a logger; debug forces debug logging.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLoggerWithLevel(cfg.LogLevel, cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if resolvedConfigPath != "" {
		cw := watcher.NewConfigWatcher(resolvedConfigPath,
			watcher.UpdateRanker(components.Ranker, logger),
			watcher.WithLogger(logger.Named("watcher")))
		if err := cw.Start(ctx); err != nil {
			logger.Warn("config watcher disabled", zap.Error(err))
		} else {
			defer cw.Stop()
		}
	}

	srv := server.NewServer(
		components.Engine,
		components.Feeds,
		components.Subscriptions,
		components.Indexer,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: rssai search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  rssai search kubernetes
  rssai search --scope SUBSCRIBED --user 7 "rust async"
  rssai search --source 3 --output json 大模型
  rssai search --server http://localhost:8080 golang
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// userIDPtr returns nil for non-positive IDs.
func userIDPtr(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the store directly)")
	scope := fs.String("scope", "ALL", "search scope: ALL, SUBSCRIBED or FAVORITE")
	sourceID := fs.Int64("source", 0, "restrict to one source ID (overrides scope)")
	userID := fs.Int64("user", 0, "user ID for SUBSCRIBED and FAVORITE scopes")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	req := &models.SearchRequest{
		Query:    queryStr,
		Scope:    models.SearchScope(*scope),
		SourceID: *sourceID,
		UserID:   userIDPtr(*userID),
	}
	format := cli.ParseOutputFormat(*outputFormat)

	start := time.Now()
	var results []*search.ScoredItem
	if *serverURL != "" {
		items, err := searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		results = make([]*search.ScoredItem, len(items))
		for i, item := range items {
			results[i] = &search.ScoredItem{FeedItem: item, Rank: i + 1}
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(context.Background(), cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		results, err = components.Engine.SearchScored(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, queryStr, results, time.Since(start), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// searchURL builds the search endpoint URL for req.
func searchURL(serverURL string, req *models.SearchRequest) string {
	q := url.Values{}
	q.Set("query", req.Query)
	if req.Scope != "" {
		q.Set("searchScope", string(req.Scope))
	}
	if req.SourceID > 0 {
		q.Set("sourceId", strconv.FormatInt(req.SourceID, 10))
	}
	return strings.TrimRight(serverURL, "/") + "/api/front/v1/articles/search?" + q.Encode()
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) ([]*models.FeedItem, error) {
	httpReq, err := http.NewRequest(http.MethodGet, searchURL(serverURL, req), nil)
	if err != nil {
		return nil, err
	}
	if req.UserID != nil {
		httpReq.Header.Set(server.HeaderUserID, strconv.FormatInt(*req.UserID, 10))
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var items []*models.FeedItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}

func runFeed() {
	fs := flag.NewFlagSet("feed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	userID := fs.Int64("user", 0, "user ID (required)")
	subscriptionID := fs.Int64("subscription", 0, "narrow the feed to one subscription")
	cursor := fs.String("cursor", "", "cursor from the previous page")
	size := fs.Int("size", 0, "page size (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *userID <= 0 {
		fmt.Println("Usage: rssai feed --user <id> [--subscription <id>] [--cursor <cursor>] [--size <n>]")
		os.Exit(1)
	}
	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	page, err := components.Feeds.Page(context.Background(), &models.FeedRequest{
		UserID:         *userID,
		SubscriptionID: userIDPtr(*subscriptionID),
		Cursor:         *cursor,
		Size:           *size,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Feed failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFeed(os.Stdout, page.Items, page.NextCursor, cli.ParseOutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rssai import [flags] <articles.json | ->")
		os.Exit(1)
	}
	inputs, err := readArticles(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read articles: %v\n", err)
		os.Exit(1)
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	results, err := components.Indexer.ImportBatch(context.Background(), inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteImportResults(os.Stdout, results, cli.ParseOutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// readArticles decodes articles from path, or from stdin when path is "-".
func readArticles(path string) ([]*models.ArticleInput, error) {
	if path == "-" {
		return indexer.DecodeArticles(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return indexer.DecodeArticles(f)
}

// Components holds initialized services.
type Components struct {
	Store         *storage.SQLStore
	Embedder      embedding.Embedder
	Terms         *keyword.TermIndex
	Ranker        *ranking.Ranker
	Engine        *search.Engine
	Feeds         *feed.Assembler
	Subscriptions *subscription.Service
	Indexer       *indexer.Indexer
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Terms != nil {
		_ = c.Terms.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.Open(ctx, cfg.Storage, cfg.Embedding.Dimensions, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Store = store

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		// search runs lexical-only, imports store FAILED extras, topic creation fails
		logger.Warn("embedding provider unavailable, running without embeddings",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		embedder = nil
	}
	c.Embedder = embedder

	terms, err := keyword.NewTermIndex(cfg.Storage.TermIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize term index: %w", err)
	}
	c.Terms = terms

	extractor := keyword.NewExtractor(
		keyword.WithIDFSource(terms),
		keyword.WithLogger(logger.Named("keyword")),
	)
	c.Ranker = ranking.NewRanker(cfg.Search.Weights())
	c.Engine = search.NewEngine(store, embedder, extractor, c.Ranker, &cfg.Search, logger.Named("search"))
	c.Feeds = feed.NewAssembler(store, &cfg.Feed, logger.Named("feed"))
	c.Subscriptions = subscription.NewService(store, embedder, &cfg.Subscription, logger.Named("subscription"))
	c.Indexer = indexer.NewIndexer(store, embedder, &cfg.Import,
		indexer.WithLogger(logger.Named("indexer")),
		indexer.WithTermIndex(terms))
	return c, nil
}

func printUsage() {
	fmt.Println(`rssai - hybrid article search and personalized feed for an RSS reader

Usage:
  rssai server [flags]            Start the HTTP server
  rssai search [flags] <query>    Search articles
  rssai feed [flags]              Show a page of a user's feed
  rssai import [flags] <file>     Import articles from a JSON file ("-" for stdin)
  rssai version                   Show version
  rssai help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/rssai/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path
  --server string    Query a running server instead of opening the store
  --scope string     ALL, SUBSCRIBED or FAVORITE (default: ALL)
  --source int       Restrict to one source (overrides scope)
  --user int         User ID for SUBSCRIBED and FAVORITE
  --output string    Output format: text or json (default: text)

Feed Flags:
  --user int           User ID (required)
  --subscription int   Narrow to one subscription
  --cursor string      Cursor printed by the previous page
  --size int           Page size (default 20, max 100)
  --output string      Output format: text or json

Examples:
  rssai server
  rssai import articles.json
  rssai search "machine learning"
  rssai search --scope FAVORITE --user 7 --output json golang
  rssai feed --user 7 --size 10`)
}
