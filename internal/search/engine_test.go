package search

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/embedding"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/storage"
)

// fakeStore scripts recall results and records the scopes it was asked for.
type fakeStore struct {
	mu sync.Mutex

	lexical    map[string][]int64
	lexicalErr error
	hits       []storage.VectorHit
	vectorErr  error
	feeds      map[int64]*models.FeedItem
	vectors    map[int64][]float32
	subscribed map[int64][]int64

	patterns []string
	scopes   []storage.Scope
	block    chan struct{}
}

func (f *fakeStore) LexicalRecall(ctx context.Context, pattern string, scope storage.Scope, limit int) ([]int64, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.patterns = append(f.patterns, pattern)
	f.scopes = append(f.scopes, scope)
	f.mu.Unlock()
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	ids := f.lexical[pattern]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeStore) VectorRecall(ctx context.Context, query []float32, scope storage.Scope, threshold float64, limit int) ([]storage.VectorHit, error) {
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	out := make([]storage.VectorHit, 0)
	for _, h := range f.hits {
		if h.Distance < threshold && len(out) < limit {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) NearestNeighbors(ctx context.Context, query []float32, excludeID int64, limit int) ([]storage.VectorHit, error) {
	out := make([]storage.VectorHit, 0)
	for _, h := range f.hits {
		if h.ArticleID != excludeID && len(out) < limit {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) FindFeedByIDs(ctx context.Context, ids []int64) (map[int64]*models.FeedItem, error) {
	out := make(map[int64]*models.FeedItem)
	for _, id := range ids {
		if item, ok := f.feeds[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (f *fakeStore) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	item, ok := f.feeds[id]
	if !ok {
		return nil, models.NotFoundf("article %d", id)
	}
	return &models.Article{ID: item.ID, Title: item.Title, PubDate: item.PubDate}, nil
}

func (f *fakeStore) GetArticleVector(ctx context.Context, id int64) ([]float32, error) {
	return f.vectors[id], nil
}

func (f *fakeStore) SubscribedSourceIDs(ctx context.Context, userID int64) ([]int64, error) {
	return f.subscribed[userID], nil
}

type fixedKeyword string

func (k fixedKeyword) ExtractTopKeyword(string) (string, bool) {
	return string(k), k != ""
}

func newTestEngine(store Store, emb embedding.Embedder, kw KeywordExtractor, cfg *config.SearchConfig) *Engine {
	e := NewEngine(store, emb, kw, nil, cfg, nil)
	e.now = func() time.Time { return now }
	return e
}

func todayFeeds(ids ...int64) map[int64]*models.FeedItem {
	m := make(map[int64]*models.FeedItem, len(ids))
	for _, id := range ids {
		m[id] = &models.FeedItem{ID: id, Title: "article", PubDate: now}
	}
	return m
}

func userID(id int64) *int64 { return &id }

func TestEngine_Search_Validation(t *testing.T) {
	e := newTestEngine(&fakeStore{}, nil, nil, nil)
	for _, q := range []string{"", "   "} {
		_, err := e.Search(context.Background(), &models.SearchRequest{Query: q})
		assert.True(t, errors.Is(err, models.ErrInvalidInput), "query %q", q)
	}
	_, err := e.Search(context.Background(), &models.SearchRequest{Query: "go", Scope: "EVERYTHING"})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
	_, err = e.Search(context.Background(), nil)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestEngine_Search_VectorOnlyCJK(t *testing.T) {
	store := &fakeStore{
		hits: []storage.VectorHit{
			{ArticleID: 11, Distance: 0.10},
			{ArticleID: 12, Distance: 0.25},
			{ArticleID: 13, Distance: 0.40},
		},
		feeds: todayFeeds(11, 12, 13),
	}
	emb := &embedding.StaticEmbedder{Vectors: map[string][]float32{"人工智能": {1, 0}}}
	e := newTestEngine(store, emb, nil, &config.SearchConfig{VectorThreshold: 0.45})

	scored, err := e.SearchScored(context.Background(), &models.SearchRequest{Query: " 人工智能 "})
	require.NoError(t, err)
	require.Len(t, scored, 3)
	assert.Equal(t, []int64{11, 12, 13}, ids(Items(scored)))
	assert.InDelta(t, 0.9*1.5, scored[0].Breakdown.FinalScore, 1e-9)
	assert.InDelta(t, 0.75*1.5, scored[1].Breakdown.FinalScore, 1e-9)
	assert.InDelta(t, 0.6*1.5, scored[2].Breakdown.FinalScore, 1e-9)
}

func TestEngine_Search_Fallback(t *testing.T) {
	t.Run("embedding fails", func(t *testing.T) {
		store := &fakeStore{
			lexical: map[string][]int64{"golang": {1, 2}},
			hits:    []storage.VectorHit{{ArticleID: 3, Distance: 0.1}},
			feeds:   todayFeeds(1, 2, 3),
		}
		emb := &embedding.StaticEmbedder{Err: errors.New("provider down")}
		e := newTestEngine(store, emb, nil, nil)
		got, err := e.Search(context.Background(), &models.SearchRequest{Query: "golang"})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids(got))
		assert.Equal(t, 1, emb.Calls())
	})

	t.Run("empty embedding", func(t *testing.T) {
		store := &fakeStore{lexical: map[string][]int64{"golang": {1}}, feeds: todayFeeds(1, 3),
			hits: []storage.VectorHit{{ArticleID: 3, Distance: 0.1}}}
		emb := &embedding.StaticEmbedder{Vectors: map[string][]float32{"golang": {}}}
		e := newTestEngine(store, emb, nil, nil)
		got, err := e.Search(context.Background(), &models.SearchRequest{Query: "golang"})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(got))
	})

	t.Run("vector recall fails", func(t *testing.T) {
		store := &fakeStore{lexical: map[string][]int64{"golang": {1}}, feeds: todayFeeds(1),
			vectorErr: errors.New("no vector extension")}
		emb := &embedding.StaticEmbedder{Vectors: map[string][]float32{"golang": {1}}}
		e := newTestEngine(store, emb, nil, nil)
		got, err := e.Search(context.Background(), &models.SearchRequest{Query: "golang"})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(got))
	})

	t.Run("lexical fails", func(t *testing.T) {
		store := &fakeStore{lexicalErr: errors.New("locked"), feeds: todayFeeds(3),
			hits: []storage.VectorHit{{ArticleID: 3, Distance: 0.1}}}
		emb := &embedding.StaticEmbedder{Vectors: map[string][]float32{"golang": {1}}}
		e := newTestEngine(store, emb, nil, nil)
		got, err := e.Search(context.Background(), &models.SearchRequest{Query: "golang"})
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, ids(got))
	})

	t.Run("both fail", func(t *testing.T) {
		store := &fakeStore{lexicalErr: errors.New("locked")}
		emb := &embedding.StaticEmbedder{Err: errors.New("provider down")}
		e := newTestEngine(store, emb, nil, nil)
		got, err := e.Search(context.Background(), &models.SearchRequest{Query: "golang"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestEngine_Search_KeywordBroadening(t *testing.T) {
	store := &fakeStore{
		lexical: map[string][]int64{
			"how to learn rust": {4},
			"rust":              {5, 4, 6},
		},
		feeds: todayFeeds(4, 5, 6),
	}
	e := newTestEngine(store, nil, fixedKeyword("rust"), &config.SearchConfig{LexicalLimit: 2})
	got, err := e.Search(context.Background(), &models.SearchRequest{Query: "how to learn rust"})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids(got))
	assert.Equal(t, []string{"how to learn rust", "rust"}, store.patterns)

	store.patterns = nil
	e = newTestEngine(store, nil, fixedKeyword("RUST"), nil)
	_, err = e.Search(context.Background(), &models.SearchRequest{Query: "rust"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, store.patterns, "keyword equal to the query is not searched again")
}

func TestEngine_Search_Scopes(t *testing.T) {
	store := &fakeStore{
		lexical:    map[string][]int64{"go": {1}},
		feeds:      todayFeeds(1),
		subscribed: map[int64][]int64{7: {3, 4}},
	}
	e := newTestEngine(store, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       models.SearchRequest
		wantScope *storage.Scope
	}{
		{"all", models.SearchRequest{Query: "go"}, &storage.Scope{Kind: storage.ScopeAllSources}},
		{"source wins", models.SearchRequest{Query: "go", Scope: models.ScopeFavorite, SourceID: 9, UserID: userID(7)},
			&storage.Scope{Kind: storage.ScopeSourceSet, SourceIDs: []int64{9}}},
		{"favorites", models.SearchRequest{Query: "go", Scope: models.ScopeFavorite, UserID: userID(7)},
			&storage.Scope{Kind: storage.ScopeFavoritesOf, UserID: 7}},
		{"subscribed", models.SearchRequest{Query: "go", Scope: models.ScopeSubscribed, UserID: userID(7)},
			&storage.Scope{Kind: storage.ScopeSourceSet, SourceIDs: []int64{3, 4}}},
		{"favorites without user", models.SearchRequest{Query: "go", Scope: models.ScopeFavorite}, nil},
		{"subscribed without user", models.SearchRequest{Query: "go", Scope: models.ScopeSubscribed}, nil},
		{"subscribed to nothing", models.SearchRequest{Query: "go", Scope: models.ScopeSubscribed, UserID: userID(8)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.scopes = nil
			req := tt.req
			got, err := e.Search(ctx, &req)
			require.NoError(t, err)
			if tt.wantScope == nil {
				assert.Empty(t, got)
				assert.Empty(t, store.scopes, "no recall for an empty scope")
				return
			}
			require.Len(t, store.scopes, 1)
			assert.Equal(t, *tt.wantScope, store.scopes[0])
		})
	}
}

func TestEngine_Search_Cancelled(t *testing.T) {
	store := &fakeStore{block: make(chan struct{}), feeds: todayFeeds(1)}
	e := newTestEngine(store, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Search(ctx, &models.SearchRequest{Query: "go"})
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not return after cancellation")
	}
}

func TestEngine_Recommend(t *testing.T) {
	store := &fakeStore{
		feeds:   todayFeeds(1, 2, 3, 4),
		vectors: map[int64][]float32{1: {1, 0}},
		hits: []storage.VectorHit{
			{ArticleID: 1, Distance: 0},
			{ArticleID: 3, Distance: 0.1},
			{ArticleID: 2, Distance: 0.2},
			{ArticleID: 4, Distance: 0.3},
		},
	}
	e := newTestEngine(store, nil, nil, nil)
	ctx := context.Background()

	got, err := e.Recommend(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(got))

	got, err = e.Recommend(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, got, "no vector, no recommendations")

	_, err = e.Recommend(ctx, 99)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = e.Recommend(ctx, 0)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

// TestEngine_SQLite runs the engine over a real SQLite store.
func TestEngine_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "rssai.db"))
	require.NoError(t, err)
	defer store.Close()

	src := &models.Source{Name: "Lobsters", URL: "https://lobste.rs/rss"}
	require.NoError(t, store.CreateSource(ctx, src))

	add := func(title string, age time.Duration, vec []float32) int64 {
		id, err := store.UpsertArticle(ctx, &models.Article{
			SourceID: &src.ID, SourceName: src.Name, Title: title,
			Link: "https://lobste.rs/" + title, PubDate: now.Add(-age),
		})
		require.NoError(t, err)
		if vec != nil {
			require.NoError(t, store.SaveExtra(ctx, &models.ArticleExtra{ArticleID: id, Vector: vec, Status: models.AnalysisSuccess}))
		}
		return id
	}
	day := 24 * time.Hour
	both := add("Generics in Go", day, []float32{1, 0})
	lexOnly := add("Go toolchain news", 0, nil)
	vecOnly := add("Type parameters explained", 0, []float32{0.95, 0.05})
	add("Cooking pasta", 0, []float32{0, 1})
	favorite := add("Go error handling", 0, nil)
	require.NoError(t, store.AddFavorite(ctx, 7, favorite))

	emb := &embedding.StaticEmbedder{Vectors: map[string][]float32{"go": {1, 0}}}
	e := newTestEngine(store, emb, nil, nil)

	got, err := e.Search(ctx, &models.SearchRequest{Query: "go"})
	require.NoError(t, err)
	// both: (1.5 + 1) / 1.1; vecOnly: ~1.46; lexical-only today: 1.0
	assert.Equal(t, []int64{both, vecOnly, favorite, lexOnly}, ids(got))

	got, err = e.Search(ctx, &models.SearchRequest{Query: "go", Scope: models.ScopeFavorite, UserID: userID(7)})
	require.NoError(t, err)
	assert.Equal(t, []int64{favorite}, ids(got))

	recs, err := e.Recommend(ctx, both)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, vecOnly, recs[0].ID)
}
