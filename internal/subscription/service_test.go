package subscription

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/embedding"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/storage"
)

func newTestService(t *testing.T, emb embedding.Embedder, cfg *config.SubscriptionConfig) (*Service, *storage.SQLStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "rssai.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, emb, cfg, nil), store
}

func TestCreateTopic(t *testing.T) {
	emb := &embedding.StaticEmbedder{Vectors: map[string][]float32{
		"rust":   {1, 0},
		"向量数据库": {0, 1},
	}}
	svc, _ := newTestService(t, emb, nil)
	ctx := context.Background()

	topic, err := svc.CreateTopic(ctx, "  rust ")
	require.NoError(t, err)
	assert.Equal(t, "rust", topic.Content)
	assert.Equal(t, []float32{1, 0}, topic.Vector)
	assert.NotZero(t, topic.ID)

	again, err := svc.CreateTopic(ctx, "rust")
	require.NoError(t, err)
	assert.Equal(t, topic.ID, again.ID)
	assert.Equal(t, 1, emb.Calls(), "existing topics are not re-embedded")

	cjk, err := svc.CreateTopic(ctx, "向量数据库")
	require.NoError(t, err)
	assert.NotEqual(t, topic.ID, cjk.ID)

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"blank", "   ", models.ErrInvalidInput},
		{"too long", strings.Repeat("x", 31), models.ErrInvalidInput},
		{"too many runes", strings.Repeat("数", 31), models.ErrInvalidInput},
		{"embedding fails", "unknown topic", models.ErrEmbeddingUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTopic(ctx, tt.content)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	// 30 runes is the maximum
	emb.Vectors[strings.Repeat("数", 30)] = []float32{0.5, 0.5}
	_, err = svc.CreateTopic(ctx, strings.Repeat("数", 30))
	assert.NoError(t, err)
}

func TestSubscribe(t *testing.T) {
	emb := &embedding.StaticEmbedder{Vectors: map[string][]float32{"go": {1, 0}}}
	svc, store := newTestService(t, emb, &config.SubscriptionConfig{Limit: 2})
	ctx := context.Background()

	src := &models.Source{Name: "Go Blog", URL: "https://go.dev/blog/feed.atom"}
	require.NoError(t, store.CreateSource(ctx, src))
	src2 := &models.Source{Name: "Other", URL: "https://other.example.com/rss"}
	require.NoError(t, store.CreateSource(ctx, src2))
	topic, err := svc.CreateTopic(ctx, "go")
	require.NoError(t, err)

	rss, err := svc.Subscribe(ctx, 7, &models.CreateSubscriptionRequest{Type: models.SubscriptionRSS, TargetID: src.ID})
	require.NoError(t, err)
	assert.Equal(t, "Go Blog", rss.SourceName)

	dup, err := svc.Subscribe(ctx, 7, &models.CreateSubscriptionRequest{Type: models.SubscriptionRSS, TargetID: src.ID})
	require.NoError(t, err)
	assert.Equal(t, rss.ID, dup.ID)

	ts, err := svc.Subscribe(ctx, 7, &models.CreateSubscriptionRequest{Type: models.SubscriptionTopic, TargetID: topic.ID})
	require.NoError(t, err)
	assert.Equal(t, "go", ts.TopicName)

	_, err = svc.Subscribe(ctx, 7, &models.CreateSubscriptionRequest{Type: models.SubscriptionRSS, TargetID: src2.ID})
	assert.True(t, errors.Is(err, models.ErrInvalidInput), "limit reached")

	// an existing subscription is still returned at the limit
	_, err = svc.Subscribe(ctx, 7, &models.CreateSubscriptionRequest{Type: models.SubscriptionTopic, TargetID: topic.ID})
	assert.NoError(t, err)

	tests := []struct {
		name    string
		userID  int64
		req     *models.CreateSubscriptionRequest
		wantErr error
	}{
		{"no type", 8, &models.CreateSubscriptionRequest{TargetID: src.ID}, models.ErrInvalidInput},
		{"bad type", 8, &models.CreateSubscriptionRequest{Type: "EMAIL", TargetID: src.ID}, models.ErrInvalidInput},
		{"bad target", 8, &models.CreateSubscriptionRequest{Type: models.SubscriptionRSS}, models.ErrInvalidInput},
		{"no user", 0, &models.CreateSubscriptionRequest{Type: models.SubscriptionRSS, TargetID: src.ID}, models.ErrInvalidInput},
		{"missing source", 8, &models.CreateSubscriptionRequest{Type: models.SubscriptionRSS, TargetID: 999}, models.ErrNotFound},
		{"missing topic", 8, &models.CreateSubscriptionRequest{Type: models.SubscriptionTopic, TargetID: 999}, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Subscribe(ctx, tt.userID, tt.req)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	subs, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	err = svc.Unsubscribe(ctx, 8, rss.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound), "other users cannot delete")
	require.NoError(t, svc.Unsubscribe(ctx, 7, rss.ID))
	err = svc.Unsubscribe(ctx, 7, rss.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	subs, err = svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestFavorites(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	ctx := context.Background()
	id, err := store.UpsertArticle(ctx, &models.Article{Title: "a", Link: "https://a"})
	require.NoError(t, err)

	require.NoError(t, svc.AddFavorite(ctx, 7, id))
	require.NoError(t, svc.AddFavorite(ctx, 7, id))
	hits, err := store.LexicalRecall(ctx, "a", storage.FavoritesOf(7), 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, hits)

	err = svc.AddFavorite(ctx, 7, id+100)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	err = svc.AddFavorite(ctx, 7, 0)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	require.NoError(t, svc.RemoveFavorite(ctx, 7, id))
	hits, err = store.LexicalRecall(ctx, "a", storage.FavoritesOf(7), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCreateTopic_NoEmbedder(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.CreateTopic(context.Background(), "go")
	assert.True(t, errors.Is(err, models.ErrEmbeddingUnavailable))
}
