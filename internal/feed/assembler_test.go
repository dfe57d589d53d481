package feed

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/storage"
)

var now = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	store *storage.SQLStore
	asm   *Assembler
	src   int64
	other int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "rssai.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	src := &models.Source{Name: "Hacker News", URL: "https://news.ycombinator.com/rss"}
	require.NoError(t, store.CreateSource(ctx, src))
	other := &models.Source{Name: "Unfollowed", URL: "https://unfollowed.example.com/rss"}
	require.NoError(t, store.CreateSource(ctx, other))

	asm := NewAssembler(store, &config.FeedConfig{}, nil)
	asm.now = func() time.Time { return now }
	return &fixture{store: store, asm: asm, src: src.ID, other: other.ID}
}

func (f *fixture) article(t *testing.T, title string, sourceID int64, pub time.Time, vec []float32) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.store.UpsertArticle(ctx, &models.Article{
		SourceID: &sourceID, Title: title, Link: "https://example.com/" + title, PubDate: pub,
	})
	require.NoError(t, err)
	if vec != nil {
		require.NoError(t, f.store.SaveExtra(ctx, &models.ArticleExtra{ArticleID: id, Vector: vec, Status: models.AnalysisSuccess}))
	}
	return id
}

func (f *fixture) subscribe(t *testing.T, userID int64, sourceID int64, topic string, vec []float32) *models.Subscription {
	t.Helper()
	ctx := context.Background()
	sub := &models.Subscription{UserID: userID}
	if topic == "" {
		sub.Type = models.SubscriptionRSS
		sub.SourceID = &sourceID
	} else {
		tp := &models.Topic{Content: topic, Vector: vec}
		require.NoError(t, f.store.CreateTopic(ctx, tp))
		sub.Type = models.SubscriptionTopic
		sub.TopicID = &tp.ID
	}
	require.NoError(t, f.store.CreateSubscription(ctx, sub))
	return sub
}

func feedIDs(items []*models.FeedItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestGetFeed_RSSAndTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := now.Add(-2 * time.Hour)
	yesterday := now.Add(-26 * time.Hour)

	t1 := f.article(t, "today-1", f.src, today, nil)
	t2 := f.article(t, "today-2", f.src, today.Add(time.Minute), nil)
	y1 := f.article(t, "yesterday", f.src, yesterday, nil)
	m1 := f.article(t, "older-match", f.other, now.Add(-3*24*time.Hour), []float32{1, 0})
	m2 := f.article(t, "oldest-match", f.other, now.Add(-5*24*time.Hour), []float32{0.9, 0.1})
	f.article(t, "older-miss", f.other, now.Add(-4*24*time.Hour), []float32{0, 1})
	// also a topic match, must not be duplicated
	both := f.article(t, "followed-match", f.src, now.Add(-2*24*time.Hour), []float32{1, 0.01})

	f.subscribe(t, 7, f.src, "", nil)
	f.subscribe(t, 7, 0, "machine learning", []float32{1, 0})

	items, err := f.asm.GetFeed(ctx, 7, nil, "", 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{t2, t1, y1, both, m1, m2}, feedIDs(items))

	items, err = f.asm.GetFeed(ctx, 8, nil, "", 20)
	require.NoError(t, err)
	assert.Empty(t, items, "user without subscriptions")
}

func TestGetFeed_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var all []int64
	base := now.Add(-time.Hour)
	for i := 0; i < 12; i++ {
		// pairs of articles share a timestamp
		all = append(all, f.article(t, "a"+string(rune('a'+i)), f.src, base.Add(-time.Duration(i/2)*time.Minute), nil))
	}
	f.subscribe(t, 7, f.src, "", nil)

	full, err := f.asm.GetFeed(ctx, 7, nil, "", 100)
	require.NoError(t, err)
	require.Len(t, full, 12)

	var paged []int64
	req := &models.FeedRequest{UserID: 7, Size: 5}
	for i := 0; i < 10; i++ {
		page, err := f.asm.Page(ctx, req)
		require.NoError(t, err)
		paged = append(paged, feedIDs(page.Items)...)
		if page.NextCursor == "" {
			break
		}
		req = &models.FeedRequest{UserID: 7, Size: 5, Cursor: page.NextCursor}
	}
	assert.Equal(t, feedIDs(full), paged)
	assert.ElementsMatch(t, all, paged)
}

func TestGetFeed_Cursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.subscribe(t, 7, f.src, "", nil)
	old := f.article(t, "old", f.src, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), nil)
	recent := f.article(t, "new", f.src, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), nil)

	for _, c := range []string{"not-a-date,abc", "2024-05-02T08:00:00Z", "2024-05-02T08:00:00Z,x"} {
		_, err := f.asm.GetFeed(ctx, 7, nil, c, 20)
		assert.True(t, errors.Is(err, models.ErrInvalidInput), "cursor %q", c)
	}

	// zone-less timestamps are read as UTC
	items, err := f.asm.GetFeed(ctx, 7, nil, "2024-05-02T08:00:00,9223372036854775807", 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{recent, old}, feedIDs(items))

	items, err = f.asm.GetFeed(ctx, 7, nil, "2024-05-02T08:00:00Z,"+strconv.FormatInt(recent, 10), 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{old}, feedIDs(items), "the cursor item itself is excluded")

	items, err = f.asm.GetFeed(ctx, 7, nil, "2024-05-02T07:59:59Z,0", 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{old}, feedIDs(items))
}

func TestGetFeed_SubscriptionFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inSource := f.article(t, "source", f.src, now.Add(-time.Hour), nil)
	topical := f.article(t, "topical", f.other, now.Add(-2*time.Hour), []float32{0, 1})

	rss := f.subscribe(t, 7, f.src, "", nil)
	topic := f.subscribe(t, 7, 0, "databases", []float32{0, 1})
	foreign := f.subscribe(t, 9, f.other, "", nil)

	items, err := f.asm.GetFeed(ctx, 7, &rss.ID, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{inSource}, feedIDs(items))

	items, err = f.asm.GetFeed(ctx, 7, &topic.ID, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{topical}, feedIDs(items))

	_, err = f.asm.GetFeed(ctx, 7, &foreign.ID, "", 0)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	missing := int64(12345)
	_, err = f.asm.GetFeed(ctx, 7, &missing, "", 0)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestGetFeed_Size(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		f.article(t, "s"+string(rune('A'+i)), f.src, now.Add(-time.Duration(i+1)*time.Minute), nil)
	}
	f.subscribe(t, 7, f.src, "", nil)

	items, err := f.asm.GetFeed(ctx, 7, nil, "", 0)
	require.NoError(t, err)
	assert.Len(t, items, 20)

	items, err = f.asm.GetFeed(ctx, 7, nil, "", -3)
	require.NoError(t, err)
	assert.Len(t, items, 20)

	f.asm.cfg.MaxSize = 10
	items, err = f.asm.GetFeed(ctx, 7, nil, "", 1000)
	require.NoError(t, err)
	assert.Len(t, items, 10)
}

func TestBuildQuery(t *testing.T) {
	src1, src2, topic1, topic2 := int64(1), int64(2), int64(10), int64(11)
	subs := []*models.Subscription{
		{Type: models.SubscriptionRSS, SourceID: &src1},
		{Type: models.SubscriptionRSS, SourceID: &src2},
		{Type: models.SubscriptionRSS, SourceID: &src1},
		{Type: models.SubscriptionTopic, TopicID: &topic1, TopicVector: []float32{1}},
		{Type: models.SubscriptionTopic, TopicID: &topic1, TopicVector: []float32{1}},
		{Type: models.SubscriptionTopic, TopicID: &topic2},
	}
	q := buildQuery(subs)
	assert.Equal(t, []int64{1, 2}, q.SourceIDs)
	assert.Equal(t, [][]float32{{1}}, q.TopicVectors)

	assert.Empty(t, buildQuery(nil).SourceIDs)
}
