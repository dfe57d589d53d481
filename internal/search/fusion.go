// Package search provides hybrid (lexical + semantic) article search, result fusion
// and related-article recommendation.
package search

import (
	"sort"
	"time"

	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/ranking"
	"github.com/hyperjump/rssai/internal/storage"
)

// ScoredItem is a fused search result with its score components.
type ScoredItem struct {
	*models.FeedItem
	Rank      int                    `json:"rank"`
	Lexical   bool                   `json:"lexicalHit"`
	Vector    bool                   `json:"vectorHit"`
	Distance  float64                `json:"distance,omitempty"`
	Breakdown ranking.ScoreBreakdown `json:"score"`
}

// FuseScored merges lexical IDs and vector hits into ranked items. Candidates are taken in
// union order (lexical first, then vector); IDs missing from feeds are dropped. Items are
// sorted by final score descending, ties keeping union order.
func FuseScored(lexicalIDs []int64, hits []storage.VectorHit, feeds map[int64]*models.FeedItem,
	now time.Time, w ranking.Weights) []*ScoredItem {
	w.ApplyDefaults()

	candidates := make(map[int64]*ranking.Candidate, len(lexicalIDs)+len(hits))
	order := make([]int64, 0, len(lexicalIDs)+len(hits))
	candidate := func(id int64) *ranking.Candidate {
		c, ok := candidates[id]
		if !ok {
			c = &ranking.Candidate{ArticleID: id}
			candidates[id] = c
			order = append(order, id)
		}
		return c
	}
	for _, id := range lexicalIDs {
		candidate(id).LexicalHit = true
	}
	for _, h := range hits {
		c := candidate(h.ArticleID)
		// first (nearest) hit wins if an ID repeats
		if !c.VectorHit {
			c.VectorHit = true
			c.Distance = h.Distance
		}
	}

	results := make([]*ScoredItem, 0, len(order))
	for _, id := range order {
		item, ok := feeds[id]
		if !ok || item == nil {
			continue
		}
		c := candidates[id]
		c.PubDate = item.PubDate
		results = append(results, &ScoredItem{
			FeedItem:  item,
			Lexical:   c.LexicalHit,
			Vector:    c.VectorHit,
			Distance:  c.Distance,
			Breakdown: ranking.ScoreWith(w, *c, now),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Breakdown.FinalScore > results[j].Breakdown.FinalScore
	})
	for i, r := range results {
		r.Rank = i + 1
	}
	return results
}

// Fuse is FuseScored without the score components.
func Fuse(lexicalIDs []int64, hits []storage.VectorHit, feeds map[int64]*models.FeedItem,
	now time.Time, w ranking.Weights) []*models.FeedItem {
	return Items(FuseScored(lexicalIDs, hits, feeds, now, w))
}

// Items strips score components.
func Items(scored []*ScoredItem) []*models.FeedItem {
	items := make([]*models.FeedItem, len(scored))
	for i, s := range scored {
		items[i] = s.FeedItem
	}
	return items
}

// unionIDs returns the distinct IDs of both recall sets in union order.
func unionIDs(lexicalIDs []int64, hits []storage.VectorHit) []int64 {
	seen := make(map[int64]struct{}, len(lexicalIDs)+len(hits))
	ids := make([]int64, 0, len(lexicalIDs)+len(hits))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range lexicalIDs {
		add(id)
	}
	for _, h := range hits {
		add(h.ArticleID)
	}
	return ids
}
