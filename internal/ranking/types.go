// Package ranking provides the fusion scoring used to rank search results.
package ranking

import (
	"math"
	"time"
)

// Candidate is one article under consideration by the ranker.
type Candidate struct {
	ArticleID int64
	PubDate   time.Time
	// LexicalHit is true when lexical recall returned the article.
	LexicalHit bool
	// Distance is the cosine distance from vector recall; only meaningful when VectorHit.
	Distance  float64
	VectorHit bool
}

// ScoreBreakdown provides the components of a fused score for debugging.
type ScoreBreakdown struct {
	// Semantic is (1 - distance) * SemanticWeight, or 0 without a vector hit.
	Semantic float64 `json:"semantic"`
	// Lexical is LexicalWeight, or 0 without a lexical hit.
	Lexical float64 `json:"lexical"`
	// AgeDays is the whole-day age used for the decay.
	AgeDays int64 `json:"ageDays"`
	// Decay is the recency decay factor.
	Decay float64 `json:"decay"`
	// FinalScore is (Semantic + Lexical) * Decay.
	FinalScore float64 `json:"finalScore"`
}

// Rounded returns a copy with components rounded for display.
func (b ScoreBreakdown) Rounded() ScoreBreakdown {
	b.Semantic = round6(b.Semantic)
	b.Lexical = round6(b.Lexical)
	b.Decay = round6(b.Decay)
	b.FinalScore = round6(b.FinalScore)
	return b
}

// CorpusStats holds corpus-level statistics for IDF calculation.
type CorpusStats struct {
	// TotalDocs is the total number of documents in the corpus.
	TotalDocs int
	// DocFrequencies maps terms to the number of documents containing them.
	DocFrequencies map[string]int
}

// NewCorpusStats creates a new CorpusStats instance.
func NewCorpusStats() *CorpusStats {
	return &CorpusStats{
		DocFrequencies: make(map[string]int),
	}
}

// IDF returns the smoothed inverse document frequency log((N+1)/(df+1)) + 1.
// Higher for rare terms; at least 1 for terms present in every document.
func (c *CorpusStats) IDF(term string) float64 {
	if c == nil || c.TotalDocs == 0 {
		return 1.0
	}
	df := c.DocFrequencies[term]
	return math.Log(float64(c.TotalDocs+1)/float64(df+1)) + 1.0
}
