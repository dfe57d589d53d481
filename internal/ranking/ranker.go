package ranking

import (
	"sync/atomic"
	"time"
)

// Ranker scores fusion candidates with weights that can be swapped at runtime.
type Ranker struct {
	weights atomic.Pointer[Weights]
}

// NewRanker creates a Ranker. Zero weights are replaced by defaults.
func NewRanker(w Weights) *Ranker {
	r := &Ranker{}
	r.SetWeights(w)
	return r
}

// Weights returns the weights currently in effect.
func (r *Ranker) Weights() Weights {
	return *r.weights.Load()
}

// SetWeights replaces the weights used by subsequent Score calls.
func (r *Ranker) SetWeights(w Weights) {
	w.ApplyDefaults()
	r.weights.Store(&w)
}

// Score computes the fused score of c at time now.
func (r *Ranker) Score(c Candidate, now time.Time) ScoreBreakdown {
	return ScoreWith(r.Weights(), c, now)
}

// ScoreWith computes score = semantic + lexical, decayed by article age.
func ScoreWith(w Weights, c Candidate, now time.Time) ScoreBreakdown {
	var b ScoreBreakdown
	if c.VectorHit {
		b.Semantic = (1 - c.Distance) * w.SemanticWeight
	}
	if c.LexicalHit {
		b.Lexical = w.LexicalWeight
	}
	b.AgeDays = AgeDays(c.PubDate, now)
	b.Decay = RecencyDecay(c.PubDate, now, w.DecayPerDay)
	b.FinalScore = (b.Semantic + b.Lexical) * b.Decay
	return b
}
