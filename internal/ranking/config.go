package ranking

import "fmt"

// Weights holds the fusion weights for search ranking.
type Weights struct {
	SemanticWeight float64 `yaml:"semantic_weight"` // default: 1.5
	LexicalWeight  float64 `yaml:"lexical_weight"`  // default: 1.0
	DecayPerDay    float64 `yaml:"decay_per_day"`   // default: 0.1
}

// DefaultWeights returns the default fusion weights.
func DefaultWeights() Weights {
	return Weights{
		SemanticWeight: 1.5,
		LexicalWeight:  1.0,
		DecayPerDay:    0.1,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (w *Weights) ApplyDefaults() {
	defaults := DefaultWeights()
	if w.SemanticWeight == 0 {
		w.SemanticWeight = defaults.SemanticWeight
	}
	if w.LexicalWeight == 0 {
		w.LexicalWeight = defaults.LexicalWeight
	}
	if w.DecayPerDay == 0 {
		w.DecayPerDay = defaults.DecayPerDay
	}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	if w.SemanticWeight < 0 || w.LexicalWeight < 0 || w.DecayPerDay < 0 {
		return fmt.Errorf("ranking weights must be non-negative: %+v", w)
	}
	return nil
}
