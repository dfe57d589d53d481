// Package embedding turns text into fixed-dimension vectors via an HTTP provider,
// a local ONNX model or a deterministic mock, with an LRU cache in front.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyEmbedding is returned when a provider answers with no vector.
var ErrEmptyEmbedding = errors.New("empty embedding")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// checkVector verifies v is non-empty and, when dims > 0, has exactly dims components.
func checkVector(v []float32, dims int) error {
	if len(v) == 0 {
		return ErrEmptyEmbedding
	}
	if dims > 0 && len(v) != dims {
		return fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(v), dims)
	}
	return nil
}

// embedEach calls embed for every text in order, stopping at the first error.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
