package embedding

import (
	"context"
	"math"
	"sync"

	"github.com/hyperjump/rssai/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests. It returns a fixed-dimension
// vector derived from the text hash so that the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// StaticEmbedder returns preset vectors per text and Err for anything else.
// Calls are counted so tests can assert on provider traffic.
type StaticEmbedder struct {
	Vectors map[string][]float32
	Err     error
	Dims    int

	mu    sync.Mutex
	calls int
}

// Embed returns the preset vector for text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	if e.Err != nil {
		return nil, e.Err
	}
	return nil, ErrEmptyEmbedding
}

// EmbedBatch calls Embed for each text.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns Dims.
func (e *StaticEmbedder) Dimensions() int {
	return e.Dims
}

// Close is a no-op.
func (e *StaticEmbedder) Close() error {
	return nil
}

// Calls returns the number of Embed calls made so far.
func (e *StaticEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
