package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestCachedEmbedder_HitsSkipProvider(t *testing.T) {
	inner := &StaticEmbedder{
		Vectors: map[string][]float32{"a": {1, 0}, "b": {0, 1}},
		Dims:    2,
	}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if inner.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", inner.Calls())
	}

	out, err := c.EmbedBatch(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1][1] != 1 {
		t.Errorf("EmbedBatch = %v", out)
	}
	if inner.Calls() != 2 {
		t.Errorf("provider calls = %d, want 2 (only the miss)", inner.Calls())
	}
}

func TestCachedEmbedder_ErrorsNotCached(t *testing.T) {
	inner := &StaticEmbedder{Err: errors.New("down"), Dims: 2}
	c := NewCachedEmbedder(inner, 10)
	for i := 0; i < 2; i++ {
		if _, err := c.Embed(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.Calls() != 2 {
		t.Errorf("provider calls = %d, want 2", inner.Calls())
	}
}

func TestCachedEmbedder_RejectsWrongDimension(t *testing.T) {
	inner := &StaticEmbedder{Vectors: map[string][]float32{"x": {1, 2, 3}}, Dims: 2}
	c := NewCachedEmbedder(inner, 10)
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected dimension error")
	}
}
