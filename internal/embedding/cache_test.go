package embedding

import (
	"context"
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

// countingEmbedder records every batch it receives.
type countingEmbedder struct {
	MockEmbedder
	batches [][]string
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_OnlyMissesReachInner(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: *NewMockEmbedder(8)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := c.EmbedBatch(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.EmbedBatch(ctx, []string{"b", "c", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.batches) != 2 {
		t.Fatalf("inner called %d times, want 2", len(inner.batches))
	}
	if got := inner.batches[1]; len(got) != 1 || got[0] != "c" {
		t.Errorf("second inner batch = %v, want [c]", got)
	}
	if second[0][0] != first[1][0] || second[2][0] != first[0][0] {
		t.Error("cached vectors not returned in input order")
	}
	if c.Dimensions() != 8 {
		t.Errorf("Dimensions=%d", c.Dimensions())
	}
}
