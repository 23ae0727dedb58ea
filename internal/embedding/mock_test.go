package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterminism(t *testing.T) {
	e := NewMockEmbedder(384, nil)
	a, err := e.Embed(context.Background(), "quarterly revenue by region")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), "quarterly revenue by region")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a) != 384 {
		t.Fatalf("expected 384 dimensions, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	e := NewMockEmbedder(64, nil)
	v, err := e.Embed(context.Background(), "orders")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-4 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(sum))
	}
}

func TestMockEmbedderDistinctTexts(t *testing.T) {
	e := NewMockEmbedder(64, nil)
	a, _ := e.Embed(context.Background(), "customers")
	b, _ := e.Embed(context.Background(), "orders")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts should produce distinct embeddings")
	}
}

func TestMockEmbedderBatchOrder(t *testing.T) {
	e := NewMockEmbedder(32, nil)
	texts := []string{"a", "b", "c"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(batch))
	}
	for i, text := range texts {
		single, _ := e.Embed(context.Background(), text)
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("batch[%d] differs from single embedding of %q", i, text)
			}
		}
	}
}

func TestMockEmbedderUsesCache(t *testing.T) {
	cache, err := NewCache(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	e := NewMockEmbedder(16, cache)
	if _, err := e.Embed(context.Background(), "cached text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if _, err := e.Embed(context.Background(), "cached text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	stats := cache.Stats()
	if stats.Hits != 1 {
		t.Errorf("second Embed should hit the cache, hits=%d", stats.Hits)
	}
	if stats.MemoryCount != 1 {
		t.Errorf("expected one cached entry, got %d", stats.MemoryCount)
	}
}
