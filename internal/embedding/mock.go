package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// MockEmbedder derives a unit-length vector purely from a hash of the input
// text. It is byte-for-byte reproducible for identical input and needs no
// network or model, for offline operation and tests.
type MockEmbedder struct {
	dimensions int
	cache      *Cache
}

// NewMockEmbedder returns a deterministic embedder with the given dimensions.
// cache may be nil.
func NewMockEmbedder(dimensions int, cache *Cache) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions, cache: cache}
}

// Embed returns the deterministic embedding for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(text, e.ModelName()); ok {
			return cached, nil
		}
	}

	sum := sha256.Sum256([]byte(text))
	seed := binary.LittleEndian.Uint64(sum[:8])

	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(seed%100000)*float64(i+1)) * 0.1)
	}
	var norm float64
	for _, v := range emb {
		norm += float64(v * v)
	}
	if norm > 0 {
		inv := 1.0 / math.Sqrt(norm)
		for i := range emb {
			emb[i] *= float32(inv)
		}
	}

	if e.cache != nil {
		e.cache.Set(text, e.ModelName(), emb)
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text, preserving input order.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the synthetic model identifier.
func (e *MockEmbedder) ModelName() string {
	return fmt.Sprintf("mock-%d", e.dimensions)
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
