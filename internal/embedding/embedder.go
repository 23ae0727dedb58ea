// Package embedding provides text embedding with pluggable providers and a
// two-tier (memory + disk) content-addressed cache.
package embedding

import "context"

// Embedder produces vector embeddings for text.
//
// Transient provider failures degrade to a zero vector of the declared
// dimension rather than an error, so downstream ranking stays computable;
// a zero vector scores near zero against everything.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}
