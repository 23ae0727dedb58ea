package embedding

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIEmbedder produces embeddings through the OpenAI embeddings API or any
// OpenAI-compatible endpoint. Failed requests degrade to zero vectors of the
// declared dimension; they are never surfaced as errors.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
	cache      *Cache
	logger     *zap.Logger
}

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey     string
	Endpoint   string // base URL override, e.g. a local OpenAI-compatible server
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewOpenAIEmbedder creates an embedder against the OpenAI API. cache may be nil.
func NewOpenAIEmbedder(cfg OpenAIConfig, cache *Cache, logger *zap.Logger) *OpenAIEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: dimensions,
		timeout:    timeout,
		cache:      cache,
		logger:     logger,
	}
}

// Embed returns the embedding for text, consulting the cache first.
// On request failure a zero vector is returned.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch partitions texts into cached and uncached, issues one batched
// request for the uncached subset, and reassembles the output in input order.
// A failed request yields zero vectors for the uncached texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var uncached []string
	var uncachedIdx []int
	for i, text := range texts {
		if e.cache != nil {
			if cached, ok := e.cache.Get(text, e.model); ok {
				out[i] = cached
				continue
			}
		}
		uncached = append(uncached, text)
		uncachedIdx = append(uncachedIdx, i)
	}
	if len(uncached) == 0 {
		return out, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: uncached,
	})
	if err != nil || len(resp.Data) != len(uncached) {
		e.logger.Warn("embedding request failed, degrading to zero vectors",
			zap.Int("texts", len(uncached)),
			zap.Error(err),
		)
		for _, i := range uncachedIdx {
			out[i] = make([]float32, e.dimensions)
		}
		return out, nil
	}

	for j, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		copy(vec, data.Embedding)
		out[uncachedIdx[j]] = vec
		if e.cache != nil {
			e.cache.Set(uncached[j], e.model, vec)
		}
	}
	return out, nil
}

// Dimensions returns the declared embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the configured model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
