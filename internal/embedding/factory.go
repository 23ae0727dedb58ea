package embedding

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/config"
)

// Provider identifies an embedding provider implementation.
type Provider string

const (
	// ProviderOpenAI uses the OpenAI embeddings API or any compatible endpoint.
	ProviderOpenAI Provider = "openai"
	// ProviderONNX runs a local model with ONNX Runtime (requires CGO).
	ProviderONNX Provider = "onnx"
	// ProviderMock derives deterministic vectors from a text hash (no network).
	ProviderMock Provider = "mock"
)

// NewEmbedder creates the embedding provider named by cfg.Provider.
// An unknown provider name is a configuration error and is returned
// immediately rather than degraded.
func NewEmbedder(cfg config.EmbeddingConfig, cache *Cache, logger *zap.Logger) (Embedder, error) {
	switch Provider(cfg.Provider) {
	case ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     apiKey,
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		}, cache, logger), nil
	case ProviderONNX:
		return NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cache, logger)
	case ProviderMock, "":
		return NewMockEmbedder(cfg.Dimensions, cache), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, onnx, mock)", cfg.Provider)
	}
}
