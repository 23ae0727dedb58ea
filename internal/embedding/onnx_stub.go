//go:build !cgo
// +build !cgo

// Package embedding provides a stub for the ONNX embedder when built without CGO.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ONNXEmbedder is a stub that returns an error when ONNX is not available.
// Build with CGO_ENABLED=1 and the onnxruntime library to enable it.
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error because ONNX is not available.
func NewONNXEmbedder(_ string, _, _ int, _ *Cache, _ *zap.Logger) (*ONNXEmbedder, error) {
	return nil, fmt.Errorf("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Embed is not implemented without CGO.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("ONNX not available")
}

// EmbedBatch is not implemented without CGO.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("ONNX not available")
}

// Dimensions returns 0 without CGO.
func (e *ONNXEmbedder) Dimensions() int {
	return 0
}

// ModelName returns an empty string without CGO.
func (e *ONNXEmbedder) ModelName() string {
	return ""
}

// Close is a no-op without CGO.
func (e *ONNXEmbedder) Close() error {
	return nil
}
