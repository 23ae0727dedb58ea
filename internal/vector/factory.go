package vector

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/config"
)

// Backend identifies a vector store implementation.
type Backend string

const (
	// BackendSQLite keeps everything in a single local file. Default.
	BackendSQLite Backend = "sqlite"
	// BackendWeaviate talks to an external Weaviate instance.
	BackendWeaviate Backend = "weaviate"
)

// NewStore creates a vector store for the configured backend.
// Supported backends: "sqlite" (default), "weaviate".
func NewStore(cfg config.VectorConfig, dimension int, logger *zap.Logger) (Store, error) {
	switch Backend(cfg.Backend) {
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath, dimension, logger)
	case BackendWeaviate:
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return NewWeaviateStore(cfg.WeaviateHost, cfg.WeaviateScheme, cfg.WeaviateClass, dimension, timeout, logger)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: sqlite, weaviate)", cfg.Backend)
	}
}
