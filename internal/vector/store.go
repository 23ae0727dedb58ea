// Package vector provides document stores with similarity search.
package vector

import (
	"context"
	"time"

	"github.com/hyperjump/kensho/internal/models"
)

// Filter restricts a search or delete to documents whose metadata matches
// every key. The reserved key "source_type" matches the document's source
// type; all other keys are compared against the document's metadata by
// equality.
type Filter map[string]interface{}

// SearchResult is a single similarity hit.
type SearchResult struct {
	Document *models.IndexedDocument
	Score    float64 // cosine similarity in [0, 1]
}

// Stats summarizes the contents of a store.
type Stats struct {
	Total        int            `json:"total"`
	BySourceType map[string]int `json:"by_source_type"`
	Dimension    int            `json:"dimension"`
	LastIndexed  time.Time      `json:"last_indexed"`
}

// Store defines vector storage with metadata-filtered similarity search.
type Store interface {
	// Upsert inserts the document or replaces an existing one with the same ID.
	Upsert(ctx context.Context, doc *models.IndexedDocument) error

	// UpsertBatch inserts or replaces multiple documents.
	UpsertBatch(ctx context.Context, docs []*models.IndexedDocument) error

	// Search returns up to topK documents ordered by descending similarity
	// to the query vector. Results below threshold are dropped. A nil or
	// empty filter matches all documents.
	Search(ctx context.Context, query []float32, topK int, filter Filter, threshold float64) ([]*SearchResult, error)

	// Get returns the document with the given ID, or (nil, nil) if absent.
	Get(ctx context.Context, id string) (*models.IndexedDocument, error)

	// Delete removes a document by ID. Returns false if it did not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByFilter removes all documents matching the filter and returns
	// the number removed.
	DeleteByFilter(ctx context.Context, filter Filter) (int, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Stats returns store statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Clear removes all documents and returns the number removed.
	Clear(ctx context.Context) (int, error)

	Close() error
}
