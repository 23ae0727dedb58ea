// Package models defines core data structures for indexed documents, retrieval
// queries, extracted entities, and validation results.
package models

import "time"

// SourceType tags an indexed document with the collaborator it was built from.
// The vector store treats "source_type" as a reserved metadata field so that
// searches can be scoped to one source.
type SourceType string

const (
	SourceTypeCatalog   SourceType = "catalog"
	SourceTypeTemplate  SourceType = "template"
	SourceTypeSkill     SourceType = "skill"
	SourceTypeHierarchy SourceType = "hierarchy"
	SourceTypeLineage   SourceType = "lineage"
	SourceTypeGlossary  SourceType = "glossary"
)

// IndexedDocument is one row in the vector store: a caller-assigned unique ID,
// its embedding, raw content, and free-form metadata.
type IndexedDocument struct {
	ID         string                 `json:"id"`
	Embedding  []float32              `json:"-"`
	Content    string                 `json:"content"`
	SourceType string                 `json:"source_type"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}
