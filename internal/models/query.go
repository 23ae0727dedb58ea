package models

import "fmt"

// SourceWeights are the per-source weights used by reciprocal rank fusion.
type SourceWeights struct {
	Vector   float64 `json:"vector"`
	Graph    float64 `json:"graph"`
	Lexical  float64 `json:"lexical"`
	Template float64 `json:"template"`
}

// DefaultSourceWeights returns the default fusion weights.
func DefaultSourceWeights() SourceWeights {
	return SourceWeights{Vector: 0.4, Graph: 0.3, Lexical: 0.2, Template: 0.1}
}

// RetrievalQuery is a retrieval request. Each retrieval pass can be toggled
// individually; when none is enabled all four are run.
type RetrievalQuery struct {
	Query           string             `json:"query"`
	Limit           int                `json:"limit,omitempty"`
	Domain          string             `json:"domain,omitempty"`
	Industry        string             `json:"industry,omitempty"`
	Entities        []*ExtractedEntity `json:"entities,omitempty"`
	VectorEnabled   bool               `json:"vector_enabled,omitempty"`
	GraphEnabled    bool               `json:"graph_enabled,omitempty"`
	LexicalEnabled  bool               `json:"lexical_enabled,omitempty"`
	TemplateEnabled bool               `json:"template_enabled,omitempty"`
	Weights         *SourceWeights     `json:"weights,omitempty"`
	MinSimilarity   float64            `json:"min_similarity,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
// Returns an error if the query text is empty; otherwise normalizes the limit,
// enables all passes when none is enabled, and fills in default weights.
func (q *RetrievalQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if !q.VectorEnabled && !q.GraphEnabled && !q.LexicalEnabled && !q.TemplateEnabled {
		q.VectorEnabled = true
		q.GraphEnabled = true
		q.LexicalEnabled = true
		q.TemplateEnabled = true
	}
	if q.Weights == nil {
		w := DefaultSourceWeights()
		q.Weights = &w
	}
	return nil
}
