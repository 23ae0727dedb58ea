package models

// RetrievalSource identifies which retrieval pass produced a candidate.
type RetrievalSource string

const (
	RetrievalSourceVector   RetrievalSource = "vector"
	RetrievalSourceGraph    RetrievalSource = "graph"
	RetrievalSourceLexical  RetrievalSource = "lexical"
	RetrievalSourceTemplate RetrievalSource = "template"
)

// RetrievedItem is one candidate result. SourceScore is the raw per-source
// score; Score and Rank are assigned by fusion (Rank is 1-based).
type RetrievedItem struct {
	ID          string                 `json:"id"`
	Source      RetrievalSource        `json:"source"`
	Content     string                 `json:"content"`
	SourceScore float64                `json:"source_score"`
	Score       float64                `json:"score"`
	Rank        int                    `json:"rank"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// RAGContext is the assembled evidence for one query. It is read-only after
// construction. KnownEntities holds the table/column/hierarchy names seen in
// any retrieved item's metadata; the validator accepts these as legitimate.
type RAGContext struct {
	Query         string           `json:"query"`
	Items         []*RetrievedItem `json:"items"`
	Templates     []*RetrievedItem `json:"templates,omitempty"`
	Skills        []*RetrievedItem `json:"skills,omitempty"`
	LineagePaths  []*RetrievedItem `json:"lineage_paths,omitempty"`
	GlossaryTerms []*RetrievedItem `json:"glossary_terms,omitempty"`
	CatalogAssets []*RetrievedItem `json:"catalog_assets,omitempty"`
	Hierarchies   []*RetrievedItem `json:"hierarchies,omitempty"`
	KnownEntities map[string]bool  `json:"known_entities,omitempty"`
	QueryTime     int64            `json:"query_time_ms"`
}

// HasKnownEntity reports whether name is in the context's known-entity set
// (case-insensitive membership is the caller's concern; names are stored
// lowercased).
func (c *RAGContext) HasKnownEntity(name string) bool {
	if c == nil || c.KnownEntities == nil {
		return false
	}
	return c.KnownEntities[name]
}
