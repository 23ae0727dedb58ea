package models

// EntityKind classifies a reference extracted from free text.
type EntityKind string

const (
	EntityKindTable        EntityKind = "table"
	EntityKindColumn       EntityKind = "column"
	EntityKindHierarchy    EntityKind = "hierarchy"
	EntityKindDomain       EntityKind = "domain"
	EntityKindIndustry     EntityKind = "industry"
	EntityKindGlossaryTerm EntityKind = "glossary_term"
)

// ExtractedEntity is a structural or semantic reference found in query text.
// Confidence is in [0,1]; exact matches against known entities score higher
// than heuristic matches. KnownID links to the known entity when resolvable.
type ExtractedEntity struct {
	Text       string     `json:"text"`
	Kind       EntityKind `json:"kind"`
	Confidence float64    `json:"confidence"`
	KnownID    string     `json:"known_id,omitempty"`
	Position   int        `json:"position"`
}
