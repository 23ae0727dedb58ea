// Package catalog defines the read-only collaborator interfaces the retrieval
// engine consumes: the metadata catalog, hierarchy definitions, the lineage
// graph, the template/skill library, and the business glossary. The engine
// never owns their persistence; it only reads through these interfaces.
package catalog

import "context"

// Asset is one entry in the metadata catalog (a table, view, or dataset).
type Asset struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	Description        string   `json:"description,omitempty"`
	Columns            []string `json:"columns,omitempty"`
	FullyQualifiedName string   `json:"fully_qualified_name,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

// AssetFilter restricts ListAssets. Zero values match everything.
type AssetFilter struct {
	Type string
	Tag  string
}

// AssetSearchResult is one hit from the catalog's own keyword search.
type AssetSearchResult struct {
	Asset *Asset  `json:"asset"`
	Score float64 `json:"score"`
}

// Catalog is the metadata catalog lookup interface.
type Catalog interface {
	ListAssets(ctx context.Context, filter *AssetFilter) ([]*Asset, error)
	Search(ctx context.Context, query string, limit int) ([]*AssetSearchResult, error)
}

// Project groups hierarchy definitions.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HierarchyMapping binds a hierarchy member to its source table.
type HierarchyMapping struct {
	Member      string `json:"member"`
	SourceTable string `json:"source_table"`
}

// Hierarchy is one hierarchy definition within a project.
type Hierarchy struct {
	HierarchyID   string              `json:"hierarchy_id"`
	HierarchyName string              `json:"hierarchy_name"`
	ParentID      string              `json:"parent_id,omitempty"`
	ProjectID     string              `json:"project_id"`
	Levels        []string            `json:"levels,omitempty"`
	Mappings      []*HierarchyMapping `json:"mappings,omitempty"`
	Formulas      map[string]string   `json:"formulas,omitempty"`
}

// HierarchyStore is the hierarchy definition lookup interface.
type HierarchyStore interface {
	ListProjects(ctx context.Context) ([]*Project, error)
	ListHierarchies(ctx context.Context, projectID string) ([]*Hierarchy, error)
}

// LineageNode is one node in a lineage graph.
type LineageNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// LineageEdge is a directed edge from upstream to downstream.
type LineageEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// LineageGraph is a named graph of nodes and edges.
type LineageGraph struct {
	Name  string         `json:"name"`
	Nodes []*LineageNode `json:"nodes"`
	Edges []*LineageEdge `json:"edges"`
}

// TraversalNode is one node reached by a lineage walk, with its hop distance
// from the origin.
type TraversalNode struct {
	Node  *LineageNode `json:"node"`
	Depth int          `json:"depth"`
}

// LineageStore is the lineage graph lookup interface. Traversals return nodes
// ordered by increasing hop distance, bounded by maxHops.
type LineageStore interface {
	ListGraphs(ctx context.Context) ([]string, error)
	GetGraph(ctx context.Context, name string) (*LineageGraph, error)
	AllUpstream(ctx context.Context, graphName, nodeID string, maxHops int) ([]*TraversalNode, error)
	AllDownstream(ctx context.Context, graphName, nodeID string, maxHops int) ([]*TraversalNode, error)
}

// Template is a reusable query/report template.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Content     string `json:"content,omitempty"`
}

// Skill is a named capability with a description, scoped by domain/industry.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

// TemplateStore is the template/skill library lookup interface. Empty domain
// or industry matches everything.
type TemplateStore interface {
	ListTemplates(ctx context.Context, domain, industry string) ([]*Template, error)
	ListSkills(ctx context.Context, domain, industry string) ([]*Skill, error)
}

// GlossaryTerm is one business glossary entry.
type GlossaryTerm struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// GlossaryStore is the business glossary lookup interface.
type GlossaryStore interface {
	ListTerms(ctx context.Context) ([]*GlossaryTerm, error)
}
