package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// MemoryCatalog is an in-memory Catalog backed by a Bleve index for keyword
// search. It is the reference implementation used by tests and single-process
// deployments; production deployments point the engine at a real catalog
// service instead.
type MemoryCatalog struct {
	assets map[string]*Asset
	index  bleve.Index
	mu     sync.RWMutex
}

// assetDoc is the shape indexed into Bleve for keyword search.
type assetDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Columns     string `json:"columns"`
	Tags        string `json:"tags"`
}

// NewMemoryCatalog creates an empty in-memory catalog with a memory-only
// Bleve keyword index.
func NewMemoryCatalog() (*MemoryCatalog, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so exact identifier
	// words like "orders" match without stem mangling.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("columns", textFieldMapping)
	docMapping.AddFieldMappingsAt("tags", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog index: %w", err)
	}
	return &MemoryCatalog{
		assets: make(map[string]*Asset),
		index:  index,
	}, nil
}

// AddAsset registers an asset and indexes it for keyword search.
// Re-adding an asset with the same key replaces it.
func (c *MemoryCatalog) AddAsset(asset *Asset) error {
	key := asset.FullyQualifiedName
	if key == "" {
		key = asset.Name
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[key] = asset
	return c.index.Index(key, &assetDoc{
		Name:        asset.Name,
		Description: asset.Description,
		Columns:     strings.Join(asset.Columns, " "),
		Tags:        strings.Join(asset.Tags, " "),
	})
}

// ListAssets returns assets matching the filter.
func (c *MemoryCatalog) ListAssets(ctx context.Context, filter *AssetFilter) ([]*Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Asset
	for _, asset := range c.assets {
		if filter != nil {
			if filter.Type != "" && !strings.EqualFold(asset.Type, filter.Type) {
				continue
			}
			if filter.Tag != "" && !hasTag(asset.Tags, filter.Tag) {
				continue
			}
		}
		out = append(out, asset)
	}
	return out, nil
}

// Search runs a Bleve match query over asset names, descriptions, columns,
// and tags, and returns up to limit results with relevance scores.
func (c *MemoryCatalog) Search(ctx context.Context, query string, limit int) ([]*AssetSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit

	c.mu.RLock()
	defer c.mu.RUnlock()
	results, err := c.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	out := make([]*AssetSearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		asset, ok := c.assets[hit.ID]
		if !ok {
			continue
		}
		out = append(out, &AssetSearchResult{Asset: asset, Score: hit.Score})
	}
	return out, nil
}

// Close releases the Bleve index.
func (c *MemoryCatalog) Close() error {
	return c.index.Close()
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// MemoryHierarchyStore is an in-memory HierarchyStore.
type MemoryHierarchyStore struct {
	projects    []*Project
	hierarchies map[string][]*Hierarchy // by project ID
	mu          sync.RWMutex
}

// NewMemoryHierarchyStore creates an empty in-memory hierarchy store.
func NewMemoryHierarchyStore() *MemoryHierarchyStore {
	return &MemoryHierarchyStore{hierarchies: make(map[string][]*Hierarchy)}
}

// AddProject registers a project.
func (s *MemoryHierarchyStore) AddProject(p *Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
}

// AddHierarchy registers a hierarchy under its project.
func (s *MemoryHierarchyStore) AddHierarchy(h *Hierarchy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hierarchies[h.ProjectID] = append(s.hierarchies[h.ProjectID], h)
}

// ListProjects returns all projects.
func (s *MemoryHierarchyStore) ListProjects(ctx context.Context) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Project, len(s.projects))
	copy(out, s.projects)
	return out, nil
}

// ListHierarchies returns the hierarchies of a project. An empty projectID
// returns hierarchies across all projects.
func (s *MemoryHierarchyStore) ListHierarchies(ctx context.Context, projectID string) ([]*Hierarchy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if projectID != "" {
		out := make([]*Hierarchy, len(s.hierarchies[projectID]))
		copy(out, s.hierarchies[projectID])
		return out, nil
	}
	var out []*Hierarchy
	for _, hs := range s.hierarchies {
		out = append(out, hs...)
	}
	return out, nil
}

// MemoryLineageStore is an in-memory LineageStore with BFS traversal.
type MemoryLineageStore struct {
	graphs map[string]*LineageGraph
	mu     sync.RWMutex
}

// NewMemoryLineageStore creates an empty in-memory lineage store.
func NewMemoryLineageStore() *MemoryLineageStore {
	return &MemoryLineageStore{graphs: make(map[string]*LineageGraph)}
}

// AddGraph registers a graph by name, replacing any existing graph with that name.
func (s *MemoryLineageStore) AddGraph(g *LineageGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.Name] = g
}

// ListGraphs returns the names of all graphs.
func (s *MemoryLineageStore) ListGraphs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.graphs))
	for name := range s.graphs {
		names = append(names, name)
	}
	return names, nil
}

// GetGraph returns a graph by name.
func (s *MemoryLineageStore) GetGraph(ctx context.Context, name string) (*LineageGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[name]
	if !ok {
		return nil, fmt.Errorf("lineage graph not found: %s", name)
	}
	return g, nil
}

// AllUpstream walks edges against their direction from nodeID, breadth-first,
// up to maxHops, and returns reached nodes ordered by increasing depth.
func (s *MemoryLineageStore) AllUpstream(ctx context.Context, graphName, nodeID string, maxHops int) ([]*TraversalNode, error) {
	return s.traverse(graphName, nodeID, maxHops, true)
}

// AllDownstream walks edges along their direction from nodeID, breadth-first,
// up to maxHops, and returns reached nodes ordered by increasing depth.
func (s *MemoryLineageStore) AllDownstream(ctx context.Context, graphName, nodeID string, maxHops int) ([]*TraversalNode, error) {
	return s.traverse(graphName, nodeID, maxHops, false)
}

func (s *MemoryLineageStore) traverse(graphName, nodeID string, maxHops int, upstream bool) ([]*TraversalNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[graphName]
	if !ok {
		return nil, fmt.Errorf("lineage graph not found: %s", graphName)
	}

	nodesByID := make(map[string]*LineageNode, len(g.Nodes))
	for _, n := range g.Nodes {
		nodesByID[n.ID] = n
	}
	adjacency := make(map[string][]string)
	for _, e := range g.Edges {
		if upstream {
			adjacency[e.To] = append(adjacency[e.To], e.From)
		} else {
			adjacency[e.From] = append(adjacency[e.From], e.To)
		}
	}

	visited := map[string]bool{nodeID: true}
	frontier := []string{nodeID}
	var out []*TraversalNode
	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adjacency[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				if node, ok := nodesByID[neighbor]; ok {
					out = append(out, &TraversalNode{Node: node, Depth: depth})
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return out, nil
}

// MemoryTemplateStore is an in-memory TemplateStore.
type MemoryTemplateStore struct {
	templates []*Template
	skills    []*Skill
	mu        sync.RWMutex
}

// NewMemoryTemplateStore creates an empty in-memory template/skill store.
func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{}
}

// AddTemplate registers a template.
func (s *MemoryTemplateStore) AddTemplate(t *Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append(s.templates, t)
}

// AddSkill registers a skill.
func (s *MemoryTemplateStore) AddSkill(sk *Skill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = append(s.skills, sk)
}

// ListTemplates returns templates matching domain/industry (empty matches all).
func (s *MemoryTemplateStore) ListTemplates(ctx context.Context, domain, industry string) ([]*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Template
	for _, t := range s.templates {
		if domain != "" && t.Domain != "" && !strings.EqualFold(t.Domain, domain) {
			continue
		}
		if industry != "" && t.Industry != "" && !strings.EqualFold(t.Industry, industry) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// ListSkills returns skills matching domain/industry (empty matches all).
func (s *MemoryTemplateStore) ListSkills(ctx context.Context, domain, industry string) ([]*Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Skill
	for _, sk := range s.skills {
		if domain != "" && sk.Domain != "" && !strings.EqualFold(sk.Domain, domain) {
			continue
		}
		if industry != "" && sk.Industry != "" && !strings.EqualFold(sk.Industry, industry) {
			continue
		}
		out = append(out, sk)
	}
	return out, nil
}

// MemoryGlossaryStore is an in-memory GlossaryStore.
type MemoryGlossaryStore struct {
	terms []*GlossaryTerm
	mu    sync.RWMutex
}

// NewMemoryGlossaryStore creates an empty in-memory glossary.
func NewMemoryGlossaryStore() *MemoryGlossaryStore {
	return &MemoryGlossaryStore{}
}

// AddTerm registers a glossary term.
func (s *MemoryGlossaryStore) AddTerm(t *GlossaryTerm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = append(s.terms, t)
}

// ListTerms returns all glossary terms.
func (s *MemoryGlossaryStore) ListTerms(ctx context.Context) ([]*GlossaryTerm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*GlossaryTerm, len(s.terms))
	copy(out, s.terms)
	return out, nil
}
