package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// WorkspaceFile is the on-disk shape of a workspace: collaborator content
// (assets, hierarchies, lineage graphs, templates, skills, glossary terms)
// for single-process deployments that have no external catalog services.
type WorkspaceFile struct {
	Assets      []*Asset        `json:"assets,omitempty"`
	Projects    []*Project      `json:"projects,omitempty"`
	Hierarchies []*Hierarchy    `json:"hierarchies,omitempty"`
	Graphs      []*LineageGraph `json:"graphs,omitempty"`
	Templates   []*Template     `json:"templates,omitempty"`
	Skills      []*Skill        `json:"skills,omitempty"`
	Terms       []*GlossaryTerm `json:"terms,omitempty"`
}

// Workspace bundles in-memory implementations of every collaborator interface.
type Workspace struct {
	Catalog     *MemoryCatalog
	Hierarchies *MemoryHierarchyStore
	Lineage     *MemoryLineageStore
	Templates   *MemoryTemplateStore
	Glossary    *MemoryGlossaryStore
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() (*Workspace, error) {
	cat, err := NewMemoryCatalog()
	if err != nil {
		return nil, err
	}
	return &Workspace{
		Catalog:     cat,
		Hierarchies: NewMemoryHierarchyStore(),
		Lineage:     NewMemoryLineageStore(),
		Templates:   NewMemoryTemplateStore(),
		Glossary:    NewMemoryGlossaryStore(),
	}, nil
}

// LoadWorkspace reads a JSON workspace file and populates in-memory stores
// from it. An empty path returns an empty workspace.
func LoadWorkspace(path string) (*Workspace, error) {
	ws, err := NewWorkspace()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return ws, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace file: %w", err)
	}
	var file WorkspaceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workspace file: %w", err)
	}
	for _, asset := range file.Assets {
		if err := ws.Catalog.AddAsset(asset); err != nil {
			return nil, fmt.Errorf("failed to index asset %s: %w", asset.Name, err)
		}
	}
	for _, p := range file.Projects {
		ws.Hierarchies.AddProject(p)
	}
	for _, h := range file.Hierarchies {
		ws.Hierarchies.AddHierarchy(h)
	}
	for _, g := range file.Graphs {
		ws.Lineage.AddGraph(g)
	}
	for _, t := range file.Templates {
		ws.Templates.AddTemplate(t)
	}
	for _, sk := range file.Skills {
		ws.Templates.AddSkill(sk)
	}
	for _, term := range file.Terms {
		ws.Glossary.AddTerm(term)
	}
	return ws, nil
}

// Close releases workspace resources.
func (w *Workspace) Close() error {
	if w.Catalog != nil {
		return w.Catalog.Close()
	}
	return nil
}
