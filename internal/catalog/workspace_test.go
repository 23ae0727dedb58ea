package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWorkspaceEmptyPath(t *testing.T) {
	ws, err := LoadWorkspace("")
	if err != nil {
		t.Fatalf("LoadWorkspace() error = %v", err)
	}
	defer ws.Close()
	assets, err := ws.Catalog.ListAssets(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListAssets() error = %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("assets = %d, want 0", len(assets))
	}
}

func TestLoadWorkspaceFromFile(t *testing.T) {
	content := `{
		"assets": [{"name": "orders", "type": "table", "columns": ["order_id", "amount"]}],
		"projects": [{"id": "p1", "name": "Finance"}],
		"hierarchies": [{"hierarchy_id": "h1", "hierarchy_name": "cost_centers", "project_id": "p1"}],
		"graphs": [{"name": "warehouse", "nodes": [{"id": "n1", "name": "orders"}], "edges": []}],
		"templates": [{"id": "t1", "name": "monthly orders"}],
		"skills": [{"id": "s1", "name": "revenue analysis"}],
		"terms": [{"id": "g1", "name": "net revenue", "definition": "revenue minus returns"}]
	}`
	path := filepath.Join(t.TempDir(), "workspace.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ws, err := LoadWorkspace(path)
	if err != nil {
		t.Fatalf("LoadWorkspace() error = %v", err)
	}
	defer ws.Close()
	ctx := context.Background()

	assets, err := ws.Catalog.ListAssets(ctx, nil)
	if err != nil || len(assets) != 1 {
		t.Fatalf("assets = %d (err %v), want 1", len(assets), err)
	}
	if assets[0].Name != "orders" {
		t.Errorf("asset name = %q", assets[0].Name)
	}
	hierarchies, err := ws.Hierarchies.ListHierarchies(ctx, "p1")
	if err != nil || len(hierarchies) != 1 {
		t.Fatalf("hierarchies = %d (err %v), want 1", len(hierarchies), err)
	}
	graphs, err := ws.Lineage.ListGraphs(ctx)
	if err != nil || len(graphs) != 1 {
		t.Fatalf("graphs = %d (err %v), want 1", len(graphs), err)
	}
	templates, err := ws.Templates.ListTemplates(ctx, "", "")
	if err != nil || len(templates) != 1 {
		t.Fatalf("templates = %d (err %v), want 1", len(templates), err)
	}
	terms, err := ws.Glossary.ListTerms(ctx)
	if err != nil || len(terms) != 1 {
		t.Fatalf("terms = %d (err %v), want 1", len(terms), err)
	}
}

func TestLoadWorkspaceBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadWorkspace(path); err == nil {
		t.Error("expected parse error")
	}
}
