package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/catalog"
	"github.com/hyperjump/kensho/internal/config"
	"github.com/hyperjump/kensho/internal/embedding"
	"github.com/hyperjump/kensho/internal/extract"
	"github.com/hyperjump/kensho/internal/models"
	"github.com/hyperjump/kensho/internal/vector"
)

func testConfig() *config.RetrievalConfig {
	return &config.RetrievalConfig{
		DefaultLimit:    10,
		MaxLimit:        100,
		OverfetchFactor: 2,
		RRFConstant:     60,
		GraphMaxHops:    3,
	}
}

type fixture struct {
	retriever *Retriever
	embedder  embedding.Embedder
	store     vector.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	embedder := embedding.NewMockEmbedder(16, nil)

	store, err := vector.NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), 16, logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cat, err := catalog.NewMemoryCatalog()
	if err != nil {
		t.Fatalf("NewMemoryCatalog() error = %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	if err := cat.AddAsset(&catalog.Asset{
		Name:        "orders",
		Type:        "table",
		Description: "customer orders fact table",
		Columns:     []string{"order_id", "customer_id", "amount"},
	}); err != nil {
		t.Fatalf("AddAsset() error = %v", err)
	}

	lineage := catalog.NewMemoryLineageStore()
	lineage.AddGraph(&catalog.LineageGraph{
		Name: "warehouse",
		Nodes: []*catalog.LineageNode{
			{ID: "n1", Name: "raw_orders", Type: "table"},
			{ID: "n2", Name: "orders", Type: "table"},
			{ID: "n3", Name: "orders_summary", Type: "view"},
		},
		Edges: []*catalog.LineageEdge{
			{From: "n1", To: "n2"},
			{From: "n2", To: "n3"},
		},
	})

	templates := catalog.NewMemoryTemplateStore()
	templates.AddTemplate(&catalog.Template{
		ID:          "t1",
		Name:        "orders",
		Description: "orders revenue summary template",
		Domain:      "finance",
	})

	gloss := catalog.NewMemoryGlossaryStore()

	extractor := extract.NewExtractor(cat, catalog.NewMemoryHierarchyStore(), gloss, logger)
	if err := extractor.RefreshSnapshot(ctx); err != nil {
		t.Fatalf("RefreshSnapshot() error = %v", err)
	}

	// Seed the vector store with embedded documents.
	docs := []*models.IndexedDocument{
		{ID: "doc-orders", Content: "orders table holds customer orders", SourceType: string(models.SourceTypeCatalog),
			Metadata: map[string]interface{}{"table": "orders"}},
		{ID: "doc-glossary", Content: "net revenue is recognized revenue minus refunds", SourceType: string(models.SourceTypeGlossary)},
	}
	for _, doc := range docs {
		emb, err := embedder.Embed(ctx, doc.Content)
		if err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		doc.Embedding = emb
		if err := store.Upsert(ctx, doc); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	retriever := NewRetriever(embedder, store, extractor, cat, lineage, templates, testConfig(), logger)
	return &fixture{retriever: retriever, embedder: embedder, store: store}
}

func TestRetrieveReturnsFusedContext(t *testing.T) {
	f := newFixture(t)

	ragCtx, err := f.retriever.Retrieve(context.Background(), &models.RetrievalQuery{
		Query: "revenue FROM orders",
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(ragCtx.Items) == 0 {
		t.Fatal("Retrieve() returned no items")
	}

	for i, it := range ragCtx.Items {
		if it.Rank != i+1 {
			t.Errorf("Items[%d].Rank = %d, want %d", i, it.Rank, i+1)
		}
		if i > 0 && it.Score > ragCtx.Items[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
	if !ragCtx.HasKnownEntity("orders") {
		t.Error("orders missing from KnownEntities despite appearing in item metadata")
	}
}

func TestRetrieveBucketsBySourceType(t *testing.T) {
	f := newFixture(t)

	ragCtx, err := f.retriever.Retrieve(context.Background(), &models.RetrievalQuery{
		Query:  "revenue FROM orders",
		Domain: "finance",
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(ragCtx.LineagePaths) == 0 {
		t.Error("no lineage paths despite orders matching a lineage node")
	}
	if len(ragCtx.Templates) == 0 {
		t.Error("no templates despite name and domain match")
	}
	if len(ragCtx.CatalogAssets) == 0 {
		t.Error("no catalog assets despite lexical match")
	}
}

func TestRetrieveRespectsPassToggles(t *testing.T) {
	f := newFixture(t)

	ragCtx, err := f.retriever.Retrieve(context.Background(), &models.RetrievalQuery{
		Query:          "revenue FROM orders",
		LexicalEnabled: true,
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, it := range ragCtx.Items {
		if it.Source != models.RetrievalSourceLexical {
			t.Errorf("item %s from source %s with only lexical enabled", it.ID, it.Source)
		}
	}
}

func TestRetrieveEmptyQueryFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.retriever.Retrieve(context.Background(), &models.RetrievalQuery{})
	if err == nil {
		t.Fatal("Retrieve() with empty query expected error")
	}
}

type failingCatalog struct{}

func (failingCatalog) ListAssets(ctx context.Context, filter *catalog.AssetFilter) ([]*catalog.Asset, error) {
	return nil, fmt.Errorf("catalog unavailable")
}

func (failingCatalog) Search(ctx context.Context, query string, limit int) ([]*catalog.AssetSearchResult, error) {
	return nil, fmt.Errorf("catalog unavailable")
}

func TestRetrieveDegradesWhenPassFails(t *testing.T) {
	f := newFixture(t)
	logger := zap.NewNop()

	retriever := NewRetriever(f.embedder, f.store, nil, failingCatalog{}, nil, nil, testConfig(), logger)
	ragCtx, err := retriever.Retrieve(context.Background(), &models.RetrievalQuery{
		Query: "orders table holds customer orders",
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want graceful degradation", err)
	}
	if len(ragCtx.Items) == 0 {
		t.Error("vector pass produced nothing while lexical pass failed")
	}
	for _, it := range ragCtx.Items {
		if it.Source == models.RetrievalSourceLexical {
			t.Errorf("item %s from failed lexical pass", it.ID)
		}
	}
}

func TestRetrieveLimitTruncates(t *testing.T) {
	f := newFixture(t)

	ragCtx, err := f.retriever.Retrieve(context.Background(), &models.RetrievalQuery{
		Query: "revenue FROM orders",
		Limit: 1,
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(ragCtx.Items) != 1 {
		t.Errorf("got %d items, want 1", len(ragCtx.Items))
	}
}
