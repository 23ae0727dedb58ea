package vector

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), 3, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func doc(id string, embedding []float32, sourceType models.SourceType, metadata map[string]interface{}) *models.IndexedDocument {
	return &models.IndexedDocument{
		ID:         id,
		Embedding:  embedding,
		Content:    "content for " + id,
		SourceType: string(sourceType),
		Metadata:   metadata,
	}
}

func TestSQLiteStoreUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := doc("a", []float32{1, 0, 0}, models.SourceTypeCatalog, map[string]interface{}{"table": "orders"})
	if err := store.Upsert(ctx, d); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for existing document")
	}
	if got.Content != d.Content {
		t.Errorf("Content = %q, want %q", got.Content, d.Content)
	}
	if got.SourceType != string(models.SourceTypeCatalog) {
		t.Errorf("SourceType = %q, want %q", got.SourceType, models.SourceTypeCatalog)
	}
	if len(got.Embedding) != 3 || got.Embedding[0] != 1 {
		t.Errorf("Embedding = %v, want [1 0 0]", got.Embedding)
	}
	if got.Metadata["table"] != "orders" {
		t.Errorf("Metadata[table] = %v, want orders", got.Metadata["table"])
	}
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil for missing document", got)
	}
}

func TestSQLiteStoreUpsertReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, doc("a", []float32{1, 0, 0}, models.SourceTypeCatalog, nil)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	updated := doc("a", []float32{0, 1, 0}, models.SourceTypeTemplate, nil)
	updated.Content = "updated"
	if err := store.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert() second error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after upserting same ID", count)
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Content != "updated" {
		t.Errorf("Content = %q, want updated", got.Content)
	}
	if got.SourceType != string(models.SourceTypeTemplate) {
		t.Errorf("SourceType = %q, want %q", got.SourceType, models.SourceTypeTemplate)
	}
}

func TestSQLiteStoreSearchOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []*models.IndexedDocument{
		doc("exact", []float32{1, 0, 0}, models.SourceTypeCatalog, nil),
		doc("close", []float32{0.9, 0.1, 0}, models.SourceTypeCatalog, nil),
		doc("far", []float32{0, 0, 1}, models.SourceTypeCatalog, nil),
	}
	if err := store.UpsertBatch(ctx, docs); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10, nil, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(results))
	}
	if results[0].Document.ID != "exact" || results[1].Document.ID != "close" {
		t.Errorf("order = [%s %s %s], want exact before close before far",
			results[0].Document.ID, results[1].Document.ID, results[2].Document.ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestSQLiteStoreSearchThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, doc("exact", []float32{1, 0, 0}, models.SourceTypeCatalog, nil)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Upsert(ctx, doc("orthogonal", []float32{0, 1, 0}, models.SourceTypeCatalog, nil)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10, nil, 0.5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1 above threshold", len(results))
	}
	if results[0].Document.ID != "exact" {
		t.Errorf("result = %s, want exact", results[0].Document.ID)
	}
}

func TestSQLiteStoreSearchFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []*models.IndexedDocument{
		doc("cat1", []float32{1, 0, 0}, models.SourceTypeCatalog, map[string]interface{}{"project": "alpha"}),
		doc("cat2", []float32{1, 0, 0}, models.SourceTypeCatalog, map[string]interface{}{"project": "beta"}),
		doc("tpl1", []float32{1, 0, 0}, models.SourceTypeTemplate, map[string]interface{}{"project": "alpha"}),
	}
	if err := store.UpsertBatch(ctx, docs); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10, Filter{"source_type": "catalog"}, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("source_type filter returned %d results, want 2", len(results))
	}

	results, err = store.Search(ctx, []float32{1, 0, 0}, 10, Filter{"source_type": "catalog", "project": "alpha"}, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "cat1" {
		t.Fatalf("combined filter returned %v, want only cat1", results)
	}
}

func TestSQLiteStoreSearchTopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := store.Upsert(ctx, doc(id, []float32{1, 0, 0}, models.SourceTypeCatalog, nil)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2, nil, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Search() returned %d results, want 2", len(results))
	}
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, doc("a", []float32{1, 0, 0}, models.SourceTypeCatalog, nil)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	ok, err := store.Delete(ctx, "a")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !ok {
		t.Error("Delete() = false for existing document")
	}

	ok, err = store.Delete(ctx, "a")
	if err != nil {
		t.Fatalf("Delete() second error = %v", err)
	}
	if ok {
		t.Error("Delete() = true for already deleted document")
	}
}

func TestSQLiteStoreDeleteByFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []*models.IndexedDocument{
		doc("cat1", []float32{1, 0, 0}, models.SourceTypeCatalog, map[string]interface{}{"project": "alpha"}),
		doc("cat2", []float32{1, 0, 0}, models.SourceTypeCatalog, map[string]interface{}{"project": "beta"}),
		doc("tpl1", []float32{1, 0, 0}, models.SourceTypeTemplate, nil),
	}
	if err := store.UpsertBatch(ctx, docs); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	deleted, err := store.DeleteByFilter(ctx, Filter{"source_type": "catalog", "project": "alpha"})
	if err != nil {
		t.Fatalf("DeleteByFilter() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteByFilter() = %d, want 1", deleted)
	}

	deleted, err = store.DeleteByFilter(ctx, Filter{"source_type": "catalog"})
	if err != nil {
		t.Fatalf("DeleteByFilter() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteByFilter(source_type) = %d, want 1", deleted)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 remaining", count)
	}
}

func TestSQLiteStoreStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []*models.IndexedDocument{
		doc("cat1", []float32{1, 0, 0}, models.SourceTypeCatalog, nil),
		doc("cat2", []float32{1, 0, 0}, models.SourceTypeCatalog, nil),
		doc("tpl1", []float32{1, 0, 0}, models.SourceTypeTemplate, nil),
	}
	if err := store.UpsertBatch(ctx, docs); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.BySourceType["catalog"] != 2 {
		t.Errorf("BySourceType[catalog] = %d, want 2", stats.BySourceType["catalog"])
	}
	if stats.BySourceType["template"] != 1 {
		t.Errorf("BySourceType[template] = %d, want 1", stats.BySourceType["template"])
	}
	if stats.Dimension != 3 {
		t.Errorf("Dimension = %d, want 3", stats.Dimension)
	}
	if stats.LastIndexed.IsZero() {
		t.Error("LastIndexed is zero after indexing")
	}
}

func TestSQLiteStoreClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.Upsert(ctx, doc(id, []float32{1, 0, 0}, models.SourceTypeCatalog, nil)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	cleared, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cleared != 2 {
		t.Errorf("Clear() = %d, want 2", cleared)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0 after clear", count)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite clamped", []float32{1, 0, 0}, []float32{-1, 0, 0}, 0},
		{"mismatched lengths", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
