package extract

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/catalog"
	"github.com/hyperjump/kensho/internal/models"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()

	cat, err := catalog.NewMemoryCatalog()
	if err != nil {
		t.Fatalf("NewMemoryCatalog() error = %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	if err := cat.AddAsset(&catalog.Asset{
		Name:               "orders",
		Type:               "table",
		Columns:            []string{"order_id", "customer_id", "amount"},
		FullyQualifiedName: "warehouse.sales.orders",
	}); err != nil {
		t.Fatalf("AddAsset() error = %v", err)
	}
	if err := cat.AddAsset(&catalog.Asset{
		Name:    "customers",
		Type:    "table",
		Columns: []string{"customer_id", "name", "region"},
	}); err != nil {
		t.Fatalf("AddAsset() error = %v", err)
	}

	hier := catalog.NewMemoryHierarchyStore()
	hier.AddProject(&catalog.Project{ID: "p1", Name: "Finance"})
	hier.AddHierarchy(&catalog.Hierarchy{
		HierarchyID:   "h1",
		HierarchyName: "cost_centers",
		ProjectID:     "p1",
	})

	gloss := catalog.NewMemoryGlossaryStore()
	gloss.AddTerm(&catalog.GlossaryTerm{ID: "g1", Name: "net revenue"})

	e := NewExtractor(cat, hier, gloss, zap.NewNop())
	if err := e.RefreshSnapshot(context.Background()); err != nil {
		t.Fatalf("RefreshSnapshot() error = %v", err)
	}
	return e
}

func findEntity(entities []*models.ExtractedEntity, text string, kind models.EntityKind) *models.ExtractedEntity {
	for _, entity := range entities {
		if entity.Text == text && entity.Kind == kind {
			return entity
		}
	}
	return nil
}

func countKind(entities []*models.ExtractedEntity, kind models.EntityKind) int {
	n := 0
	for _, entity := range entities {
		if entity.Kind == kind {
			n++
		}
	}
	return n
}

func TestExtractKnownTable(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("SELECT order_id FROM orders")
	entity := findEntity(entities, "orders", models.EntityKindTable)
	if entity == nil {
		t.Fatalf("no table entity for orders in %v", entities)
	}
	if entity.Confidence != confidenceTableKnown {
		t.Errorf("Confidence = %f, want %f for known table", entity.Confidence, confidenceTableKnown)
	}
	if entity.KnownID == "" {
		t.Error("KnownID empty for known table")
	}
}

func TestExtractUnknownTableKept(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("SELECT * FROM future_table")
	entity := findEntity(entities, "future_table", models.EntityKindTable)
	if entity == nil {
		t.Fatal("unknown table was discarded")
	}
	if entity.Confidence != confidenceTableUnknown {
		t.Errorf("Confidence = %f, want %f for unknown table", entity.Confidence, confidenceTableUnknown)
	}
	if entity.KnownID != "" {
		t.Errorf("KnownID = %q, want empty for unknown table", entity.KnownID)
	}
}

func TestExtractDeduplicatesRepeatedTable(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("SELECT a.order_id FROM orders a JOIN orders b ON a.order_id = b.order_id")
	if n := countKind(entities, models.EntityKindTable); n != 1 {
		t.Errorf("got %d table entities, want 1 after dedup", n)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor(t)
	text := "show net revenue from orders where amount > 100 for hierarchy cost_centers"

	first := e.Extract(text)
	second := e.Extract(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs:\n%v\n%v", first, second)
	}
}

func TestExtractStoplistFiltersKeywords(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("SELECT * FROM select")
	if entity := findEntity(entities, "select", models.EntityKindTable); entity != nil {
		t.Errorf("stoplisted keyword extracted as table: %v", entity)
	}
}

func TestExtractFullyQualifiedTable(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("SELECT amount FROM warehouse.sales.orders")
	entity := findEntity(entities, "warehouse.sales.orders", models.EntityKindTable)
	if entity == nil {
		t.Fatal("fully qualified table not extracted")
	}
	if entity.Confidence != confidenceTableKnown {
		t.Errorf("Confidence = %f, want %f", entity.Confidence, confidenceTableKnown)
	}
}

func TestExtractColumnBeforeComparison(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("FROM orders WHERE amount > 100")
	entity := findEntity(entities, "amount", models.EntityKindColumn)
	if entity == nil {
		t.Fatal("column before comparison not extracted")
	}
	if entity.Confidence != confidenceColumnKnown {
		t.Errorf("Confidence = %f, want %f for known column", entity.Confidence, confidenceColumnKnown)
	}

	tableEntity := findEntity(entities, "orders", models.EntityKindTable)
	if tableEntity == nil {
		t.Fatal("table entity missing")
	}
	if entity.Confidence >= tableEntity.Confidence {
		t.Errorf("column confidence %f not below table confidence %f", entity.Confidence, tableEntity.Confidence)
	}
}

func TestExtractHierarchyByKnownName(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("roll this up by cost_centers")
	entity := findEntity(entities, "cost_centers", models.EntityKindHierarchy)
	if entity == nil {
		t.Fatal("known hierarchy name not matched as substring")
	}
	if entity.Confidence != confidenceHierarchyKnown {
		t.Errorf("Confidence = %f, want %f", entity.Confidence, confidenceHierarchyKnown)
	}
}

func TestExtractHierarchyTriggerWord(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("use hierarchy regional_rollup for the report")
	entity := findEntity(entities, "regional_rollup", models.EntityKindHierarchy)
	if entity == nil {
		t.Fatal("hierarchy after trigger word not extracted")
	}
	if entity.Confidence != confidenceHierarchyGuess {
		t.Errorf("Confidence = %f, want %f for unknown hierarchy", entity.Confidence, confidenceHierarchyGuess)
	}
}

func TestExtractGlossaryTerm(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("What was Net Revenue last quarter?")
	entity := findEntity(entities, "Net Revenue", models.EntityKindGlossaryTerm)
	if entity == nil {
		t.Fatal("glossary term not matched")
	}
	if entity.KnownID != "g1" {
		t.Errorf("KnownID = %q, want g1", entity.KnownID)
	}
	if entity.Confidence != confidenceGlossary {
		t.Errorf("Confidence = %f, want %f", entity.Confidence, confidenceGlossary)
	}
}

func TestExtractDomainAndIndustry(t *testing.T) {
	e := newTestExtractor(t)

	entities := e.Extract("drilling revenue by well for upstream operations")
	if entity := findEntity(entities, "finance", models.EntityKindDomain); entity == nil {
		t.Error("domain not classified from revenue keyword")
	}
	if entity := findEntity(entities, "oil_gas", models.EntityKindIndustry); entity == nil {
		t.Error("industry not classified from drilling keyword")
	}
}

func TestEnrichQuery(t *testing.T) {
	e := newTestExtractor(t)

	q := &models.RetrievalQuery{Query: "total revenue from orders at the wellhead"}
	e.EnrichQuery(q)

	if len(q.Entities) == 0 {
		t.Fatal("EnrichQuery() left entities empty")
	}
	if q.Domain != "finance" {
		t.Errorf("Domain = %q, want finance", q.Domain)
	}
	if q.Industry != "oil_gas" {
		t.Errorf("Industry = %q, want oil_gas", q.Industry)
	}
}

func TestEnrichQueryKeepsCallerValues(t *testing.T) {
	e := newTestExtractor(t)

	q := &models.RetrievalQuery{Query: "total revenue from orders", Domain: "sales"}
	e.EnrichQuery(q)
	if q.Domain != "sales" {
		t.Errorf("Domain = %q, want caller-set sales preserved", q.Domain)
	}
}

func TestExtractEmptySnapshot(t *testing.T) {
	e := NewExtractor(nil, nil, nil, zap.NewNop())

	entities := e.Extract("SELECT * FROM orders")
	entity := findEntity(entities, "orders", models.EntityKindTable)
	if entity == nil {
		t.Fatal("extraction against empty snapshot dropped table ref")
	}
	if entity.Confidence != confidenceTableUnknown {
		t.Errorf("Confidence = %f, want %f with empty snapshot", entity.Confidence, confidenceTableUnknown)
	}
}
