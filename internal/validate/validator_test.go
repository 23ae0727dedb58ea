package validate

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/catalog"
	"github.com/hyperjump/kensho/internal/config"
	"github.com/hyperjump/kensho/internal/extract"
	"github.com/hyperjump/kensho/internal/models"
)

func newTestValidator(t *testing.T, strict bool) *Validator {
	t.Helper()

	cat, err := catalog.NewMemoryCatalog()
	if err != nil {
		t.Fatalf("NewMemoryCatalog() error = %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	assets := []*catalog.Asset{
		{Name: "customers", Type: "table", Columns: []string{"id", "name", "region"}},
		{Name: "orders", Type: "table", Columns: []string{"order_id", "customer_id", "amount"},
			FullyQualifiedName: "warehouse.sales.orders"},
	}
	for _, asset := range assets {
		if err := cat.AddAsset(asset); err != nil {
			t.Fatalf("AddAsset() error = %v", err)
		}
	}

	hier := catalog.NewMemoryHierarchyStore()
	hier.AddProject(&catalog.Project{ID: "p1", Name: "finance"})
	hier.AddHierarchy(&catalog.Hierarchy{HierarchyID: "h1", HierarchyName: "cost_centers", ProjectID: "p1"})

	extractor := extract.NewExtractor(cat, hier, catalog.NewMemoryGlossaryStore(), zap.NewNop())
	if err := extractor.RefreshSnapshot(context.Background()); err != nil {
		t.Fatalf("RefreshSnapshot() error = %v", err)
	}

	cfg := &config.ValidationConfig{Strict: strict, SuggestionThreshold: 0.6}
	return NewValidator(extractor, cfg, zap.NewNop())
}

func contains(list []string, name string) bool {
	for _, entry := range list {
		if entry == name {
			return true
		}
	}
	return false
}

func hasSeverity(issues []*models.ValidationIssue, severity models.Severity) bool {
	for _, issue := range issues {
		if issue.Severity == severity {
			return true
		}
	}
	return false
}

func TestValidateQueryKnownTable(t *testing.T) {
	v := newTestValidator(t, false)

	result := v.Validate(context.Background(), "SELECT id FROM CUSTOMERS", models.ArtifactKindQuery, nil)
	if !result.Valid {
		t.Errorf("Valid = false for known table, issues: %+v", result.Issues)
	}
	if !contains(result.VerifiedEntities, "CUSTOMERS") {
		t.Errorf("CUSTOMERS not in VerifiedEntities: %v", result.VerifiedEntities)
	}
	if len(result.MissingEntities) != 0 {
		t.Errorf("MissingEntities = %v, want empty", result.MissingEntities)
	}
}

func TestValidateQueryUnknownTableIsWarning(t *testing.T) {
	v := newTestValidator(t, false)

	result := v.Validate(context.Background(), "SELECT id FROM NONEXISTENT_TABLE", models.ArtifactKindQuery, nil)
	if !result.Valid {
		t.Error("Valid = false; missing tables are warnings, not errors")
	}
	if !contains(result.MissingEntities, "NONEXISTENT_TABLE") {
		t.Errorf("NONEXISTENT_TABLE not in MissingEntities: %v", result.MissingEntities)
	}
	if !hasSeverity(result.Issues, models.SeverityWarning) {
		t.Errorf("no warning issue for unknown table: %+v", result.Issues)
	}
}

func TestValidateQueryStrictMode(t *testing.T) {
	v := newTestValidator(t, true)

	result := v.Validate(context.Background(), "SELECT id FROM NONEXISTENT_TABLE", models.ArtifactKindQuery, nil)
	if result.Valid {
		t.Error("Valid = true in strict mode despite warning issue")
	}
}

func TestValidateQueryCTENotFlagged(t *testing.T) {
	v := newTestValidator(t, false)

	query := "WITH recent AS (SELECT id FROM customers) SELECT id FROM recent"
	result := v.Validate(context.Background(), query, models.ArtifactKindQuery, nil)
	if contains(result.MissingEntities, "recent") {
		t.Errorf("CTE name flagged as missing table: %v", result.MissingEntities)
	}
	if !result.Valid {
		t.Errorf("Valid = false, issues: %+v", result.Issues)
	}
}

func TestValidateQuerySubqueryAlias(t *testing.T) {
	v := newTestValidator(t, false)

	query := "SELECT sub.id FROM (SELECT id FROM customers) sub JOIN sub ON sub.id = sub.id"
	result := v.Validate(context.Background(), query, models.ArtifactKindQuery, nil)
	if contains(result.MissingEntities, "sub") {
		t.Errorf("subquery alias flagged as missing table: %v", result.MissingEntities)
	}
}

func TestValidateQueryDidYouMean(t *testing.T) {
	v := newTestValidator(t, false)

	result := v.Validate(context.Background(), "SELECT name FROM custmers", models.ArtifactKindQuery, nil)
	if result.Suggestions["custmers"] != "customers" {
		t.Errorf("Suggestions = %v, want custmers -> customers", result.Suggestions)
	}
}

func TestValidateQueryAntiPatterns(t *testing.T) {
	v := newTestValidator(t, false)

	result := v.Validate(context.Background(), "SELECT * FROM customers", models.ArtifactKindQuery, nil)
	if !hasSeverity(result.Issues, models.SeverityInfo) {
		t.Errorf("SELECT * produced no info issue: %+v", result.Issues)
	}

	result = v.Validate(context.Background(), "DELETE FROM customers", models.ArtifactKindQuery, nil)
	if !hasSeverity(result.Issues, models.SeverityWarning) {
		t.Errorf("DELETE without WHERE produced no warning: %+v", result.Issues)
	}

	result = v.Validate(context.Background(), "DELETE FROM customers WHERE id = 1", models.ArtifactKindQuery, nil)
	if hasSeverity(result.Issues, models.SeverityWarning) {
		t.Errorf("DELETE with WHERE flagged: %+v", result.Issues)
	}
}

func TestValidateQueryAcceptsContextEntities(t *testing.T) {
	v := newTestValidator(t, false)

	ragCtx := &models.RAGContext{KnownEntities: map[string]bool{"staging_orders": true}}
	result := v.Validate(context.Background(), "SELECT id FROM staging_orders", models.ArtifactKindQuery, ragCtx)
	if !contains(result.VerifiedEntities, "staging_orders") {
		t.Errorf("context-known table not verified: %v", result.VerifiedEntities)
	}
	if len(result.MissingEntities) != 0 {
		t.Errorf("MissingEntities = %v, want empty with context", result.MissingEntities)
	}
}

func TestValidateHierarchySelfParent(t *testing.T) {
	v := newTestValidator(t, false)

	artifact := "hierarchy_id: h9\nparent_id: h9\nproject_id: p1"
	result := v.Validate(context.Background(), artifact, models.ArtifactKindHierarchy, nil)
	if result.Valid {
		t.Error("Valid = true for self-parent hierarchy")
	}
	if !hasSeverity(result.Issues, models.SeverityError) {
		t.Errorf("no error issue for self-parent: %+v", result.Issues)
	}
}

func TestValidateHierarchyNewDefinitionIsInfo(t *testing.T) {
	v := newTestValidator(t, false)

	artifact := "hierarchy_id: brand_new\nparent_id: h1\nproject_id: p1"
	result := v.Validate(context.Background(), artifact, models.ArtifactKindHierarchy, nil)
	if !result.Valid {
		t.Errorf("Valid = false for new hierarchy definition, issues: %+v", result.Issues)
	}
	if hasSeverity(result.Issues, models.SeverityError) || hasSeverity(result.Issues, models.SeverityWarning) {
		t.Errorf("new hierarchy produced more than info issues: %+v", result.Issues)
	}
	if !contains(result.VerifiedEntities, "h1") {
		t.Errorf("known parent h1 not verified: %v", result.VerifiedEntities)
	}
}

func TestValidateHierarchySourceTableSuggestion(t *testing.T) {
	v := newTestValidator(t, false)

	artifact := "hierarchy_id: h1\nsource_table: custmers"
	result := v.Validate(context.Background(), artifact, models.ArtifactKindHierarchy, nil)
	if result.Suggestions["custmers"] != "customers" {
		t.Errorf("Suggestions = %v, want custmers -> customers", result.Suggestions)
	}
}

func TestValidateHierarchyCalcCrossReference(t *testing.T) {
	v := newTestValidator(t, false)

	artifact := "hierarchy_id: h1\nformula: [ghost_hierarchy] * 1.1"
	result := v.Validate(context.Background(), artifact, models.ArtifactKindHierarchy, nil)
	if !hasSeverity(result.Issues, models.SeverityWarning) {
		t.Errorf("no warning for calc over unknown hierarchy: %+v", result.Issues)
	}

	artifact = "hierarchy_id: h1\nformula: [cost_centers] * 1.1"
	result = v.Validate(context.Background(), artifact, models.ArtifactKindHierarchy, nil)
	if hasSeverity(result.Issues, models.SeverityWarning) {
		t.Errorf("warning for calc over known hierarchy: %+v", result.Issues)
	}
}

func TestValidatePipeline(t *testing.T) {
	v := newTestValidator(t, false)

	artifact := "SELECT * FROM ref('stg_orders') JOIN source('sales', 'customers')"
	result := v.Validate(context.Background(), artifact, models.ArtifactKindPipeline, nil)
	if !contains(result.VerifiedEntities, "stg_orders") {
		t.Errorf("intra-pipeline ref not verified: %v", result.VerifiedEntities)
	}
	if !contains(result.VerifiedEntities, "customers") {
		t.Errorf("known source table not verified: %v", result.VerifiedEntities)
	}

	artifact = "SELECT * FROM source('sales', 'phantom')"
	result = v.Validate(context.Background(), artifact, models.ArtifactKindPipeline, nil)
	if !contains(result.MissingEntities, "phantom") {
		t.Errorf("unknown source table not missing: %v", result.MissingEntities)
	}
	if !hasSeverity(result.Issues, models.SeverityWarning) {
		t.Errorf("no warning for unknown source table: %+v", result.Issues)
	}
}

func TestValidateConfigLastSegment(t *testing.T) {
	v := newTestValidator(t, false)

	result := v.Validate(context.Background(), "source: warehouse.sales.orders", models.ArtifactKindConfig, nil)
	if !contains(result.VerifiedEntities, "warehouse.sales.orders") {
		t.Errorf("dotted table path not verified: %v", result.VerifiedEntities)
	}

	result = v.Validate(context.Background(), "table: warehouse.sales.phantom", models.ArtifactKindConfig, nil)
	if !contains(result.MissingEntities, "warehouse.sales.phantom") {
		t.Errorf("unknown config table not missing: %v", result.MissingEntities)
	}
}

func TestValidateUnknownKindVacuouslyValid(t *testing.T) {
	v := newTestValidator(t, false)

	result := v.Validate(context.Background(), "FROM phantom_table", "something_else", nil)
	if !result.Valid {
		t.Error("unknown kind should be vacuously valid")
	}
	if len(result.Issues) != 0 || len(result.ReferencedEntities) != 0 {
		t.Errorf("unknown kind extracted entities: %+v", result)
	}
}
