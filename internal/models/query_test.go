package models

import "testing"

func TestRetrievalQueryValidate(t *testing.T) {
	q := &RetrievalQuery{}
	if err := q.Validate(); err == nil {
		t.Error("empty query should be invalid")
	}

	q = &RetrievalQuery{Query: "revenue by region"}
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if q.Limit != 10 {
		t.Errorf("default limit should be 10, got %d", q.Limit)
	}
	if !q.VectorEnabled || !q.GraphEnabled || !q.LexicalEnabled || !q.TemplateEnabled {
		t.Error("all passes should be enabled when none is set")
	}
	if q.Weights == nil || q.Weights.Vector != 0.4 {
		t.Errorf("default weights not applied: %+v", q.Weights)
	}
}

func TestRetrievalQueryValidateLimitCap(t *testing.T) {
	q := &RetrievalQuery{Query: "x", Limit: 500}
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if q.Limit != 100 {
		t.Errorf("limit should be capped at 100, got %d", q.Limit)
	}
}

func TestRetrievalQueryValidateKeepsExplicitToggles(t *testing.T) {
	q := &RetrievalQuery{Query: "x", VectorEnabled: true}
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if q.GraphEnabled || q.LexicalEnabled || q.TemplateEnabled {
		t.Error("explicitly toggled query should not enable other passes")
	}
}

func TestValidationResultFinalize(t *testing.T) {
	r := NewValidationResult()
	r.Finalize(false)
	if !r.Valid {
		t.Error("no issues should be valid")
	}

	r.AddIssue(SeverityWarning, "unknown table", "ORDERS2")
	r.Finalize(false)
	if !r.Valid {
		t.Error("warnings should not invalidate in default mode")
	}
	r.Finalize(true)
	if r.Valid {
		t.Error("warnings should invalidate in strict mode")
	}

	r.AddIssue(SeverityError, "self-parent", "H1")
	r.Finalize(false)
	if r.Valid {
		t.Error("errors should always invalidate")
	}
}
