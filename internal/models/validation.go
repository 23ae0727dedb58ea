package models

// Severity grades a validation issue. Only error-severity issues make a
// result invalid (warnings too, in strict mode).
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ArtifactKind selects the validation strategy for an artifact.
type ArtifactKind string

const (
	ArtifactKindQuery     ArtifactKind = "query"
	ArtifactKindHierarchy ArtifactKind = "hierarchy"
	ArtifactKindPipeline  ArtifactKind = "pipeline"
	ArtifactKindConfig    ArtifactKind = "config"
)

// ValidationIssue is one finding from validating an artifact.
type ValidationIssue struct {
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Entity     string   `json:"entity,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ValidationResult is the outcome of validating one artifact.
type ValidationResult struct {
	Valid              bool               `json:"valid"`
	Issues             []*ValidationIssue `json:"issues"`
	ReferencedEntities []string           `json:"referenced_entities"`
	VerifiedEntities   []string           `json:"verified_entities"`
	MissingEntities    []string           `json:"missing_entities"`
	Suggestions        map[string]string  `json:"suggestions,omitempty"`
}

// NewValidationResult returns an empty result, valid until issues say otherwise.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:              true,
		Issues:             make([]*ValidationIssue, 0),
		ReferencedEntities: make([]string, 0),
		VerifiedEntities:   make([]string, 0),
		MissingEntities:    make([]string, 0),
	}
}

// AddIssue appends an issue to the result.
func (r *ValidationResult) AddIssue(severity Severity, message, entity string) {
	r.Issues = append(r.Issues, &ValidationIssue{Severity: severity, Message: message, Entity: entity})
}

// Finalize recomputes Valid from the collected issues. In strict mode
// warnings also invalidate the result.
func (r *ValidationResult) Finalize(strict bool) {
	r.Valid = true
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			r.Valid = false
			return
		}
		if strict && issue.Severity == SeverityWarning {
			r.Valid = false
			return
		}
	}
}
