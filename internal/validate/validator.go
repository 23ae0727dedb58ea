// Package validate checks machine-generated textual artifacts against the set
// of entities known to exist ("proof of graph"). Findings are data, never
// errors: every call returns a structured result.
package validate

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/config"
	"github.com/hyperjump/kensho/internal/extract"
	"github.com/hyperjump/kensho/internal/models"
)

// entityClass selects which snapshot lookup set verify consults.
type entityClass int

const (
	classTable entityClass = iota
	classColumn
	classHierarchy
	classProject
)

// Validator verifies artifact references against the extractor's known-entity
// snapshot, optionally widened by a retrieval context's known-entity set.
type Validator struct {
	extractor *extract.Extractor
	cfg       *config.ValidationConfig
	logger    *zap.Logger
}

// NewValidator creates a validator sharing the extractor's snapshot.
func NewValidator(extractor *extract.Extractor, cfg *config.ValidationConfig, logger *zap.Logger) *Validator {
	return &Validator{extractor: extractor, cfg: cfg, logger: logger}
}

// Validate checks artifact against the known-entity snapshot using the
// strategy for kind. ragCtx may be nil; when present its known-entity set
// also verifies references, so a generation pipeline can pre-declare entities
// it intends to create. Unknown kinds produce a vacuously valid result.
func (v *Validator) Validate(ctx context.Context, artifact string, kind models.ArtifactKind, ragCtx *models.RAGContext) *models.ValidationResult {
	result := models.NewValidationResult()

	switch kind {
	case models.ArtifactKindQuery:
		v.validateQuery(artifact, result, ragCtx)
	case models.ArtifactKindHierarchy:
		v.validateHierarchy(artifact, result, ragCtx)
	case models.ArtifactKindPipeline:
		v.validatePipeline(artifact, result, ragCtx)
	case models.ArtifactKindConfig:
		v.validateConfig(artifact, result, ragCtx)
	default:
		v.logger.Debug("unknown artifact kind, skipping extraction", zap.String("kind", string(kind)))
	}

	result.Finalize(v.cfg.Strict)
	v.logger.Debug("validated artifact",
		zap.String("kind", string(kind)),
		zap.Bool("valid", result.Valid),
		zap.Int("issues", len(result.Issues)),
		zap.Int("missing", len(result.MissingEntities)))
	return result
}

// verify looks name up case-insensitively in the snapshot set for class, and
// accepts it if the retrieval context already corroborated it.
func (v *Validator) verify(name string, class entityClass, ragCtx *models.RAGContext) bool {
	snap := v.extractor.Snapshot()
	known := false
	switch class {
	case classTable:
		known = snap.KnowsTable(name) || snap.KnowsTable(lastSegment(name))
	case classColumn:
		known = snap.KnowsColumn(name)
	case classHierarchy:
		known = snap.KnowsHierarchy(name)
	case classProject:
		known = snap.KnowsProject(name)
	}
	if known {
		return true
	}
	return ragCtx.HasKnownEntity(strings.ToLower(name))
}

// suggester builds a table-name suggester from the current snapshot. An
// empty snapshot yields no suggestions.
func (v *Validator) suggester() *Suggester {
	snap := v.extractor.Snapshot()
	if len(snap.Tables) == 0 {
		return nil
	}
	names := make([]string, 0, len(snap.Tables))
	for name := range snap.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	threshold := v.cfg.SuggestionThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	return NewSuggester(names, threshold)
}

// recordMissing marks name missing and attaches a suggestion when one exists.
func (v *Validator) recordMissing(result *models.ValidationResult, suggester *Suggester, severity models.Severity, message, name string) {
	appendUnique(&result.MissingEntities, name)
	issue := &models.ValidationIssue{Severity: severity, Message: message, Entity: name}
	if suggestion, ok := suggester.Suggest(name); ok {
		issue.Suggestion = suggestion
		if result.Suggestions == nil {
			result.Suggestions = make(map[string]string)
		}
		result.Suggestions[name] = suggestion
	}
	result.Issues = append(result.Issues, issue)
}

func lastSegment(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func appendUnique(list *[]string, name string) {
	for _, existing := range *list {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	*list = append(*list, name)
}
