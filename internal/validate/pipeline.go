package validate

import (
	"regexp"

	"github.com/hyperjump/kensho/internal/models"
)

var (
	// ref('model') resolves within the pipeline's own namespace.
	pipelineRefPattern = regexp.MustCompile(`\bref\(\s*['"]([\w.]+)['"]\s*\)`)

	// source('schema', 'table') points at an external table.
	pipelineSourcePattern = regexp.MustCompile(`\bsource\(\s*['"]([\w.]+)['"]\s*,\s*['"]([\w.]+)['"]\s*\)`)
)

// validatePipeline checks pipeline-model text. Intra-pipeline ref() calls
// always verify; source() calls must name known tables. Pipeline models
// commonly embed query text inline, so the query strategy re-runs over the
// same content afterwards.
func (v *Validator) validatePipeline(content string, result *models.ValidationResult, ragCtx *models.RAGContext) {
	suggester := v.suggester()

	for _, match := range pipelineRefPattern.FindAllStringSubmatch(content, -1) {
		appendUnique(&result.ReferencedEntities, match[1])
		appendUnique(&result.VerifiedEntities, match[1])
	}

	for _, match := range pipelineSourcePattern.FindAllStringSubmatch(content, -1) {
		table := match[2]
		appendUnique(&result.ReferencedEntities, table)
		if v.verify(table, classTable, ragCtx) {
			appendUnique(&result.VerifiedEntities, table)
			continue
		}
		v.recordMissing(result, suggester, models.SeverityWarning,
			"pipeline source table not found in catalog: "+table, table)
	}

	v.validateQuery(content, result, ragCtx)
}
