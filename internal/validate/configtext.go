package validate

import (
	"regexp"

	"github.com/hyperjump/kensho/internal/models"
)

// Table-like keys in configuration text, plain or dotted, e.g.
// "table: orders" or "source = warehouse.sales.orders".
var configTablePattern = regexp.MustCompile(`(?i)\b(?:table|tables|source|target|dataset|relation)\s*[:=]\s*["']?([\w.]+)["']?`)

// validateConfig checks configuration text: the last path segment of each
// table-like value must name a known table.
func (v *Validator) validateConfig(content string, result *models.ValidationResult, ragCtx *models.RAGContext) {
	suggester := v.suggester()

	for _, match := range configTablePattern.FindAllStringSubmatch(content, -1) {
		name := match[1]
		appendUnique(&result.ReferencedEntities, name)
		if v.verify(lastSegment(name), classTable, ragCtx) {
			appendUnique(&result.VerifiedEntities, name)
			continue
		}
		v.recordMissing(result, suggester, models.SeverityWarning,
			"configured table not found in catalog: "+name, name)
	}
}
