package validate

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kensho/internal/models"
)

var (
	// CTE declarations: "WITH name AS (" and ", name AS (".
	ctePattern = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*)\s+AS\s*\(`)

	// Subquery aliases: a name directly after a closing paren.
	subqueryAliasPattern = regexp.MustCompile(`\)\s*(?:(?i:AS)\s+)?([A-Za-z_]\w*)`)

	selectStarPattern   = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	deleteUpdatePattern = regexp.MustCompile(`(?i)\b(DELETE\s+FROM|UPDATE)\s+[A-Za-z_][\w.]*`)
	whereClausePattern  = regexp.MustCompile(`(?i)\bWHERE\b`)
)

// sqlKeywordAliasGuard keeps SQL keywords from being read as subquery aliases.
var sqlKeywordAliasGuard = map[string]bool{
	"as": true, "on": true, "where": true, "group": true, "order": true,
	"join": true, "inner": true, "left": true, "right": true, "union": true,
	"select": true, "from": true, "and": true, "or": true, "having": true,
	"limit": true,
}

// validateQuery checks free-form query-like text. Tables are verified against
// the snapshot; CTE names and subquery aliases are never flagged. Unknown
// tables are warnings with a "did you mean" suggestion when one is close
// enough. Column findings are informational only since the column heuristic
// is noisy.
func (v *Validator) validateQuery(content string, result *models.ValidationResult, ragCtx *models.RAGContext) {
	cteNames := make(map[string]bool)
	for _, match := range ctePattern.FindAllStringSubmatch(content, -1) {
		cteNames[strings.ToLower(match[1])] = true
	}
	aliases := make(map[string]bool)
	for _, match := range subqueryAliasPattern.FindAllStringSubmatch(content, -1) {
		name := strings.ToLower(match[1])
		if !sqlKeywordAliasGuard[name] {
			aliases[name] = true
		}
	}

	suggester := v.suggester()
	for _, entity := range v.extractor.Extract(content) {
		switch entity.Kind {
		case models.EntityKindTable:
			// A name followed by an opening paren is a call, not a table,
			// e.g. ref('x') in pipeline text.
			if isCallSite(content, entity.Position+len(entity.Text)) {
				continue
			}
			name := strings.ToLower(entity.Text)
			appendUnique(&result.ReferencedEntities, entity.Text)
			if cteNames[name] || aliases[name] {
				appendUnique(&result.VerifiedEntities, entity.Text)
				continue
			}
			if v.verify(entity.Text, classTable, ragCtx) {
				appendUnique(&result.VerifiedEntities, entity.Text)
				continue
			}
			v.recordMissing(result, suggester, models.SeverityWarning,
				"table not found in catalog: "+entity.Text, entity.Text)
		case models.EntityKindColumn:
			if v.verify(entity.Text, classColumn, ragCtx) {
				continue
			}
			result.AddIssue(models.SeverityInfo,
				"column not found in any known table: "+entity.Text, entity.Text)
		}
	}

	v.checkAntiPatterns(content, result)
}

func isCallSite(content string, offset int) bool {
	for offset < len(content) && content[offset] == ' ' {
		offset++
	}
	return offset < len(content) && content[offset] == '('
}

// checkAntiPatterns flags query shapes worth a second look independent of
// entity verification.
func (v *Validator) checkAntiPatterns(content string, result *models.ValidationResult) {
	if selectStarPattern.MatchString(content) {
		result.AddIssue(models.SeverityInfo,
			"SELECT * returns all columns; prefer an explicit column list", "")
	}
	if deleteUpdatePattern.MatchString(content) && !whereClausePattern.MatchString(content) {
		result.AddIssue(models.SeverityWarning,
			"DELETE or UPDATE without a WHERE clause affects every row", "")
	}
}
