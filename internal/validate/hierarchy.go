package validate

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kensho/internal/models"
)

var (
	hierarchyKeyPattern = regexp.MustCompile(`(?i)\bhierarchy(?:_id|_name)?\s*[:=]\s*["']?([\w-]+)["']?`)
	parentKeyPattern    = regexp.MustCompile(`(?i)\bparent(?:_id|_hierarchy)?\s*[:=]\s*["']?([\w-]+)["']?`)
	projectKeyPattern   = regexp.MustCompile(`(?i)\bproject(?:_id|_name)?\s*[:=]\s*["']?([\w-]+)["']?`)
	sourceTablePattern  = regexp.MustCompile(`(?i)\bsource(?:_table)?\s*[:=]\s*["']?([\w.]+)["']?`)

	hierarchyIDOnlyPattern = regexp.MustCompile(`(?i)\bhierarchy_id\s*[:=]\s*["']?([\w-]+)["']?`)
	parentIDOnlyPattern    = regexp.MustCompile(`(?i)\bparent_id\s*[:=]\s*["']?([\w-]+)["']?`)

	// Bracketed references inside calculation or formula expressions.
	calcLinePattern = regexp.MustCompile(`(?i)\b(?:calc\w*|formula\w*)\s*[:=]\s*(.+)`)
	calcRefPattern  = regexp.MustCompile(`\[([^\[\]]+)\]`)
)

// validateHierarchy checks structured hierarchy-definition text. Defining a
// new hierarchy is legitimate, so unknown hierarchy names are informational;
// a hierarchy declared as its own parent is a structural error since the
// self-reference can never resolve into a tree.
func (v *Validator) validateHierarchy(content string, result *models.ValidationResult, ragCtx *models.RAGContext) {
	suggester := v.suggester()

	hierarchyIDs := matches(hierarchyKeyPattern, content)
	parentIDs := matches(parentKeyPattern, content)

	for _, name := range hierarchyIDs {
		appendUnique(&result.ReferencedEntities, name)
		if v.verify(name, classHierarchy, ragCtx) {
			appendUnique(&result.VerifiedEntities, name)
		} else {
			result.AddIssue(models.SeverityInfo,
				"hierarchy not found; treating as a new definition: "+name, name)
		}
	}

	for _, name := range parentIDs {
		appendUnique(&result.ReferencedEntities, name)
		if v.verify(name, classHierarchy, ragCtx) {
			appendUnique(&result.VerifiedEntities, name)
		} else {
			result.AddIssue(models.SeverityInfo,
				"parent hierarchy not found: "+name, name)
		}
	}

	for _, name := range matches(projectKeyPattern, content) {
		appendUnique(&result.ReferencedEntities, name)
		if v.verify(name, classProject, ragCtx) {
			appendUnique(&result.VerifiedEntities, name)
		} else {
			result.AddIssue(models.SeverityInfo, "project not found: "+name, name)
		}
	}

	for _, name := range matches(sourceTablePattern, content) {
		appendUnique(&result.ReferencedEntities, name)
		if v.verify(name, classTable, ragCtx) {
			appendUnique(&result.VerifiedEntities, name)
		} else {
			v.recordMissing(result, suggester, models.SeverityInfo,
				"source table not found in catalog: "+name, name)
		}
	}

	// Calculations over nonexistent hierarchies are likely real mistakes.
	for _, line := range calcLinePattern.FindAllStringSubmatch(content, -1) {
		for _, ref := range calcRefPattern.FindAllStringSubmatch(line[1], -1) {
			name := strings.TrimSpace(ref[1])
			if name == "" {
				continue
			}
			appendUnique(&result.ReferencedEntities, name)
			if v.verify(name, classHierarchy, ragCtx) {
				appendUnique(&result.VerifiedEntities, name)
			} else {
				result.AddIssue(models.SeverityWarning,
					"calculation references unknown hierarchy: "+name, name)
			}
		}
	}

	// Self-parent can never resolve into a valid tree. Only the explicit
	// *_id declarations are compared so a hierarchy named after another
	// hierarchy's ID does not false-positive.
	for _, id := range matches(hierarchyIDOnlyPattern, content) {
		for _, parent := range matches(parentIDOnlyPattern, content) {
			if strings.EqualFold(id, parent) {
				result.AddIssue(models.SeverityError,
					"hierarchy declared as its own parent: "+id, id)
			}
		}
	}
}

func matches(pattern *regexp.Regexp, content string) []string {
	var out []string
	for _, match := range pattern.FindAllStringSubmatch(content, -1) {
		out = append(out, match[1])
	}
	return out
}
