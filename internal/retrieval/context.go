package retrieval

import (
	"strings"

	"github.com/hyperjump/kensho/internal/models"
)

// buildContext buckets fused items by source type and collects the known
// entity names appearing in item metadata. The known-entity set is what lets
// the validator accept entities corroborated by retrieval.
func buildContext(query string, items []*models.RetrievedItem) *models.RAGContext {
	ctx := &models.RAGContext{
		Query:         query,
		Items:         items,
		KnownEntities: make(map[string]bool),
	}

	for _, item := range items {
		switch sourceType(item) {
		case "template":
			ctx.Templates = append(ctx.Templates, item)
		case "skill":
			ctx.Skills = append(ctx.Skills, item)
		case "lineage":
			ctx.LineagePaths = append(ctx.LineagePaths, item)
		case "glossary":
			ctx.GlossaryTerms = append(ctx.GlossaryTerms, item)
		case "catalog":
			ctx.CatalogAssets = append(ctx.CatalogAssets, item)
		case "hierarchy":
			ctx.Hierarchies = append(ctx.Hierarchies, item)
		}
		collectKnownEntities(ctx.KnownEntities, item.Metadata)
	}
	return ctx
}

func sourceType(item *models.RetrievedItem) string {
	if item.Metadata == nil {
		return ""
	}
	st, _ := item.Metadata["source_type"].(string)
	return st
}

// entityMetadataKeys are the metadata fields whose values name entities
// legitimate for this query.
var entityMetadataKeys = []string{"table", "columns", "hierarchy", "project"}

func collectKnownEntities(known map[string]bool, metadata map[string]interface{}) {
	for _, key := range entityMetadataKeys {
		value, ok := metadata[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			addKnown(known, v)
		case []string:
			for _, name := range v {
				addKnown(known, name)
			}
		case []interface{}:
			for _, entry := range v {
				if name, ok := entry.(string); ok {
					addKnown(known, name)
				}
			}
		}
	}
}

func addKnown(known map[string]bool, name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		known[name] = true
	}
}
