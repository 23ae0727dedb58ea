// Package extract recognizes structural and semantic references in free text:
// table, column, and hierarchy names, domain/industry classification, and
// business glossary terms. Recognition is heuristic and table-driven, not a
// SQL parser.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/catalog"
	"github.com/hyperjump/kensho/internal/models"
)

// Snapshot holds lowercased lookup sets of known entity names. It is
// immutable once built; the extractor swaps whole snapshots on refresh.
type Snapshot struct {
	Tables      map[string]bool
	Columns     map[string]bool
	Hierarchies map[string]bool
	Projects    map[string]bool
	// Glossary maps lowercased term name to term ID.
	Glossary map[string]string

	// hierarchyNames keeps the original casing for substring scans.
	hierarchyNames []string
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Tables:      make(map[string]bool),
		Columns:     make(map[string]bool),
		Hierarchies: make(map[string]bool),
		Projects:    make(map[string]bool),
		Glossary:    make(map[string]string),
	}
}

// KnowsTable reports whether name matches a known table, case-insensitively.
func (s *Snapshot) KnowsTable(name string) bool {
	return s.Tables[strings.ToLower(name)]
}

// KnowsColumn reports whether name matches a known column, case-insensitively.
func (s *Snapshot) KnowsColumn(name string) bool {
	return s.Columns[strings.ToLower(name)]
}

// KnowsHierarchy reports whether name matches a known hierarchy name or ID.
func (s *Snapshot) KnowsHierarchy(name string) bool {
	return s.Hierarchies[strings.ToLower(name)]
}

// KnowsProject reports whether name matches a known project name or ID.
func (s *Snapshot) KnowsProject(name string) bool {
	return s.Projects[strings.ToLower(name)]
}

// Extractor recognizes entities in text against a snapshot of known names.
type Extractor struct {
	catalog     catalog.Catalog
	hierarchies catalog.HierarchyStore
	glossary    catalog.GlossaryStore
	logger      *zap.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewExtractor returns an Extractor with an empty snapshot. Call
// RefreshSnapshot before extraction to load known entity names; extraction
// against an empty snapshot still works, it just cannot mark anything known.
func NewExtractor(cat catalog.Catalog, hier catalog.HierarchyStore, gloss catalog.GlossaryStore, logger *zap.Logger) *Extractor {
	return &Extractor{
		catalog:     cat,
		hierarchies: hier,
		glossary:    gloss,
		logger:      logger,
		snapshot:    NewSnapshot(),
	}
}

// RefreshSnapshot rebuilds the known-entity lookup sets from the catalog,
// hierarchy, and glossary collaborators and atomically swaps them in.
func (e *Extractor) RefreshSnapshot(ctx context.Context) error {
	snap := NewSnapshot()

	if e.catalog != nil {
		assets, err := e.catalog.ListAssets(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to list catalog assets: %w", err)
		}
		for _, asset := range assets {
			snap.Tables[strings.ToLower(asset.Name)] = true
			if asset.FullyQualifiedName != "" {
				snap.Tables[strings.ToLower(asset.FullyQualifiedName)] = true
			}
			for _, col := range asset.Columns {
				snap.Columns[strings.ToLower(col)] = true
			}
		}
	}

	if e.hierarchies != nil {
		projects, err := e.hierarchies.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		for _, project := range projects {
			if project.Name != "" {
				snap.Projects[strings.ToLower(project.Name)] = true
			}
			if project.ID != "" {
				snap.Projects[strings.ToLower(project.ID)] = true
			}
			hierarchies, err := e.hierarchies.ListHierarchies(ctx, project.ID)
			if err != nil {
				return fmt.Errorf("failed to list hierarchies for project %s: %w", project.ID, err)
			}
			for _, h := range hierarchies {
				if h.HierarchyName != "" {
					snap.Hierarchies[strings.ToLower(h.HierarchyName)] = true
					snap.hierarchyNames = append(snap.hierarchyNames, h.HierarchyName)
				}
				if h.HierarchyID != "" {
					snap.Hierarchies[strings.ToLower(h.HierarchyID)] = true
				}
			}
		}
	}

	if e.glossary != nil {
		terms, err := e.glossary.ListTerms(ctx)
		if err != nil {
			return fmt.Errorf("failed to list glossary terms: %w", err)
		}
		for _, term := range terms {
			snap.Glossary[strings.ToLower(term.Name)] = term.ID
		}
	}

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()

	e.logger.Debug("refreshed entity snapshot",
		zap.Int("tables", len(snap.Tables)),
		zap.Int("columns", len(snap.Columns)),
		zap.Int("hierarchies", len(snap.Hierarchies)),
		zap.Int("glossary_terms", len(snap.Glossary)))
	return nil
}

// Snapshot returns the current known-entity snapshot.
func (e *Extractor) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Extract runs every recognition pass over text, merges the results, and
// deduplicates them by (lowercased text, kind) keeping the highest confidence.
// Entities are returned ordered by position in the source text.
func (e *Extractor) Extract(text string) []*models.ExtractedEntity {
	snap := e.Snapshot()

	var entities []*models.ExtractedEntity
	entities = append(entities, extractClassification(text)...)
	entities = append(entities, extractTables(text, snap)...)
	entities = append(entities, extractColumns(text, snap)...)
	entities = append(entities, extractHierarchies(text, snap)...)
	entities = append(entities, extractGlossary(text, snap)...)

	return dedupe(entities)
}

// EnrichQuery extracts entities from the query text onto the query and fills
// Domain and Industry from the first matching entity of each kind when the
// caller left them unset.
func (e *Extractor) EnrichQuery(q *models.RetrievalQuery) {
	q.Entities = e.Extract(q.Query)
	for _, entity := range q.Entities {
		if q.Domain == "" && entity.Kind == models.EntityKindDomain {
			q.Domain = entity.Text
		}
		if q.Industry == "" && entity.Kind == models.EntityKindIndustry {
			q.Industry = entity.Text
		}
	}
}

func extractClassification(text string) []*models.ExtractedEntity {
	var entities []*models.ExtractedEntity
	for _, rule := range domainRules {
		if loc := rule.pattern.FindStringIndex(text); loc != nil {
			entities = append(entities, &models.ExtractedEntity{
				Text:       rule.label,
				Kind:       models.EntityKindDomain,
				Confidence: confidenceClassification,
				Position:   loc[0],
			})
			break
		}
	}
	for _, rule := range industryRules {
		if loc := rule.pattern.FindStringIndex(text); loc != nil {
			entities = append(entities, &models.ExtractedEntity{
				Text:       rule.label,
				Kind:       models.EntityKindIndustry,
				Confidence: confidenceClassification,
				Position:   loc[0],
			})
			break
		}
	}
	return entities
}

func extractTables(text string, snap *Snapshot) []*models.ExtractedEntity {
	var entities []*models.ExtractedEntity
	collect := func(pattern *regexp.Regexp) {
		for _, match := range pattern.FindAllStringSubmatchIndex(text, -1) {
			name := text[match[2]:match[3]]
			if sqlKeywords[strings.ToLower(name)] {
				continue
			}
			entity := &models.ExtractedEntity{
				Text:       name,
				Kind:       models.EntityKindTable,
				Confidence: confidenceTableUnknown,
				Position:   match[2],
			}
			if snap.KnowsTable(name) {
				entity.Confidence = confidenceTableKnown
				entity.KnownID = strings.ToLower(name)
			}
			entities = append(entities, entity)
		}
	}
	collect(tableRefPattern)
	collect(quotedIdentPattern)
	return entities
}

func extractColumns(text string, snap *Snapshot) []*models.ExtractedEntity {
	var entities []*models.ExtractedEntity
	for _, match := range columnRefPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[match[2]:match[3]]
		if sqlKeywords[strings.ToLower(name)] {
			continue
		}
		entity := &models.ExtractedEntity{
			Text:       name,
			Kind:       models.EntityKindColumn,
			Confidence: confidenceColumnUnknown,
			Position:   match[2],
		}
		if snap.KnowsColumn(name) {
			entity.Confidence = confidenceColumnKnown
			entity.KnownID = strings.ToLower(name)
		}
		entities = append(entities, entity)
	}
	return entities
}

func extractHierarchies(text string, snap *Snapshot) []*models.ExtractedEntity {
	var entities []*models.ExtractedEntity

	for _, match := range hierarchyRefPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[match[2]:match[3]]
		if sqlKeywords[strings.ToLower(name)] {
			continue
		}
		entity := &models.ExtractedEntity{
			Text:       name,
			Kind:       models.EntityKindHierarchy,
			Confidence: confidenceHierarchyGuess,
			Position:   match[2],
		}
		if snap.KnowsHierarchy(name) {
			entity.Confidence = confidenceHierarchyKnown
			entity.KnownID = strings.ToLower(name)
		}
		entities = append(entities, entity)
	}

	// Known hierarchy names also match as exact substrings anywhere in the
	// text, not only after the trigger words.
	lowerText := strings.ToLower(text)
	for _, name := range snap.hierarchyNames {
		pos := strings.Index(lowerText, strings.ToLower(name))
		if pos < 0 {
			continue
		}
		entities = append(entities, &models.ExtractedEntity{
			Text:       name,
			Kind:       models.EntityKindHierarchy,
			Confidence: confidenceHierarchyKnown,
			KnownID:    strings.ToLower(name),
			Position:   pos,
		})
	}
	return entities
}

func extractGlossary(text string, snap *Snapshot) []*models.ExtractedEntity {
	var entities []*models.ExtractedEntity
	for term, id := range snap.Glossary {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			continue
		}
		loc := pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		entities = append(entities, &models.ExtractedEntity{
			Text:       text[loc[0]:loc[1]],
			Kind:       models.EntityKindGlossaryTerm,
			Confidence: confidenceGlossary,
			KnownID:    id,
			Position:   loc[0],
		})
	}
	return entities
}

// dedupe merges entities by (lowercased text, kind), keeping the highest
// confidence occurrence, and orders the result by position.
func dedupe(entities []*models.ExtractedEntity) []*models.ExtractedEntity {
	seen := make(map[string]*models.ExtractedEntity)
	var order []string
	for _, entity := range entities {
		key := strings.ToLower(entity.Text) + "|" + string(entity.Kind)
		existing, ok := seen[key]
		if !ok {
			seen[key] = entity
			order = append(order, key)
			continue
		}
		if entity.Confidence > existing.Confidence {
			seen[key] = entity
		}
	}

	result := make([]*models.ExtractedEntity, 0, len(order))
	for _, key := range order {
		result = append(result, seen[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result
}
