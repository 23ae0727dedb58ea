// Package indexer syncs collaborator content into the vector store.
package indexer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kensho/internal/catalog"
	"github.com/hyperjump/kensho/internal/embedding"
	"github.com/hyperjump/kensho/internal/models"
	"github.com/hyperjump/kensho/internal/vector"
	"go.uber.org/zap"
)

// Indexer rebuilds the vector store from collaborator content. Each source
// (catalog assets, templates, skills, hierarchy definitions, glossary terms)
// becomes a batch of IndexedDocuments tagged with its source_type, and a sync
// replaces the previous batch for that source. Collaborators may be nil; nil
// sources are skipped.
type Indexer struct {
	embedder    embedding.Embedder
	store       vector.Store
	catalog     catalog.Catalog
	hierarchies catalog.HierarchyStore
	templates   catalog.TemplateStore
	glossary    catalog.GlossaryStore
	chunker     *Chunker
	logger      *zap.Logger
}

// NewIndexer creates an indexer over the given collaborators.
func NewIndexer(
	embedder embedding.Embedder,
	store vector.Store,
	cat catalog.Catalog,
	hierarchies catalog.HierarchyStore,
	templates catalog.TemplateStore,
	glossary catalog.GlossaryStore,
	logger *zap.Logger,
) *Indexer {
	return &Indexer{
		embedder:    embedder,
		store:       store,
		catalog:     cat,
		hierarchies: hierarchies,
		templates:   templates,
		glossary:    glossary,
		chunker:     NewChunker(defaultChunkSize, defaultChunkOverlap),
		logger:      logger,
	}
}

// SyncReport counts documents written per source during a sync.
type SyncReport struct {
	Catalog     int   `json:"catalog"`
	Templates   int   `json:"templates"`
	Skills      int   `json:"skills"`
	Hierarchies int   `json:"hierarchies"`
	Glossary    int   `json:"glossary"`
	Total       int   `json:"total"`
	DurationMs  int64 `json:"duration_ms"`
}

// SyncAll syncs every configured source and returns per-source counts.
func (idx *Indexer) SyncAll(ctx context.Context) (*SyncReport, error) {
	start := time.Now()
	report := &SyncReport{}
	var err error
	if idx.catalog != nil {
		if report.Catalog, err = idx.SyncCatalog(ctx); err != nil {
			return nil, err
		}
	}
	if idx.templates != nil {
		if report.Templates, err = idx.SyncTemplates(ctx); err != nil {
			return nil, err
		}
		if report.Skills, err = idx.SyncSkills(ctx); err != nil {
			return nil, err
		}
	}
	if idx.hierarchies != nil {
		if report.Hierarchies, err = idx.SyncHierarchies(ctx); err != nil {
			return nil, err
		}
	}
	if idx.glossary != nil {
		if report.Glossary, err = idx.SyncGlossary(ctx); err != nil {
			return nil, err
		}
	}
	report.Total = report.Catalog + report.Templates + report.Skills + report.Hierarchies + report.Glossary
	report.DurationMs = time.Since(start).Milliseconds()
	idx.logger.Info("sync complete",
		zap.Int("documents", report.Total),
		zap.Int64("duration_ms", report.DurationMs))
	return report, nil
}

// docSpec is one logical document before chunking and embedding.
type docSpec struct {
	id       string
	content  string
	metadata map[string]interface{}
}

// SyncCatalog indexes every catalog asset and returns the document count.
func (idx *Indexer) SyncCatalog(ctx context.Context) (int, error) {
	assets, err := idx.catalog.ListAssets(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list catalog assets: %w", err)
	}
	specs := make([]docSpec, 0, len(assets))
	for _, asset := range assets {
		key := asset.FullyQualifiedName
		if key == "" {
			key = asset.Name
		}
		metadata := map[string]interface{}{"table": asset.Name}
		if asset.FullyQualifiedName != "" {
			metadata["fqn"] = asset.FullyQualifiedName
		}
		if asset.Type != "" {
			metadata["asset_type"] = asset.Type
		}
		if len(asset.Columns) > 0 {
			metadata["columns"] = asset.Columns
		}
		specs = append(specs, docSpec{
			id:       docID("asset", key),
			content:  assetText(asset),
			metadata: metadata,
		})
	}
	sortSpecs(specs)
	return idx.replaceSource(ctx, models.SourceTypeCatalog, specs)
}

// SyncTemplates indexes every template and returns the document count.
func (idx *Indexer) SyncTemplates(ctx context.Context) (int, error) {
	templates, err := idx.templates.ListTemplates(ctx, "", "")
	if err != nil {
		return 0, fmt.Errorf("failed to list templates: %w", err)
	}
	specs := make([]docSpec, 0, len(templates))
	for _, t := range templates {
		metadata := map[string]interface{}{"name": t.Name}
		if t.Domain != "" {
			metadata["domain"] = t.Domain
		}
		if t.Industry != "" {
			metadata["industry"] = t.Industry
		}
		specs = append(specs, docSpec{
			id:       docID("template", t.ID),
			content:  joinParts(t.Name, t.Description, t.Content),
			metadata: metadata,
		})
	}
	sortSpecs(specs)
	return idx.replaceSource(ctx, models.SourceTypeTemplate, specs)
}

// SyncSkills indexes every skill and returns the document count.
func (idx *Indexer) SyncSkills(ctx context.Context) (int, error) {
	skills, err := idx.templates.ListSkills(ctx, "", "")
	if err != nil {
		return 0, fmt.Errorf("failed to list skills: %w", err)
	}
	specs := make([]docSpec, 0, len(skills))
	for _, sk := range skills {
		metadata := map[string]interface{}{"name": sk.Name}
		if sk.Domain != "" {
			metadata["domain"] = sk.Domain
		}
		if sk.Industry != "" {
			metadata["industry"] = sk.Industry
		}
		specs = append(specs, docSpec{
			id:       docID("skill", sk.ID),
			content:  joinParts(sk.Name, sk.Description),
			metadata: metadata,
		})
	}
	sortSpecs(specs)
	return idx.replaceSource(ctx, models.SourceTypeSkill, specs)
}

// SyncHierarchies indexes every hierarchy definition across all projects and
// returns the document count.
func (idx *Indexer) SyncHierarchies(ctx context.Context) (int, error) {
	projects, err := idx.hierarchies.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list projects: %w", err)
	}
	var specs []docSpec
	for _, project := range projects {
		hierarchies, err := idx.hierarchies.ListHierarchies(ctx, project.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to list hierarchies for project %s: %w", project.ID, err)
		}
		for _, h := range hierarchies {
			metadata := map[string]interface{}{
				"hierarchy": h.HierarchyName,
				"project":   project.Name,
			}
			if tables := sourceTables(h); len(tables) > 0 {
				metadata["table"] = tables
			}
			specs = append(specs, docSpec{
				id:       docID("hierarchy", h.HierarchyID),
				content:  hierarchyText(h, project.Name),
				metadata: metadata,
			})
		}
	}
	sortSpecs(specs)
	return idx.replaceSource(ctx, models.SourceTypeHierarchy, specs)
}

// SyncGlossary indexes every glossary term and returns the document count.
func (idx *Indexer) SyncGlossary(ctx context.Context) (int, error) {
	terms, err := idx.glossary.ListTerms(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list glossary terms: %w", err)
	}
	specs := make([]docSpec, 0, len(terms))
	for _, term := range terms {
		specs = append(specs, docSpec{
			id:       docID("glossary", term.ID),
			content:  joinParts(term.Name, term.Definition),
			metadata: map[string]interface{}{"term": term.Name},
		})
	}
	sortSpecs(specs)
	return idx.replaceSource(ctx, models.SourceTypeGlossary, specs)
}

// replaceSource embeds the specs and swaps them in for the source's previous
// documents. The old batch is deleted even when the new one is empty, so a
// collaborator that emptied out does not leave stale documents behind.
func (idx *Indexer) replaceSource(ctx context.Context, sourceType models.SourceType, specs []docSpec) (int, error) {
	now := time.Now().UTC()
	var docs []*models.IndexedDocument
	var texts []string
	for _, spec := range specs {
		for i, chunk := range idx.chunker.Chunk(spec.content) {
			id := spec.id
			if i > 0 {
				id = fmt.Sprintf("%s#%d", spec.id, i)
			}
			docs = append(docs, &models.IndexedDocument{
				ID:         id,
				Content:    chunk,
				SourceType: string(sourceType),
				Metadata:   spec.metadata,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			texts = append(texts, chunk)
		}
	}
	if len(docs) > 0 {
		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		for i := range docs {
			docs[i].Embedding = embeddings[i]
		}
	}
	if _, err := idx.store.DeleteByFilter(ctx, vector.Filter{"source_type": string(sourceType)}); err != nil {
		return 0, fmt.Errorf("failed to clear previous %s documents: %w", sourceType, err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := idx.store.UpsertBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("failed to upsert %s documents: %w", sourceType, err)
	}
	idx.logger.Debug("source synced",
		zap.String("source_type", string(sourceType)),
		zap.Int("documents", len(docs)))
	return len(docs), nil
}

// docID builds a stable document ID from a natural key so re-syncing the same
// entry lands on the same row. Entries without a key get a random ID; they are
// replaced wholesale on the next sync anyway.
func docID(prefix, key string) string {
	if key == "" {
		return prefix + ":" + uuid.New().String()
	}
	return prefix + ":" + key
}

func sortSpecs(specs []docSpec) {
	sort.Slice(specs, func(i, j int) bool { return specs[i].id < specs[j].id })
}

// joinParts joins the non-empty parts with newlines.
func joinParts(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func assetText(a *catalog.Asset) string {
	parts := []string{a.Name}
	if a.FullyQualifiedName != "" && a.FullyQualifiedName != a.Name {
		parts = append(parts, a.FullyQualifiedName)
	}
	if a.Type != "" {
		parts = append(parts, a.Type)
	}
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	if len(a.Columns) > 0 {
		parts = append(parts, "columns: "+strings.Join(a.Columns, ", "))
	}
	if len(a.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(a.Tags, ", "))
	}
	return strings.Join(parts, "\n")
}

func hierarchyText(h *catalog.Hierarchy, projectName string) string {
	parts := []string{h.HierarchyName}
	if projectName != "" {
		parts = append(parts, "project: "+projectName)
	}
	if len(h.Levels) > 0 {
		parts = append(parts, "levels: "+strings.Join(h.Levels, " > "))
	}
	for _, m := range h.Mappings {
		parts = append(parts, m.Member+" from "+m.SourceTable)
	}
	// Map order is random; sort so content (and its embedding) is stable.
	names := make([]string, 0, len(h.Formulas))
	for name := range h.Formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+" = "+h.Formulas[name])
	}
	return strings.Join(parts, "\n")
}

func sourceTables(h *catalog.Hierarchy) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, m := range h.Mappings {
		if m.SourceTable == "" || seen[strings.ToLower(m.SourceTable)] {
			continue
		}
		seen[strings.ToLower(m.SourceTable)] = true
		tables = append(tables, m.SourceTable)
	}
	return tables
}
