package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/catalog"
	"github.com/hyperjump/kensho/internal/config"
	"github.com/hyperjump/kensho/internal/embedding"
	"github.com/hyperjump/kensho/internal/extract"
	"github.com/hyperjump/kensho/internal/models"
	"github.com/hyperjump/kensho/internal/vector"
)

// Retriever orchestrates the four retrieval passes and fuses their results.
// Every collaborator is read-only during retrieval; a failing pass degrades
// to an empty result instead of failing the query.
type Retriever struct {
	embedder  embedding.Embedder
	store     vector.Store
	extractor *extract.Extractor
	catalog   catalog.Catalog
	lineage   catalog.LineageStore
	templates catalog.TemplateStore
	cfg       *config.RetrievalConfig
	logger    *zap.Logger
}

// NewRetriever creates a retriever with the given collaborators. Any of the
// catalog, lineage, or templates collaborators may be nil, which disables the
// corresponding pass.
func NewRetriever(
	embedder embedding.Embedder,
	store vector.Store,
	extractor *extract.Extractor,
	cat catalog.Catalog,
	lineage catalog.LineageStore,
	templates catalog.TemplateStore,
	cfg *config.RetrievalConfig,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		embedder:  embedder,
		store:     store,
		extractor: extractor,
		catalog:   cat,
		lineage:   lineage,
		templates: templates,
		cfg:       cfg,
		logger:    logger,
	}
}

// Retrieve runs the enabled passes concurrently, fuses the rankings with RRF,
// and assembles a RAGContext.
func (r *Retriever) Retrieve(ctx context.Context, query *models.RetrievalQuery) (*models.RAGContext, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Limit > r.cfg.MaxLimit && r.cfg.MaxLimit > 0 {
		query.Limit = r.cfg.MaxLimit
	}
	if r.extractor != nil && len(query.Entities) == 0 {
		r.extractor.EnrichQuery(query)
	}

	passes := make(map[models.RetrievalSource][]*models.RetrievedItem)
	var mu sync.Mutex
	var wg sync.WaitGroup

	runPass := func(source models.RetrievalSource, enabled bool, fn func(context.Context) ([]*models.RetrievedItem, error)) {
		if !enabled {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := fn(ctx)
			if err != nil {
				r.logger.Warn("retrieval pass failed",
					zap.String("source", string(source)),
					zap.Error(err))
				return
			}
			mu.Lock()
			passes[source] = items
			mu.Unlock()
		}()
	}

	runPass(models.RetrievalSourceVector, query.VectorEnabled, func(ctx context.Context) ([]*models.RetrievedItem, error) {
		return r.vectorPass(ctx, query)
	})
	runPass(models.RetrievalSourceGraph, query.GraphEnabled && r.lineage != nil, func(ctx context.Context) ([]*models.RetrievedItem, error) {
		return r.graphPass(ctx, query)
	})
	runPass(models.RetrievalSourceLexical, query.LexicalEnabled && r.catalog != nil, func(ctx context.Context) ([]*models.RetrievedItem, error) {
		return r.lexicalPass(ctx, query)
	})
	runPass(models.RetrievalSourceTemplate, query.TemplateEnabled && r.templates != nil, func(ctx context.Context) ([]*models.RetrievedItem, error) {
		return r.templatePass(ctx, query)
	})
	wg.Wait()

	k := r.cfg.RRFConstant
	items := FuseRRF(passes, *query.Weights, k, query.Limit)

	ragCtx := buildContext(query.Query, items)
	ragCtx.QueryTime = time.Since(startTime).Milliseconds()
	return ragCtx, nil
}

// vectorPass embeds the query and searches the vector store, over-fetching so
// fusion has more candidates than the final limit.
func (r *Retriever) vectorPass(ctx context.Context, query *models.RetrievalQuery) ([]*models.RetrievedItem, error) {
	emb, err := r.embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	overfetch := r.cfg.OverfetchFactor
	if overfetch <= 0 {
		overfetch = 2
	}
	threshold := query.MinSimilarity
	if threshold == 0 {
		threshold = r.cfg.MinSimilarity
	}

	results, err := r.store.Search(ctx, emb, query.Limit*overfetch, nil, threshold)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	items := make([]*models.RetrievedItem, 0, len(results))
	for _, res := range results {
		metadata := res.Document.Metadata
		if metadata == nil {
			metadata = make(map[string]interface{})
		}
		metadata["source_type"] = string(res.Document.SourceType)
		items = append(items, &models.RetrievedItem{
			ID:          res.Document.ID,
			Source:      models.RetrievalSourceVector,
			Content:     res.Document.Content,
			SourceScore: res.Score,
			Metadata:    metadata,
		})
	}
	return items, nil
}

// graphPass walks the lineage graph from nodes matching extracted table,
// hierarchy, and column entities, scoring each hop as 1/(hop+1).
func (r *Retriever) graphPass(ctx context.Context, query *models.RetrievalQuery) ([]*models.RetrievedItem, error) {
	seeds := make(map[string]bool)
	for _, entity := range query.Entities {
		switch entity.Kind {
		case models.EntityKindTable, models.EntityKindHierarchy, models.EntityKindColumn:
			seeds[strings.ToLower(entity.Text)] = true
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	graphs, err := r.lineage.ListGraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineage graphs: %w", err)
	}

	maxHops := r.cfg.GraphMaxHops
	if maxHops <= 0 {
		maxHops = 3
	}

	var items []*models.RetrievedItem
	seen := make(map[string]bool)
	for _, graphName := range graphs {
		graph, err := r.lineage.GetGraph(ctx, graphName)
		if err != nil {
			return nil, fmt.Errorf("failed to get graph %s: %w", graphName, err)
		}
		for _, node := range graph.Nodes {
			if !seeds[strings.ToLower(node.Name)] && !seeds[strings.ToLower(node.ID)] {
				continue
			}
			upstream, err := r.lineage.AllUpstream(ctx, graphName, node.ID, maxHops)
			if err != nil {
				return nil, fmt.Errorf("upstream walk failed for %s: %w", node.ID, err)
			}
			downstream, err := r.lineage.AllDownstream(ctx, graphName, node.ID, maxHops)
			if err != nil {
				return nil, fmt.Errorf("downstream walk failed for %s: %w", node.ID, err)
			}

			self := &catalog.TraversalNode{Node: node, Depth: 0}
			for _, tn := range append(append([]*catalog.TraversalNode{self}, upstream...), downstream...) {
				id := "lineage:" + graphName + ":" + tn.Node.ID
				if seen[id] {
					continue
				}
				seen[id] = true
				items = append(items, &models.RetrievedItem{
					ID:          id,
					Source:      models.RetrievalSourceGraph,
					Content:     fmt.Sprintf("%s (%s) in lineage graph %s", tn.Node.Name, tn.Node.Type, graphName),
					SourceScore: 1.0 / float64(tn.Depth+1),
					Metadata: map[string]interface{}{
						"source_type": "lineage",
						"table":       tn.Node.Name,
						"graph":       graphName,
						"depth":       tn.Depth,
					},
				})
			}
		}
	}
	return items, nil
}

// lexicalPass delegates to the catalog's own keyword search.
func (r *Retriever) lexicalPass(ctx context.Context, query *models.RetrievalQuery) ([]*models.RetrievedItem, error) {
	results, err := r.catalog.Search(ctx, query.Query, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	items := make([]*models.RetrievedItem, 0, len(results))
	for _, res := range results {
		name := res.Asset.FullyQualifiedName
		if name == "" {
			name = res.Asset.Name
		}
		items = append(items, &models.RetrievedItem{
			ID:          "asset:" + name,
			Source:      models.RetrievalSourceLexical,
			Content:     res.Asset.Description,
			SourceScore: res.Score,
			Metadata: map[string]interface{}{
				"source_type": "catalog",
				"table":       res.Asset.Name,
				"columns":     res.Asset.Columns,
			},
		})
	}
	return items, nil
}

// Template pass scoring increments, capped at 1.0.
const (
	templateNameScore     = 0.4
	templateDomainScore   = 0.2
	templateIndustryScore = 0.2
	templateKeywordScore  = 0.2
)

// templatePass scores templates and skills against the query by name
// containment, domain/industry match, and description keyword overlap.
func (r *Retriever) templatePass(ctx context.Context, query *models.RetrievalQuery) ([]*models.RetrievedItem, error) {
	templates, err := r.templates.ListTemplates(ctx, query.Domain, query.Industry)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	skills, err := r.templates.ListSkills(ctx, query.Domain, query.Industry)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}

	var items []*models.RetrievedItem
	for _, tpl := range templates {
		score := matchScore(query, tpl.Name, tpl.Description, tpl.Domain, tpl.Industry)
		if score <= 0 {
			continue
		}
		items = append(items, &models.RetrievedItem{
			ID:          "template:" + tpl.ID,
			Source:      models.RetrievalSourceTemplate,
			Content:     tpl.Description,
			SourceScore: score,
			Metadata: map[string]interface{}{
				"source_type": "template",
				"name":        tpl.Name,
				"domain":      tpl.Domain,
				"industry":    tpl.Industry,
			},
		})
	}
	for _, skill := range skills {
		score := matchScore(query, skill.Name, skill.Description, skill.Domain, skill.Industry)
		if score <= 0 {
			continue
		}
		items = append(items, &models.RetrievedItem{
			ID:          "skill:" + skill.ID,
			Source:      models.RetrievalSourceTemplate,
			Content:     skill.Description,
			SourceScore: score,
			Metadata: map[string]interface{}{
				"source_type": "skill",
				"name":        skill.Name,
				"domain":      skill.Domain,
				"industry":    skill.Industry,
			},
		})
	}
	return items, nil
}

func matchScore(query *models.RetrievalQuery, name, description, domain, industry string) float64 {
	lowerQuery := strings.ToLower(query.Query)
	score := 0.0

	if name != "" && strings.Contains(lowerQuery, strings.ToLower(name)) {
		score += templateNameScore
	}
	if domain != "" && strings.EqualFold(domain, query.Domain) {
		score += templateDomainScore
	}
	if industry != "" && strings.EqualFold(industry, query.Industry) {
		score += templateIndustryScore
	}
	if description != "" && keywordOverlap(lowerQuery, strings.ToLower(description)) {
		score += templateKeywordScore
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// keywordOverlap reports whether any word of at least four characters is
// shared between the query and the description.
func keywordOverlap(query, description string) bool {
	queryWords := make(map[string]bool)
	for _, word := range strings.Fields(query) {
		if len(word) >= 4 {
			queryWords[word] = true
		}
	}
	for _, word := range strings.Fields(description) {
		if len(word) >= 4 && queryWords[word] {
			return true
		}
	}
	return false
}
