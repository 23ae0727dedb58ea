// Package retrieval runs hybrid retrieval across vector, graph, lexical, and
// template passes and fuses their rankings with reciprocal rank fusion.
package retrieval

import (
	"sort"

	"github.com/hyperjump/kensho/internal/models"
)

// DefaultRRFConstant is the k in weight/(k+rank). 60 is the value from the
// original RRF paper and works well without tuning.
const DefaultRRFConstant = 60

// passOrder fixes the iteration order over sources so fusion is deterministic.
var passOrder = []models.RetrievalSource{
	models.RetrievalSourceVector,
	models.RetrievalSourceGraph,
	models.RetrievalSourceLexical,
	models.RetrievalSourceTemplate,
}

// FuseRRF merges per-source rankings with reciprocal rank fusion. Each
// source's items are ranked 1-based by source score descending; an item's
// fused score is the sum over sources containing it of weight/(k+rank).
// Ties keep the order in which items were first seen. The result is sorted
// by fused score descending with 1-based ranks assigned, truncated to limit.
func FuseRRF(passes map[models.RetrievalSource][]*models.RetrievedItem, weights models.SourceWeights, k float64, limit int) []*models.RetrievedItem {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	type fused struct {
		item  *models.RetrievedItem
		score float64
		seen  int
	}
	byID := make(map[string]*fused)
	var order []*fused

	for _, source := range passOrder {
		items := passes[source]
		ranked := make([]*models.RetrievedItem, len(items))
		copy(ranked, items)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].SourceScore > ranked[j].SourceScore
		})

		weight := sourceWeight(weights, source)
		for rank, item := range ranked {
			contribution := weight / (k + float64(rank+1))
			entry, ok := byID[item.ID]
			if !ok {
				entry = &fused{item: item, seen: len(order)}
				byID[item.ID] = entry
				order = append(order, entry)
			}
			entry.score += contribution
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].seen < order[j].seen
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	results := make([]*models.RetrievedItem, len(order))
	for i, entry := range order {
		entry.item.Score = entry.score
		entry.item.Rank = i + 1
		results[i] = entry.item
	}
	return results
}

func sourceWeight(weights models.SourceWeights, source models.RetrievalSource) float64 {
	switch source {
	case models.RetrievalSourceVector:
		return weights.Vector
	case models.RetrievalSourceGraph:
		return weights.Graph
	case models.RetrievalSourceLexical:
		return weights.Lexical
	case models.RetrievalSourceTemplate:
		return weights.Template
	}
	return 0
}
