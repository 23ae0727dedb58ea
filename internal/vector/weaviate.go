package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/models"
)

// idNamespace seeds deterministic Weaviate object IDs so that upserting the
// same document ID always targets the same object.
var idNamespace = uuid.NameSpaceURL

// WeaviateStore implements Store against an external Weaviate instance.
// Documents live in a single class with the vectorizer disabled; embeddings
// are supplied by the caller.
type WeaviateStore struct {
	client    *weaviate.Client
	className string
	dimension int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewWeaviateStore connects to Weaviate and ensures the document class exists.
func NewWeaviateStore(host, scheme, className string, dimension int, timeout time.Duration, logger *zap.Logger) (*WeaviateStore, error) {
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   host,
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	s := &WeaviateStore{
		client:    client,
		className: className,
		dimension: dimension,
		timeout:   timeout,
		logger:    logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.ensureClass(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(s.className).Do(ctx)
	if err == nil {
		return nil
	}

	indexFilterable := true
	class := &wmodels.Class{
		Class:      s.className,
		Vectorizer: "none",
		Properties: []*wmodels.Property{
			{Name: "docId", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "content", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "sourceType", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "metadata", DataType: []string{"text"}},
			{Name: "createdAt", DataType: []string{"text"}},
			{Name: "updatedAt", DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create class %s: %w", s.className, err)
	}
	s.logger.Info("created weaviate class", zap.String("class", s.className))
	return nil
}

func (s *WeaviateStore) objectID(docID string) string {
	return uuid.NewSHA1(idNamespace, []byte(s.className+":"+docID)).String()
}

// Upsert inserts the document or replaces an existing one with the same ID.
func (s *WeaviateStore) Upsert(ctx context.Context, doc *models.IndexedDocument) error {
	return s.UpsertBatch(ctx, []*models.IndexedDocument{doc})
}

// UpsertBatch imports documents through the batch API. Batch objects carry
// deterministic IDs so re-imports overwrite in place.
func (s *WeaviateStore) UpsertBatch(ctx context.Context, docs []*models.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now()
	objects := make([]*wmodels.Object, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document ID is required")
		}
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now

		objects[i] = &wmodels.Object{
			ID:    strfmt.UUID(s.objectID(doc.ID)),
			Class: s.className,
			Properties: map[string]interface{}{
				"docId":      doc.ID,
				"content":    doc.Content,
				"sourceType": string(doc.SourceType),
				"metadata":   string(metadataJSON),
				"createdAt":  doc.CreatedAt.Format(time.RFC3339),
				"updatedAt":  doc.UpdatedAt.Format(time.RFC3339),
			},
			Vector: wmodels.C11yVector(doc.Embedding),
		}
	}

	result, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch import failed: %w", err)
	}
	for _, obj := range result {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch import error: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Search runs a nearVector query. The source_type filter key maps to the
// indexed sourceType property; remaining filter keys are checked against
// the decoded metadata after retrieval, so the query over-fetches when
// such keys are present.
func (s *WeaviateStore) Search(ctx context.Context, query []float32, topK int, filter Filter, threshold float64) ([]*SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	postFilter := hasMetadataKeys(filter)
	fetchLimit := topK
	if postFilter {
		fetchLimit = topK * 3
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(query)
	if threshold > 0 {
		// Weaviate certainty is (1 + cosine) / 2.
		nearVector = nearVector.WithCertainty(float32((threshold + 1) / 2))
	}

	fields := []graphql.Field{
		{Name: "docId"},
		{Name: "content"},
		{Name: "sourceType"},
		{Name: "metadata"},
		{Name: "createdAt"},
		{Name: "updatedAt"},
		{Name: "_additional { certainty }"},
	}

	builder := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(fetchLimit)

	if st, ok := filter["source_type"]; ok {
		where := filters.Where().
			WithPath([]string{"sourceType"}).
			WithOperator(filters.Equal).
			WithValueString(fmt.Sprintf("%v", st))
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query error: %s", result.Errors[0].Message)
	}

	objects, err := s.extractObjects(result.Data)
	if err != nil {
		return nil, err
	}

	var results []*SearchResult
	for _, obj := range objects {
		doc, score := s.parseObject(obj)
		if doc == nil || score < threshold {
			continue
		}
		if postFilter && !metadataMatches(doc.Metadata, filter) {
			continue
		}
		results = append(results, &SearchResult{Document: doc, Score: score})
		if len(results) == topK {
			break
		}
	}
	return results, nil
}

// Get returns the document with the given ID, or (nil, nil) if absent.
func (s *WeaviateStore) Get(ctx context.Context, id string) (*models.IndexedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	objects, err := s.client.Data().ObjectsGetter().
		WithClassName(s.className).
		WithID(s.objectID(id)).
		WithVector().
		Do(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("weaviate get failed: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	props, _ := objects[0].Properties.(map[string]interface{})
	doc := docFromProperties(props)
	if doc == nil {
		return nil, fmt.Errorf("unexpected object shape for %s", id)
	}
	doc.Embedding = []float32(objects[0].Vector)
	return doc, nil
}

// Delete removes a document by ID.
func (s *WeaviateStore) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.client.Data().Deleter().
		WithClassName(s.className).
		WithID(s.objectID(id)).
		Do(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("weaviate delete failed: %w", err)
	}
	return true, nil
}

// DeleteByFilter removes all documents matching the filter. Pure
// source_type filters use the batch deleter; filters on metadata keys
// list candidates first and delete them one by one.
func (s *WeaviateStore) DeleteByFilter(ctx context.Context, filter Filter) (int, error) {
	if len(filter) == 0 {
		return s.Clear(ctx)
	}

	if !hasMetadataKeys(filter) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		where := filters.Where().
			WithPath([]string{"sourceType"}).
			WithOperator(filters.Equal).
			WithValueString(fmt.Sprintf("%v", filter["source_type"]))
		resp, err := s.client.Batch().ObjectsBatchDeleter().
			WithClassName(s.className).
			WithWhere(where).
			WithOutput("minimal").
			Do(ctx)
		if err != nil {
			return 0, fmt.Errorf("weaviate batch delete failed: %w", err)
		}
		if resp != nil && resp.Results != nil {
			return int(resp.Results.Successful), nil
		}
		return 0, nil
	}

	docs, err := s.listMatching(ctx, filter)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, doc := range docs {
		ok, err := s.Delete(ctx, doc.ID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

const listPageSize = 10000

func (s *WeaviateStore) listMatching(ctx context.Context, filter Filter) ([]*models.IndexedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fields := []graphql.Field{
		{Name: "docId"},
		{Name: "sourceType"},
		{Name: "metadata"},
	}
	builder := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithLimit(listPageSize)

	if st, ok := filter["source_type"]; ok {
		where := filters.Where().
			WithPath([]string{"sourceType"}).
			WithOperator(filters.Equal).
			WithValueString(fmt.Sprintf("%v", st))
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate list failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate list error: %s", result.Errors[0].Message)
	}

	objects, err := s.extractObjects(result.Data)
	if err != nil {
		return nil, err
	}

	var docs []*models.IndexedDocument
	for _, obj := range objects {
		doc, _ := s.parseObject(obj)
		if doc == nil {
			continue
		}
		if metadataMatches(doc.Metadata, filter) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Total, nil
}

// Stats aggregates per-source-type counts.
func (s *WeaviateStore) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithGroupBy("sourceType").
		WithFields(
			graphql.Field{Name: "groupedBy", Fields: []graphql.Field{{Name: "value"}}},
			graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}},
		).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate aggregate failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate aggregate error: %s", result.Errors[0].Message)
	}

	stats := &Stats{
		BySourceType: make(map[string]int),
		Dimension:    s.dimension,
	}

	agg, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return stats, nil
	}
	groups, ok := agg[s.className].([]interface{})
	if !ok {
		return stats, nil
	}
	for _, g := range groups {
		group, ok := g.(map[string]interface{})
		if !ok {
			continue
		}
		var label string
		if gb, ok := group["groupedBy"].(map[string]interface{}); ok {
			label, _ = gb["value"].(string)
		}
		var count int
		if meta, ok := group["meta"].(map[string]interface{}); ok {
			if c, ok := meta["count"].(float64); ok {
				count = int(c)
			}
		}
		if label != "" {
			stats.BySourceType[label] = count
		}
		stats.Total += count
	}
	return stats, nil
}

// Clear deletes every object in the class.
func (s *WeaviateStore) Clear(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The batch deleter requires a where clause; docId is always set.
	where := filters.Where().
		WithPath([]string{"docId"}).
		WithOperator(filters.Like).
		WithValueString("*")
	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate clear failed: %w", err)
	}
	if resp != nil && resp.Results != nil {
		return int(resp.Results.Successful), nil
	}
	return 0, nil
}

// Close is a no-op; the underlying client holds no persistent connection.
func (s *WeaviateStore) Close() error {
	return nil
}

func (s *WeaviateStore) extractObjects(data map[string]wmodels.JSONObject) ([]map[string]interface{}, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected response format: missing Get")
	}
	raw, ok := get[s.className].([]interface{})
	if !ok {
		return nil, nil
	}
	objects := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		if obj, ok := r.(map[string]interface{}); ok {
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (s *WeaviateStore) parseObject(obj map[string]interface{}) (*models.IndexedDocument, float64) {
	doc := docFromProperties(obj)
	if doc == nil {
		return nil, 0
	}

	score := 0.0
	if additional, ok := obj["_additional"].(map[string]interface{}); ok {
		if certainty, ok := additional["certainty"].(float64); ok {
			// Map certainty back to cosine similarity and clamp to [0, 1].
			score = 2*certainty - 1
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
		}
	}
	return doc, score
}

func docFromProperties(props map[string]interface{}) *models.IndexedDocument {
	if props == nil {
		return nil
	}
	id, _ := props["docId"].(string)
	if id == "" {
		return nil
	}
	doc := &models.IndexedDocument{ID: id}
	doc.Content, _ = props["content"].(string)
	if st, ok := props["sourceType"].(string); ok {
		doc.SourceType = st
	}
	if metadataJSON, ok := props["metadata"].(string); ok && metadataJSON != "" {
		_ = json.Unmarshal([]byte(metadataJSON), &doc.Metadata)
	}
	if created, ok := props["createdAt"].(string); ok {
		doc.CreatedAt, _ = time.Parse(time.RFC3339, created)
	}
	if updated, ok := props["updatedAt"].(string); ok {
		doc.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	}
	return doc
}

func hasMetadataKeys(filter Filter) bool {
	for key := range filter {
		if key != "source_type" {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode == 404
	}
	return false
}
