package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/kensho/internal/models"
	"go.uber.org/zap"
)

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var query models.RetrievalQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	ragCtx, err := s.retriever.Retrieve(r.Context(), &query)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ragCtx)
}

// validateRequest is the body of POST /api/v1/validate. Kind defaults to
// "query". Context carries the retrieval evidence whose known entities the
// validator accepts; it may be omitted.
type validateRequest struct {
	Artifact string             `json:"artifact"`
	Kind     string             `json:"kind,omitempty"`
	Context  *models.RAGContext `json:"context,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Artifact == "" {
		s.respondError(w, http.StatusBadRequest, "artifact is required")
		return
	}
	kind := models.ArtifactKind(req.Kind)
	if kind == "" {
		kind = models.ArtifactKindQuery
	}
	s.logger.Debug("validate request", zap.String("kind", string(kind)), zap.Int("artifact_len", len(req.Artifact)))
	result := s.validator.Validate(r.Context(), req.Artifact, kind, req.Context)
	s.respondJSON(w, http.StatusOK, result)
}

type extractRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	entities := s.extractor.Extract(req.Text)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

type embedRequest struct {
	Text  string   `json:"text,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp := map[string]interface{}{
		"model":      s.embedder.ModelName(),
		"dimensions": s.embedder.Dimensions(),
	}
	switch {
	case len(req.Texts) > 0:
		embeddings, err := s.embedder.EmbedBatch(r.Context(), req.Texts)
		if err != nil {
			s.logger.Error("batch embedding failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["embeddings"] = embeddings
	case req.Text != "":
		emb, err := s.embedder.Embed(r.Context(), req.Text)
		if err != nil {
			s.logger.Error("embedding failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["embedding"] = emb
	default:
		s.respondError(w, http.StatusBadRequest, "text or texts is required")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		s.respondError(w, http.StatusNotImplemented, "sync not enabled")
		return
	}
	report, err := s.indexer.SyncAll(r.Context())
	if err != nil {
		s.logger.Error("sync failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

// documentInput is the body of POST /api/v1/documents. Content is embedded
// server-side; the ID is generated when absent.
type documentInput struct {
	ID         string                 `json:"id,omitempty"`
	Content    string                 `json:"content"`
	SourceType string                 `json:"source_type,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) handleUpsertDocument(w http.ResponseWriter, r *http.Request) {
	var input documentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	if input.SourceType == "" {
		input.SourceType = string(models.SourceTypeCatalog)
	}
	emb, err := s.embedder.Embed(r.Context(), input.Content)
	if err != nil {
		s.logger.Error("embedding failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	now := time.Now().UTC()
	doc := &models.IndexedDocument{
		ID:         input.ID,
		Embedding:  emb,
		Content:    input.Content,
		SourceType: input.SourceType,
		Metadata:   input.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Upsert(r.Context(), doc); err != nil {
		s.logger.Error("upsert failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "indexed"})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("get document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	found, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: vector stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":      stats.Total,
		"by_source_type": stats.BySourceType,
		"dimensions":     stats.Dimension,
		"embedding_model": map[string]interface{}{
			"name":       s.embedder.ModelName(),
			"dimensions": s.embedder.Dimensions(),
		},
	}
	if !stats.LastIndexed.IsZero() {
		resp["last_indexed"] = stats.LastIndexed
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
