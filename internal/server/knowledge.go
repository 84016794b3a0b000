package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/voxkit-ai/voxkit/internal/observe"
	"github.com/voxkit-ai/voxkit/pkg/knowledge"
)

// defaultSearchTopK is how many sources a search returns when the request
// does not say.
const defaultSearchTopK = 5

// baseRequest is the JSON body for creating or updating a knowledge base.
type baseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// baseResponse is the JSON form of a knowledge base.
type baseResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// sourceRequest is the JSON body for adding or updating a source.
type sourceRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// sourceResponse is the JSON form of a knowledge source.
type sourceResponse struct {
	ID        string    `json:"id"`
	BaseID    string    `json:"base_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// searchHit is one result of a semantic search.
type searchHit struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

// handleCreateBase handles PUT /v1/knowledge/bases/{baseID}. Upserts.
func (s *Server) handleCreateBase(w http.ResponseWriter, r *http.Request) {
	var req baseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	base := knowledge.Base{
		ID:          r.PathValue("baseID"),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.CreateBase(r.Context(), base); err != nil {
		s.logger.Error("create base failed", "base", base.ID, "err", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListBases handles GET /v1/knowledge/bases.
func (s *Server) handleListBases(w http.ResponseWriter, r *http.Request) {
	bases, err := s.store.ListBases(r.Context())
	if err != nil {
		s.logger.Error("list bases failed", "err", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	out := make([]baseResponse, 0, len(bases))
	for _, b := range bases {
		out = append(out, baseResponse{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			CreatedAt:   b.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDeleteBase handles DELETE /v1/knowledge/bases/{baseID}. Sources
// cascade.
func (s *Server) handleDeleteBase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("baseID")
	if err := s.store.DeleteBase(r.Context(), id); err != nil {
		s.logger.Error("delete base failed", "base", id, "err", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddSource handles PUT /v1/knowledge/bases/{baseID}/sources/{sourceID}.
// The content is embedded on ingest so it is immediately searchable.
func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	if s.embedder == nil {
		http.Error(w, "embeddings provider not configured", http.StatusServiceUnavailable)
		return
	}

	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Content == "" {
		http.Error(w, "title and content are required", http.StatusBadRequest)
		return
	}

	src := knowledge.Source{
		ID:      r.PathValue("sourceID"),
		BaseID:  r.PathValue("baseID"),
		Title:   req.Title,
		Content: req.Content,
	}

	vec, err := s.embedder.Embed(r.Context(), src.Content)
	if err != nil {
		s.logger.Error("embed source failed", "source", src.ID, "err", err)
		http.Error(w, "embedding failed", http.StatusBadGateway)
		return
	}

	if err := s.store.AddSource(r.Context(), src, vec); err != nil {
		s.logger.Error("add source failed", "source", src.ID, "err", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListSources handles GET /v1/knowledge/bases/{baseID}/sources.
// Content is omitted from the listing; it can be large.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	baseID := r.PathValue("baseID")
	sources, err := s.store.ListSources(r.Context(), baseID)
	if err != nil {
		s.logger.Error("list sources failed", "base", baseID, "err", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceResponse{
			ID:        src.ID,
			BaseID:    src.BaseID,
			Title:     src.Title,
			CreatedAt: src.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDeleteSource handles DELETE /v1/knowledge/bases/{baseID}/sources/{sourceID}.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sourceID")
	if err := s.store.DeleteSource(r.Context(), id); err != nil {
		s.logger.Error("delete source failed", "source", id, "err", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch handles GET /v1/knowledge/bases/{baseID}/search?q=...&k=N.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.embedder == nil {
		http.Error(w, "embeddings provider not configured", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	topK := defaultSearchTopK
	if k := r.URL.Query().Get("k"); k != "" {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			http.Error(w, "k must be a positive integer", http.StatusBadRequest)
			return
		}
		topK = n
	}

	baseID := r.PathValue("baseID")
	start := time.Now()

	vec, err := s.embedder.Embed(r.Context(), query)
	if err != nil {
		s.logger.Error("embed query failed", "base", baseID, "err", err)
		http.Error(w, "embedding failed", http.StatusBadGateway)
		return
	}

	results, err := s.store.Search(r.Context(), baseID, vec, topK)
	if err != nil {
		s.logger.Error("search failed", "base", baseID, "err", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	s.metrics.KnowledgeSearchDuration.Record(r.Context(), time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("base", baseID)),
	)

	out := make([]searchHit, 0, len(results))
	for _, res := range results {
		out = append(out, searchHit{
			ID:       res.Source.ID,
			Title:    res.Source.Title,
			Content:  res.Source.Content,
			Distance: res.Distance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
