package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/coachmem/internal/embedding"
	"github.com/hyperjump/coachmem/internal/models"
)

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var params models.AddParams
	if !s.decode(w, r, &params) {
		return
	}
	if err := params.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("add item request", zap.String("type", params.Type), zap.Int("text_len", len(params.Text)))
	item, err := s.engine.Add(r.Context(), params)
	if err != nil {
		s.fail(w, "add item failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleBulkAdd(w http.ResponseWriter, r *http.Request) {
	var req models.BulkAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	for i := range req.Items {
		if err := req.Items[i].Validate(); err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("item %d: %v", i, err))
			return
		}
	}
	s.logger.Debug("bulk add request", zap.Int("items", len(req.Items)))
	items, err := s.engine.BulkAdd(r.Context(), req.Items)
	if err != nil {
		s.fail(w, "bulk add failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, models.ItemsResponse{Items: items, Total: len(items)})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.engine.ListAll(r.Context())
	if err != nil {
		s.fail(w, "list items failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.ItemsResponse{Items: items, Total: len(items)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if !s.decode(w, r, &query) {
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("k", query.K))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	var req models.PruneRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	removed, err := s.engine.Prune(r.Context(), req.MaxItems)
	if err != nil {
		s.fail(w, "prune failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.PruneResponse{Removed: removed, Size: s.engine.Size()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Status(r.Context(), s.engine, s.config))
}

// handleEmbed serves the remote embedding contract: {"text"} -> {"embedding"}.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedding.EmbedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	vec, err := s.embedder.Embed(r.Context(), req.Text)
	if err != nil {
		s.fail(w, "embed failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, embedding.EmbedResponse{Embedding: vec})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
