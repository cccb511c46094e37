package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/orchestrator"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Search.DefaultMaxResults, s.config.Search.DefaultThreshold); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("max_results", req.MaxResults))

	results, err := s.orch.Search(r.Context(), req.Query, req.MaxResults, *req.Threshold)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotReady) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Query:         req.Query,
		Results:       results,
		TotalResults:  len(results),
		ExecutionTime: time.Since(start).Seconds(),
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	s.logger.Debug("process request", zap.Bool("force_update", req.ForceUpdate))
	result := s.orch.Process(r.Context(), req.ForceUpdate)
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if !s.orch.Rebuild() {
		s.respondJSON(w, http.StatusConflict, map[string]string{"status": "rebuild already running"})
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "rebuild started"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.orch.Stats(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
