// Package server exposes the small HTTP surface: health, view artifacts, and
// ad-hoc snapshot queries.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/funtuan/government-job-backend/internal/dispatch"
	"github.com/funtuan/government-job-backend/internal/model"
	"github.com/funtuan/government-job-backend/internal/worker"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 100
)

// Server serves the HTTP endpoints backed by the snapshot store and the
// orchestrator's query path.
type Server struct {
	views        model.SnapshotStore
	orchestrator *dispatch.Orchestrator
	logger       *slog.Logger
}

// New creates a Server.
func New(views model.SnapshotStore, orchestrator *dispatch.Orchestrator, logger *slog.Logger) *Server {
	return &Server{
		views:        views,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /view/{id}", s.handleView)
	mux.HandleFunc("POST /{$}", s.handleQuery)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "government-job-backend",
	})
}

// handleView renders a materialized match set as HTML. An expired or unknown
// id renders the empty view rather than an error; the artifact simply aged out.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, ok, err := s.views.Get(r.Context(), worker.ViewKeyPrefix+id)
	if err != nil {
		s.logger.Error("view lookup failed", "view", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var listings []model.Listing
	if ok {
		if err := json.Unmarshal(data, &listings); err != nil {
			s.logger.Error("view decode failed", "view", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, renderView(listings))
}

type queryRequest struct {
	Start     int                   `json:"start"`
	Limit     int                   `json:"limit"`
	Condition model.FilterCondition `json:"condition"`
}

// handleQuery filters the current snapshot with an ad-hoc condition and
// returns a page of matching listings as JSON.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Start < 0 {
		http.Error(w, "start must be non-negative", http.StatusBadRequest)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultQueryLimit
	}
	if req.Limit < 1 || req.Limit > maxQueryLimit {
		http.Error(w, fmt.Sprintf("limit must be between 1 and %d", maxQueryLimit), http.StatusBadRequest)
		return
	}

	listings, err := s.orchestrator.QuerySnapshot(r.Context(), req.Condition, req.Start, req.Limit)
	if err != nil {
		s.logger.Error("snapshot query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings)
}
