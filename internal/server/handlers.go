package server

import (
	"encoding/json"
	"net/http"

	"github.com/rickgao/hashwatch/internal/api"
	"github.com/rickgao/hashwatch/internal/series"
	"github.com/rickgao/hashwatch/internal/version"
)

// HealthResponse is the /health body.
type HealthResponse struct {
	Status      string            `json:"status"`
	State       string            `json:"state"`
	Samples     int               `json:"samples"`
	SpanMs      int64             `json:"spanMs"`
	Cursor      *int64            `json:"cursor,omitempty"`
	WriteErrors int64             `json:"writeErrors"`
	Subscribers int               `json:"subscribers"`
	Latency     *api.LatencyStats `json:"deviceLatency,omitempty"`
	Version     string            `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()
	resp := HealthResponse{
		Status:      "ok",
		Samples:     len(snap),
		SpanMs:      snap.SpanMs(),
		WriteErrors: s.deps.Store.WriteErrors(),
		Version:     version.String(),
	}
	if s.deps.State != nil {
		resp.State = s.deps.State()
	}
	if cursor, ok := s.deps.Store.Cursor(); ok {
		resp.Cursor = &cursor
	}
	if s.deps.Hub != nil {
		resp.Subscribers = s.deps.Hub.Subscribers()
	}
	if s.deps.Latency != nil {
		stats := s.deps.Latency()
		resp.Latency = &stats
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, series.ToEnvelope(s.deps.Store.Snapshot()))
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	u, ok := s.deps.Hub.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reset == nil {
		http.Error(w, "reset unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := s.deps.Reset(r.Context()); err != nil {
		s.logger.Warn("reset failed", "err", err)
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	s.logger.Info("series reset via http")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encode response", "err", err)
	}
}
