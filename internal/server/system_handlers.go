package server

import (
	"net/http"
	"strconv"
	"time"

	"StockSimDesk/internal/recorder"
)

const timeLayout = time.RFC3339

// handleHealth reports liveness and whether a user is signed in.
// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := s.sessions.Current()
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"signedIn":  err == nil,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now().Format(timeLayout),
	})
}

// handleCallStats summarizes recorded gateway calls per action over the last hours (default 24).
// GET /api/stats/calls?hours=
func (s *Server) handleCallStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeJSON(w, r, http.StatusOK, []recorder.CallSummary{})
		return
	}
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, &badRequest{msg: "hours must be a positive integer"})
			return
		}
		hours = n
	}
	list, err := s.stats.CallSummaries(time.Now().Add(-time.Duration(hours) * time.Hour))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []recorder.CallSummary{}
	}
	s.writeJSON(w, r, http.StatusOK, list)
}
