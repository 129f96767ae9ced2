package http

import (
	"net/http"
)

// handleStatistics serves the dashboard read model for ?timeFilter=
// (all, today, week, month, year; default all).
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := q.Get("timeFilter")
	if filter == "" {
		filter = q.Get("time_filter")
	}
	stats, err := s.svc.Statistics.GetStatistics(r.Context(), filter)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, stats)
}
