package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/mesoplan/internal/planning"
)

func (s *Server) handlePlanLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.svc.PlanLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleLogSets stores performed sets pushed by a workout logger. API-key
// requests carry no tailnet identity and are attributed to user 1.
func (s *Server) handleLogSets(w http.ResponseWriter, r *http.Request) {
	var sets []planning.SetInput
	if !decodeJSON(w, r, &sets) {
		return
	}
	res, err := s.svc.LogSets(r.Context(), userIDFromContext(r), sets)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sets, err := s.svc.Sets(r.Context(), userIDFromContext(r), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

// parseTimeRange reads start and end query params. A missing start means the
// last 7 days; a date-only end includes that whole day.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	end = time.Now()
	if endStr != "" {
		var dateOnly bool
		if end, dateOnly, err = parseDate(endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		if dateOnly {
			end = end.Add(24 * time.Hour)
		}
	}

	if startStr == "" {
		return end.AddDate(0, 0, -7), end, nil
	}
	if start, _, err = parseDate(startStr); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t, true, err
}
