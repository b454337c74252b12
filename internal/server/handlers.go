package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/claude/mesoplan/internal/planning"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies; a full catalog plus constraints is well under it.
const maxBodyBytes = 1 << 20

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	var mg volume.MuscleGroup
	if v := r.URL.Query().Get("muscle_group"); v != "" {
		parsed, err := volume.ParseMuscleGroup(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		mg = parsed
	}
	exercises, err := s.svc.Exercises(r.Context(), mg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleSaveExercises(w http.ResponseWriter, r *http.Request) {
	var exercises []volume.ExercisePriority
	if !decodeJSON(w, r, &exercises) {
		return
	}
	n, err := s.svc.SaveExercises(r.Context(), exercises)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"written": n})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planning.PlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, err := s.svc.Plan(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type resolveRequest struct {
	Target      volume.WeeklyVolumeTarget `json:"target"`
	Constraints volume.VolumeConstraints  `json:"constraints"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Resolve(r.Context(), req.Target, req.Constraints)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListMesocycles(w http.ResponseWriter, r *http.Request) {
	ms, err := s.svc.Mesocycles(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleCreateMesocycle(w http.ResponseWriter, r *http.Request) {
	var req planning.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mw, err := s.svc.CreateMesocycle(r.Context(), userIDFromContext(r), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mw)
}

func (s *Server) handleGetMesocycle(w http.ResponseWriter, r *http.Request) {
	id, ok := mesocycleID(w, r)
	if !ok {
		return
	}
	m, err := s.svc.Mesocycle(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetWeek(w http.ResponseWriter, r *http.Request) {
	id, ok := mesocycleID(w, r)
	if !ok {
		return
	}
	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid week number"})
		return
	}
	mw, err := s.svc.Week(r.Context(), userIDFromContext(r), id, week)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mw)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id, ok := mesocycleID(w, r)
	if !ok {
		return
	}
	var req planning.AdvanceRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	mw, err := s.svc.Advance(r.Context(), userIDFromContext(r), id, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mw)
}

func mesocycleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid mesocycle id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case volume.IsConfigurationError(err), volume.IsAllocationError(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, volume.ErrMesocycleComplete):
		status = http.StatusConflict
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, planning.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// decodeOptionalJSON accepts an empty body, leaving v unchanged.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid JSON: %v", err)})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
