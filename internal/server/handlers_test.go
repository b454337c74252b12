package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/mesoplan/internal/metrics"
	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/planning"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
)

// stubService returns canned values and records what it was called with.
type stubService struct {
	err error

	gotUserID  int
	gotWeek    int
	gotID      uuid.UUID
	gotPlan    planning.PlanRequest
	gotAdvance planning.AdvanceRequest
	gotSets    []planning.SetInput
	gotMG      volume.MuscleGroup
	gotStart   time.Time
	gotEnd     time.Time
}

func (s *stubService) Plan(_ context.Context, req planning.PlanRequest) (*volume.WeekPlan, error) {
	s.gotPlan = req
	if s.err != nil {
		return nil, s.err
	}
	return &volume.WeekPlan{Progression: volume.MesocycleVolumeProgression{WeekNumber: 1}}, nil
}

func (s *stubService) Resolve(_ context.Context, target volume.WeeklyVolumeTarget, c volume.VolumeConstraints) (volume.Resolution, error) {
	return volume.Resolve(target, c)
}

func (s *stubService) Exercises(_ context.Context, mg volume.MuscleGroup) ([]volume.ExercisePriority, error) {
	s.gotMG = mg
	return []volume.ExercisePriority{}, s.err
}

func (s *stubService) SaveExercises(_ context.Context, exercises []volume.ExercisePriority) (int64, error) {
	return int64(len(exercises)), s.err
}

func (s *stubService) CreateMesocycle(_ context.Context, userID int, req planning.CreateRequest) (*planning.MesocycleWeek, error) {
	s.gotUserID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &planning.MesocycleWeek{Mesocycle: &models.Mesocycle{ID: uuid.New(), Name: req.Name}}, nil
}

func (s *stubService) Mesocycle(_ context.Context, userID int, id uuid.UUID) (*models.Mesocycle, error) {
	s.gotUserID, s.gotID = userID, id
	if s.err != nil {
		return nil, s.err
	}
	return &models.Mesocycle{ID: id}, nil
}

func (s *stubService) Mesocycles(_ context.Context, userID int) ([]models.Mesocycle, error) {
	s.gotUserID = userID
	return []models.Mesocycle{}, s.err
}

func (s *stubService) Week(_ context.Context, userID int, id uuid.UUID, week int) (*planning.MesocycleWeek, error) {
	s.gotUserID, s.gotID, s.gotWeek = userID, id, week
	if s.err != nil {
		return nil, s.err
	}
	return &planning.MesocycleWeek{}, nil
}

func (s *stubService) Advance(_ context.Context, userID int, id uuid.UUID, req planning.AdvanceRequest) (*planning.MesocycleWeek, error) {
	s.gotUserID, s.gotID, s.gotAdvance = userID, id, req
	if s.err != nil {
		return nil, s.err
	}
	return &planning.MesocycleWeek{}, nil
}

func (s *stubService) LogSets(_ context.Context, userID int, sets []planning.SetInput) (*planning.LogSetsResult, error) {
	s.gotUserID, s.gotSets = userID, sets
	if s.err != nil {
		return nil, s.err
	}
	return &planning.LogSetsResult{SetsReceived: len(sets), SetsInserted: int64(len(sets))}, nil
}

func (s *stubService) Sets(_ context.Context, userID int, start, end time.Time) ([]models.WorkoutSetRow, error) {
	s.gotUserID, s.gotStart, s.gotEnd = userID, start, end
	return []models.WorkoutSetRow{}, s.err
}

func (s *stubService) PlanLogs(_ context.Context, userID, _ int) ([]storage.PlanLog, error) {
	s.gotUserID = userID
	return []storage.PlanLog{}, s.err
}

var _ PlanService = (*stubService)(nil)

func newTestServer(svc PlanService) *Server {
	return New(svc, nil, "test-key", metrics.NewTestManager(), slog.Default())
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
}

// TestErrorMapping verifies service errors map to the documented status codes.
func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration", &volume.ConfigurationError{MuscleGroup: volume.Chest, Reason: "bad"}, http.StatusUnprocessableEntity},
		{"allocation", fmt.Errorf("planning: %w", &volume.AllocationError{MuscleGroup: volume.Lats, Category: "compound", Sets: 6}), http.StatusUnprocessableEntity},
		{"complete", fmt.Errorf("week 5 of 5: %w", volume.ErrMesocycleComplete), http.StatusConflict},
		{"not found", fmt.Errorf("mesocycle: %w", storage.ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("%w: set 0", planning.ErrInvalidInput), http.StatusBadRequest},
		{"other", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubService{err: tt.err})
			rec := do(t, s, http.MethodPost, "/api/v1/mesocycles/"+uuid.NewString()+"/advance", "", nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("expected JSON error body, got %v", err)
			}
		})
	}
}

// TestAdvanceBody verifies an empty body is accepted and a phase override is decoded.
func TestAdvanceBody(t *testing.T) {
	svc := &stubService{}
	s := newTestServer(svc)
	id := uuid.New()

	rec := do(t, s, http.MethodPost, "/api/v1/mesocycles/"+id.String()+"/advance", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.gotID != id || svc.gotAdvance.Phase != nil {
		t.Errorf("got id %s phase %v", svc.gotID, svc.gotAdvance.Phase)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/mesocycles/"+id.String()+"/advance",
		`{"phase":"deload","achieved_sets":{"chest":12}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.gotAdvance.Phase == nil || *svc.gotAdvance.Phase != volume.Deload {
		t.Errorf("phase = %v, want deload", svc.gotAdvance.Phase)
	}
	if svc.gotAdvance.AchievedSets[volume.Chest] != 12 {
		t.Errorf("achieved = %v", svc.gotAdvance.AchievedSets)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/mesocycles/"+id.String()+"/advance", `{"phase":"peaking"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown phase", rec.Code)
	}
}

// TestInvalidPathParams verifies malformed ids and week numbers are rejected.
func TestInvalidPathParams(t *testing.T) {
	s := newTestServer(&stubService{})
	if rec := do(t, s, http.MethodGet, "/api/v1/mesocycles/not-a-uuid", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/mesocycles/"+uuid.NewString()+"/weeks/two", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad week: status = %d, want 400", rec.Code)
	}
}

// TestGetWeek verifies path params and the dev user reach the service.
func TestGetWeek(t *testing.T) {
	svc := &stubService{}
	s := newTestServer(svc)
	id := uuid.New()

	rec := do(t, s, http.MethodGet, "/api/v1/mesocycles/"+id.String()+"/weeks/3", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.gotID != id || svc.gotWeek != 3 || svc.gotUserID != 1 {
		t.Errorf("got id=%s week=%d user=%d", svc.gotID, svc.gotWeek, svc.gotUserID)
	}
}

// TestCreateMesocycle verifies creation answers 201.
func TestCreateMesocycle(t *testing.T) {
	s := newTestServer(&stubService{})
	rec := do(t, s, http.MethodPost, "/api/v1/mesocycles", `{"name":"Block A","available_days":[1,3,5],"constraints":[]}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/mesocycles", `{"name":`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("truncated JSON: status = %d, want 400", rec.Code)
	}
}

// TestPlanDecodesEnums verifies text enums in the request body decode.
func TestPlanDecodesEnums(t *testing.T) {
	svc := &stubService{}
	s := newTestServer(svc)
	body := `{"strategy":"COMPOUND_HEAVY","available_days":[1,4],
		"constraints":[{"muscle_group":"chest","weekly_min":10,"weekly_max":20,"weekly_limit":24,"frequency_min":2,"frequency_max":3}]}`

	rec := do(t, s, http.MethodPost, "/api/v1/plan", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if svc.gotPlan.Strategy != volume.CompoundHeavy {
		t.Errorf("strategy = %v", svc.gotPlan.Strategy)
	}
	if len(svc.gotPlan.Constraints) != 1 || svc.gotPlan.Constraints[0].MuscleGroup != volume.Chest {
		t.Errorf("constraints = %+v", svc.gotPlan.Constraints)
	}
}

// TestResolve verifies the resolve endpoint returns clamped sets.
func TestResolve(t *testing.T) {
	s := newTestServer(&stubService{})
	body := `{"target":{"muscle_group":"chest","target_sets":30,"adjustment_factor":1},
		"constraints":{"muscle_group":"chest","weekly_min":10,"weekly_max":20,"weekly_limit":24,"frequency_min":2,"frequency_max":3}}`

	rec := do(t, s, http.MethodPost, "/api/v1/resolve", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var res volume.Resolution
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.ClampedSets != 24 {
		t.Errorf("clamped = %d, want 24", res.ClampedSets)
	}
}

// TestListExercisesFilter verifies the muscle_group filter is parsed.
func TestListExercisesFilter(t *testing.T) {
	svc := &stubService{}
	s := newTestServer(svc)
	if rec := do(t, s, http.MethodGet, "/api/v1/exercises?muscle_group=quads", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.gotMG != volume.Quads {
		t.Errorf("muscle group = %v, want quads", svc.gotMG)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/exercises?muscle_group=neck", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestLogSetsRequiresAPIKey verifies set logging is protected.
func TestLogSetsRequiresAPIKey(t *testing.T) {
	svc := &stubService{}
	s := newTestServer(svc)
	body := `[{"session_date":"2026-03-03T18:00:00Z","exercise_name":"Squat","set_number":1,"weight_kg":100,"reps":5}]`

	if rec := do(t, s, http.MethodPost, "/api/v1/sets", body, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/v1/sets", body, map[string]string{"X-API-Key": "test-key"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(svc.gotSets) != 1 || svc.gotSets[0].ExerciseName != "Squat" {
		t.Errorf("sets = %+v", svc.gotSets)
	}
}

// TestMetricsEndpoint verifies /metrics serves the registry once enabled.
func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	m := metrics.NewManager("mesoplan", "http", reg)
	s := New(&stubService{}, nil, "k", m, slog.Default())
	s.SetMetrics(reg)

	do(t, s, http.MethodGet, "/api/v1/mesocycles", "", nil)
	rec := do(t, s, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("mesoplan_http_requests_total")) {
		t.Error("expected request counter in metrics output")
	}
}

// TestListSetsRange verifies the query range reaches the service and GET
// does not need the API key.
func TestListSetsRange(t *testing.T) {
	svc := &stubService{}
	s := newTestServer(svc)

	rec := do(t, s, http.MethodGet, "/api/v1/sets?start=2026-03-02&end=2026-03-08", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	wantStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !svc.gotStart.Equal(wantStart) || !svc.gotEnd.Equal(wantEnd) {
		t.Errorf("range = %s..%s, want %s..%s", svc.gotStart, svc.gotEnd, wantStart, wantEnd)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/sets?start=last-week", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestParseTimeRangeDefault verifies the 7 day default window.
func TestParseTimeRangeDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sets", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatal(err)
	}
	if d := end.Sub(start); d != 7*24*time.Hour {
		t.Errorf("window = %s, want 168h", d)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sets?start=2026-03-02T06:00:00Z&end=2026-03-02T20:00:00Z", nil)
	start, end, err = parseTimeRange(req)
	if err != nil {
		t.Fatal(err)
	}
	if start.Hour() != 6 || end.Hour() != 20 {
		t.Errorf("range = %s..%s", start, end)
	}
}
