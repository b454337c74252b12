package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/mesoplan/internal/metrics"
	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/planning"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tailscale.com/client/local"
)

// PlanService is the planning functionality exposed over HTTP.
type PlanService interface {
	Plan(ctx context.Context, req planning.PlanRequest) (*volume.WeekPlan, error)
	Resolve(ctx context.Context, target volume.WeeklyVolumeTarget, c volume.VolumeConstraints) (volume.Resolution, error)
	Exercises(ctx context.Context, mg volume.MuscleGroup) ([]volume.ExercisePriority, error)
	SaveExercises(ctx context.Context, exercises []volume.ExercisePriority) (int64, error)
	CreateMesocycle(ctx context.Context, userID int, req planning.CreateRequest) (*planning.MesocycleWeek, error)
	Mesocycle(ctx context.Context, userID int, id uuid.UUID) (*models.Mesocycle, error)
	Mesocycles(ctx context.Context, userID int) ([]models.Mesocycle, error)
	Week(ctx context.Context, userID int, id uuid.UUID, week int) (*planning.MesocycleWeek, error)
	Advance(ctx context.Context, userID int, id uuid.UUID, req planning.AdvanceRequest) (*planning.MesocycleWeek, error)
	LogSets(ctx context.Context, userID int, sets []planning.SetInput) (*planning.LogSetsResult, error)
	Sets(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSetRow, error)
	PlanLogs(ctx context.Context, userID, limit int) ([]storage.PlanLog, error)
}

var _ PlanService = (*planning.Service)(nil)

// UserStore resolves tailnet identities to user ids.
type UserStore interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc     PlanService
	users   UserStore
	log     *slog.Logger
	apiKey  string
	metrics *metrics.Manager
	tsLocal *local.Client
	router  chi.Router
}

// New creates a new Server with all routes configured. m may be nil.
func New(svc PlanService, users UserStore, apiKey string, m *metrics.Manager, log *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		users:   users,
		log:     log,
		apiKey:  apiKey,
		metrics: m,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// identity picks Tailscale identity when a local client is set, dev identity otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tsLocal != nil {
			TailscaleIdentity(s.tsLocal, s.users, s.log)(next).ServeHTTP(w, r)
			return
		}
		DevIdentity(next).ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log, s.metrics))
	s.router.Use(CORS)

	// Set logging (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/sets", s.handleLogSets)
	})

	// Planning API (no auth, tsnet handles access)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)
		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/exercises", s.handleListExercises)
		r.Post("/api/v1/exercises", s.handleSaveExercises)
		r.Post("/api/v1/plan", s.handlePlan)
		r.Post("/api/v1/resolve", s.handleResolve)
		r.Get("/api/v1/mesocycles", s.handleListMesocycles)
		r.Post("/api/v1/mesocycles", s.handleCreateMesocycle)
		r.Get("/api/v1/mesocycles/{id}", s.handleGetMesocycle)
		r.Get("/api/v1/mesocycles/{id}/weeks/{week}", s.handleGetWeek)
		r.Post("/api/v1/mesocycles/{id}/advance", s.handleAdvance)
		r.Get("/api/v1/sets", s.handleListSets)
		r.Get("/api/v1/plan-logs", s.handlePlanLogs)
	})
}

// SetTailscale enables Tailscale identity resolution for planning routes.
func (s *Server) SetTailscale(lc *local.Client) {
	s.tsLocal = lc
}

// SetMetrics exposes the registry at /metrics.
func (s *Server) SetMetrics(reg prometheus.Gatherer) {
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

// SetMCP mounts the MCP streamable HTTP handler at /mcp. The handler sees the
// caller's user id through the request context.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(s.identity).Handle("/mcp", h)
}
