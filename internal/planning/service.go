// Package planning runs the volume engine against stored catalogs and
// mesocycles and records the outcome of every run.
package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/mesoplan/internal/metrics"
	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
)

// ErrInvalidInput marks request data rejected before reaching the engine.
var ErrInvalidInput = errors.New("invalid input")

// Options configures a Service.
type Options struct {
	DefaultStrategy   volume.Strategy
	DefaultTotalWeeks int
	AccumulationStep  int
	// Cache memoizes constraint resolutions. Nil disables caching.
	Cache volume.ResolutionCache
}

// Service wires the volume engine to storage, metrics and logging.
type Service struct {
	store      Store
	planner    volume.Planner
	progressor volume.Progressor
	opts       Options
	metrics    *metrics.Manager
	log        *slog.Logger
	now        func() time.Time
}

// New creates a planning service.
func New(store Store, opts Options, m *metrics.Manager, log *slog.Logger) *Service {
	if opts.DefaultStrategy == 0 {
		opts.DefaultStrategy = volume.Balanced
	}
	if opts.DefaultTotalWeeks <= 0 {
		opts.DefaultTotalWeeks = 5
	}
	return &Service{
		store:      store,
		planner:    volume.Planner{Resolver: volume.Resolver{Cache: opts.Cache}},
		progressor: volume.Progressor{AccumulationStep: opts.AccumulationStep},
		opts:       opts,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// PlanRequest is a stateless planning request. When Progression is nil a new
// week 1 is started from the constraints. An empty Catalog uses the stored one.
type PlanRequest struct {
	Progression   *volume.MesocycleVolumeProgression `json:"progression,omitempty"`
	MesocycleID   string                             `json:"mesocycle_id,omitempty"`
	TotalWeeks    int                                `json:"total_weeks,omitempty"`
	Constraints   []volume.VolumeConstraints         `json:"constraints"`
	Catalog       []volume.ExercisePriority          `json:"catalog,omitempty"`
	AvailableDays []int                              `json:"available_days"`
	Strategy      volume.Strategy                    `json:"strategy,omitempty"`
}

// Plan schedules one week without persisting anything.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (*volume.WeekPlan, error) {
	var progression volume.MesocycleVolumeProgression
	if req.Progression != nil {
		progression = *req.Progression
	} else {
		id := req.MesocycleID
		if id == "" {
			id = "adhoc"
		}
		var err error
		progression, err = s.progressor.Start(id, s.totalWeeks(req.TotalWeeks), req.Constraints)
		if err != nil {
			return nil, err
		}
	}

	catalog := req.Catalog
	if len(catalog) == 0 {
		var err error
		if catalog, err = s.store.ListExercises(ctx, 0); err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
	}

	plan, err := s.planWeek(volume.WeekRequest{
		Progression:   progression,
		Constraints:   req.Constraints,
		Catalog:       catalog,
		AvailableDays: req.AvailableDays,
		Strategy:      s.strategy(req.Strategy),
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Resolve applies a target's adjustment factor and clamps it to the landmarks.
func (s *Service) Resolve(_ context.Context, target volume.WeeklyVolumeTarget, c volume.VolumeConstraints) (volume.Resolution, error) {
	return s.planner.Resolver.Resolve(target, c)
}

// Exercises returns the stored catalog, optionally for one muscle group.
func (s *Service) Exercises(ctx context.Context, mg volume.MuscleGroup) ([]volume.ExercisePriority, error) {
	exercises, err := s.store.ListExercises(ctx, mg)
	if err != nil {
		return nil, fmt.Errorf("listing exercises: %w", err)
	}
	if exercises == nil {
		exercises = []volume.ExercisePriority{}
	}
	return exercises, nil
}

// SaveExercises validates and upserts catalog entries.
func (s *Service) SaveExercises(ctx context.Context, exercises []volume.ExercisePriority) (int64, error) {
	seen := make(map[int64]bool, len(exercises))
	for _, e := range exercises {
		if e.ExerciseID <= 0 {
			return 0, &volume.ConfigurationError{MuscleGroup: e.MuscleGroup, Reason: "exercise id must be positive"}
		}
		if strings.TrimSpace(e.Name) == "" {
			return 0, &volume.ConfigurationError{MuscleGroup: e.MuscleGroup, Reason: fmt.Sprintf("exercise %d has no name", e.ExerciseID)}
		}
		if seen[e.ExerciseID] {
			return 0, &volume.ConfigurationError{MuscleGroup: e.MuscleGroup, Reason: fmt.Sprintf("duplicate exercise id %d", e.ExerciseID)}
		}
		if err := e.Validate(); err != nil {
			return 0, err
		}
		seen[e.ExerciseID] = true
	}

	n, err := s.store.UpsertExercises(ctx, exercises)
	if err != nil {
		return 0, fmt.Errorf("saving exercises: %w", err)
	}
	s.log.Info("catalog updated", "exercises", len(exercises), "written", n)
	return n, nil
}

// SetInput is one performed set as submitted by a client.
type SetInput struct {
	SessionDate  time.Time `json:"session_date"`
	ExerciseName string    `json:"exercise_name"`
	SetNumber    int       `json:"set_number"`
	WeightKg     float64   `json:"weight_kg"`
	Reps         int       `json:"reps"`
	RIR          *float64  `json:"rir,omitempty"`
	IsWarmup     bool      `json:"is_warmup"`
}

// LogSetsResult reports how many submitted sets were stored.
type LogSetsResult struct {
	SetsReceived int   `json:"sets_received"`
	SetsInserted int64 `json:"sets_inserted"`
	SetsSkipped  int64 `json:"sets_skipped"`
}

// LogSets stores performed sets for userID. Duplicates are skipped.
func (s *Service) LogSets(ctx context.Context, userID int, sets []SetInput) (*LogSetsResult, error) {
	rows := make([]models.WorkoutSetRow, 0, len(sets))
	for i, in := range sets {
		switch {
		case in.SessionDate.IsZero():
			return nil, fmt.Errorf("%w: set %d: session_date is required", ErrInvalidInput, i)
		case strings.TrimSpace(in.ExerciseName) == "":
			return nil, fmt.Errorf("%w: set %d: exercise_name is required", ErrInvalidInput, i)
		case in.SetNumber < 1:
			return nil, fmt.Errorf("%w: set %d: set_number must be positive", ErrInvalidInput, i)
		case in.Reps < 0:
			return nil, fmt.Errorf("%w: set %d: reps must not be negative", ErrInvalidInput, i)
		}
		rows = append(rows, models.WorkoutSetRow{
			UserID:       userID,
			SessionDate:  in.SessionDate,
			ExerciseName: strings.TrimSpace(in.ExerciseName),
			SetNumber:    in.SetNumber,
			WeightKg:     in.WeightKg,
			Reps:         in.Reps,
			RIR:          in.RIR,
			IsWarmup:     in.IsWarmup,
		})
	}

	inserted, err := s.store.InsertWorkoutSets(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("storing sets: %w", err)
	}
	return &LogSetsResult{
		SetsReceived: len(rows),
		SetsInserted: inserted,
		SetsSkipped:  int64(len(rows)) - inserted,
	}, nil
}

// Sets returns the sets userID performed in [start, end), newest first.
func (s *Service) Sets(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSetRow, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidInput,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	sets, err := s.store.QueryWorkoutSets(ctx, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}
	if sets == nil {
		sets = []models.WorkoutSetRow{}
	}
	return sets, nil
}

// PlanLogs returns the most recent planning runs for userID.
func (s *Service) PlanLogs(ctx context.Context, userID, limit int) ([]storage.PlanLog, error) {
	logs, err := s.store.QueryPlanLogs(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing plan logs: %w", err)
	}
	if logs == nil {
		logs = []storage.PlanLog{}
	}
	return logs, nil
}

// planWeek runs the engine and records metrics for the run.
func (s *Service) planWeek(req volume.WeekRequest) (volume.WeekPlan, error) {
	start := s.now()
	plan, err := s.planner.PlanWeek(req)
	if s.metrics != nil {
		s.metrics.HistPlanDuration.Observe(s.now().Sub(start).Seconds())
	}
	if err != nil {
		s.observe("error", nil)
		s.log.Warn("plan rejected", "week", req.Progression.WeekNumber, "error", err)
		return volume.WeekPlan{}, err
	}

	failed := plan.FailedGroups()
	outcome := "ok"
	if len(failed) > 0 {
		outcome = "partial"
	}
	s.observe(outcome, &plan)
	s.log.Info("week planned",
		"mesocycle", req.Progression.MesocycleID,
		"week", req.Progression.WeekNumber,
		"phase", req.Progression.ExpectedPhase,
		"exercises", len(plan.Allocations),
		"warnings", plan.WarningCount(),
		"failed_groups", len(failed),
	)
	return plan, nil
}

func (s *Service) observe(outcome string, plan *volume.WeekPlan) {
	if s.metrics == nil {
		return
	}
	s.metrics.CounterPlanRuns.WithLabelValues(outcome).Inc()
	if plan == nil {
		return
	}
	s.metrics.CounterPlanWarnings.Add(float64(plan.WarningCount()))
	for _, mg := range plan.FailedGroups() {
		s.metrics.CounterAllocationErrors.WithLabelValues(mg.String()).Inc()
	}
}

func (s *Service) strategy(st volume.Strategy) volume.Strategy {
	if st == 0 {
		return s.opts.DefaultStrategy
	}
	return st
}

func (s *Service) totalWeeks(n int) int {
	if n <= 0 {
		return s.opts.DefaultTotalWeeks
	}
	return n
}
