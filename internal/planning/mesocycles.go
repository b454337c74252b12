package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
)

// CreateRequest starts a new mesocycle.
type CreateRequest struct {
	Name          string                     `json:"name"`
	TotalWeeks    int                        `json:"total_weeks,omitempty"`
	Strategy      volume.Strategy            `json:"strategy,omitempty"`
	AvailableDays []int                      `json:"available_days"`
	StartDate     time.Time                  `json:"start_date,omitempty"`
	Constraints   []volume.VolumeConstraints `json:"constraints"`
}

// Signal updates the recovery and adaptation levels of one muscle group.
type Signal struct {
	MuscleGroup     volume.MuscleGroup `json:"muscle_group"`
	RecoveryLevel   *float64           `json:"recovery_level,omitempty"`
	AdaptationLevel *float64           `json:"adaptation_level,omitempty"`
}

// AdvanceRequest plans the week after the latest stored one. AchievedSets,
// when set, replaces the counts derived from logged sets.
type AdvanceRequest struct {
	Phase        *volume.Phase              `json:"phase,omitempty"`
	Signals      []Signal                   `json:"signals,omitempty"`
	AchievedSets map[volume.MuscleGroup]int `json:"achieved_sets,omitempty"`
}

// MesocycleWeek is a stored mesocycle together with one planned week.
type MesocycleWeek struct {
	Mesocycle *models.Mesocycle `json:"mesocycle"`
	Plan      volume.WeekPlan   `json:"plan"`
}

// CreateMesocycle stores a new mesocycle and plans its first week.
func (s *Service) CreateMesocycle(ctx context.Context, userID int, req CreateRequest) (*MesocycleWeek, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &volume.ConfigurationError{Reason: "mesocycle name is required"}
	}
	if len(req.AvailableDays) == 0 {
		return nil, &volume.ConfigurationError{Reason: "at least one available day is required"}
	}
	if len(req.Constraints) == 0 {
		return nil, &volume.ConfigurationError{Reason: "at least one muscle group constraint is required"}
	}

	start := req.StartDate
	if start.IsZero() {
		start = s.now()
	}
	m := models.Mesocycle{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          strings.TrimSpace(req.Name),
		TotalWeeks:    s.totalWeeks(req.TotalWeeks),
		Strategy:      s.strategy(req.Strategy),
		AvailableDays: uniqueDays(req.AvailableDays),
		StartDate:     start.UTC().Truncate(24 * time.Hour),
		Constraints:   req.Constraints,
	}

	progression, err := s.progressor.Start(m.ID.String(), m.TotalWeeks, m.Constraints)
	if err != nil {
		return nil, err
	}
	plan, err := s.planStored(ctx, &m, progression)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateMesocycle(ctx, m); err != nil {
		return nil, fmt.Errorf("storing mesocycle: %w", err)
	}
	if err := s.saveWeek(ctx, &m, plan); err != nil {
		return nil, err
	}
	s.log.Info("mesocycle created", "id", m.ID, "name", m.Name, "weeks", m.TotalWeeks, "strategy", m.Strategy)
	return &MesocycleWeek{Mesocycle: &m, Plan: plan}, nil
}

// Mesocycle returns a stored mesocycle.
func (s *Service) Mesocycle(ctx context.Context, userID int, id uuid.UUID) (*models.Mesocycle, error) {
	m, err := s.store.GetMesocycle(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("loading mesocycle: %w", err)
	}
	return m, nil
}

// Mesocycles lists a user's mesocycles, newest first.
func (s *Service) Mesocycles(ctx context.Context, userID int) ([]models.Mesocycle, error) {
	ms, err := s.store.ListMesocycles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing mesocycles: %w", err)
	}
	if ms == nil {
		ms = []models.Mesocycle{}
	}
	return ms, nil
}

// Week returns a stored week of a mesocycle with its day views rebuilt.
func (s *Service) Week(ctx context.Context, userID int, id uuid.UUID, week int) (*MesocycleWeek, error) {
	m, err := s.Mesocycle(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if week < 1 || week > m.TotalWeeks {
		return nil, fmt.Errorf("week %d of %d: %w", week, m.TotalWeeks, storage.ErrNotFound)
	}
	row, err := s.store.GetWeek(ctx, id, week)
	if err != nil {
		return nil, fmt.Errorf("loading week %d: %w", week, err)
	}
	return &MesocycleWeek{Mesocycle: m, Plan: weekPlan(m, row)}, nil
}

// Advance plans the week after the latest stored week. Achieved sets for the
// latest week are taken from the request or counted from logged sets.
func (s *Service) Advance(ctx context.Context, userID int, id uuid.UUID, req AdvanceRequest) (*MesocycleWeek, error) {
	m, err := s.Mesocycle(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestWeek(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading latest week: %w", err)
	}
	previous := latest.Progression

	if len(req.Signals) > 0 {
		updated, err := applySignals(m.Constraints, req.Signals)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdateConstraints(ctx, id, updated); err != nil {
			return nil, fmt.Errorf("storing signals: %w", err)
		}
		m.Constraints = updated
	}

	achieved := req.AchievedSets
	if achieved == nil {
		from, to := m.WeekWindow(previous.WeekNumber)
		if achieved, err = s.store.AchievedSets(ctx, userID, from, to); err != nil {
			return nil, fmt.Errorf("counting achieved sets: %w", err)
		}
	}
	if len(achieved) > 0 {
		previous.AchievedSets = achieved
		if err := s.store.RecordAchievedSets(ctx, id, previous.WeekNumber, achieved); err != nil {
			return nil, fmt.Errorf("recording achieved sets: %w", err)
		}
	}

	next, err := s.progressor.NextWeek(previous, m.Constraints, req.Phase)
	if err != nil {
		s.logRun(ctx, m, previous.WeekNumber+1, nil, err)
		return nil, err
	}
	plan, err := s.planStored(ctx, m, next)
	if err != nil {
		return nil, err
	}
	if err := s.saveWeek(ctx, m, plan); err != nil {
		return nil, err
	}
	s.log.Info("mesocycle advanced", "id", id, "week", next.WeekNumber, "phase", next.ExpectedPhase,
		"volume", next.TotalWeeklyVolume, "change", next.VolumeIncreaseFromPrevious)
	return &MesocycleWeek{Mesocycle: m, Plan: plan}, nil
}

// planStored plans a progression for a stored mesocycle using the stored catalog.
func (s *Service) planStored(ctx context.Context, m *models.Mesocycle, p volume.MesocycleVolumeProgression) (volume.WeekPlan, error) {
	catalog, err := s.store.ListExercises(ctx, 0)
	if err != nil {
		return volume.WeekPlan{}, fmt.Errorf("loading catalog: %w", err)
	}
	plan, err := s.planWeek(volume.WeekRequest{
		Progression:   p,
		Constraints:   m.Constraints,
		Catalog:       catalog,
		AvailableDays: m.AvailableDays,
		Strategy:      m.Strategy,
	})
	if err != nil {
		s.logRun(ctx, m, p.WeekNumber, nil, err)
		return volume.WeekPlan{}, err
	}
	return plan, nil
}

func (s *Service) saveWeek(ctx context.Context, m *models.Mesocycle, plan volume.WeekPlan) error {
	err := s.store.SaveWeek(ctx, models.WeekRow{
		MesocycleID: m.ID,
		Progression: plan.Progression,
		Results:     plan.Results,
		Allocations: plan.Allocations,
	})
	if err != nil {
		return fmt.Errorf("storing week %d: %w", plan.Progression.WeekNumber, err)
	}
	s.logRun(ctx, m, plan.Progression.WeekNumber, &plan, nil)
	return nil
}

// logRun writes a plan log entry. Failures are logged and otherwise ignored.
func (s *Service) logRun(ctx context.Context, m *models.Mesocycle, week int, plan *volume.WeekPlan, runErr error) {
	entry := storage.PlanLog{
		UserID:      m.UserID,
		Source:      "api",
		Status:      "success",
		MesocycleID: &m.ID,
		WeekNumber:  &week,
	}
	if plan != nil {
		entry.Warnings = plan.WarningCount()
		entry.FailedGroups = len(plan.FailedGroups())
		if entry.FailedGroups > 0 {
			entry.Status = "partial"
			if meta, err := json.Marshal(map[string]any{"failed": plan.FailedGroups()}); err == nil {
				raw := json.RawMessage(meta)
				entry.Metadata = &raw
			}
		}
	}
	if runErr != nil {
		entry.Status = "error"
		if errors.Is(runErr, volume.ErrMesocycleComplete) {
			entry.Status = "complete"
		}
		msg := runErr.Error()
		entry.ErrorMessage = &msg
	}
	if _, err := s.store.InsertPlanLog(ctx, entry); err != nil {
		s.log.Warn("failed to write plan log", "mesocycle", m.ID, "week", week, "error", err)
	}
}

// weekPlan rebuilds a WeekPlan from a stored week.
func weekPlan(m *models.Mesocycle, row *models.WeekRow) volume.WeekPlan {
	return volume.WeekPlan{
		Progression: row.Progression,
		Allocations: row.Allocations,
		Results:     row.Results,
		Days:        volume.DayViews(uniqueDays(m.AvailableDays), row.Allocations),
	}
}

// applySignals returns a copy of constraints with the signals applied.
func applySignals(constraints []volume.VolumeConstraints, signals []Signal) ([]volume.VolumeConstraints, error) {
	out := append([]volume.VolumeConstraints(nil), constraints...)
	for _, sig := range signals {
		i := -1
		for j := range out {
			if out[j].MuscleGroup == sig.MuscleGroup {
				i = j
				break
			}
		}
		if i < 0 {
			return nil, &volume.ConfigurationError{MuscleGroup: sig.MuscleGroup, Reason: "signal for a muscle group outside the mesocycle"}
		}
		if sig.RecoveryLevel != nil {
			out[i].RecoveryLevel = sig.RecoveryLevel
		}
		if sig.AdaptationLevel != nil {
			out[i].AdaptationLevel = sig.AdaptationLevel
		}
		if err := out[i].Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// uniqueDays returns the sorted distinct entries of days.
func uniqueDays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}
