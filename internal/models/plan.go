package models

import (
	"time"

	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
)

// Mesocycle is a stored training block and the constraints it was planned with.
type Mesocycle struct {
	ID            uuid.UUID                  `json:"id"`
	UserID        int                        `json:"user_id"`
	Name          string                     `json:"name"`
	TotalWeeks    int                        `json:"total_weeks"`
	Strategy      volume.Strategy            `json:"strategy"`
	AvailableDays []int                      `json:"available_days"`
	StartDate     time.Time                  `json:"start_date"`
	Constraints   []volume.VolumeConstraints `json:"constraints"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// WeekWindow returns the [start, end) dates covered by week (1-based).
func (m Mesocycle) WeekWindow(week int) (time.Time, time.Time) {
	start := m.StartDate.AddDate(0, 0, (week-1)*7)
	return start, start.AddDate(0, 0, 7)
}

// WeekRow is one row of weekly_progressions.
type WeekRow struct {
	MesocycleID uuid.UUID
	Progression volume.MesocycleVolumeProgression
	Results     []volume.VolumeDistributionResult
	Allocations []volume.ExerciseVolumeAllocation
	CreatedAt   time.Time
}

// WorkoutSetRow is a performed set in the workout_sets table.
type WorkoutSetRow struct {
	UserID       int       `json:"user_id"`
	SessionDate  time.Time `json:"session_date"`
	ExerciseName string    `json:"exercise_name"`
	SetNumber    int       `json:"set_number"`
	WeightKg     float64   `json:"weight_kg"`
	Reps         int       `json:"reps"`
	RIR          *float64  `json:"rir,omitempty"`
	IsWarmup     bool      `json:"is_warmup"`
}
