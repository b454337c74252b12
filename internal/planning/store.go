package planning

import (
	"context"
	"time"

	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
)

// Store is the persistence the planning service needs.
type Store interface {
	ListExercises(ctx context.Context, mg volume.MuscleGroup) ([]volume.ExercisePriority, error)
	UpsertExercises(ctx context.Context, exercises []volume.ExercisePriority) (int64, error)

	CreateMesocycle(ctx context.Context, m models.Mesocycle) error
	GetMesocycle(ctx context.Context, id uuid.UUID, userID int) (*models.Mesocycle, error)
	ListMesocycles(ctx context.Context, userID int) ([]models.Mesocycle, error)
	UpdateConstraints(ctx context.Context, id uuid.UUID, constraints []volume.VolumeConstraints) error

	SaveWeek(ctx context.Context, row models.WeekRow) error
	GetWeek(ctx context.Context, id uuid.UUID, week int) (*models.WeekRow, error)
	LatestWeek(ctx context.Context, id uuid.UUID) (*models.WeekRow, error)
	RecordAchievedSets(ctx context.Context, id uuid.UUID, week int, achieved map[volume.MuscleGroup]int) error

	InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutSetRow, error)
	AchievedSets(ctx context.Context, userID int, start, end time.Time) (map[volume.MuscleGroup]int, error)

	InsertPlanLog(ctx context.Context, log storage.PlanLog) (int64, error)
	QueryPlanLogs(ctx context.Context, userID, limit int) ([]storage.PlanLog, error)
}

// Compile-time check that *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)
