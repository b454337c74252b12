package mcp

import (
	"context"
	"time"

	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/planning"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
)

// DataSource abstracts the planning layer for MCP tools. Both
// *planning.Service (local) and HTTPClient (remote via REST API) satisfy
// this interface.
type DataSource interface {
	Plan(ctx context.Context, req planning.PlanRequest) (*volume.WeekPlan, error)
	Resolve(ctx context.Context, target volume.WeeklyVolumeTarget, c volume.VolumeConstraints) (volume.Resolution, error)
	Exercises(ctx context.Context, mg volume.MuscleGroup) ([]volume.ExercisePriority, error)
	Mesocycles(ctx context.Context, userID int) ([]models.Mesocycle, error)
	Week(ctx context.Context, userID int, id uuid.UUID, week int) (*planning.MesocycleWeek, error)
	Advance(ctx context.Context, userID int, id uuid.UUID, req planning.AdvanceRequest) (*planning.MesocycleWeek, error)
	Sets(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSetRow, error)
	PlanLogs(ctx context.Context, userID, limit int) ([]storage.PlanLog, error)
}

// Compile-time check: *planning.Service satisfies DataSource.
var _ DataSource = (*planning.Service)(nil)
