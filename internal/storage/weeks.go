package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveWeek stores a planned week, replacing any earlier plan for the same week.
func (db *DB) SaveWeek(ctx context.Context, row models.WeekRow) error {
	p := row.Progression
	targets, err := json.Marshal(p.Targets)
	if err != nil {
		return fmt.Errorf("encoding targets: %w", err)
	}
	increase, err := json.Marshal(p.VolumeIncrease)
	if err != nil {
		return fmt.Errorf("encoding volume increase: %w", err)
	}
	achieved, err := encodeAchieved(p.AchievedSets)
	if err != nil {
		return err
	}
	results, err := json.Marshal(row.Results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO weekly_progressions (mesocycle_id, week_number, phase, total_weekly_volume,
			 volume_increase_from_previous, targets, volume_increase, achieved_sets, results)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 ON CONFLICT (mesocycle_id, week_number) DO UPDATE SET
				phase = EXCLUDED.phase, total_weekly_volume = EXCLUDED.total_weekly_volume,
				volume_increase_from_previous = EXCLUDED.volume_increase_from_previous,
				targets = EXCLUDED.targets, volume_increase = EXCLUDED.volume_increase,
				achieved_sets = EXCLUDED.achieved_sets, results = EXCLUDED.results,
				created_at = NOW()`,
			row.MesocycleID, p.WeekNumber, p.ExpectedPhase.String(), p.TotalWeeklyVolume,
			p.VolumeIncreaseFromPrevious, targets, increase, achieved, results)
		if err != nil {
			return fmt.Errorf("upserting week %d: %w", p.WeekNumber, err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM exercise_allocations WHERE mesocycle_id = $1 AND week_number = $2`,
			row.MesocycleID, p.WeekNumber); err != nil {
			return fmt.Errorf("clearing allocations: %w", err)
		}
		return insertAllocations(ctx, tx, row.MesocycleID, p.WeekNumber, row.Allocations)
	})
}

func insertAllocations(ctx context.Context, tx pgx.Tx, id uuid.UUID, week int, allocs []volume.ExerciseVolumeAllocation) error {
	if len(allocs) == 0 {
		return nil
	}

	query := `INSERT INTO exercise_allocations (mesocycle_id, week_number, exercise_id, exercise_name,
		muscle_group, category, allocated_sets, tier, contribution, sets_per_day) VALUES `
	args := make([]any, 0, len(allocs)*10)
	valueStrings := make([]string, 0, len(allocs))

	for i, a := range allocs {
		perDay, err := json.Marshal(a.SetsPerDay)
		if err != nil {
			return fmt.Errorf("encoding sets per day: %w", err)
		}
		base := i * 10
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5,
			base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args, id, week, a.ExerciseID, a.ExerciseName, int(a.MuscleGroup),
			a.Category.String(), a.AllocatedSets, a.Priority.String(), a.Contribution, perDay)
	}

	query += strings.Join(valueStrings, ",")
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting allocations: %w", err)
	}
	return nil
}

// RecordAchievedSets stores the working sets performed during a planned week.
func (db *DB) RecordAchievedSets(ctx context.Context, id uuid.UUID, week int, achieved map[volume.MuscleGroup]int) error {
	raw, err := encodeAchieved(achieved)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE weekly_progressions SET achieved_sets = $3
		 WHERE mesocycle_id = $1 AND week_number = $2`, id, week, raw)
	if err != nil {
		return fmt.Errorf("recording achieved sets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("week %d of mesocycle %s: %w", week, id, ErrNotFound)
	}
	return nil
}

// GetWeek loads one planned week of a mesocycle.
func (db *DB) GetWeek(ctx context.Context, id uuid.UUID, week int) (*models.WeekRow, error) {
	return db.scanWeek(ctx,
		`SELECT m.total_weeks, w.week_number, w.phase, w.total_weekly_volume,
		 w.volume_increase_from_previous, w.targets, w.volume_increase, w.achieved_sets,
		 w.results, w.created_at
		 FROM weekly_progressions w JOIN mesocycles m ON m.id = w.mesocycle_id
		 WHERE w.mesocycle_id = $1 AND w.week_number = $2`, id, id, week)
}

// LatestWeek loads the highest planned week of a mesocycle.
func (db *DB) LatestWeek(ctx context.Context, id uuid.UUID) (*models.WeekRow, error) {
	return db.scanWeek(ctx,
		`SELECT m.total_weeks, w.week_number, w.phase, w.total_weekly_volume,
		 w.volume_increase_from_previous, w.targets, w.volume_increase, w.achieved_sets,
		 w.results, w.created_at
		 FROM weekly_progressions w JOIN mesocycles m ON m.id = w.mesocycle_id
		 WHERE w.mesocycle_id = $1
		 ORDER BY w.week_number DESC LIMIT 1`, id, id)
}

func (db *DB) scanWeek(ctx context.Context, query string, id uuid.UUID, args ...any) (*models.WeekRow, error) {
	var (
		row                                  models.WeekRow
		phase                                string
		targets, increase, achieved, results []byte
	)
	p := &row.Progression
	err := db.Pool.QueryRow(ctx, query, args...).Scan(&p.TotalWeeks, &p.WeekNumber, &phase,
		&p.TotalWeeklyVolume, &p.VolumeIncreaseFromPrevious, &targets, &increase, &achieved,
		&results, &row.CreatedAt)
	if err != nil {
		return nil, notFound(err, "week of mesocycle "+id.String())
	}

	row.MesocycleID = id
	p.MesocycleID = id.String()
	if p.ExpectedPhase, err = volume.ParsePhase(phase); err != nil {
		return nil, fmt.Errorf("week %d: %w", p.WeekNumber, err)
	}
	if err := json.Unmarshal(targets, &p.Targets); err != nil {
		return nil, fmt.Errorf("decoding targets: %w", err)
	}
	if err := json.Unmarshal(increase, &p.VolumeIncrease); err != nil {
		return nil, fmt.Errorf("decoding volume increase: %w", err)
	}
	if len(achieved) > 0 {
		if err := json.Unmarshal(achieved, &p.AchievedSets); err != nil {
			return nil, fmt.Errorf("decoding achieved sets: %w", err)
		}
	}
	if err := json.Unmarshal(results, &row.Results); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}

	row.Allocations, err = db.weekAllocations(ctx, id, p.WeekNumber)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (db *DB) weekAllocations(ctx context.Context, id uuid.UUID, week int) ([]volume.ExerciseVolumeAllocation, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id, exercise_name, muscle_group, category, allocated_sets, tier,
		 contribution, sets_per_day
		 FROM exercise_allocations
		 WHERE mesocycle_id = $1 AND week_number = $2
		 ORDER BY muscle_group, allocated_sets DESC, exercise_id`, id, week)
	if err != nil {
		return nil, fmt.Errorf("querying allocations: %w", err)
	}
	defer rows.Close()

	var result []volume.ExerciseVolumeAllocation
	for rows.Next() {
		var (
			a              volume.ExerciseVolumeAllocation
			group          int
			category, tier string
			perDay         []byte
		)
		if err := rows.Scan(&a.ExerciseID, &a.ExerciseName, &group, &category, &a.AllocatedSets,
			&tier, &a.Contribution, &perDay); err != nil {
			return nil, fmt.Errorf("scanning allocation: %w", err)
		}
		a.MuscleGroup = volume.MuscleGroup(group)
		if a.Category, err = volume.ParseCategory(category); err != nil {
			return nil, err
		}
		if a.Priority, err = volume.ParseTier(tier); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(perDay, &a.SetsPerDay); err != nil {
			return nil, fmt.Errorf("decoding sets per day: %w", err)
		}
		a.TrainingDays = trainingDays(a.SetsPerDay)
		result = append(result, a)
	}
	return result, rows.Err()
}

func encodeAchieved(achieved map[volume.MuscleGroup]int) ([]byte, error) {
	if achieved == nil {
		return nil, nil
	}
	raw, err := json.Marshal(achieved)
	if err != nil {
		return nil, fmt.Errorf("encoding achieved sets: %w", err)
	}
	return raw, nil
}

// trainingDays returns the sorted days that carry at least one set.
func trainingDays(perDay map[int]int) []int {
	days := make([]int, 0, len(perDay))
	for d := 0; d < volume.DaysPerWeek; d++ {
		if perDay[d] > 0 {
			days = append(days, d)
		}
	}
	return days
}
