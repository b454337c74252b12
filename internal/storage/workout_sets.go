package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/volume"
)

// InsertWorkoutSets batch-inserts performed sets. Duplicates are ignored.
// Returns count inserted.
func (db *DB) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (user_id, session_date, exercise_name, set_number,
		weight_kg, reps, rir, is_warmup) VALUES `
	args := make([]any, 0, len(rows)*8)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args, r.UserID, r.SessionDate, r.ExerciseName, r.SetNumber,
			r.WeightKg, r.Reps, r.RIR, r.IsWarmup)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryWorkoutSets retrieves workout sets in a date range.
func (db *DB) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, session_date, exercise_name, set_number, weight_kg, reps, rir, is_warmup
		 FROM workout_sets
		 WHERE session_date >= $1 AND session_date < $2 AND user_id = $3
		 ORDER BY session_date DESC, exercise_name ASC, is_warmup DESC, set_number ASC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSetRow
	for rows.Next() {
		var r models.WorkoutSetRow
		if err := rows.Scan(&r.UserID, &r.SessionDate, &r.ExerciseName, &r.SetNumber,
			&r.WeightKg, &r.Reps, &r.RIR, &r.IsWarmup); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// AchievedSets counts working sets per muscle group performed in [start, end).
// Sets are matched to the exercise catalog by case-insensitive name; sets of
// unknown exercises are not counted.
func (db *DB) AchievedSets(ctx context.Context, userID int, start, end time.Time) (map[volume.MuscleGroup]int, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.muscle_group, COUNT(*)
		 FROM workout_sets ws
		 JOIN exercises e ON lower(e.name) = lower(ws.exercise_name)
		 WHERE ws.user_id = $1 AND ws.session_date >= $2 AND ws.session_date < $3
		   AND NOT ws.is_warmup
		 GROUP BY e.muscle_group`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying achieved sets: %w", err)
	}
	defer rows.Close()

	result := make(map[volume.MuscleGroup]int)
	for rows.Next() {
		var group, n int
		if err := rows.Scan(&group, &n); err != nil {
			return nil, fmt.Errorf("scanning achieved sets: %w", err)
		}
		result[volume.MuscleGroup(group)] = n
	}
	return result, rows.Err()
}
