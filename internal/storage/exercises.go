package storage

import (
	"context"
	"fmt"

	"github.com/claude/mesoplan/internal/volume"
	"github.com/jackc/pgx/v5"
)

// UpsertExercises inserts or replaces catalog entries by id. Returns the
// number of rows written.
func (db *DB) UpsertExercises(ctx context.Context, exercises []volume.ExercisePriority) (int64, error) {
	if len(exercises) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, e := range exercises {
		batch.Queue(`INSERT INTO exercises (id, name, muscle_group, priority, multiplier, category, difficulty)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, muscle_group = EXCLUDED.muscle_group,
				priority = EXCLUDED.priority, multiplier = EXCLUDED.multiplier,
				category = EXCLUDED.category, difficulty = EXCLUDED.difficulty,
				updated_at = NOW()`,
			e.ExerciseID, e.Name, int(e.MuscleGroup), e.Priority, e.Multiplier,
			e.Category.String(), difficultyOrDefault(e.Difficulty).String())
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var n int64
	for _, e := range exercises {
		tag, err := br.Exec()
		if err != nil {
			return n, fmt.Errorf("upserting exercise %d: %w", e.ExerciseID, err)
		}
		n += tag.RowsAffected()
	}
	return n, nil
}

// ListExercises returns the catalog, optionally restricted to one muscle group
// (pass 0 for all), ordered by muscle group then id.
func (db *DB) ListExercises(ctx context.Context, mg volume.MuscleGroup) ([]volume.ExercisePriority, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group, priority, multiplier, category, difficulty
		 FROM exercises
		 WHERE $1::int = 0 OR muscle_group = $1::int
		 ORDER BY muscle_group, id`, int(mg))
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []volume.ExercisePriority
	for rows.Next() {
		var (
			e                    volume.ExercisePriority
			group                int
			category, difficulty string
		)
		if err := rows.Scan(&e.ExerciseID, &e.Name, &group, &e.Priority, &e.Multiplier, &category, &difficulty); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		e.MuscleGroup = volume.MuscleGroup(group)
		if e.Category, err = volume.ParseCategory(category); err != nil {
			return nil, fmt.Errorf("exercise %d: %w", e.ExerciseID, err)
		}
		if e.Difficulty, err = volume.ParseDifficulty(difficulty); err != nil {
			return nil, fmt.Errorf("exercise %d: %w", e.ExerciseID, err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func difficultyOrDefault(d volume.Difficulty) volume.Difficulty {
	if d == 0 {
		return volume.Intermediate
	}
	return d
}
