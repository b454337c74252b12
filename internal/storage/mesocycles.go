package storage

import (
	"context"
	"fmt"

	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateMesocycle stores a mesocycle and its constraints in one transaction.
func (db *DB) CreateMesocycle(ctx context.Context, m models.Mesocycle) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO mesocycles (id, user_id, name, total_weeks, strategy, available_days, start_date)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			m.ID, m.UserID, m.Name, m.TotalWeeks, m.Strategy.String(), m.AvailableDays, m.StartDate)
		if err != nil {
			return fmt.Errorf("inserting mesocycle: %w", err)
		}
		return replaceConstraints(ctx, tx, m.ID, m.Constraints)
	})
}

// UpdateConstraints replaces the stored constraints of a mesocycle.
func (db *DB) UpdateConstraints(ctx context.Context, id uuid.UUID, constraints []volume.VolumeConstraints) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		return replaceConstraints(ctx, tx, id, constraints)
	})
}

func replaceConstraints(ctx context.Context, tx pgx.Tx, id uuid.UUID, constraints []volume.VolumeConstraints) error {
	if _, err := tx.Exec(ctx, `DELETE FROM mesocycle_constraints WHERE mesocycle_id = $1`, id); err != nil {
		return fmt.Errorf("clearing constraints: %w", err)
	}
	for _, c := range constraints {
		_, err := tx.Exec(ctx,
			`INSERT INTO mesocycle_constraints (mesocycle_id, muscle_group, weekly_min, weekly_max,
			 weekly_limit, frequency_min, frequency_max, recovery_level, adaptation_level)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			id, int(c.MuscleGroup), c.WeeklyMin, c.WeeklyMax, c.WeeklyLimit,
			c.FrequencyMin, c.FrequencyMax, c.RecoveryLevel, c.AdaptationLevel)
		if err != nil {
			return fmt.Errorf("inserting constraints for %s: %w", c.MuscleGroup, err)
		}
	}
	return nil
}

// GetMesocycle loads a mesocycle owned by userID, including its constraints.
func (db *DB) GetMesocycle(ctx context.Context, id uuid.UUID, userID int) (*models.Mesocycle, error) {
	var (
		m        models.Mesocycle
		strategy string
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, total_weeks, strategy, available_days, start_date, created_at
		 FROM mesocycles WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&m.ID, &m.UserID, &m.Name, &m.TotalWeeks, &strategy, &m.AvailableDays, &m.StartDate, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err, "mesocycle "+id.String())
	}
	if m.Strategy, err = volume.ParseStrategy(strategy); err != nil {
		return nil, fmt.Errorf("mesocycle %s: %w", id, err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT muscle_group, weekly_min, weekly_max, weekly_limit, frequency_min, frequency_max,
		 recovery_level, adaptation_level
		 FROM mesocycle_constraints WHERE mesocycle_id = $1
		 ORDER BY muscle_group`, id)
	if err != nil {
		return nil, fmt.Errorf("querying constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c     volume.VolumeConstraints
			group int
		)
		if err := rows.Scan(&group, &c.WeeklyMin, &c.WeeklyMax, &c.WeeklyLimit,
			&c.FrequencyMin, &c.FrequencyMax, &c.RecoveryLevel, &c.AdaptationLevel); err != nil {
			return nil, fmt.Errorf("scanning constraints: %w", err)
		}
		c.MuscleGroup = volume.MuscleGroup(group)
		m.Constraints = append(m.Constraints, c)
	}
	return &m, rows.Err()
}

// ListMesocycles returns a user's mesocycles, newest first, without constraints.
func (db *DB) ListMesocycles(ctx context.Context, userID int) ([]models.Mesocycle, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, total_weeks, strategy, available_days, start_date, created_at
		 FROM mesocycles WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying mesocycles: %w", err)
	}
	defer rows.Close()

	var result []models.Mesocycle
	for rows.Next() {
		var (
			m        models.Mesocycle
			strategy string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.TotalWeeks, &strategy, &m.AvailableDays, &m.StartDate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning mesocycle: %w", err)
		}
		if m.Strategy, err = volume.ParseStrategy(strategy); err != nil {
			return nil, fmt.Errorf("mesocycle %s: %w", m.ID, err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
