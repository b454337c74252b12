package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlanLog records the outcome of one planning run.
type PlanLog struct {
	ID           int64            `json:"id"`
	UserID       int              `json:"user_id"`
	CreatedAt    time.Time        `json:"created_at"`
	Source       string           `json:"source"`
	Status       string           `json:"status"`
	MesocycleID  *uuid.UUID       `json:"mesocycle_id"`
	WeekNumber   *int             `json:"week_number"`
	Warnings     int              `json:"warnings"`
	FailedGroups int              `json:"failed_groups"`
	DurationMs   *int             `json:"duration_ms"`
	ErrorMessage *string          `json:"error_message"`
	Metadata     *json.RawMessage `json:"metadata"`
}

// InsertPlanLog creates a new plan log entry and returns its ID.
func (db *DB) InsertPlanLog(ctx context.Context, log PlanLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO plan_logs (user_id, source, status, mesocycle_id, week_number,
		 warnings, failed_groups, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING id`,
		log.UserID, log.Source, log.Status, log.MesocycleID, log.WeekNumber,
		log.Warnings, log.FailedGroups, log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting plan log: %w", err)
	}
	return id, nil
}

// QueryPlanLogs returns the most recent plan logs for a user.
func (db *DB) QueryPlanLogs(ctx context.Context, userID, limit int) ([]PlanLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, source, status, mesocycle_id, week_number,
		 warnings, failed_groups, duration_ms, error_message, metadata
		 FROM plan_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying plan logs: %w", err)
	}
	defer rows.Close()

	var result []PlanLog
	for rows.Next() {
		var l PlanLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Source, &l.Status,
			&l.MesocycleID, &l.WeekNumber, &l.Warnings, &l.FailedGroups,
			&l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning plan log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
