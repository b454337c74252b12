// Package planstate remembers the last planned week of each mesocycle run
// from the command line, so successive invocations step through the block
// without a Postgres server.
package planstate

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/claude/mesoplan/internal/volume"
	_ "modernc.org/sqlite"
)

// StateDB stores planned progressions keyed by mesocycle name and week.
type StateDB struct {
	db *sql.DB
}

// Entry is one stored week.
type Entry struct {
	Progression volume.MesocycleVolumeProgression
	PlanHash    string
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS planned_weeks (
		mesocycle   TEXT NOT NULL,
		week_number INTEGER NOT NULL,
		plan_hash   TEXT NOT NULL,
		progression TEXT NOT NULL,
		planned_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (mesocycle, week_number)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// Latest returns the highest planned week for mesocycle, or nil if none.
func (s *StateDB) Latest(mesocycle string) (*Entry, error) {
	var hash, raw string
	err := s.db.QueryRow(
		`SELECT plan_hash, progression FROM planned_weeks
		 WHERE mesocycle = ? ORDER BY week_number DESC LIMIT 1`,
		mesocycle,
	).Scan(&hash, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest week: %w", err)
	}

	e := &Entry{PlanHash: hash}
	if err := json.Unmarshal([]byte(raw), &e.Progression); err != nil {
		return nil, fmt.Errorf("decoding week for %s: %w", mesocycle, err)
	}
	return e, nil
}

// Save records a planned week, replacing any earlier plan for the same week.
func (s *StateDB) Save(mesocycle, planHash string, p volume.MesocycleVolumeProgression) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding week %d: %w", p.WeekNumber, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO planned_weeks (mesocycle, week_number, plan_hash, progression) VALUES (?, ?, ?, ?)`,
		mesocycle, p.WeekNumber, planHash, string(raw),
	)
	return err
}

// Reset forgets every week of mesocycle.
func (s *StateDB) Reset(mesocycle string) error {
	_, err := s.db.Exec(`DELETE FROM planned_weeks WHERE mesocycle = ?`, mesocycle)
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
