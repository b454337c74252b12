package storage

import (
	"errors"
	"testing"

	"github.com/claude/mesoplan/internal/volume"
	"github.com/jackc/pgx/v5"
)

// TestTrainingDays verifies days are derived in order and empty days skipped.
func TestTrainingDays(t *testing.T) {
	tests := []struct {
		name   string
		perDay map[int]int
		want   []int
	}{
		{"empty", map[int]int{}, []int{}},
		{"sorted", map[int]int{5: 2, 1: 3}, []int{1, 5}},
		{"zero entries skipped", map[int]int{0: 0, 3: 1}, []int{3}},
		{"out of range ignored", map[int]int{9: 4, 6: 1}, []int{6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trainingDays(tt.perDay)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

// TestEncodeAchieved verifies nil maps stay NULL and others encode by name.
func TestEncodeAchieved(t *testing.T) {
	raw, err := encodeAchieved(nil)
	if err != nil || raw != nil {
		t.Fatalf("encodeAchieved(nil) = %q, %v; want nil, nil", raw, err)
	}

	raw, err = encodeAchieved(map[volume.MuscleGroup]int{volume.Chest: 18})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"chest":18}` {
		t.Errorf("got %s, want {\"chest\":18}", raw)
	}
}

// TestNotFound verifies pgx.ErrNoRows is mapped to ErrNotFound.
func TestNotFound(t *testing.T) {
	if err := notFound(pgx.ErrNoRows, "mesocycle x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	other := errors.New("boom")
	err := notFound(other, "mesocycle x")
	if errors.Is(err, ErrNotFound) || !errors.Is(err, other) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
}
