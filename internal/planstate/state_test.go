package planstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/mesoplan/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func week(n int, phase volume.Phase, chest int) volume.MesocycleVolumeProgression {
	return volume.MesocycleVolumeProgression{
		MesocycleID:   "block-a",
		WeekNumber:    n,
		TotalWeeks:    5,
		ExpectedPhase: phase,
		Targets: []volume.WeeklyVolumeTarget{
			{MuscleGroup: volume.Chest, WeekNumber: n, Phase: phase, TargetSets: chest, AdjustmentFactor: 1},
		},
		TotalWeeklyVolume: chest,
		VolumeIncrease:    map[volume.MuscleGroup]int{volume.Chest: 0},
	}
}

// TestLatestEmpty verifies an unknown mesocycle has no state.
func TestLatestEmpty(t *testing.T) {
	s, err := OpenStateDB(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	e, err := s.Latest("block-a")
	require.NoError(t, err)
	assert.Nil(t, e)
}

// TestSaveLatest verifies the highest week wins and re-saving a week replaces it.
func TestSaveLatest(t *testing.T) {
	s, err := OpenStateDB(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save("block-a", "h1", week(1, volume.Accumulation, 12)))
	require.NoError(t, s.Save("block-a", "h1", week(2, volume.Accumulation, 14)))
	require.NoError(t, s.Save("block-a", "h2", week(2, volume.Accumulation, 15)))
	require.NoError(t, s.Save("block-b", "h3", week(4, volume.Intensification, 20)))

	e, err := s.Latest("block-a")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 2, e.Progression.WeekNumber)
	assert.Equal(t, "h2", e.PlanHash)
	assert.Equal(t, 15, e.Progression.Targets[0].TargetSets)
	assert.Equal(t, volume.Accumulation, e.Progression.ExpectedPhase)
}

// TestReset verifies Reset only forgets the named mesocycle.
func TestReset(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStateDB(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save("block-a", "h", week(1, volume.Accumulation, 12)))
	require.NoError(t, s.Save("block-b", "h", week(1, volume.Accumulation, 10)))
	require.NoError(t, s.Reset("block-a"))
	require.NoError(t, s.Close())

	// State survives reopening.
	s, err = OpenStateDB(dir)
	require.NoError(t, err)
	defer s.Close()

	a, err := s.Latest("block-a")
	require.NoError(t, err)
	assert.Nil(t, a)
	b, err := s.Latest("block-b")
	require.NoError(t, err)
	assert.NotNil(t, b)
}

// TestHashFile verifies content changes change the hash.
func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0o644))
	h1, err := HashFile(path)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	require.NoError(t, os.WriteFile(path, []byte("name: b\n"), 0o644))
	h2, err := HashFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
