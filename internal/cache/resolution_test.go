package cache

import (
	"log/slog"
	"testing"

	"github.com/claude/mesoplan/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolutionsRoundTrip verifies a stored resolution comes back intact.
func TestResolutionsRoundTrip(t *testing.T) {
	c := NewResolutions(1, slog.Default())

	_, ok := c.Get("missing")
	assert.False(t, ok)

	want := volume.Resolution{MuscleGroup: volume.Chest, ClampedSets: 22, Warnings: []string{"chest: approaching MRV"}}
	c.Set("k", want)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, want, got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

// TestResolutionsWithResolver verifies the cache plugs into the resolver.
func TestResolutionsWithResolver(t *testing.T) {
	c := NewResolutions(1, slog.Default())
	r := volume.Resolver{Cache: c}
	target := volume.WeeklyVolumeTarget{MuscleGroup: volume.Quads, TargetSets: 30}
	cons := volume.VolumeConstraints{MuscleGroup: volume.Quads, WeeklyMin: 8, WeeklyMax: 14, WeeklyLimit: 18, FrequencyMin: 2, FrequencyMax: 3}

	first, err := r.Resolve(target, cons)
	require.NoError(t, err)
	second, err := r.Resolve(target, cons)
	require.NoError(t, err)

	assert.Equal(t, 18, first.ClampedSets)
	assert.Equal(t, first, second)
	hits, _ := c.Stats()
	assert.Equal(t, int64(1), hits)
}
