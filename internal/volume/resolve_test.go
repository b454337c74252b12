package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chestConstraints() VolumeConstraints {
	return VolumeConstraints{
		MuscleGroup:  Chest,
		WeeklyMin:    10,
		WeeklyMax:    20,
		WeeklyLimit:  24,
		FrequencyMin: 2,
		FrequencyMax: 3,
	}
}

func ptr(v float64) *float64 { return &v }

// TestResolveLandmarks covers each landmark band of the resolver.
func TestResolveLandmarks(t *testing.T) {
	tests := []struct {
		name     string
		sets     int
		factor   float64
		want     int
		wantWarn string
	}{
		{name: "inside MEV-MAV", sets: 15, factor: 1.0, want: 15},
		{name: "approaching MRV", sets: 22, factor: 1.0, want: 22, wantWarn: "approaching MRV"},
		{name: "clamped to MRV", sets: 30, factor: 1.0, want: 24, wantWarn: "clamped to MRV"},
		{name: "below MEV", sets: 5, factor: 1.0, want: 10, wantWarn: "below MEV"},
		{name: "factor lifts to limit", sets: 20, factor: 1.2, want: 24, wantWarn: "approaching MRV"},
		{name: "factor drops under MEV", sets: 10, factor: 0.8, want: 10, wantWarn: "below MEV"},
		{name: "zero factor means 1.0", sets: 18, factor: 0, want: 18},
		{name: "exactly MAV", sets: 20, factor: 1.0, want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: tt.sets, AdjustmentFactor: tt.factor}, chestConstraints())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.ClampedSets)
			if tt.wantWarn == "" {
				assert.Empty(t, res.Warnings)
				return
			}
			require.Len(t, res.Warnings, 1)
			assert.Contains(t, res.Warnings[0], tt.wantWarn)
		})
	}
}

// TestResolveConfigurationErrors verifies malformed input is rejected rather than repaired.
func TestResolveConfigurationErrors(t *testing.T) {
	base := chestConstraints()

	minOverMax := base
	minOverMax.WeeklyMin = 21

	maxOverLimit := base
	maxOverLimit.WeeklyMax = 25

	freq := base
	freq.FrequencyMin = 4

	recovery := base
	recovery.RecoveryLevel = ptr(1.5)

	tests := []struct {
		name   string
		target WeeklyVolumeTarget
		c      VolumeConstraints
	}{
		{"min above max", WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: 12}, minOverMax},
		{"max above limit", WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: 12}, maxOverLimit},
		{"frequency inverted", WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: 12}, freq},
		{"recovery out of range", WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: 12}, recovery},
		{"factor out of range", WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: 12, AdjustmentFactor: 1.5}, base},
		{"muscle mismatch", WeeklyVolumeTarget{MuscleGroup: Quads, TargetSets: 12}, base},
		{"negative target", WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: -1}, base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.target, tt.c)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err), "want ConfigurationError, got %T", err)
		})
	}
}

// TestResolveAlwaysWithinBounds sweeps targets and factors and checks the
// result never leaves [MEV, MRV].
func TestResolveAlwaysWithinBounds(t *testing.T) {
	c := chestConstraints()
	for sets := 0; sets <= 40; sets++ {
		for _, f := range []float64{0.8, 0.9, 1.0, 1.1, 1.2} {
			res, err := Resolve(WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: sets, AdjustmentFactor: f}, c)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.ClampedSets, c.WeeklyMin)
			assert.LessOrEqual(t, res.ClampedSets, c.WeeklyLimit)
		}
	}
}

type countingCache struct {
	entries map[string]Resolution
	hits    int
}

func (c *countingCache) Get(key string) (Resolution, bool) {
	r, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return r, ok
}

func (c *countingCache) Set(key string, r Resolution) {
	c.entries[key] = r
}

// TestResolverCache verifies the injected cache is consulted and that
// different inputs do not collide.
func TestResolverCache(t *testing.T) {
	cache := &countingCache{entries: map[string]Resolution{}}
	r := Resolver{Cache: cache}
	target := WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: 22}

	first, err := r.Resolve(target, chestConstraints())
	require.NoError(t, err)
	second, err := r.Resolve(target, chestConstraints())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits)

	withRecovery := chestConstraints()
	withRecovery.RecoveryLevel = ptr(0.3)
	_, err = r.Resolve(target, withRecovery)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Len(t, cache.entries, 2)
}

// TestResolverCacheSkipsErrors verifies failures are not memoized.
func TestResolverCacheSkipsErrors(t *testing.T) {
	cache := &countingCache{entries: map[string]Resolution{}}
	bad := chestConstraints()
	bad.WeeklyMin = 30

	_, err := Resolver{Cache: cache}.Resolve(WeeklyVolumeTarget{MuscleGroup: Chest, TargetSets: 12}, bad)
	require.Error(t, err)
	assert.Empty(t, cache.entries)
}
