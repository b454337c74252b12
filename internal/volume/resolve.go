package volume

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Resolution is a weekly target clamped into a muscle group's volume landmarks.
type Resolution struct {
	MuscleGroup MuscleGroup `json:"muscle_group"`
	ClampedSets int         `json:"clamped_sets"`
	Warnings    []string    `json:"warnings"`
}

// ResolutionCache memoizes resolutions. Implementations must be safe for
// concurrent use if the caller shares them across goroutines.
type ResolutionCache interface {
	Get(key string) (Resolution, bool)
	Set(key string, r Resolution)
}

// Resolve clamps target.TargetSets*target.AdjustmentFactor into
// [WeeklyMin, WeeklyLimit] and reports how the value relates to the landmarks.
func Resolve(target WeeklyVolumeTarget, c VolumeConstraints) (Resolution, error) {
	if err := c.Validate(); err != nil {
		return Resolution{}, err
	}
	if target.MuscleGroup != c.MuscleGroup {
		return Resolution{}, &ConfigurationError{
			MuscleGroup: target.MuscleGroup,
			Reason:      fmt.Sprintf("target paired with constraints for %s", c.MuscleGroup),
		}
	}
	f := target.factor()
	if f < MinAdjustmentFactor || f > MaxAdjustmentFactor {
		return Resolution{}, &ConfigurationError{
			MuscleGroup: target.MuscleGroup,
			Reason:      fmt.Sprintf("adjustment factor %.2f outside [%.1f, %.1f]", f, MinAdjustmentFactor, MaxAdjustmentFactor),
		}
	}
	if target.TargetSets < 0 {
		return Resolution{}, &ConfigurationError{
			MuscleGroup: target.MuscleGroup,
			Reason:      fmt.Sprintf("negative target of %d sets", target.TargetSets),
		}
	}

	raw := int(math.Round(float64(target.TargetSets) * f))
	res := Resolution{MuscleGroup: c.MuscleGroup, ClampedSets: raw, Warnings: []string{}}

	switch {
	case raw > c.WeeklyLimit:
		res.ClampedSets = c.WeeklyLimit
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s: %d sets clamped to MRV (%d)", c.MuscleGroup, raw, c.WeeklyLimit))
	case raw > c.WeeklyMax:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s: %d sets exceeds MAV (%d), approaching MRV (%d)", c.MuscleGroup, raw, c.WeeklyMax, c.WeeklyLimit))
	case raw < c.WeeklyMin:
		res.ClampedSets = c.WeeklyMin
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s: %d sets below MEV, raised to %d", c.MuscleGroup, raw, c.WeeklyMin))
	}
	return res, nil
}

// Resolver wraps Resolve with an optional cache.
type Resolver struct {
	Cache ResolutionCache
}

// Resolve behaves like the package-level Resolve, consulting r.Cache first.
// Errors are never cached.
func (r Resolver) Resolve(target WeeklyVolumeTarget, c VolumeConstraints) (Resolution, error) {
	if r.Cache == nil {
		return Resolve(target, c)
	}
	key := resolutionKey(target, c)
	if res, ok := r.Cache.Get(key); ok {
		return res, nil
	}
	res, err := Resolve(target, c)
	if err != nil {
		return Resolution{}, err
	}
	r.Cache.Set(key, res)
	return res, nil
}

// resolutionKey covers every input Resolve reads.
func resolutionKey(t WeeklyVolumeTarget, c VolumeConstraints) string {
	level := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return strconv.FormatFloat(*v, 'g', -1, 64)
	}
	parts := []string{
		"resolve",
		strconv.Itoa(int(t.MuscleGroup)),
		strconv.Itoa(t.TargetSets),
		strconv.FormatFloat(t.factor(), 'g', -1, 64),
		strconv.Itoa(int(c.MuscleGroup)),
		strconv.Itoa(c.WeeklyMin),
		strconv.Itoa(c.WeeklyMax),
		strconv.Itoa(c.WeeklyLimit),
		strconv.Itoa(c.FrequencyMin),
		strconv.Itoa(c.FrequencyMax),
		level(c.RecoveryLevel),
		level(c.AdaptationLevel),
	}
	return strings.Join(parts, ":")
}
