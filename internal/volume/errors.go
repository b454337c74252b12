package volume

import (
	"errors"
	"fmt"
)

// ConfigurationError reports malformed input data. It aborts a planning run and
// must be fixed at the source.
type ConfigurationError struct {
	MuscleGroup MuscleGroup
	Reason      string
}

func (e *ConfigurationError) Error() string {
	if e.MuscleGroup.Valid() {
		return fmt.Sprintf("configuration error for %s: %s", e.MuscleGroup, e.Reason)
	}
	return "configuration error: " + e.Reason
}

// AllocationError reports that a muscle group's sets could not be assigned to
// any exercise. Other muscle groups are unaffected.
type AllocationError struct {
	MuscleGroup MuscleGroup
	Category    string
	Sets        int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation error for %s: no eligible candidates for %d %s sets", e.MuscleGroup, e.Sets, e.Category)
}

// ErrMesocycleComplete is returned when asked to progress past the final week
// or past a deload. A new mesocycle must be started instead.
var ErrMesocycleComplete = errors.New("mesocycle complete")

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsAllocationError reports whether err wraps an *AllocationError.
func IsAllocationError(err error) bool {
	var ae *AllocationError
	return errors.As(err, &ae)
}
