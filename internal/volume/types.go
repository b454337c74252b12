package volume

import (
	"fmt"
	"strings"
)

// MuscleGroup identifies a trained muscle group. The numeric values are stable
// and stored in the database.
type MuscleGroup int

const (
	Chest MuscleGroup = iota + 1
	Lats
	UpperBack
	Traps
	FrontDelts
	SideDelts
	RearDelts
	Biceps
	Triceps
	Forearms
	Quads
	Hamstrings
	Glutes
	Calves
	Abs
)

var muscleGroupNames = [...]string{
	Chest:      "chest",
	Lats:       "lats",
	UpperBack:  "upper_back",
	Traps:      "traps",
	FrontDelts: "front_delts",
	SideDelts:  "side_delts",
	RearDelts:  "rear_delts",
	Biceps:     "biceps",
	Triceps:    "triceps",
	Forearms:   "forearms",
	Quads:      "quads",
	Hamstrings: "hamstrings",
	Glutes:     "glutes",
	Calves:     "calves",
	Abs:        "abs",
}

// AllMuscleGroups returns every known muscle group in id order.
func AllMuscleGroups() []MuscleGroup {
	out := make([]MuscleGroup, 0, len(muscleGroupNames)-1)
	for mg := Chest; mg <= Abs; mg++ {
		out = append(out, mg)
	}
	return out
}

// Valid reports whether mg is a known muscle group.
func (mg MuscleGroup) Valid() bool {
	return mg >= Chest && mg <= Abs
}

func (mg MuscleGroup) String() string {
	if !mg.Valid() {
		return fmt.Sprintf("muscle_group(%d)", int(mg))
	}
	return muscleGroupNames[mg]
}

// ParseMuscleGroup accepts the snake_case name of a muscle group.
func ParseMuscleGroup(s string) (MuscleGroup, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mg := Chest; mg <= Abs; mg++ {
		if muscleGroupNames[mg] == s {
			return mg, nil
		}
	}
	return 0, fmt.Errorf("unknown muscle group %q", s)
}

func (mg MuscleGroup) MarshalText() ([]byte, error) {
	if !mg.Valid() {
		return nil, fmt.Errorf("invalid muscle group %d", int(mg))
	}
	return []byte(mg.String()), nil
}

func (mg *MuscleGroup) UnmarshalText(b []byte) error {
	v, err := ParseMuscleGroup(string(b))
	if err != nil {
		return err
	}
	*mg = v
	return nil
}

// Category classifies an exercise for the compound/isolation split.
type Category int

const (
	Compound Category = iota + 1
	Isolation
	Accessory
)

func (c Category) String() string {
	switch c {
	case Compound:
		return "compound"
	case Isolation:
		return "isolation"
	case Accessory:
		return "accessory"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compound":
		return Compound, nil
	case "isolation":
		return Isolation, nil
	case "accessory":
		return Accessory, nil
	}
	return 0, fmt.Errorf("unknown exercise category %q", s)
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Difficulty is informational catalog metadata; allocation does not use it.
type Difficulty int

const (
	Beginner Difficulty = iota + 1
	Intermediate
	Advanced
)

func (d Difficulty) String() string {
	switch d {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner, nil
	case "intermediate", "":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Difficulty) UnmarshalText(b []byte) error {
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Phase is the mesocycle phase a week belongs to.
type Phase int

const (
	Accumulation Phase = iota + 1
	Intensification
	Deload
)

func (p Phase) String() string {
	switch p {
	case Accumulation:
		return "accumulation"
	case Intensification:
		return "intensification"
	case Deload:
		return "deload"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accumulation":
		return Accumulation, nil
	case "intensification":
		return Intensification, nil
	case "deload":
		return Deload, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// MarshalText encodes an unset phase as the empty string so request bodies
// without a phase round-trip.
func (p Phase) MarshalText() ([]byte, error) {
	if p == 0 {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*p = 0
		return nil
	}
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Strategy controls how a weekly target is split between exercise categories.
type Strategy int

const (
	CompoundHeavy Strategy = iota + 1
	Balanced
	IsolationFocus
	FrequencyOptimized
)

func (s Strategy) String() string {
	switch s {
	case CompoundHeavy:
		return "COMPOUND_HEAVY"
	case Balanced:
		return "BALANCED"
	case IsolationFocus:
		return "ISOLATION_FOCUS"
	case FrequencyOptimized:
		return "FREQUENCY_OPTIMIZED"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COMPOUND_HEAVY":
		return CompoundHeavy, nil
	case "BALANCED":
		return Balanced, nil
	case "ISOLATION_FOCUS":
		return IsolationFocus, nil
	case "FREQUENCY_OPTIMIZED":
		return FrequencyOptimized, nil
	}
	return 0, fmt.Errorf("unknown distribution strategy %q", s)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if s == 0 {
		return []byte{}, nil
	}
	return []byte(s.String()), nil
}

// UnmarshalText leaves an empty strategy unset so callers can apply a default.
func (s *Strategy) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = 0
		return nil
	}
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// compoundShare is the fraction of a weekly target sent to compound exercises.
// FrequencyOptimized has no category split.
func (s Strategy) compoundShare() (float64, bool) {
	switch s {
	case CompoundHeavy:
		return 0.70, true
	case Balanced:
		return 0.60, true
	case IsolationFocus:
		return 0.50, true
	}
	return 0, false
}

// Tier is a display emphasis for an allocation.
type Tier int

const (
	Primary Tier = iota + 1
	Secondary
	Tertiary
)

func (t Tier) String() string {
	switch t {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Tertiary:
		return "tertiary"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	case "tertiary":
		return Tertiary, nil
	}
	return 0, fmt.Errorf("unknown priority tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// VolumeConstraints bounds the weekly volume and frequency of one muscle group.
type VolumeConstraints struct {
	MuscleGroup     MuscleGroup `json:"muscle_group" yaml:"muscle_group"`
	WeeklyMin       int         `json:"weekly_min" yaml:"weekly_min"`     // MEV
	WeeklyMax       int         `json:"weekly_max" yaml:"weekly_max"`     // MAV
	WeeklyLimit     int         `json:"weekly_limit" yaml:"weekly_limit"` // MRV
	FrequencyMin    int         `json:"frequency_min" yaml:"frequency_min"`
	FrequencyMax    int         `json:"frequency_max" yaml:"frequency_max"`
	RecoveryLevel   *float64    `json:"recovery_level,omitempty" yaml:"recovery_level,omitempty"`
	AdaptationLevel *float64    `json:"adaptation_level,omitempty" yaml:"adaptation_level,omitempty"`
}

// Validate checks the ordering invariants. Violations are never repaired.
func (c VolumeConstraints) Validate() error {
	fail := func(format string, args ...any) error {
		return &ConfigurationError{MuscleGroup: c.MuscleGroup, Reason: fmt.Sprintf(format, args...)}
	}
	if !c.MuscleGroup.Valid() {
		return fail("unknown muscle group")
	}
	if c.WeeklyMin < 0 {
		return fail("weekly_min %d is negative", c.WeeklyMin)
	}
	if c.WeeklyMin > c.WeeklyMax || c.WeeklyMax > c.WeeklyLimit {
		return fail("weekly_min %d <= weekly_max %d <= weekly_limit %d violated", c.WeeklyMin, c.WeeklyMax, c.WeeklyLimit)
	}
	if c.FrequencyMin < 0 || c.FrequencyMin > c.FrequencyMax {
		return fail("frequency_min %d <= frequency_max %d violated", c.FrequencyMin, c.FrequencyMax)
	}
	if c.FrequencyMax > DaysPerWeek {
		return fail("frequency_max %d exceeds %d days", c.FrequencyMax, DaysPerWeek)
	}
	if c.RecoveryLevel != nil && (*c.RecoveryLevel < 0 || *c.RecoveryLevel > 1) {
		return fail("recovery_level %.2f outside [0,1]", *c.RecoveryLevel)
	}
	if c.AdaptationLevel != nil && (*c.AdaptationLevel < 0 || *c.AdaptationLevel > 1) {
		return fail("adaptation_level %.2f outside [0,1]", *c.AdaptationLevel)
	}
	return nil
}

// ConstraintSet indexes constraints by muscle group, validating each entry.
func ConstraintSet(constraints []VolumeConstraints) (map[MuscleGroup]VolumeConstraints, error) {
	out := make(map[MuscleGroup]VolumeConstraints, len(constraints))
	for _, c := range constraints {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[c.MuscleGroup]; dup {
			return nil, &ConfigurationError{MuscleGroup: c.MuscleGroup, Reason: "duplicate constraints"}
		}
		out[c.MuscleGroup] = c
	}
	return out, nil
}

// WeeklyVolumeTarget is a proposed weekly set count for one muscle group.
type WeeklyVolumeTarget struct {
	MuscleGroup      MuscleGroup `json:"muscle_group"`
	WeekNumber       int         `json:"week_number"`
	Phase            Phase       `json:"phase"`
	TargetSets       int         `json:"target_sets"`
	AdjustmentFactor float64     `json:"adjustment_factor"`
}

const (
	MinAdjustmentFactor = 0.8
	MaxAdjustmentFactor = 1.2
)

// factor returns the adjustment factor, treating the zero value as 1.0.
func (t WeeklyVolumeTarget) factor() float64 {
	if t.AdjustmentFactor == 0 {
		return 1.0
	}
	return t.AdjustmentFactor
}

// ExercisePriority is catalog metadata for one candidate exercise.
type ExercisePriority struct {
	ExerciseID  int64       `json:"exercise_id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	MuscleGroup MuscleGroup `json:"muscle_group" yaml:"muscle_group"`
	Priority    int         `json:"priority" yaml:"priority"`
	Multiplier  float64     `json:"multiplier" yaml:"multiplier"`
	Category    Category    `json:"category" yaml:"category"`
	Difficulty  Difficulty  `json:"difficulty" yaml:"difficulty"`
}

// Validate checks the fields allocation depends on.
func (e ExercisePriority) Validate() error {
	fail := func(format string, args ...any) error {
		return &ConfigurationError{MuscleGroup: e.MuscleGroup, Reason: fmt.Sprintf(format, args...)}
	}
	switch {
	case !e.MuscleGroup.Valid():
		return fail("exercise %d has unknown muscle group", e.ExerciseID)
	case e.Priority < 1 || e.Priority > 10:
		return fail("exercise %d priority %d outside 1-10", e.ExerciseID, e.Priority)
	case e.Multiplier <= 0:
		return fail("exercise %d multiplier must be positive", e.ExerciseID)
	case e.Category < Compound || e.Category > Accessory:
		return fail("exercise %d has no category", e.ExerciseID)
	}
	return nil
}

func (e ExercisePriority) weight() float64 {
	return float64(e.Priority) * e.Multiplier
}

// ExerciseVolumeAllocation is the number of weekly sets prescribed for one exercise.
type ExerciseVolumeAllocation struct {
	ExerciseID    int64       `json:"exercise_id"`
	ExerciseName  string      `json:"exercise_name"`
	MuscleGroup   MuscleGroup `json:"muscle_group"`
	Category      Category    `json:"category"`
	AllocatedSets int         `json:"allocated_sets"`
	Priority      Tier        `json:"priority"`
	Contribution  float64     `json:"contribution"`
	TrainingDays  []int       `json:"training_days"`
	SetsPerDay    map[int]int `json:"sets_per_day"`
}

// VolumeDistributionResult summarizes one muscle group's week.
type VolumeDistributionResult struct {
	MuscleGroup           MuscleGroup                `json:"muscle_group"`
	Allocations           []ExerciseVolumeAllocation `json:"allocations"`
	TotalAllocatedSets    int                        `json:"total_allocated_sets"`
	TrainingDays          []int                      `json:"training_days"`
	IsWithinConstraints   bool                       `json:"is_within_constraints"`
	UtilizationPercentage float64                    `json:"utilization_percentage"`
	Warnings              []string                   `json:"warnings"`
	Error                 string                     `json:"error,omitempty"`
}

// ScheduledExercise is one exercise's sets on one day.
type ScheduledExercise struct {
	ExerciseID   int64       `json:"exercise_id"`
	ExerciseName string      `json:"exercise_name"`
	MuscleGroup  MuscleGroup `json:"muscle_group"`
	Sets         int         `json:"sets"`
}

// TrainingDayDistribution is the derived per-day view of a schedule.
type TrainingDayDistribution struct {
	DayOfWeek    int                 `json:"day_of_week"`
	DayName      string              `json:"day_name"`
	MuscleGroups []MuscleGroup       `json:"muscle_groups"`
	TotalSets    int                 `json:"total_sets"`
	Exercises    []ScheduledExercise `json:"exercises"`
}

// MesocycleVolumeProgression holds one week's targets within a mesocycle.
type MesocycleVolumeProgression struct {
	MesocycleID                string               `json:"mesocycle_id"`
	WeekNumber                 int                  `json:"week_number"`
	TotalWeeks                 int                  `json:"total_weeks"`
	ExpectedPhase              Phase                `json:"expected_phase"`
	Targets                    []WeeklyVolumeTarget `json:"targets"`
	TotalWeeklyVolume          int                  `json:"total_weekly_volume"`
	VolumeIncreaseFromPrevious int                  `json:"volume_increase_from_previous"`
	VolumeIncrease             map[MuscleGroup]int  `json:"volume_increase"`
	// AchievedSets holds the working sets actually performed, filled in by the
	// caller once the week has been trained.
	AchievedSets map[MuscleGroup]int `json:"achieved_sets,omitempty"`
}

// Target returns the target for mg, if present.
func (p MesocycleVolumeProgression) Target(mg MuscleGroup) (WeeklyVolumeTarget, bool) {
	for _, t := range p.Targets {
		if t.MuscleGroup == mg {
			return t, true
		}
	}
	return WeeklyVolumeTarget{}, false
}
