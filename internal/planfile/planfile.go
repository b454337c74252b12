// Package planfile runs mesocycles described by a YAML plan file, one week
// per invocation, with progress kept in a planstate database.
package planfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/claude/mesoplan/internal/planstate"
	"github.com/claude/mesoplan/internal/volume"
	"gopkg.in/yaml.v3"
)

// File is a mesocycle definition.
type File struct {
	Name          string                     `yaml:"name"`
	TotalWeeks    int                        `yaml:"total_weeks"`
	Strategy      volume.Strategy            `yaml:"strategy"`
	AvailableDays []int                      `yaml:"available_days"`
	Constraints   []volume.VolumeConstraints `yaml:"constraints"`
	Exercises     []volume.ExercisePriority  `yaml:"exercises"`
	// AchievedSets are the sets performed in the most recently planned week,
	// keyed by muscle group name.
	AchievedSets map[string]int `yaml:"achieved_sets"`
}

// Load reads and validates a plan file, applying defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	f := &File{TotalWeeks: 5, Strategy: volume.Balanced}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid plan file: %w", err)
	}
	for i := range f.Exercises {
		if f.Exercises[i].Difficulty == 0 {
			f.Exercises[i].Difficulty = volume.Intermediate
		}
	}
	return f, nil
}

func (f *File) validate() error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if f.TotalWeeks < 1 {
		return fmt.Errorf("total_weeks must be at least 1")
	}
	if len(f.Constraints) == 0 {
		return fmt.Errorf("at least one constraint is required")
	}
	if len(f.Exercises) == 0 {
		return fmt.Errorf("at least one exercise is required")
	}
	if _, err := volume.ConstraintSet(f.Constraints); err != nil {
		return err
	}
	_, err := f.Achieved()
	return err
}

// Achieved parses AchievedSets. It returns nil when none are given.
func (f *File) Achieved() (map[volume.MuscleGroup]int, error) {
	if len(f.AchievedSets) == 0 {
		return nil, nil
	}
	out := make(map[volume.MuscleGroup]int, len(f.AchievedSets))
	for name, sets := range f.AchievedSets {
		mg, err := volume.ParseMuscleGroup(name)
		if err != nil {
			return nil, fmt.Errorf("achieved_sets: %w", err)
		}
		if sets < 0 {
			return nil, fmt.Errorf("achieved_sets: %s has negative sets", mg)
		}
		out[mg] = sets
	}
	return out, nil
}

// State is the progress store Step reads and writes.
type State interface {
	Latest(mesocycle string) (*planstate.Entry, error)
	Save(mesocycle, planHash string, p volume.MesocycleVolumeProgression) error
	Reset(mesocycle string) error
}

var _ State = (*planstate.StateDB)(nil)

// Options tune a Step.
type Options struct {
	Reset            bool
	DryRun           bool
	Phase            *volume.Phase
	AccumulationStep int
}

// Result is the week planned by Step.
type Result struct {
	Plan volume.WeekPlan
	// Started is set when this run began the mesocycle at week 1.
	Started bool
	// PlanChanged is set when the plan file differs from the one used for
	// the previous week.
	PlanChanged bool
}

// Step plans the week after the latest stored one, or week 1 when nothing is
// stored, and records it unless opts.DryRun is set.
func Step(f *File, planHash string, state State, opts Options) (*Result, error) {
	if opts.Reset && !opts.DryRun {
		if err := state.Reset(f.Name); err != nil {
			return nil, fmt.Errorf("resetting %s: %w", f.Name, err)
		}
	}

	latest, err := state.Latest(f.Name)
	if err != nil {
		return nil, err
	}
	if opts.Reset {
		latest = nil
	}

	p := volume.Progressor{AccumulationStep: opts.AccumulationStep}
	res := &Result{}
	var progression volume.MesocycleVolumeProgression
	if latest == nil {
		res.Started = true
		progression, err = p.Start(f.Name, f.TotalWeeks, f.Constraints)
	} else {
		res.PlanChanged = latest.PlanHash != planHash
		prev := latest.Progression
		achieved, aerr := f.Achieved()
		if aerr != nil {
			return nil, aerr
		}
		if achieved != nil {
			prev.AchievedSets = achieved
		}
		progression, err = p.NextWeek(prev, f.Constraints, opts.Phase)
	}
	if err != nil {
		return nil, err
	}

	res.Plan, err = volume.Planner{}.PlanWeek(volume.WeekRequest{
		Progression:   progression,
		Constraints:   f.Constraints,
		Catalog:       f.Exercises,
		AvailableDays: f.AvailableDays,
		Strategy:      f.Strategy,
	})
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return res, nil
	}
	if err := state.Save(f.Name, planHash, progression); err != nil {
		return nil, fmt.Errorf("saving week %d: %w", progression.WeekNumber, err)
	}
	return res, nil
}

// IsComplete reports whether err means the mesocycle has no weeks left.
func IsComplete(err error) bool {
	return errors.Is(err, volume.ErrMesocycleComplete)
}
