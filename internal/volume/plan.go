package volume

import (
	"errors"
	"fmt"
	"sort"
)

// WeekRequest is everything needed to schedule one mesocycle week.
type WeekRequest struct {
	Progression   MesocycleVolumeProgression `json:"progression"`
	Constraints   []VolumeConstraints        `json:"constraints"`
	Catalog       []ExercisePriority         `json:"catalog"`
	AvailableDays []int                      `json:"available_days"`
	Strategy      Strategy                   `json:"strategy"`
}

// WeekPlan is the full output of a planning run.
type WeekPlan struct {
	Progression MesocycleVolumeProgression `json:"progression"`
	Resolutions []Resolution               `json:"resolutions"`
	Allocations []ExerciseVolumeAllocation `json:"allocations"`
	Results     []VolumeDistributionResult `json:"results"`
	Days        []TrainingDayDistribution  `json:"days"`
}

// WarningCount totals warnings across all muscle groups.
func (p WeekPlan) WarningCount() int {
	n := 0
	for _, r := range p.Results {
		n += len(r.Warnings)
	}
	return n
}

// FailedGroups lists muscle groups whose allocation failed.
func (p WeekPlan) FailedGroups() []MuscleGroup {
	var out []MuscleGroup
	for _, r := range p.Results {
		if r.Error != "" {
			out = append(out, r.MuscleGroup)
		}
	}
	return out
}

// Planner runs resolve, allocate and distribute for one week.
type Planner struct {
	Resolver Resolver
}

// PlanWeek schedules req.Progression's targets. A ConfigurationError aborts
// the run; an AllocationError only fails the affected muscle group.
func (pl Planner) PlanWeek(req WeekRequest) (WeekPlan, error) {
	cs, err := ConstraintSet(req.Constraints)
	if err != nil {
		return WeekPlan{}, err
	}

	targets := append([]WeeklyVolumeTarget(nil), req.Progression.Targets...)
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].MuscleGroup < targets[j].MuscleGroup })

	plan := WeekPlan{Progression: req.Progression}
	var allocs []ExerciseVolumeAllocation
	var scheduled []VolumeConstraints
	resolved := make(map[MuscleGroup]Resolution, len(targets))
	failed := make(map[MuscleGroup]VolumeDistributionResult)

	for _, t := range targets {
		c, ok := cs[t.MuscleGroup]
		if !ok {
			return WeekPlan{}, &ConfigurationError{MuscleGroup: t.MuscleGroup, Reason: "no constraints supplied"}
		}
		if _, dup := resolved[t.MuscleGroup]; dup {
			return WeekPlan{}, &ConfigurationError{MuscleGroup: t.MuscleGroup, Reason: "duplicate weekly target"}
		}
		res, err := pl.Resolver.Resolve(t, c)
		if err != nil {
			return WeekPlan{}, err
		}
		resolved[t.MuscleGroup] = res
		plan.Resolutions = append(plan.Resolutions, res)

		a, err := Allocate(t.MuscleGroup, res.ClampedSets, req.Catalog, req.Strategy)
		var allocErr *AllocationError
		switch {
		case errors.As(err, &allocErr):
			failed[t.MuscleGroup] = VolumeDistributionResult{
				MuscleGroup:  t.MuscleGroup,
				Allocations:  []ExerciseVolumeAllocation{},
				TrainingDays: []int{},
				Warnings:     append([]string{}, res.Warnings...),
				Error:        allocErr.Error(),
			}
			continue
		case err != nil:
			return WeekPlan{}, fmt.Errorf("allocating %s: %w", t.MuscleGroup, err)
		}
		allocs = append(allocs, a...)
		scheduled = append(scheduled, c)
	}

	dist, err := Distribute(allocs, req.AvailableDays, scheduled)
	if err != nil {
		return WeekPlan{}, err
	}

	plan.Allocations = dist.Allocations
	plan.Days = dist.Days
	plan.Results = make([]VolumeDistributionResult, 0, len(dist.Results)+len(failed))
	for _, r := range dist.Results {
		r.Warnings = append(append([]string{}, resolved[r.MuscleGroup].Warnings...), r.Warnings...)
		plan.Results = append(plan.Results, r)
	}
	for _, r := range failed {
		plan.Results = append(plan.Results, r)
	}
	sort.Slice(plan.Results, func(i, j int) bool { return plan.Results[i].MuscleGroup < plan.Results[j].MuscleGroup })
	return plan, nil
}
