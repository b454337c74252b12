package volume

import (
	"fmt"
	"sort"
	"time"
)

// DaysPerWeek bounds day indices (0=Sunday … 6=Saturday) and frequencies.
const DaysPerWeek = 7

// Distribution is the output of Distribute.
type Distribution struct {
	Allocations []ExerciseVolumeAllocation `json:"allocations"`
	Days        []TrainingDayDistribution  `json:"days"`
	Results     []VolumeDistributionResult `json:"results"`
}

// Distribute assigns every allocation's sets to days in availableDays.
//
// Muscle groups are placed heaviest first so that high-volume groups pick the
// least loaded days. Frequency problems are reported on the muscle group's
// result and never stop the distribution. The input slice is not modified.
func Distribute(allocations []ExerciseVolumeAllocation, availableDays []int, constraints []VolumeConstraints) (Distribution, error) {
	days, err := normalizeDays(availableDays)
	if err != nil {
		return Distribution{}, err
	}
	cs, err := ConstraintSet(constraints)
	if err != nil {
		return Distribution{}, err
	}

	groups := make(map[MuscleGroup][]int)
	totals := make(map[MuscleGroup]int)
	out := make([]ExerciseVolumeAllocation, len(allocations))
	for i, a := range allocations {
		if _, ok := cs[a.MuscleGroup]; !ok {
			return Distribution{}, &ConfigurationError{MuscleGroup: a.MuscleGroup, Reason: "no constraints supplied"}
		}
		if a.AllocatedSets < 0 {
			return Distribution{}, &ConfigurationError{MuscleGroup: a.MuscleGroup, Reason: fmt.Sprintf("exercise %d has negative sets", a.ExerciseID)}
		}
		a.TrainingDays = []int{}
		a.SetsPerDay = map[int]int{}
		out[i] = a
		groups[a.MuscleGroup] = append(groups[a.MuscleGroup], i)
		totals[a.MuscleGroup] += a.AllocatedSets
	}

	order := make([]MuscleGroup, 0, len(cs))
	for mg := range cs {
		order = append(order, mg)
	}
	sort.Slice(order, func(i, j int) bool {
		if totals[order[i]] != totals[order[j]] {
			return totals[order[i]] > totals[order[j]]
		}
		return order[i] < order[j]
	})

	load := make(map[int]int, len(days))
	results := make(map[MuscleGroup]VolumeDistributionResult, len(order))

	for _, mg := range order {
		c := cs[mg]
		total := totals[mg]
		if total > 0 && len(days) == 0 {
			return Distribution{}, &ConfigurationError{MuscleGroup: mg, Reason: "no available training days"}
		}

		freq := min(c.FrequencyMax, total, len(days))
		if freq == 0 && total > 0 {
			// frequency_max of 0 with sets to place; reported below.
			freq = 1
		}
		chosen := chooseDays(days, freq, load)

		perDay := make(map[int]int, len(chosen))
		for _, idx := range groups[mg] {
			a := &out[idx]
			for s := 0; s < a.AllocatedSets; s++ {
				d := leastLoaded(chosen, perDay)
				perDay[d]++
				a.SetsPerDay[d]++
				load[d]++
			}
			a.TrainingDays = sortedKeys(a.SetsPerDay)
		}

		res := VolumeDistributionResult{
			MuscleGroup:         mg,
			Allocations:         []ExerciseVolumeAllocation{},
			TotalAllocatedSets:  total,
			TrainingDays:        sortedKeys(perDay),
			IsWithinConstraints: true,
			Warnings:            []string{},
		}
		if c.WeeklyMax > 0 {
			res.UtilizationPercentage = round1(float64(total) / float64(c.WeeklyMax) * 100)
		}

		realized := len(res.TrainingDays)
		if realized < c.FrequencyMin || realized > c.FrequencyMax {
			res.IsWithinConstraints = false
			msg := fmt.Sprintf("%s: frequency violated, trained on %d day(s), requires %d-%d", mg, realized, c.FrequencyMin, c.FrequencyMax)
			if len(days) < c.FrequencyMin {
				msg += fmt.Sprintf(" (only %d available day(s))", len(days))
			}
			res.Warnings = append(res.Warnings, msg)
		}
		if total < c.WeeklyMin {
			res.IsWithinConstraints = false
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %d sets below MEV (%d)", mg, total, c.WeeklyMin))
		}
		if total > c.WeeklyLimit {
			res.IsWithinConstraints = false
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %d sets over MRV (%d)", mg, total, c.WeeklyLimit))
		}
		results[mg] = res
	}

	for _, a := range out {
		r := results[a.MuscleGroup]
		r.Allocations = append(r.Allocations, a)
		results[a.MuscleGroup] = r
	}

	d := Distribution{
		Allocations: out,
		Days:        DayViews(days, out),
		Results:     make([]VolumeDistributionResult, 0, len(results)),
	}
	for _, mg := range sortedKeys(results) {
		d.Results = append(d.Results, results[mg])
	}
	return d, nil
}

// normalizeDays validates, deduplicates and sorts day indices.
func normalizeDays(in []int) ([]int, error) {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, d := range in {
		if d < 0 || d >= DaysPerWeek {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("day %d outside 0-6", d)}
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out, nil
}

// chooseDays picks n of days. Candidates are compared by the heaviest day
// already loaded, then by the widest minimum spacing around the week, then by
// total load; the first combination in lexical order wins remaining ties.
func chooseDays(days []int, n int, load map[int]int) []int {
	if n <= 0 {
		return nil
	}
	if n >= len(days) {
		return append([]int(nil), days...)
	}

	var best []int
	var bestMax, bestGap, bestSum int
	pick := make([]int, 0, n)

	var walk func(start int)
	walk = func(start int) {
		if len(pick) == n {
			maxLoad, sum := 0, 0
			for _, d := range pick {
				maxLoad = max(maxLoad, load[d])
				sum += load[d]
			}
			gap := minCircularGap(pick)
			better := best == nil ||
				maxLoad < bestMax ||
				(maxLoad == bestMax && gap > bestGap) ||
				(maxLoad == bestMax && gap == bestGap && sum < bestSum)
			if better {
				best = append(best[:0:0], pick...)
				bestMax, bestGap, bestSum = maxLoad, gap, sum
			}
			return
		}
		for i := start; i <= len(days)-(n-len(pick)); i++ {
			pick = append(pick, days[i])
			walk(i + 1)
			pick = pick[:len(pick)-1]
		}
	}
	walk(0)
	return best
}

// minCircularGap is the smallest distance between consecutive chosen days,
// wrapping from the last day of the week to the first.
func minCircularGap(sorted []int) int {
	if len(sorted) < 2 {
		return DaysPerWeek
	}
	gap := sorted[0] + DaysPerWeek - sorted[len(sorted)-1]
	for i := 1; i < len(sorted); i++ {
		gap = min(gap, sorted[i]-sorted[i-1])
	}
	return gap
}

// leastLoaded returns the chosen day with the fewest sets so far, earliest first.
func leastLoaded(chosen []int, perDay map[int]int) int {
	best := chosen[0]
	for _, d := range chosen[1:] {
		if perDay[d] < perDay[best] {
			best = d
		}
	}
	return best
}

// DayViews builds one TrainingDayDistribution per entry of days from the
// per-exercise SetsPerDay maps. days must be sorted and unique.
func DayViews(days []int, allocs []ExerciseVolumeAllocation) []TrainingDayDistribution {
	views := make([]TrainingDayDistribution, 0, len(days))
	for _, d := range days {
		v := TrainingDayDistribution{
			DayOfWeek:    d,
			DayName:      time.Weekday(d).String(),
			MuscleGroups: []MuscleGroup{},
			Exercises:    []ScheduledExercise{},
		}
		trained := make(map[MuscleGroup]bool)
		for _, a := range allocs {
			n := a.SetsPerDay[d]
			if n == 0 {
				continue
			}
			v.TotalSets += n
			v.Exercises = append(v.Exercises, ScheduledExercise{
				ExerciseID:   a.ExerciseID,
				ExerciseName: a.ExerciseName,
				MuscleGroup:  a.MuscleGroup,
				Sets:         n,
			})
			trained[a.MuscleGroup] = true
		}
		v.MuscleGroups = append(v.MuscleGroups, sortedKeys(trained)...)
		views = append(views, v)
	}
	return views
}

func sortedKeys[K ~int, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
