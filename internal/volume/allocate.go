package volume

import (
	"fmt"
	"math"
	"sort"
)

// floatSlack absorbs binary rounding in share arithmetic so that e.g. 12*6/18
// floors to 4 rather than 3.
const floatSlack = 1e-9

const (
	primarySlots   = 3
	secondarySlots = 2
)

// Allocate splits clampedSets among the candidates for muscle group mg.
//
// The sum of AllocatedSets across the result always equals clampedSets.
// Exercises that receive no sets are omitted.
func Allocate(mg MuscleGroup, clampedSets int, candidates []ExercisePriority, strategy Strategy) ([]ExerciseVolumeAllocation, error) {
	if clampedSets < 0 {
		return nil, &ConfigurationError{MuscleGroup: mg, Reason: fmt.Sprintf("negative set count %d", clampedSets)}
	}
	pool, err := eligible(mg, candidates)
	if err != nil {
		return nil, err
	}
	if clampedSets == 0 {
		return []ExerciseVolumeAllocation{}, nil
	}

	sets := make(map[int64]int, len(pool))

	if share, split := strategy.compoundShare(); split {
		var compound, other []ExercisePriority
		for _, e := range pool {
			if e.Category == Compound {
				compound = append(compound, e)
			} else {
				other = append(other, e)
			}
		}
		compoundSets := int(math.Round(float64(clampedSets) * share))
		otherSets := clampedSets - compoundSets
		if compoundSets > 0 && len(compound) == 0 {
			return nil, &AllocationError{MuscleGroup: mg, Category: Compound.String(), Sets: compoundSets}
		}
		if otherSets > 0 && len(other) == 0 {
			return nil, &AllocationError{MuscleGroup: mg, Category: "isolation/accessory", Sets: otherSets}
		}
		largestRemainder(compound, compoundSets, sets)
		largestRemainder(other, otherSets, sets)
	} else if strategy == FrequencyOptimized {
		if len(pool) == 0 {
			return nil, &AllocationError{MuscleGroup: mg, Category: "any", Sets: clampedSets}
		}
		spreadWide(pool, clampedSets, sets)
	} else {
		return nil, &ConfigurationError{MuscleGroup: mg, Reason: fmt.Sprintf("unknown strategy %s", strategy)}
	}

	out := make([]ExerciseVolumeAllocation, 0, len(pool))
	prio := make(map[int64]int, len(pool))
	for _, e := range pool {
		n := sets[e.ExerciseID]
		if n == 0 {
			continue
		}
		prio[e.ExerciseID] = e.Priority
		out = append(out, ExerciseVolumeAllocation{
			ExerciseID:    e.ExerciseID,
			ExerciseName:  e.Name,
			MuscleGroup:   mg,
			Category:      e.Category,
			AllocatedSets: n,
			Contribution:  round1(float64(n) / float64(clampedSets) * 100),
			TrainingDays:  []int{},
			SetsPerDay:    map[int]int{},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AllocatedSets != b.AllocatedSets {
			return a.AllocatedSets > b.AllocatedSets
		}
		if prio[a.ExerciseID] != prio[b.ExerciseID] {
			return prio[a.ExerciseID] > prio[b.ExerciseID]
		}
		return a.ExerciseID < b.ExerciseID
	})
	for i := range out {
		switch {
		case i < primarySlots:
			out[i].Priority = Primary
		case i < primarySlots+secondarySlots:
			out[i].Priority = Secondary
		default:
			out[i].Priority = Tertiary
		}
	}
	return out, nil
}

// eligible validates the catalog entries for mg and drops everything else.
func eligible(mg MuscleGroup, candidates []ExercisePriority) ([]ExercisePriority, error) {
	seen := make(map[int64]bool, len(candidates))
	var pool []ExercisePriority
	for _, e := range candidates {
		if e.MuscleGroup != mg {
			continue
		}
		if seen[e.ExerciseID] {
			return nil, &ConfigurationError{MuscleGroup: mg, Reason: fmt.Sprintf("duplicate exercise id %d", e.ExerciseID)}
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		seen[e.ExerciseID] = true
		pool = append(pool, e)
	}
	return pool, nil
}

// largestRemainder distributes total sets over bucket proportionally to
// priority*multiplier. Leftover sets go to the largest fractional remainders,
// ties broken by higher priority then lower exercise id.
func largestRemainder(bucket []ExercisePriority, total int, into map[int64]int) {
	if total <= 0 || len(bucket) == 0 {
		return
	}
	var sum float64
	for _, e := range bucket {
		sum += e.weight()
	}

	type share struct {
		e    ExercisePriority
		rem  float64
		base int
	}
	shares := make([]share, len(bucket))
	assigned := 0
	for i, e := range bucket {
		ideal := float64(total) * e.weight() / sum
		base := int(math.Floor(ideal + floatSlack))
		shares[i] = share{e: e, rem: ideal - float64(base), base: base}
		assigned += base
	}

	sort.SliceStable(shares, func(i, j int) bool {
		a, b := shares[i], shares[j]
		if math.Abs(a.rem-b.rem) > floatSlack {
			return a.rem > b.rem
		}
		if a.e.Priority != b.e.Priority {
			return a.e.Priority > b.e.Priority
		}
		return a.e.ExerciseID < b.e.ExerciseID
	})
	for i := 0; assigned < total; i = (i + 1) % len(shares) {
		shares[i].base++
		assigned++
	}
	for i := len(shares) - 1; assigned > total; i-- {
		if shares[i].base > 0 {
			shares[i].base--
			assigned--
		}
	}
	for _, s := range shares {
		into[s.e.ExerciseID] += s.base
	}
}

// spreadWide seeds one set into as many exercises as the budget allows, best
// ranked first, then distributes what is left proportionally.
func spreadWide(pool []ExercisePriority, total int, into map[int64]int) {
	ranked := append([]ExercisePriority(nil), pool...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.weight() != b.weight() {
			return a.weight() > b.weight()
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ExerciseID < b.ExerciseID
	})
	seeded := min(total, len(ranked))
	for _, e := range ranked[:seeded] {
		into[e.ExerciseID] = 1
	}
	largestRemainder(ranked, total-seeded, into)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
