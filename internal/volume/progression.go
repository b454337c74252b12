package volume

import (
	"fmt"
	"math"
)

// DefaultAccumulationStep is the weekly set increase during accumulation.
const DefaultAccumulationStep = 2

// Progressor computes week-over-week targets. The zero value uses
// DefaultAccumulationStep.
type Progressor struct {
	AccumulationStep int
}

// PhaseFor returns the phase of week within a mesocycle of totalWeeks. The
// final week is a deload and the one before it is intensification.
func PhaseFor(week, totalWeeks int) Phase {
	switch {
	case week >= totalWeeks:
		return Deload
	case week == totalWeeks-1:
		return Intensification
	default:
		return Accumulation
	}
}

// AdjustmentFactor derives the next week's factor from recovery and adaptation
// signals. Low recovery pulls it toward 0.8, high adaptation toward 1.2.
func AdjustmentFactor(c VolumeConstraints) float64 {
	f := 1.0
	if c.RecoveryLevel != nil && *c.RecoveryLevel < 0.5 {
		f -= (0.5 - *c.RecoveryLevel) * 0.4
	}
	if c.AdaptationLevel != nil && *c.AdaptationLevel > 0.5 {
		f += (*c.AdaptationLevel - 0.5) * 0.4
	}
	f = math.Max(MinAdjustmentFactor, math.Min(MaxAdjustmentFactor, f))
	return math.Round(f*100) / 100
}

// Start builds week 1 of a new mesocycle with every muscle group at its MEV.
func (p Progressor) Start(mesocycleID string, totalWeeks int, constraints []VolumeConstraints) (MesocycleVolumeProgression, error) {
	if totalWeeks < 1 {
		return MesocycleVolumeProgression{}, &ConfigurationError{Reason: fmt.Sprintf("mesocycle needs at least 1 week, got %d", totalWeeks)}
	}
	cs, err := ConstraintSet(constraints)
	if err != nil {
		return MesocycleVolumeProgression{}, err
	}

	phase := PhaseFor(1, totalWeeks)
	next := MesocycleVolumeProgression{
		MesocycleID:    mesocycleID,
		WeekNumber:     1,
		TotalWeeks:     totalWeeks,
		ExpectedPhase:  phase,
		Targets:        make([]WeeklyVolumeTarget, 0, len(cs)),
		VolumeIncrease: make(map[MuscleGroup]int, len(cs)),
	}
	for _, mg := range sortedKeys(cs) {
		c := cs[mg]
		t := WeeklyVolumeTarget{
			MuscleGroup:      mg,
			WeekNumber:       1,
			Phase:            phase,
			TargetSets:       c.WeeklyMin,
			AdjustmentFactor: AdjustmentFactor(c),
		}
		if phase == Deload {
			t.AdjustmentFactor = 1.0
		} else if phase == Intensification {
			t.TargetSets = c.WeeklyMax
		}
		next.Targets = append(next.Targets, t)
		next.TotalWeeklyVolume += t.TargetSets
		next.VolumeIncrease[mg] = t.TargetSets
	}
	next.VolumeIncreaseFromPrevious = next.TotalWeeklyVolume
	return next, nil
}

// NextWeek derives the following week's progression from previous. The phase
// comes from the week number unless override is non-nil. A mesocycle cannot
// continue past its final week or past a deload.
func (p Progressor) NextWeek(previous MesocycleVolumeProgression, constraints []VolumeConstraints, override *Phase) (MesocycleVolumeProgression, error) {
	if previous.TotalWeeks < 1 || previous.WeekNumber < 1 {
		return MesocycleVolumeProgression{}, &ConfigurationError{
			Reason: fmt.Sprintf("invalid previous week %d of %d", previous.WeekNumber, previous.TotalWeeks),
		}
	}
	if previous.WeekNumber >= previous.TotalWeeks || previous.ExpectedPhase == Deload {
		return MesocycleVolumeProgression{}, fmt.Errorf("week %d of %d: %w", previous.WeekNumber, previous.TotalWeeks, ErrMesocycleComplete)
	}
	cs, err := ConstraintSet(constraints)
	if err != nil {
		return MesocycleVolumeProgression{}, err
	}

	week := previous.WeekNumber + 1
	phase := PhaseFor(week, previous.TotalWeeks)
	if override != nil {
		if *override < Accumulation || *override > Deload {
			return MesocycleVolumeProgression{}, &ConfigurationError{Reason: fmt.Sprintf("invalid phase override %d", int(*override))}
		}
		phase = *override
	}

	step := p.AccumulationStep
	if step <= 0 {
		step = DefaultAccumulationStep
	}

	next := MesocycleVolumeProgression{
		MesocycleID:    previous.MesocycleID,
		WeekNumber:     week,
		TotalWeeks:     previous.TotalWeeks,
		ExpectedPhase:  phase,
		Targets:        make([]WeeklyVolumeTarget, 0, len(cs)),
		VolumeIncrease: make(map[MuscleGroup]int, len(cs)),
	}

	for _, mg := range sortedKeys(cs) {
		c := cs[mg]
		prevSets := 0
		if t, ok := previous.Target(mg); ok {
			prevSets = t.TargetSets
		}
		base := prevSets
		if achieved, ok := previous.AchievedSets[mg]; ok {
			base = achieved
		}

		t := WeeklyVolumeTarget{
			MuscleGroup:      mg,
			WeekNumber:       week,
			Phase:            phase,
			AdjustmentFactor: AdjustmentFactor(c),
		}
		switch phase {
		case Accumulation:
			s := step
			if t.AdjustmentFactor < 1 {
				s = 1
			}
			t.TargetSets = max(c.WeeklyMin, min(base+s, c.WeeklyMax))
		case Intensification:
			t.TargetSets = max(c.WeeklyMax, min(base, c.WeeklyLimit))
		case Deload:
			t.TargetSets = c.WeeklyMin
			t.AdjustmentFactor = 1.0
		}

		next.Targets = append(next.Targets, t)
		next.TotalWeeklyVolume += t.TargetSets
		next.VolumeIncrease[mg] = t.TargetSets - prevSets
	}
	next.VolumeIncreaseFromPrevious = next.TotalWeeklyVolume - previous.TotalWeeklyVolume
	return next, nil
}
