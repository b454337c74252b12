package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude/mesoplan/internal/planfile"
	"github.com/claude/mesoplan/internal/planstate"
	"github.com/claude/mesoplan/internal/volume"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	planPath := flag.String("plan", "", "path to YAML plan file")
	stateDir := flag.String("state", "", "state directory (default ~/.mesoplan)")
	phase := flag.String("phase", "", "force the next week's phase (accumulation, intensification, deload)")
	reset := flag.Bool("reset", false, "forget stored weeks and start the mesocycle over")
	dryRun := flag.Bool("dry-run", false, "plan the next week without recording it")
	step := flag.Int("step", volume.DefaultAccumulationStep, "weekly set increase during accumulation")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("mesoplan-plan", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *planPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: mesoplan-plan -plan <plan.yaml> [-phase P] [-reset] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	opts := planfile.Options{Reset: *reset, DryRun: *dryRun, AccumulationStep: *step}
	if *phase != "" {
		p, err := volume.ParsePhase(*phase)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts.Phase = &p
	}

	f, err := planfile.Load(*planPath)
	if err != nil {
		log.Error("failed to load plan", "path", *planPath, "error", err)
		os.Exit(1)
	}
	hash, err := planstate.HashFile(*planPath)
	if err != nil {
		log.Error("failed to hash plan", "error", err)
		os.Exit(1)
	}

	// Open state database
	dir := *stateDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(homeDir, ".mesoplan")
	}
	state, err := planstate.OpenStateDB(dir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode: the week will be planned but not recorded")
	}

	res, err := planfile.Step(f, hash, state, opts)
	if planfile.IsComplete(err) {
		log.Info("mesocycle complete; run with -reset to start a new block", "mesocycle", f.Name)
		return
	}
	if err != nil {
		log.Error("planning failed", "mesocycle", f.Name, "error", err)
		state.Close()
		os.Exit(1)
	}
	if res.PlanChanged {
		log.Warn("plan file changed since the previous week", "mesocycle", f.Name)
	}

	printPlan(f.Name, &res.Plan)
	if failed := res.Plan.FailedGroups(); len(failed) > 0 {
		log.Warn("some muscle groups could not be allocated", "count", len(failed))
	}
	log.Info("week planned", "week", res.Plan.Progression.WeekNumber, "phase", res.Plan.Progression.ExpectedPhase)
}

func printPlan(name string, plan *volume.WeekPlan) {
	p := plan.Progression
	fmt.Println()
	fmt.Printf("=== %s: week %d of %d (%s) ===\n", name, p.WeekNumber, p.TotalWeeks, p.ExpectedPhase)
	fmt.Printf("  Weekly volume:    %d sets (%+d)\n", p.TotalWeeklyVolume, p.VolumeIncreaseFromPrevious)
	fmt.Println()

	for _, d := range plan.Days {
		if d.TotalSets == 0 {
			fmt.Printf("  %-10s rest\n", d.DayName)
			continue
		}
		fmt.Printf("  %-10s %d sets\n", d.DayName, d.TotalSets)
		for _, e := range d.Exercises {
			fmt.Printf("    - %-28s %2d x  (%s)\n", e.ExerciseName, e.Sets, e.MuscleGroup)
		}
	}

	fmt.Println()
	fmt.Println("  Muscle groups:")
	for _, r := range plan.Results {
		status := "ok"
		switch {
		case r.Error != "":
			status = "FAILED"
		case !r.IsWithinConstraints:
			status = "outside constraints"
		}
		fmt.Printf("    %-12s %3d sets  %5.1f%% of MAV  days %s  %s\n",
			r.MuscleGroup, r.TotalAllocatedSets, r.UtilizationPercentage, dayList(r.TrainingDays), status)
		for _, w := range r.Warnings {
			fmt.Printf("      ! %s\n", w)
		}
		if r.Error != "" {
			fmt.Printf("      ! %s\n", r.Error)
		}
	}
	fmt.Println()
}

func dayList(days []int) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = time.Weekday(d).String()[:3]
	}
	return strings.Join(names, ",")
}
