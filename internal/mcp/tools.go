package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/mesoplan/internal/planning"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func muscleGroupEnum() []string {
	all := volume.AllMuscleGroups()
	names := make([]string, len(all))
	for i, mg := range all {
		names[i] = mg.String()
	}
	return names
}

var constraintItems = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"muscle_group":     map[string]any{"type": "string", "enum": muscleGroupEnum()},
		"weekly_min":       map[string]any{"type": "integer", "description": "MEV"},
		"weekly_max":       map[string]any{"type": "integer", "description": "MAV"},
		"weekly_limit":     map[string]any{"type": "integer", "description": "MRV"},
		"frequency_min":    map[string]any{"type": "integer"},
		"frequency_max":    map[string]any{"type": "integer"},
		"recovery_level":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"adaptation_level": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	},
	"required": []string{"muscle_group", "weekly_min", "weekly_max", "weekly_limit", "frequency_min", "frequency_max"},
}

var exerciseItems = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"exercise_id":  map[string]any{"type": "integer"},
		"name":         map[string]any{"type": "string"},
		"muscle_group": map[string]any{"type": "string", "enum": muscleGroupEnum()},
		"priority":     map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
		"multiplier":   map[string]any{"type": "number"},
		"category":     map[string]any{"type": "string", "enum": []string{"compound", "isolation", "accessory"}},
	},
	"required": []string{"exercise_id", "name", "muscle_group", "priority", "multiplier", "category"},
}

// --- Tool definitions ---

var toolPlanWeek = mcp.NewTool("plan_week",
	mcp.WithDescription("Plan one training week without storing it: resolve each muscle group's target against its constraints, split sets across exercises and schedule them onto training days. Starts a new mesocycle at week 1 unless a progression is given."),
	mcp.WithArray("constraints", mcp.Required(), mcp.Description("Per muscle group volume landmarks and frequency bounds"), mcp.Items(constraintItems)),
	mcp.WithArray("available_days", mcp.Required(), mcp.Description("Training days, 0=Sunday through 6=Saturday"), mcp.Items(map[string]any{"type": "integer", "minimum": 0, "maximum": 6})),
	mcp.WithString("strategy", mcp.Description("Compound/isolation split. Defaults to the server's configured strategy."), mcp.Enum("COMPOUND_HEAVY", "BALANCED", "ISOLATION_FOCUS", "FREQUENCY_OPTIMIZED")),
	mcp.WithNumber("total_weeks", mcp.Description("Mesocycle length when starting a new one, deload included")),
	mcp.WithArray("catalog", mcp.Description("Candidate exercises. Defaults to the stored exercise catalog."), mcp.Items(exerciseItems)),
	mcp.WithObject("progression", mcp.Description("A previously returned progression to plan instead of week 1")),
)

var toolResolveVolume = mcp.NewTool("resolve_volume",
	mcp.WithDescription("Apply an adjustment factor to a weekly set target and clamp it into MEV..MRV. Returns the clamped sets and any warnings."),
	mcp.WithString("muscle_group", mcp.Required(), mcp.Enum(muscleGroupEnum()...)),
	mcp.WithNumber("target_sets", mcp.Required(), mcp.Description("Proposed weekly sets")),
	mcp.WithNumber("adjustment_factor", mcp.Description("Multiplier in [0.8, 1.2]. Defaults to 1.0.")),
	mcp.WithNumber("weekly_min", mcp.Required(), mcp.Description("MEV")),
	mcp.WithNumber("weekly_max", mcp.Required(), mcp.Description("MAV")),
	mcp.WithNumber("weekly_limit", mcp.Required(), mcp.Description("MRV")),
	mcp.WithNumber("frequency_min", mcp.Description("Defaults to 1")),
	mcp.WithNumber("frequency_max", mcp.Description("Defaults to 3")),
)

var toolGetMesocycleWeek = mcp.NewTool("get_mesocycle_week",
	mcp.WithDescription("Retrieve a stored week of a mesocycle: phase, per muscle group targets, exercise allocations and the day-by-day schedule."),
	mcp.WithString("mesocycle_id", mcp.Required(), mcp.Description("Mesocycle UUID")),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("Week number, starting at 1")),
)

var toolAdvanceMesocycle = mcp.NewTool("advance_mesocycle",
	mcp.WithDescription("Plan and store the week after the latest stored week. Volume progresses from the sets actually logged in the previous week unless achieved_sets overrides them."),
	mcp.WithString("mesocycle_id", mcp.Required(), mcp.Description("Mesocycle UUID")),
	mcp.WithString("phase", mcp.Description("Force the next week's phase"), mcp.Enum("accumulation", "intensification", "deload")),
	mcp.WithObject("achieved_sets", mcp.Description("Sets performed last week keyed by muscle group, e.g. {\"chest\": 14}")),
	mcp.WithArray("signals", mcp.Description("Recovery and adaptation readings in [0,1] per muscle group"), mcp.Items(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"muscle_group":     map[string]any{"type": "string", "enum": muscleGroupEnum()},
			"recovery_level":   map[string]any{"type": "number"},
			"adaptation_level": map[string]any{"type": "number"},
		},
		"required": []string{"muscle_group"},
	})),
)

var toolGetWorkoutSets = mcp.NewTool("get_workout_sets",
	mcp.WithDescription("Logged strength sets with weight, reps and RIR. These are the sets counted as achieved volume when a mesocycle advances."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetPlanLogs = mcp.NewTool("get_plan_logs",
	mcp.WithDescription("Recent planning runs with status, warnings and failed muscle groups, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum entries. Defaults to 20.")),
)

// --- Tool handlers ---

func (h *handlers) planWeek(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args planning.PlanRequest
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	if len(args.Constraints) == 0 {
		return mcp.NewToolResultError("constraints parameter is required"), nil
	}

	plan, err := h.ds.Plan(ctx, args)
	if err != nil {
		return h.failed("plan_week", err), nil
	}
	return jsonResult(plan)
}

func (h *handlers) resolveVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("muscle_group")
	if err != nil {
		return mcp.NewToolResultError("muscle_group parameter is required"), nil
	}
	mg, err := volume.ParseMuscleGroup(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sets, err := req.RequireInt("target_sets")
	if err != nil {
		return mcp.NewToolResultError("target_sets parameter is required"), nil
	}
	c := volume.VolumeConstraints{
		MuscleGroup:  mg,
		FrequencyMin: req.GetInt("frequency_min", 1),
		FrequencyMax: req.GetInt("frequency_max", 3),
	}
	for key, dst := range map[string]*int{"weekly_min": &c.WeeklyMin, "weekly_max": &c.WeeklyMax, "weekly_limit": &c.WeeklyLimit} {
		v, err := req.RequireInt(key)
		if err != nil {
			return mcp.NewToolResultError(key + " parameter is required"), nil
		}
		*dst = v
	}

	target := volume.WeeklyVolumeTarget{
		MuscleGroup:      mg,
		TargetSets:       sets,
		AdjustmentFactor: req.GetFloat("adjustment_factor", 1.0),
	}
	res, err := h.ds.Resolve(ctx, target, c)
	if err != nil {
		return h.failed("resolve_volume", err), nil
	}
	return jsonResult(res)
}

func (h *handlers) getMesocycleWeek(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireMesocycleID(req)
	if errResult != nil {
		return errResult, nil
	}
	week, err := req.RequireInt("week")
	if err != nil {
		return mcp.NewToolResultError("week parameter is required"), nil
	}

	mw, err := h.ds.Week(ctx, UserIDFromContext(ctx), id, week)
	if err != nil {
		return h.failed("get_mesocycle_week", err), nil
	}
	return jsonResult(mw)
}

// advanceArgs is the advance_mesocycle argument object.
type advanceArgs struct {
	MesocycleID string `json:"mesocycle_id"`
	planning.AdvanceRequest
}

func (h *handlers) advanceMesocycle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireMesocycleID(req)
	if errResult != nil {
		return errResult, nil
	}
	var args advanceArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}

	mw, err := h.ds.Advance(ctx, UserIDFromContext(ctx), id, args.AdvanceRequest)
	if errors.Is(err, volume.ErrMesocycleComplete) {
		return mcp.NewToolResultError("mesocycle is complete; create a new one to keep planning"), nil
	}
	if err != nil {
		return h.failed("advance_mesocycle", err), nil
	}
	return jsonResult(mw)
}

func (h *handlers) getWorkoutSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sets, err := h.ds.Sets(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		return h.failed("get_workout_sets", err), nil
	}
	return jsonResult(sets)
}

func (h *handlers) getPlanLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	logs, err := h.ds.PlanLogs(ctx, UserIDFromContext(ctx), limit)
	if err != nil {
		return h.failed("get_plan_logs", err), nil
	}
	return jsonResult(logs)
}

func requireMesocycleID(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString("mesocycle_id")
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("mesocycle_id parameter is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("invalid mesocycle_id %q", raw))
	}
	return id, nil
}

// failed turns a data source error into a tool error. Input problems are
// reported as-is; anything else is logged.
func (h *handlers) failed(tool string, err error) *mcp.CallToolResult {
	if !volume.IsConfigurationError(err) && !volume.IsAllocationError(err) {
		h.log.Error("mcp "+tool, "error", err)
	}
	return mcp.NewToolResultError(tool + " failed: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
