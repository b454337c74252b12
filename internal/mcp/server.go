package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Mesoplan", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Mesoplan training volume planner. Resolve weekly set targets against MEV/MAV/MRV, plan a week of training, and step stored mesocycles through accumulation, intensification and deload. Stored mesocycles are scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolPlanWeek, Handler: h.planWeek},
		server.ServerTool{Tool: toolResolveVolume, Handler: h.resolveVolume},
		server.ServerTool{Tool: toolGetMesocycleWeek, Handler: h.getMesocycleWeek},
		server.ServerTool{Tool: toolAdvanceMesocycle, Handler: h.advanceMesocycle},
		server.ServerTool{Tool: toolGetWorkoutSets, Handler: h.getWorkoutSets},
		server.ServerTool{Tool: toolGetPlanLogs, Handler: h.getPlanLogs},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
		server.ServerResource{Resource: resMesocycles, Handler: h.mesocycles},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resExerciseCatalog = mcp.NewResource(
	"mesoplan://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("Stored exercises with muscle group, priority, multiplier, category and difficulty"),
	mcp.WithMIMEType("application/json"),
)

var resMesocycles = mcp.NewResource(
	"mesoplan://mesocycles",
	"Mesocycles",
	mcp.WithResourceDescription("The user's stored mesocycles with their constraints, newest first"),
	mcp.WithMIMEType("application/json"),
)
