package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Mapty", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Mapty workout log. Lists running and cycling workouts recorded on the map, with distance, duration, pace or speed, and where they happened."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolWorkoutSummary, Handler: h.workoutSummary},
	)

	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.allWorkouts},
		server.ServerResource{Resource: resSummary, Handler: h.summary},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resWorkouts = mcp.NewResource(
	"mapty://workouts",
	"Workouts",
	mcp.WithResourceDescription("Every workout in the session, oldest first"),
	mcp.WithMIMEType("application/json"),
)

var resSummary = mcp.NewResource(
	"mapty://summary",
	"Workout Summary",
	mcp.WithResourceDescription("Totals and averages per workout type"),
	mcp.WithMIMEType("application/json"),
)
