package mcp

import (
	"context"
	"errors"

	"github.com/claude/mapty/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List recorded workouts, oldest first. Each has its type, coordinates, distance (km), duration (min), description and pace (running) or speed (cycling)."),
	mcp.WithString("type", mcp.Description("Only return this workout type"), mcp.Enum("running", "cycling")),
	mcp.WithNumber("limit", mcp.Description("Return only the most recent N workouts. Defaults to all.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID")),
)

var toolWorkoutSummary = mcp.NewTool("workout_summary",
	mcp.WithDescription("Totals and averages per workout type: count, distance, duration, average pace and cadence for running, average speed and elevation gain for cycling."),
	mcp.WithString("type", mcp.Description("Only summarize this workout type"), mcp.Enum("running", "cycling")),
)

// --- Tool handlers ---

// kindArg reads the optional type argument; empty means every type.
func kindArg(req mcp.CallToolRequest) (models.Kind, error) {
	raw := req.GetString("type", "")
	if raw == "" {
		return "", nil
	}
	return models.ParseKind(raw)
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx, kind)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(workouts) {
		workouts = workouts[len(workouts)-limit:]
	}
	if workouts == nil {
		workouts = []models.Workout{}
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	w, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(w)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx, kind)
	if err != nil {
		h.log.Error("mcp workout_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(Summarize(workouts))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
