package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/mapty/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) allWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workouts, err := h.ds.ListWorkouts(ctx, "")
	if err != nil {
		return nil, err
	}
	if workouts == nil {
		workouts = []models.Workout{}
	}
	return jsonContents(req.Params.URI, workouts)
}

func (h *handlers) summary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workouts, err := h.ds.ListWorkouts(ctx, "")
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, Summarize(workouts))
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
