package mcp

import (
	"context"
	"errors"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
)

// ErrNotFound is returned by a DataSource for an unknown workout ID.
var ErrNotFound = errors.New("workout not found")

// DataSource abstracts where MCP tools read workouts from. ManagerSource
// (in-process) and HTTPClient (remote via REST API) satisfy this interface.
// An empty kind lists every workout.
type DataSource interface {
	ListWorkouts(ctx context.Context, kind models.Kind) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id string) (models.Workout, error)
}

// ManagerSource reads straight from a running session manager.
type ManagerSource struct {
	Manager *session.Manager
}

var _ DataSource = ManagerSource{}

func (s ManagerSource) ListWorkouts(_ context.Context, kind models.Kind) ([]models.Workout, error) {
	return filterKind(s.Manager.Workouts(), kind), nil
}

func (s ManagerSource) GetWorkout(_ context.Context, id string) (models.Workout, error) {
	w, ok := s.Manager.Workout(id)
	if !ok {
		return models.Workout{}, ErrNotFound
	}
	return w, nil
}

func filterKind(workouts []models.Workout, kind models.Kind) []models.Workout {
	if kind == "" {
		return workouts
	}
	out := make([]models.Workout, 0, len(workouts))
	for _, w := range workouts {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}
