package session

import (
	"context"

	"github.com/claude/mapty/internal/models"
)

// Store is a string-keyed value store. Get reports ok=false for a missing
// key; that is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

// MapView draws the map the user clicks on.
type MapView interface {
	// Open initializes the view at center. The view reports readiness
	// separately, after which the manager calls MapReady.
	Open(center models.Coordinates, zoom int)
	PlaceMarker(coords models.Coordinates, label string, kind models.Kind)
	CenterOn(coords models.Coordinates, zoom int)
}

// ListView renders workouts as list entries tagged with their ID.
type ListView interface {
	Render(w models.Workout)
}

// FormValues are the raw, unparsed form fields.
type FormValues struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

// FormInput is the workout entry form.
type FormInput interface {
	Values() FormValues
	ClearFields()
	Show()
	Hide()
	// ShowVariantField swaps the cadence/elevation row for kind.
	ShowVariantField(kind models.Kind)
}

// Notifier shows a blocking message to the user.
type Notifier interface {
	Alert(message string)
}

// PositionSource supplies the user's current position once.
type PositionSource interface {
	CurrentPosition(ctx context.Context) (models.Coordinates, error)
}
