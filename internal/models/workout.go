package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the workout variant.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps a raw form value to a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindRunning:
		return KindRunning, nil
	case KindCycling:
		return KindCycling, nil
	}
	return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown workout type %q", s)}
}

// Title returns the display name, e.g. "Running".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Emoji returns the marker icon used for the kind.
func (k Kind) Emoji() string {
	if k == KindCycling {
		return "🚴‍♀️"
	}
	return "🏃‍♂️"
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Running holds the running-only fields.
type Running struct {
	CadenceSPM   int
	PaceMinPerKm float64
}

// Cycling holds the cycling-only fields.
type Cycling struct {
	ElevationGainM float64
	SpeedKmPerH    float64
}

// Workout is one recorded activity. Kind selects which of Running or Cycling
// is meaningful; the other is left zero.
type Workout struct {
	ID          string
	Kind        Kind
	CreatedAt   time.Time
	Coords      Coordinates
	DistanceKm  float64
	DurationMin float64
	Description string
	Clicks      int

	Running Running
	Cycling Cycling
}

// Factory builds workouts with an injectable clock and ID source.
type Factory struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultFactory uses wall-clock time and random UUIDs.
var DefaultFactory = Factory{Now: time.Now, NewID: uuid.NewString}

// NewRunning builds a running workout.
func NewRunning(coords Coordinates, distanceKm, durationMin float64, cadenceSPM int) (Workout, error) {
	return DefaultFactory.NewRunning(coords, distanceKm, durationMin, cadenceSPM)
}

// NewCycling builds a cycling workout.
func NewCycling(coords Coordinates, distanceKm, durationMin, elevationGainM float64) (Workout, error) {
	return DefaultFactory.NewCycling(coords, distanceKm, durationMin, elevationGainM)
}

// New builds a workout of the given kind. variantField is the cadence for
// running (truncated to an integer) and the elevation gain for cycling.
func New(kind Kind, coords Coordinates, distanceKm, durationMin, variantField float64) (Workout, error) {
	return DefaultFactory.New(kind, coords, distanceKm, durationMin, variantField)
}

// New builds a workout of the given kind.
func (f Factory) New(kind Kind, coords Coordinates, distanceKm, durationMin, variantField float64) (Workout, error) {
	switch kind {
	case KindRunning:
		return f.NewRunning(coords, distanceKm, durationMin, int(variantField))
	case KindCycling:
		return f.NewCycling(coords, distanceKm, durationMin, variantField)
	}
	return Workout{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown workout type %q", kind)}
}

// NewRunning builds a running workout and computes its pace.
func (f Factory) NewRunning(coords Coordinates, distanceKm, durationMin float64, cadenceSPM int) (Workout, error) {
	if cadenceSPM <= 0 {
		return Workout{}, &ValidationError{Field: "cadence", Reason: "must be positive"}
	}
	w, err := f.base(KindRunning, coords, distanceKm, durationMin)
	if err != nil {
		return Workout{}, err
	}
	w.Running = Running{CadenceSPM: cadenceSPM}
	w.computeMetric()
	return w, nil
}

// NewCycling builds a cycling workout and computes its speed.
func (f Factory) NewCycling(coords Coordinates, distanceKm, durationMin, elevationGainM float64) (Workout, error) {
	if elevationGainM < 0 {
		return Workout{}, &ValidationError{Field: "elevation", Reason: "must not be negative"}
	}
	w, err := f.base(KindCycling, coords, distanceKm, durationMin)
	if err != nil {
		return Workout{}, err
	}
	w.Cycling = Cycling{ElevationGainM: elevationGainM}
	w.computeMetric()
	return w, nil
}

func (f Factory) base(kind Kind, coords Coordinates, distanceKm, durationMin float64) (Workout, error) {
	if distanceKm <= 0 {
		return Workout{}, &ValidationError{Field: "distance", Reason: "must be positive"}
	}
	if durationMin <= 0 {
		return Workout{}, &ValidationError{Field: "duration", Reason: "must be positive"}
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	newID := uuid.NewString
	if f.NewID != nil {
		newID = f.NewID
	}
	created := now()
	return Workout{
		ID:          newID(),
		Kind:        kind,
		CreatedAt:   created,
		Coords:      coords,
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		Description: Describe(kind, created),
	}, nil
}

// computeMetric derives pace or speed from distance and duration.
func (w *Workout) computeMetric() {
	switch w.Kind {
	case KindRunning:
		w.Running.PaceMinPerKm = w.DurationMin / w.DistanceKm
	case KindCycling:
		w.Cycling.SpeedKmPerH = w.DistanceKm / (w.DurationMin / 60)
	}
}

// Describe formats the list heading, e.g. "Running on April 14".
func Describe(kind Kind, t time.Time) string {
	return fmt.Sprintf("%s on %s %d", kind.Title(), t.Month(), t.Day())
}

// Select records one selection of the workout.
func (w *Workout) Select() {
	w.Clicks++
}

// Metric returns the derived metric name, value and unit.
func (w Workout) Metric() (name string, value float64, unit string) {
	switch w.Kind {
	case KindRunning:
		return "pace", w.Running.PaceMinPerKm, "min/km"
	case KindCycling:
		return "speed", w.Cycling.SpeedKmPerH, "km/h"
	}
	return "", 0, ""
}

// Label is the map marker popup text.
func (w Workout) Label() string {
	return w.Kind.Emoji() + " " + w.Description
}
