package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the persisted shape of a workout: a flat object with a type
// discriminator and only the fields of its variant set.
type Record struct {
	Type        Kind       `json:"type"`
	ID          string     `json:"id"`
	Date        time.Time  `json:"date"`
	Coords      [2]float64 `json:"coords"`
	Distance    float64    `json:"distance"`
	Duration    float64    `json:"duration"`
	Description string     `json:"description"`
	Clicks      int        `json:"clicks"`

	Cadence *int     `json:"cadence,omitempty"`
	Pace    *float64 `json:"pace,omitempty"`

	ElevationGain *float64 `json:"elevationGain,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
}

// ToRecord flattens w for storage or transport.
func (w Workout) ToRecord() Record {
	rec := Record{
		Type:        w.Kind,
		ID:          w.ID,
		Date:        w.CreatedAt,
		Coords:      [2]float64{w.Coords.Lat, w.Coords.Lng},
		Distance:    w.DistanceKm,
		Duration:    w.DurationMin,
		Description: w.Description,
		Clicks:      w.Clicks,
	}
	switch w.Kind {
	case KindRunning:
		cadence, pace := w.Running.CadenceSPM, w.Running.PaceMinPerKm
		rec.Cadence, rec.Pace = &cadence, &pace
	case KindCycling:
		gain, speed := w.Cycling.ElevationGainM, w.Cycling.SpeedKmPerH
		rec.ElevationGain, rec.Speed = &gain, &speed
	}
	return rec
}

// FromRecord rebuilds a workout through its variant constructor, so the
// derived metric is recomputed from distance and duration and the positivity
// rules are re-checked. ID, date, description and clicks are kept as stored.
func FromRecord(rec Record) (Workout, error) {
	if rec.ID == "" {
		return Workout{}, &ValidationError{Field: "id", Reason: "missing"}
	}
	f := Factory{
		Now:   func() time.Time { return rec.Date },
		NewID: func() string { return rec.ID },
	}
	coords := Coordinates{Lat: rec.Coords[0], Lng: rec.Coords[1]}

	var (
		w   Workout
		err error
	)
	switch rec.Type {
	case KindRunning:
		if rec.Cadence == nil {
			return Workout{}, &ValidationError{Field: "cadence", Reason: "missing"}
		}
		w, err = f.NewRunning(coords, rec.Distance, rec.Duration, *rec.Cadence)
	case KindCycling:
		if rec.ElevationGain == nil {
			return Workout{}, &ValidationError{Field: "elevation", Reason: "missing"}
		}
		w, err = f.NewCycling(coords, rec.Distance, rec.Duration, *rec.ElevationGain)
	default:
		return Workout{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown workout type %q", rec.Type)}
	}
	if err != nil {
		return Workout{}, fmt.Errorf("restoring workout %s: %w", rec.ID, err)
	}

	if rec.Description != "" {
		w.Description = rec.Description
	}
	w.Clicks = rec.Clicks
	return w, nil
}

// MarshalJSON encodes the workout as its Record.
func (w Workout) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.ToRecord())
}

// UnmarshalJSON decodes a Record and rebuilds the workout from it.
func (w *Workout) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	restored, err := FromRecord(rec)
	if err != nil {
		return err
	}
	*w = restored
	return nil
}
