package session

import (
	"math"
	"strconv"
	"strings"

	"github.com/claude/mapty/internal/models"
)

// Submission is one raw form submission plus the clicked map location.
// CadenceOrElevation is read as cadence for running and elevation gain for
// cycling.
type Submission struct {
	Type               string
	Distance           string
	Duration           string
	CadenceOrElevation string
	Coords             models.Coordinates
}

// SubmissionFromForm picks the variant field matching the selected type.
func SubmissionFromForm(v FormValues, coords models.Coordinates) Submission {
	sub := Submission{
		Type:     v.Type,
		Distance: v.Distance,
		Duration: v.Duration,
		Coords:   coords,
	}
	if kind, err := models.ParseKind(v.Type); err == nil && kind == models.KindCycling {
		sub.CadenceOrElevation = v.Elevation
	} else {
		sub.CadenceOrElevation = v.Cadence
	}
	return sub
}

type parsedSubmission struct {
	kind     models.Kind
	distance float64
	duration float64
	variant  float64
	coords   models.Coordinates
}

func parseSubmission(sub Submission) (parsedSubmission, error) {
	kind, err := models.ParseKind(sub.Type)
	if err != nil {
		return parsedSubmission{}, err
	}
	p := parsedSubmission{kind: kind, coords: sub.Coords}

	if !finite(sub.Coords.Lat) || !finite(sub.Coords.Lng) {
		return parsedSubmission{}, &models.ValidationError{Field: "coords", Reason: "must be finite"}
	}
	if p.distance, err = parseNumber("distance", sub.Distance); err != nil {
		return parsedSubmission{}, err
	}
	if p.duration, err = parseNumber("duration", sub.Duration); err != nil {
		return parsedSubmission{}, err
	}
	if p.distance <= 0 {
		return parsedSubmission{}, &models.ValidationError{Field: "distance", Reason: "must be positive"}
	}
	if p.duration <= 0 {
		return parsedSubmission{}, &models.ValidationError{Field: "duration", Reason: "must be positive"}
	}

	switch kind {
	case models.KindRunning:
		if p.variant, err = parseNumber("cadence", sub.CadenceOrElevation); err != nil {
			return parsedSubmission{}, err
		}
		if p.variant <= 0 || p.variant != math.Trunc(p.variant) || p.variant > math.MaxInt32 {
			return parsedSubmission{}, &models.ValidationError{Field: "cadence", Reason: "must be a positive whole number"}
		}
	case models.KindCycling:
		if p.variant, err = parseNumber("elevation", sub.CadenceOrElevation); err != nil {
			return parsedSubmission{}, err
		}
		if p.variant < 0 {
			return parsedSubmission{}, &models.ValidationError{Field: "elevation", Reason: "must not be negative"}
		}
	}
	return p, nil
}

// parseNumber treats blank and unparseable input as non-finite.
func parseNumber(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(v) {
		return 0, &models.ValidationError{Field: field, Reason: "must be a finite number"}
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
