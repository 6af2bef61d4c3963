package mcp

import "github.com/claude/mapty/internal/models"

// Summary aggregates a set of workouts per type.
type Summary struct {
	Total   int           `json:"total_workouts"`
	Running RunningTotals `json:"running"`
	Cycling CyclingTotals `json:"cycling"`
}

type RunningTotals struct {
	Count         int     `json:"count"`
	DistanceKm    float64 `json:"total_distance_km"`
	DurationMin   float64 `json:"total_duration_min"`
	AvgPace       float64 `json:"avg_pace_min_per_km"`
	AvgCadenceSPM float64 `json:"avg_cadence_spm"`
}

type CyclingTotals struct {
	Count          int     `json:"count"`
	DistanceKm     float64 `json:"total_distance_km"`
	DurationMin    float64 `json:"total_duration_min"`
	AvgSpeed       float64 `json:"avg_speed_km_per_h"`
	ElevationGainM float64 `json:"total_elevation_gain_m"`
}

// Summarize totals workouts per type. Averages are weighted by distance
// and duration, not by workout.
func Summarize(workouts []models.Workout) Summary {
	var s Summary
	var cadence int
	for _, w := range workouts {
		s.Total++
		switch w.Kind {
		case models.KindRunning:
			s.Running.Count++
			s.Running.DistanceKm += w.DistanceKm
			s.Running.DurationMin += w.DurationMin
			cadence += w.Running.CadenceSPM
		case models.KindCycling:
			s.Cycling.Count++
			s.Cycling.DistanceKm += w.DistanceKm
			s.Cycling.DurationMin += w.DurationMin
			s.Cycling.ElevationGainM += w.Cycling.ElevationGainM
		}
	}
	if s.Running.DistanceKm > 0 {
		s.Running.AvgPace = s.Running.DurationMin / s.Running.DistanceKm
	}
	if s.Running.Count > 0 {
		s.Running.AvgCadenceSPM = float64(cadence) / float64(s.Running.Count)
	}
	if s.Cycling.DurationMin > 0 {
		s.Cycling.AvgSpeed = s.Cycling.DistanceKm / (s.Cycling.DurationMin / 60)
	}
	return s
}
