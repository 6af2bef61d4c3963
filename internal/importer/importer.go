package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
)

// ErrRejected marks a workout the destination refused as invalid.
var ErrRejected = errors.New("workout rejected")

// Sink accepts new workouts. *session.Manager and *Client satisfy it.
type Sink interface {
	SubmitNewWorkout(ctx context.Context, sub session.Submission) (models.Workout, error)
}

var _ Sink = (*session.Manager)(nil)

// Stats tracks import progress.
type Stats struct {
	Read     int
	Imported int
	Rejected int
}

// Importer replays exported workouts as new submissions. IDs and dates are
// assigned by the destination; only the user-entered fields carry over.
type Importer struct {
	sink   Sink
	log    *slog.Logger
	dryRun bool
}

// New creates an Importer. In dry-run mode records are validated locally
// and never sent to sink.
func New(sink Sink, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{sink: sink, log: log, dryRun: dryRun}
}

// Import reads a JSON array of workout records, as stored under the
// "workouts" key or returned by GET /api/v1/workouts, and submits each one.
// Invalid records are counted and skipped; any other sink error stops the
// import.
func (imp *Importer) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	stats := &Stats{}

	var records []models.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return stats, fmt.Errorf("decoding records: %w", err)
	}
	stats.Read = len(records)

	for i, rec := range records {
		sub := Submission(rec)

		if imp.dryRun {
			if _, err := models.FromRecord(withPlaceholderID(rec)); err != nil {
				imp.log.Warn("invalid record", "index", i, "error", err)
				stats.Rejected++
				continue
			}
			stats.Imported++
			continue
		}

		w, err := imp.sink.SubmitNewWorkout(ctx, sub)
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr), errors.Is(err, ErrRejected):
			imp.log.Warn("record rejected", "index", i, "type", rec.Type, "error", err)
			stats.Rejected++
			continue
		case err != nil:
			return stats, fmt.Errorf("submitting record %d: %w", i, err)
		}
		imp.log.Debug("record imported", "index", i, "id", w.ID)
		stats.Imported++
	}
	return stats, nil
}

// Submission converts a record into form-style input for the destination.
func Submission(rec models.Record) session.Submission {
	sub := session.Submission{
		Type:     string(rec.Type),
		Distance: formatFloat(rec.Distance),
		Duration: formatFloat(rec.Duration),
		Coords:   models.Coordinates{Lat: rec.Coords[0], Lng: rec.Coords[1]},
	}
	switch rec.Type {
	case models.KindRunning:
		if rec.Cadence != nil {
			sub.CadenceOrElevation = strconv.Itoa(*rec.Cadence)
		}
	case models.KindCycling:
		if rec.ElevationGain != nil {
			sub.CadenceOrElevation = formatFloat(*rec.ElevationGain)
		}
	}
	return sub
}

func withPlaceholderID(rec models.Record) models.Record {
	if rec.ID == "" {
		rec.ID = "import"
	}
	return rec
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
