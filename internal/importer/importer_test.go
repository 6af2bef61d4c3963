package importer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
)

const export = `[
  {"type":"running","id":"a","date":"2024-04-14T09:00:00Z","coords":[39.7,-105.2],"distance":5.2,"duration":24,"description":"Running on April 14","clicks":3,"cadence":178,"pace":4.6},
  {"type":"cycling","id":"b","date":"2024-04-15T09:00:00Z","coords":[39.8,-105.1],"distance":27,"duration":95,"description":"Cycling on April 15","clicks":0,"elevationGain":523,"speed":17},
  {"type":"running","id":"c","date":"2024-04-16T09:00:00Z","coords":[39.8,-105.1],"distance":-1,"duration":10,"description":"","clicks":0,"cadence":150},
  {"type":"cycling","id":"d","date":"2024-04-16T09:00:00Z","coords":[39.8,-105.1],"distance":10,"duration":30,"description":"","clicks":0}
]`

func discardLog() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TestSubmission verifies records become form-style submissions with only
// the variant field for their type.
func TestSubmission(t *testing.T) {
	cadence := 178
	sub := Submission(models.Record{
		Type: models.KindRunning, Coords: [2]float64{39.7, -105.2},
		Distance: 5.2, Duration: 24, Cadence: &cadence,
	})
	want := session.Submission{
		Type: "running", Distance: "5.2", Duration: "24", CadenceOrElevation: "178",
		Coords: models.Coordinates{Lat: 39.7, Lng: -105.2},
	}
	if sub != want {
		t.Errorf("Submission = %+v, want %+v", sub, want)
	}

	elevation := 0.0
	sub = Submission(models.Record{Type: models.KindCycling, Distance: 1, Duration: 2, ElevationGain: &elevation})
	if sub.CadenceOrElevation != "0" {
		t.Errorf("elevation = %q, want 0", sub.CadenceOrElevation)
	}
}

// TestImportIntoManager verifies valid records are added and invalid ones
// are counted as rejected.
func TestImportIntoManager(t *testing.T) {
	mgr := session.NewManager(session.Deps{Store: storage.NewMemoryStore()})
	stats, err := New(mgr, discardLog(), false).Import(context.Background(), strings.NewReader(export))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Read != 4 || stats.Imported != 2 || stats.Rejected != 2 {
		t.Errorf("stats = %+v, want read 4 imported 2 rejected 2", stats)
	}

	workouts := mgr.Workouts()
	if len(workouts) != 2 {
		t.Fatalf("manager has %d workouts, want 2", len(workouts))
	}
	if workouts[0].ID == "a" || workouts[0].Clicks != 0 {
		t.Errorf("imported workout kept export identity: %+v", workouts[0])
	}
	if workouts[1].Cycling.ElevationGainM != 523 {
		t.Errorf("elevation = %v, want 523", workouts[1].Cycling.ElevationGainM)
	}
}

// TestImportDryRun verifies dry runs validate without submitting.
func TestImportDryRun(t *testing.T) {
	mgr := session.NewManager(session.Deps{Store: storage.NewMemoryStore()})
	stats, err := New(mgr, discardLog(), true).Import(context.Background(), strings.NewReader(export))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Imported != 2 || stats.Rejected != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if n := len(mgr.Workouts()); n != 0 {
		t.Errorf("dry run added %d workouts", n)
	}
}

// TestImportBadJSON verifies malformed input is an error.
func TestImportBadJSON(t *testing.T) {
	_, err := New(nil, discardLog(), false).Import(context.Background(), strings.NewReader(`{"not":"an array"}`))
	if err == nil {
		t.Fatal("expected decode error")
	}
}

type failingSink struct{ err error }

func (f failingSink) SubmitNewWorkout(context.Context, session.Submission) (models.Workout, error) {
	return models.Workout{}, f.err
}

// TestImportStopsOnSinkError verifies non-validation failures abort.
func TestImportStopsOnSinkError(t *testing.T) {
	boom := errors.New("server down")
	stats, err := New(failingSink{err: boom}, discardLog(), false).Import(context.Background(), strings.NewReader(export))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if stats.Imported != 0 {
		t.Errorf("imported = %d, want 0", stats.Imported)
	}
}

// TestClientSubmit verifies the request body and decoding of the created
// workout.
func TestClientSubmit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/workouts" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["elevation"] != "523" || body["lat"] != 39.8 || body["cadence"] != "" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"type":"cycling","id":"srv-1","date":"2024-04-15T09:00:00Z","coords":[39.8,-105.1],"distance":27,"duration":95,"description":"Cycling on April 15","clicks":0,"elevationGain":523,"speed":17}`))
	}))
	defer ts.Close()

	w, err := NewClient(ts.URL+"/").SubmitNewWorkout(context.Background(), session.Submission{
		Type: "cycling", Distance: "27", Duration: "95", CadenceOrElevation: "523",
		Coords: models.Coordinates{Lat: 39.8, Lng: -105.1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.ID != "srv-1" || w.Cycling.SpeedKmPerH == 0 {
		t.Errorf("workout = %+v", w)
	}
}

// TestClientRejected verifies a 400 is reported as ErrRejected without retry.
func TestClientRejected(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"invalid distance: must be positive"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).SubmitNewWorkout(context.Background(), session.Submission{Type: "running"})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

// TestClientRetries verifies server errors are retried three times.
func TestClientRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.backoff = time.Millisecond
	if _, err := c.SubmitNewWorkout(context.Background(), session.Submission{Type: "running"}); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}
