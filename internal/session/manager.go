package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/mapty/internal/models"
)

const (
	// DefaultKey is the store key holding the whole collection.
	DefaultKey = "workouts"
	// DefaultZoom is the map zoom used when opening and centering.
	DefaultZoom = 13

	invalidInputMessage = "Inputs have to be positive numbers!"
	noPositionMessage   = "Could not get current position"
)

// Deps are the collaborators a Manager drives. Nil views are replaced with
// no-ops; Store is required.
type Deps struct {
	Store    Store
	Map      MapView
	List     ListView
	Form     FormInput
	Notifier Notifier
	Log      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithKey overrides the store key.
func WithKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

// WithZoom overrides the map zoom level.
func WithZoom(zoom int) Option {
	return func(m *Manager) { m.zoom = zoom }
}

// WithFactory overrides how new workouts get their ID and timestamp.
func WithFactory(f models.Factory) Option {
	return func(m *Manager) { m.factory = f }
}

// Manager owns the session collection. Every exported method takes the
// manager lock, so each event runs to completion before the next starts.
type Manager struct {
	mu sync.Mutex

	store    Store
	mapView  MapView
	list     ListView
	form     FormInput
	notifier Notifier
	log      *slog.Logger

	key     string
	zoom    int
	factory models.Factory

	workouts []models.Workout
	visit    int
	opened   bool
	mapReady bool
	clicked  *models.Coordinates

	// retained holds stored entries that could not be restored; they are
	// written back unchanged. loadErr is set when the stored collection could
	// not be read at all, and refuses saves until the next load or Reset.
	retained []json.RawMessage
	loadErr  error
}

// NewManager creates a Manager with an empty collection. Call Initialize to
// load persisted workouts.
func NewManager(deps Deps, opts ...Option) *Manager {
	m := &Manager{
		store:    deps.Store,
		mapView:  deps.Map,
		list:     deps.List,
		form:     deps.Form,
		notifier: deps.Notifier,
		log:      deps.Log,
		key:      DefaultKey,
		zoom:     DefaultZoom,
		factory:  models.DefaultFactory,
	}
	if m.mapView == nil {
		m.mapView = nopView{}
	}
	if m.list == nil {
		m.list = nopView{}
	}
	if m.form == nil {
		m.form = nopView{}
	}
	if m.notifier == nil {
		m.notifier = nopView{}
	}
	if m.log == nil {
		m.log = slog.New(slog.DiscardHandler)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize starts a new visit: it drops the in-memory collection, restores
// the persisted one and renders each restored workout in the list. Markers
// wait for MapReady. A load failure leaves the collection empty and returns
// a *PersistenceError, and later saves fail with ErrNotLoaded instead of
// overwriting what could not be read. Entries that cannot be restored are
// skipped but kept in the store.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.visit++
	m.workouts = nil
	m.retained = nil
	m.loadErr = nil
	m.opened = false
	m.mapReady = false
	m.clicked = nil

	raw, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.loadErr = &PersistenceError{Op: "loading", Err: err}
		return m.loadErr
	}
	if !ok || raw == "" {
		m.log.Info("no stored workouts", "key", m.key)
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		m.loadErr = &PersistenceError{Op: "decoding", Err: err}
		return m.loadErr
	}

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		w, err := restore(entry)
		if err == nil && seen[w.ID] {
			err = fmt.Errorf("duplicate id %q", w.ID)
		}
		if err != nil {
			m.log.Warn("keeping unreadable stored workout", "entry", string(entry), "error", err)
			m.retained = append(m.retained, entry)
			continue
		}
		seen[w.ID] = true
		m.workouts = append(m.workouts, w)
		m.list.Render(w)
	}
	m.log.Info("workouts restored", "count", len(m.workouts), "unreadable", len(m.retained))
	return nil
}

func restore(entry json.RawMessage) (models.Workout, error) {
	var rec models.Record
	if err := json.Unmarshal(entry, &rec); err != nil {
		return models.Workout{}, err
	}
	return models.FromRecord(rec)
}

// LocatePosition waits for src and opens the map at the returned position.
// On failure the user is alerted and ErrPositionUnavailable is returned. A
// position that arrives after the caller gave up or after a new visit
// started is dropped.
func (m *Manager) LocatePosition(ctx context.Context, src PositionSource) (models.Coordinates, error) {
	m.mu.Lock()
	visit := m.visit
	m.mu.Unlock()

	pos, err := src.CurrentPosition(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() != nil || visit != m.visit {
		m.log.Debug("dropping stale position", "visit", visit)
		if ctx.Err() != nil {
			return models.Coordinates{}, ctx.Err()
		}
		return models.Coordinates{}, ErrSuperseded
	}
	if err != nil {
		m.notifier.Alert(noPositionMessage)
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	if !finite(pos.Lat) || !finite(pos.Lng) {
		m.notifier.Alert(noPositionMessage)
		return models.Coordinates{}, fmt.Errorf("%w: non-finite coordinates", ErrPositionUnavailable)
	}

	m.log.Info("position acquired", "url", fmt.Sprintf("https://www.google.com/maps/@%v,%v", pos.Lat, pos.Lng))
	m.mapView.Open(pos, m.zoom)
	m.opened = true
	return pos, nil
}

// MapReady places a marker for every workout in the collection. Repeated
// signals, and signals for a map that was never opened, are ignored.
func (m *Manager) MapReady() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened || m.mapReady {
		m.log.Debug("ignoring map ready signal", "opened", m.opened, "ready", m.mapReady)
		return
	}
	m.mapReady = true
	for _, w := range m.workouts {
		m.mapView.PlaceMarker(w.Coords, w.Label(), w.Kind)
	}
}

// MapClicked remembers the clicked location for the next form submission and
// shows the form. Clicks before the map is ready are ignored.
func (m *Manager) MapClicked(coords models.Coordinates) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mapReady {
		return
	}
	m.clicked = &coords
	m.form.Show()
}

// ChangeType swaps the form's variant field to match the selected type.
func (m *Manager) ChangeType(rawType string) error {
	kind, err := models.ParseKind(rawType)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form.ShowVariantField(kind)
	return nil
}

// SubmitForm submits the form's current values at the last clicked location.
func (m *Manager) SubmitForm(ctx context.Context) (models.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clicked == nil {
		return models.Workout{}, ErrNoLocation
	}
	return m.submitLocked(ctx, SubmissionFromForm(m.form.Values(), *m.clicked))
}

// SubmitNewWorkout validates sub, records the new workout, shows it on the
// map and list, persists the collection and resets the form. Invalid input
// alerts the user and returns a *models.ValidationError without touching
// the collection. A persistence failure is logged and otherwise ignored.
func (m *Manager) SubmitNewWorkout(ctx context.Context, sub Submission) (models.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitLocked(ctx, sub)
}

func (m *Manager) submitLocked(ctx context.Context, sub Submission) (models.Workout, error) {
	p, err := parseSubmission(sub)
	if err != nil {
		m.notifier.Alert(invalidInputMessage)
		return models.Workout{}, err
	}
	w, err := m.factory.New(p.kind, p.coords, p.distance, p.duration, p.variant)
	if err != nil {
		m.notifier.Alert(invalidInputMessage)
		return models.Workout{}, err
	}

	m.workouts = append(m.workouts, w)
	// Before the map is ready MapReady places it with the rest.
	if m.mapReady {
		m.mapView.PlaceMarker(w.Coords, w.Label(), w.Kind)
	}
	m.list.Render(w)

	if err := m.persistLocked(ctx); err != nil {
		m.log.Warn("workout kept in memory only", "id", w.ID, "error", err)
	}

	m.clicked = nil
	m.form.ClearFields()
	m.form.Hide()
	m.log.Info("workout added", "id", w.ID, "type", w.Kind, "distance_km", w.DistanceKm)
	return w, nil
}

// SelectWorkout centers the map on the workout with the given ID and returns
// a copy of it. An unknown ID is a silent no-op.
func (m *Manager) SelectWorkout(id string) (models.Workout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return models.Workout{}, false
	}
	m.workouts[i].Select()
	m.mapView.CenterOn(m.workouts[i].Coords, m.zoom)
	return m.workouts[i], true
}

// Persist writes the whole collection under the store key, followed by any
// stored entries that could not be restored.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked(ctx)
}

func (m *Manager) persistLocked(ctx context.Context) error {
	if m.loadErr != nil {
		return &PersistenceError{Op: "saving", Err: fmt.Errorf("%w: %v", ErrNotLoaded, m.loadErr)}
	}
	entries := make([]json.RawMessage, 0, len(m.workouts)+len(m.retained))
	for _, w := range m.workouts {
		b, err := json.Marshal(w.ToRecord())
		if err != nil {
			return &PersistenceError{Op: "encoding", Err: err}
		}
		entries = append(entries, b)
	}
	entries = append(entries, m.retained...)
	data, err := json.Marshal(entries)
	if err != nil {
		return &PersistenceError{Op: "encoding", Err: err}
	}
	if err := m.store.Set(ctx, m.key, string(data)); err != nil {
		return &PersistenceError{Op: "saving", Err: err}
	}
	return nil
}

// Reset clears the stored value and the in-memory collection. The host is
// expected to reload afterwards.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workouts = nil
	m.retained = nil
	m.clicked = nil
	if err := m.store.Clear(ctx, m.key); err != nil {
		return &PersistenceError{Op: "clearing", Err: err}
	}
	m.loadErr = nil
	m.log.Info("workouts reset", "key", m.key)
	return nil
}

// Workouts returns a copy of the collection in creation order.
func (m *Manager) Workouts() []models.Workout {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Workout, len(m.workouts))
	copy(out, m.workouts)
	return out
}

// Workout returns a copy of the workout with the given ID without selecting it.
func (m *Manager) Workout(id string) (models.Workout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return models.Workout{}, false
	}
	return m.workouts[i], true
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.workouts {
		if m.workouts[i].ID == id {
			return i
		}
	}
	return -1
}

type nopView struct{}

func (nopView) Open(models.Coordinates, int)                        {}
func (nopView) PlaceMarker(models.Coordinates, string, models.Kind) {}
func (nopView) CenterOn(models.Coordinates, int)                    {}
func (nopView) Render(models.Workout)                               {}
func (nopView) Values() FormValues                                  { return FormValues{} }
func (nopView) ClearFields()                                        {}
func (nopView) Show()                                               {}
func (nopView) Hide()                                               {}
func (nopView) ShowVariantField(models.Kind)                        {}
func (nopView) Alert(string)                                        {}
