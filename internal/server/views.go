package server

import (
	"sync"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
)

// Event types published by Views.
const (
	EventMapOpen     = "map.open"
	EventMapMarker   = "map.marker"
	EventMapCenter   = "map.center"
	EventListRender  = "list.render"
	EventFormShow    = "form.show"
	EventFormHide    = "form.hide"
	EventFormClear   = "form.clear"
	EventFormVariant = "form.variant"
	EventAlert       = "alert"
)

// Views turns the manager's view commands into hub events. The form values
// are whatever the last form request carried.
type Views struct {
	hub *Hub

	mu     sync.Mutex
	values session.FormValues
}

var (
	_ session.MapView   = (*Views)(nil)
	_ session.ListView  = (*Views)(nil)
	_ session.FormInput = (*Views)(nil)
	_ session.Notifier  = (*Views)(nil)
)

func NewViews(hub *Hub) *Views {
	return &Views{hub: hub, values: session.FormValues{Type: string(models.KindRunning)}}
}

func (v *Views) Open(center models.Coordinates, zoom int) {
	v.hub.Publish(Event{Type: EventMapOpen, Payload: map[string]any{"center": center, "zoom": zoom}})
}

func (v *Views) PlaceMarker(coords models.Coordinates, label string, kind models.Kind) {
	v.hub.Publish(Event{Type: EventMapMarker, Payload: map[string]any{
		"coords": coords,
		"label":  label,
		"type":   kind,
	}})
}

func (v *Views) CenterOn(coords models.Coordinates, zoom int) {
	v.hub.Publish(Event{Type: EventMapCenter, Payload: map[string]any{"center": coords, "zoom": zoom}})
}

func (v *Views) Render(w models.Workout) {
	name, value, unit := w.Metric()
	v.hub.Publish(Event{Type: EventListRender, Payload: map[string]any{
		"workout": w,
		"emoji":   w.Kind.Emoji(),
		"metric":  map[string]any{"name": name, "value": value, "unit": unit},
	}})
}

// SetValues records the values of the form as the browser submitted them.
func (v *Views) SetValues(fv session.FormValues) {
	v.mu.Lock()
	v.values = fv
	v.mu.Unlock()
}

func (v *Views) Values() session.FormValues {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values
}

// ClearFields blanks the numeric inputs; the selected type stays.
func (v *Views) ClearFields() {
	v.mu.Lock()
	v.values = session.FormValues{Type: v.values.Type}
	v.mu.Unlock()
	v.hub.Publish(Event{Type: EventFormClear})
}

func (v *Views) Show() { v.hub.Publish(Event{Type: EventFormShow}) }

func (v *Views) Hide() { v.hub.Publish(Event{Type: EventFormHide}) }

func (v *Views) ShowVariantField(kind models.Kind) {
	v.mu.Lock()
	v.values.Type = string(kind)
	v.mu.Unlock()

	field := "cadence"
	if kind == models.KindCycling {
		field = "elevation"
	}
	v.hub.Publish(Event{Type: EventFormVariant, Payload: map[string]any{"type": kind, "field": field}})
}

func (v *Views) Alert(message string) {
	v.hub.Publish(Event{Type: EventAlert, Payload: map[string]any{"message": message}})
}
