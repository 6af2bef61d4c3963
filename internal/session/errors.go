package session

import (
	"errors"
	"fmt"
)

var (
	// ErrPositionUnavailable is returned when the position source fails.
	// The map is never opened for the rest of the session.
	ErrPositionUnavailable = errors.New("position unavailable")

	// ErrNoLocation is returned when the form is submitted before any map click.
	ErrNoLocation = errors.New("no map location selected")

	// ErrSuperseded is returned for a position that resolved after a newer
	// visit started.
	ErrSuperseded = errors.New("visit superseded")

	// ErrNotLoaded is returned when saving after the stored collection
	// failed to load. Saving would overwrite workouts that were never read.
	ErrNotLoaded = errors.New("stored workouts were not loaded")
)

// PersistenceError wraps a store read or write failure. It is reported but
// never rolls back the in-memory collection.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s workouts: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
