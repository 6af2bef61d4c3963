package models

import "fmt"

// ValidationError reports a workout field that failed its positivity rule or
// could not be parsed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
