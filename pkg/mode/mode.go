// Package mode derives a coarse time-of-day UI mode (morning, active,
// evening) from the wall clock, with an optional manual override.
package mode

import "github.com/pkg/errors"

type Mode string

const (
	Morning Mode = "morning"
	Active  Mode = "active"
	Evening Mode = "evening"
)

// Derive maps an hour of day to a mode: [6,12) is morning, [12,18) is
// active, everything else is evening.
func Derive(hour int) Mode {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Active
	default:
		return Evening
	}
}

// Label returns the human-readable time-of-day label for the mode.
func (m Mode) Label() string {
	switch m {
	case Morning:
		return "Morning"
	case Active:
		return "Afternoon"
	default:
		return "Evening"
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case Morning, Active, Evening:
		return true
	}
	return false
}

// Parse converts a string into a Mode, rejecting unknown values.
func Parse(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", errors.Errorf("invalid mode '%s'; must be 'morning', 'active' or 'evening'", s)
	}
	return m, nil
}
