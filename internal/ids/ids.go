// Package ids generates identifiers for rule groups, operators and conditions.
package ids

import (
	"github.com/google/uuid"
)

// New returns a UUIDv7 string. Time-ordered ids keep conditions created in one
// editing session close together when sorted.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
