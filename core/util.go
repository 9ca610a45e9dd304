package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

var NowFunc = time.Now // mockable

// Now returns the current UTC time truncated to microseconds, the precision of our databases.
func Now() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

// NewID returns a new random entity ID.
func NewID() string {
	return uuid.New().String()
}

// IsValidID reports whether id looks like an entity ID.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
