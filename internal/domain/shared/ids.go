package shared

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier for users, habits, completions and mood entries.
func NewID() string {
	return uuid.NewString()
}

// ValidateID checks that id is a non-empty identifier.
// Any opaque string is accepted so existing records keyed by non-UUID ids stay addressable.
func ValidateID(op, id string) error {
	if strings.TrimSpace(id) == "" {
		return NewDomainError("id", op, ErrInvalidID, "identifier is required")
	}
	return nil
}

// ValidateRating checks a 1..5 rating such as mood or energy.
func ValidateRating(v int) bool {
	return v >= 1 && v <= 5
}
