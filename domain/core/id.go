package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier.
// Record identity must not leak ordering, so this is a random (v4) UUID.
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RecordID ID
	RunID    ID
)

// String conversions for domain IDs
func (id RecordID) String() string { return ID(id).String() }
func (id RunID) String() string    { return ID(id).String() }

// ParseID parses a string into an ID
func ParseID(s string) (ID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("id cannot be empty")
	}
	return ID(s), nil
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}
