package store

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a turn or thread does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a turn with the given response id
	// is already recorded.
	ErrConflict = errors.New("record already exists")
)
