package medialib

import "errors"

var (
	// ErrNotFound is returned when a post or attachment does not exist.
	ErrNotFound = errors.New("medialib: not found")
	// ErrNotUpdated is returned when a write matched no rows.
	ErrNotUpdated = errors.New("medialib: not updated")
)
