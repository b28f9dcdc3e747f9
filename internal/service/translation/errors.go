package translation

import "errors"

var (
	// ErrInvalidInput is returned for empty text or identical languages.
	ErrInvalidInput = errors.New("invalid translation input")
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("translation not found")
)
