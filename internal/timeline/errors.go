package timeline

import "errors"

var (
	// ErrInvalidTransition is returned when a walker operation is not allowed
	// in the walker's current state
	ErrInvalidTransition = errors.New("invalid timeline transition")
)
