package chunking

import "errors"

var (
	// ErrInvalidBudget is returned when the chunk character budget is not positive.
	ErrInvalidBudget = errors.New("max chunk chars must be greater than 0")

	// ErrInvalidOverlap is returned when the overlap ratio is outside [0, 1).
	ErrInvalidOverlap = errors.New("overlap ratio must be in [0, 1)")
)
