package repository

import "errors"

var (
	// ErrNotFound means no series exists for the symbol at this stage.
	ErrNotFound = errors.New("series not found")
	// ErrEmptySeries means a series exists but has no rows.
	ErrEmptySeries = errors.New("series is empty")
)

// IsMissing reports whether err is a per-symbol missing-input condition
// that should skip the symbol rather than fail it.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmptySeries)
}
