package storage

import "errors"

// Entries, bars, trades and segment summaries are written once and never
// updated in place; every store in this package is append-only.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert hits a key that is already
	// recorded. Reconnect replays and pipeline re-runs hit this routinely;
	// callers decide whether to skip or fail.
	ErrDuplicateKey = errors.New("duplicate key: record already written")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
