package sweep

import "errors"

// Sentinel errors for the sweep package.
var (
	// ErrSweepRunning is returned when a second sweep is started while one
	// is already in progress.
	ErrSweepRunning = errors.New("sweep already running")

	// ErrNotRetryable is returned when retrying an item that is not in a
	// warning or error state.
	ErrNotRetryable = errors.New("item not retryable")

	// ErrNoFiles is returned when annotation is requested for an item whose
	// analyze response carries no file list.
	ErrNoFiles = errors.New("no files reported for item")
)

// errNoMetadataMatch is the fixed per-item message for empty match lists.
const errNoMetadataMatch = "no metadata match found"
