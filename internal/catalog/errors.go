package catalog

import "errors"

// Sentinel errors for the catalog package.
var (
	// ErrUnavailable is returned when the catalog cannot be reached after
	// retries are exhausted.
	ErrUnavailable = errors.New("catalog unavailable")

	// ErrBadRequest is returned for 4xx responses; these are never retried.
	ErrBadRequest = errors.New("catalog rejected request")

	// ErrTorrentTooLarge is returned when a .torrent download exceeds the
	// size cap.
	ErrTorrentTooLarge = errors.New("torrent file too large")
)
