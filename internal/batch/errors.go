package batch

import "errors"

// Sentinel errors for the batch package.
var (
	// ErrNotFound is returned when an item id is not in the store.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrItemBusy is returned when an operation targets an in-flight item.
	ErrItemBusy = errors.New("item is being processed")

	// ErrSportsCategoryRequired is returned when reclassifying to sports
	// without naming a category.
	ErrSportsCategoryRequired = errors.New("sports category required")
)
