package domain

import "errors"

// Sentinel errors for the failure classes that cross package boundaries.
// Scheduler-internal failures (quote fetch, per-user snapshot writes) are
// logged and absorbed where they happen and never carry a sentinel value.
var (
	// ErrInvalidRange is returned when a caller supplies an unknown range token.
	// This is the only error class surfaced to external callers.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrMissingPrice marks a symbol with no cached price at valuation time.
	// The affected position is excluded from the snapshot, not zero-valued.
	ErrMissingPrice = errors.New("no cached price for symbol")

	// ErrDuplicateSnapshot is returned when a snapshot for the same
	// (user, timestamp) already exists. Callers treat it as success.
	ErrDuplicateSnapshot = errors.New("snapshot already exists")

	// ErrUserNotFound is returned for lookups of unknown or inactive users.
	ErrUserNotFound = errors.New("user not found")
)
