package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrMaxRetriesExceeded is returned when every allowed attempt failed.
	// The last attempt's error is wrapped alongside it.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when a single attempt runs past its timeout.
	ErrTimeout = errors.New("resilience: operation timed out")
)
