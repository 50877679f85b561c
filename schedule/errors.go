package schedule

import "errors"

// Sentinel errors for the slot-search engine. An empty search result is
// never an error; these cover genuine failures only.
var (
	// ErrInvalidInterval indicates an interval whose start is not before its end.
	ErrInvalidInterval = errors.New("invalid interval: start must be before end")

	// ErrInvalidWindow indicates a search policy whose window cannot be iterated.
	ErrInvalidWindow = errors.New("invalid search window")

	// ErrProviderFailure indicates the busy-interval provider failed.
	// It must stay distinguishable from a confirmed-empty calendar:
	// treating a fetch failure as "no busy intervals" would be unsafe.
	ErrProviderFailure = errors.New("busy interval provider failure")
)
