// Package tzlookup resolves free-form location or timezone descriptions
// ("India", "ist", "the UK office") into valid IANA timezone identifiers.
//
// Resolution is layered: a fixed alias table and IANA validation handle the
// common cases locally; anything else goes to an optional lookup backend,
// whose answer is validated before being trusted. Every path terminates in a
// usable zone ID -- on any failure the resolver degrades to UTC with a
// warning rather than surfacing an error.
package tzlookup

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Backend answers free-form timezone lookups the local tables cannot.
// Implementations must be single-shot; the resolver never retries.
type Backend interface {
	Lookup(ctx context.Context, input string) (string, error)
}

// aliases maps common colloquial names to IANA identifiers. Matching is
// case-insensitive on the trimmed input.
var aliases = map[string]string{
	"india":      "Asia/Kolkata",
	"ist":        "Asia/Kolkata",
	"kolkata":    "Asia/Kolkata",
	"mumbai":     "Asia/Kolkata",
	"uk":         "Europe/London",
	"london":     "Europe/London",
	"britain":    "Europe/London",
	"ny":         "America/New_York",
	"nyc":        "America/New_York",
	"new york":   "America/New_York",
	"eastern":    "America/New_York",
	"sf":         "America/Los_Angeles",
	"california": "America/Los_Angeles",
	"pacific":    "America/Los_Angeles",
	"la":         "America/Los_Angeles",
	"japan":      "Asia/Tokyo",
	"jst":        "Asia/Tokyo",
	"tokyo":      "Asia/Tokyo",
	"germany":    "Europe/Berlin",
	"berlin":     "Europe/Berlin",
	"cet":        "Europe/Berlin",
	"sydney":     "Australia/Sydney",
	"australia":  "Australia/Sydney",
	"singapore":  "Asia/Singapore",
	"beijing":    "Asia/Shanghai",
	"china":      "Asia/Shanghai",
}

// Resolver turns user-supplied location text into a valid IANA zone ID.
type Resolver struct {
	backend Backend
}

// NewResolver creates a resolver. backend may be nil, in which case inputs
// beyond the alias table and direct IANA names fall back to UTC.
func NewResolver(backend Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve maps input to an IANA timezone identifier. It never fails: inputs
// nothing can interpret come back as "UTC".
func (r *Resolver) Resolve(ctx context.Context, input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "UTC"
	}
	lowered := strings.ToLower(trimmed)
	if lowered == "utc" {
		return "UTC"
	}
	// A valid IANA identifier passes through unchanged, even if an alias
	// ever shadows it.
	if _, err := time.LoadLocation(trimmed); err == nil {
		return trimmed
	}
	if zone, ok := aliases[lowered]; ok {
		return zone
	}

	if r.backend == nil {
		slog.Warn("timezone not recognized and no lookup backend configured, using UTC",
			"input", trimmed)
		return "UTC"
	}

	zone, err := r.backend.Lookup(ctx, trimmed)
	if err != nil {
		slog.Warn("timezone lookup backend failed, using UTC",
			"input", trimmed,
			"error", err)
		return "UTC"
	}
	zone = strings.TrimSpace(zone)
	if _, err := time.LoadLocation(zone); err != nil {
		slog.Warn("timezone lookup backend returned an invalid zone, using UTC",
			"input", trimmed,
			"zone", zone)
		return "UTC"
	}
	return zone
}

// Location resolves input and loads the resulting zone.
func (r *Resolver) Location(ctx context.Context, input string) *time.Location {
	loc, err := time.LoadLocation(r.Resolve(ctx, input))
	if err != nil {
		// Resolve only returns loadable IDs; this is unreachable short
		// of a broken zone database.
		return time.UTC
	}
	return loc
}
