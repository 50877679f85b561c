// Package calendar provides the external calendar collaborators: an
// in-memory calendar for tests, demos and the monitor, and a read-only
// provider over an iCalendar feed. Both expose busy intervals to the
// scheduling core; writes go through the EventSink interface.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/hrygo/slotwise/schedule"
)

var (
	// ErrDuplicateEvent rejects a create whose title matches an existing
	// event with an overlapping time range.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrPastEvent rejects a create whose start is already in the past.
	ErrPastEvent = errors.New("event starts in the past")

	// ErrFeedUnavailable marks a calendar feed that could not be fetched
	// or parsed.
	ErrFeedUnavailable = errors.New("calendar feed unavailable")
)

// busyRecordCap bounds a single busy query. Callers receive no indication
// when the cap truncates the result.
const busyRecordCap = 250

// Event is one calendar entry.
type Event struct {
	ID          string
	Title       string
	Description string
	Interval    schedule.Interval
	AllDay      bool
	Recurring   bool
}

// EventSink accepts new calendar events.
type EventSink interface {
	CreateEvent(ctx context.Context, title string, interval schedule.Interval, description string) (string, error)
}

// EventSource lists calendar events overlapping a time range.
type EventSource interface {
	ListEvents(ctx context.Context, start, end time.Time) ([]Event, error)
}

// allDayInterval expands a calendar date to [00:00, next 00:00) in the
// owning zone.
func allDayInterval(day time.Time) schedule.Interval {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return schedule.Interval{Start: start, End: start.AddDate(0, 0, 1)}
}
