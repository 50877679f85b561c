package calendar

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/slotwise/schedule"
)

// MemoryCalendar is a mutex-guarded in-memory calendar. It implements both
// sides of the calendar contract (busy queries and event creation) and backs
// tests, the CLI demo and the monitor.
type MemoryCalendar struct {
	mu     sync.Mutex
	events map[string]*Event
	now    func() time.Time
}

// MemoryOption configures a MemoryCalendar.
type MemoryOption func(*MemoryCalendar)

// WithMemoryClock pins the calendar's notion of "now"; tests use this to
// keep past-event validation deterministic.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCalendar) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCalendar creates an empty in-memory calendar.
func NewMemoryCalendar(opts ...MemoryOption) *MemoryCalendar {
	c := &MemoryCalendar{
		events: make(map[string]*Event),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateEvent adds a timed event. Events starting in the past and events
// duplicating an existing title over an overlapping range are rejected; the
// core never performs these checks itself.
func (c *MemoryCalendar) CreateEvent(ctx context.Context, title string, interval schedule.Interval, description string) (string, error) {
	iv, err := schedule.NewInterval(interval.Start, interval.End)
	if err != nil {
		return "", errors.Wrapf(err, "create %q", title)
	}
	if iv.Start.Before(c.now()) {
		return "", errors.Wrapf(ErrPastEvent, "%q at %s", title, iv.Start.Format("2006-01-02 15:04"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ev := range c.events {
		if strings.EqualFold(ev.Title, title) && ev.Interval.Overlaps(iv) {
			return "", errors.Wrapf(ErrDuplicateEvent, "%q already exists at %s",
				title, ev.Interval.Start.Format("2006-01-02 15:04"))
		}
	}

	id := uuid.NewString()
	c.events[id] = &Event{
		ID:          id,
		Title:       title,
		Description: description,
		Interval:    iv,
	}
	return id, nil
}

// CreateAllDayEvent adds an event covering the whole calendar date of day,
// in day's own zone.
func (c *MemoryCalendar) CreateAllDayEvent(ctx context.Context, title string, day time.Time, description string) (string, error) {
	iv := allDayInterval(day)
	id, err := c.CreateEvent(ctx, title, iv, description)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.events[id].AllDay = true
	c.mu.Unlock()
	return id, nil
}

// Seed inserts an event directly, bypassing validation. Intended for tests
// and demo fixtures that need past or recurring entries.
func (c *MemoryCalendar) Seed(ev Event) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.AllDay {
		ev.Interval = allDayInterval(ev.Interval.Start)
	}
	c.events[ev.ID] = &ev
	return ev.ID
}

// ListEvents returns events overlapping [start, end), ordered by start.
func (c *MemoryCalendar) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	window := schedule.Interval{Start: start, End: end}

	c.mu.Lock()
	var out []Event
	for _, ev := range c.events {
		if ev.Interval.Overlaps(window) {
			out = append(out, *ev)
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Interval.Start.Before(out[j].Interval.Start)
	})
	return out, nil
}

// ListBusy implements schedule.BusyIntervalProvider. A single query returns
// at most 250 intervals; the cap is silent.
func (c *MemoryCalendar) ListBusy(ctx context.Context, start, end time.Time) ([]schedule.Interval, error) {
	events, err := c.ListEvents(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(events) > busyRecordCap {
		events = events[:busyRecordCap]
	}
	busy := make([]schedule.Interval, 0, len(events))
	for _, ev := range events {
		busy = append(busy, ev.Interval)
	}
	return busy, nil
}

// MarkPrepPlanned tags an event's description so later monitor passes skip
// it even if the processed-ID store is lost.
func (c *MemoryCalendar) MarkPrepPlanned(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[id]
	if !ok {
		return errors.Errorf("no such event: %s", id)
	}
	if !strings.Contains(ev.Description, PrepPlannedMarker) {
		ev.Description = strings.TrimSpace(ev.Description + " " + PrepPlannedMarker)
	}
	return nil
}

// PrepPlannedMarker tags events whose preparation has already been planned.
const PrepPlannedMarker = "[PREP_PLANNED]"
