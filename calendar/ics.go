package calendar

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/hrygo/slotwise/schedule"
)

// defaultMaxOccurrences caps recurrence expansion per event so a runaway
// RRULE cannot blow up a query.
const defaultMaxOccurrences = 1000

// ICSProvider reads busy intervals from an iCalendar feed. It is read-only:
// the feed is fetched per query and recurrences are expanded only within the
// queried range.
type ICSProvider struct {
	url            string
	client         *http.Client
	maxOccurrences int
}

// ICSOption configures an ICSProvider.
type ICSOption func(*ICSProvider)

// WithHTTPClient replaces the HTTP client used to fetch the feed.
func WithHTTPClient(client *http.Client) ICSOption {
	return func(p *ICSProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// NewICSProvider creates a provider over the feed at url.
func NewICSProvider(url string, opts ...ICSOption) *ICSProvider {
	p := &ICSProvider{
		url:            url,
		client:         &http.Client{Timeout: 30 * time.Second},
		maxOccurrences: defaultMaxOccurrences,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ListBusy implements schedule.BusyIntervalProvider over the feed.
func (p *ICSProvider) ListBusy(ctx context.Context, start, end time.Time) ([]schedule.Interval, error) {
	events, err := p.ListEvents(ctx, start, end)
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

// ListEvents fetches the feed and returns event occurrences overlapping
// [start, end), recurrences expanded, ordered by start.
func (p *ICSProvider) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	body, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(ErrFeedUnavailable, "parse %s: %v", p.url, err)
	}

	window := schedule.Interval{Start: start, End: end}
	var out []Event

	for _, ve := range cal.Events() {
		occurrences, err := expandVEvent(ve, window, p.maxOccurrences)
		if err != nil {
			// One broken VEVENT must not poison the whole feed.
			slog.Warn("skipping unparseable calendar event",
				"url", p.url,
				"error", err)
			continue
		}
		out = append(out, occurrences...)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Interval.Start.Before(out[j].Interval.Start)
	})
	return out, nil
}

func (p *ICSProvider) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", errors.Wrapf(ErrFeedUnavailable, "request %s: %v", p.url, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrFeedUnavailable, "fetch %s: %v", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(ErrFeedUnavailable, "fetch %s: status %d", p.url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(ErrFeedUnavailable, "read %s: %v", p.url, err)
	}
	return string(body), nil
}

// expandVEvent turns a VEVENT into concrete occurrences inside window.
// Non-recurring events produce at most one; RRULE events are expanded with
// EXDATEs applied and the occurrence count capped.
func expandVEvent(ve *ical.VEvent, window schedule.Interval, maxOccurrences int) ([]Event, error) {
	uid := ""
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		uid = p.Value
	}
	if uid == "" {
		return nil, errors.New("missing UID")
	}

	evStart, err := ve.GetStartAt()
	if err != nil {
		return nil, errors.Wrap(err, "DTSTART")
	}

	summary, description := "", ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		description = p.Value
	}

	allDay := false
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			allDay = true
		}
		if !strings.Contains(p.Value, "T") {
			allDay = true
		}
	}

	var evEnd time.Time
	if allDay {
		evEnd = allDayInterval(evStart).End
		evStart = allDayInterval(evStart).Start
	} else {
		evEnd, err = ve.GetEndAt()
		if err != nil || !evEnd.After(evStart) {
			// Events without a usable DTEND count as point-in-time; give
			// them the default meeting length so they still block time.
			evEnd = evStart.Add(schedule.DefaultDuration)
		}
	}
	duration := evEnd.Sub(evStart)

	rawRRule := ""
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rawRRule = p.Value
	}

	template := Event{
		Title:       summary,
		Description: description,
		AllDay:      allDay,
		Recurring:   rawRRule != "",
	}

	if rawRRule == "" {
		iv := schedule.Interval{Start: evStart, End: evEnd}
		if !iv.Overlaps(window) {
			return nil, nil
		}
		single := template
		single.ID = uid
		single.Interval = iv
		return []Event{single}, nil
	}

	rule, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		return nil, errors.Wrapf(err, "RRULE %q", rawRRule)
	}
	rule.DTStart(evStart)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range exDates(ve, evStart.Location()) {
		set.ExDate(ex.In(evStart.Location()))
	}

	// Between works in the event's own zone; widen the lower bound so an
	// occurrence straddling the window start is still found.
	rangeStart := window.Start.Add(-duration).In(evStart.Location())
	rangeEnd := window.End.In(evStart.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > maxOccurrences {
		occTimes = occTimes[:maxOccurrences]
	}

	var out []Event
	for _, occStart := range occTimes {
		iv := schedule.Interval{Start: occStart, End: occStart.Add(duration)}
		if allDay {
			iv = allDayInterval(occStart)
		}
		if !iv.Overlaps(window) {
			continue
		}
		occ := template
		occ.ID = uid + "/" + occStart.Format(time.RFC3339)
		occ.Interval = iv
		out = append(out, occ)
	}
	return out, nil
}

// exDates collects EXDATE values, tolerating comma-joined lists and the
// common UTC / floating / date-only forms. Floating values belong to the
// event's own zone, not the host's.
func exDates(ve *ical.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
