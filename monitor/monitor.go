// Package monitor watches a calendar for upcoming events that warrant
// preparation (interviews, tournaments, presentations and the like) and
// books prep blocks ahead of them. Events are processed at most once: a
// persisted ID set plus a description marker guard against duplicates
// across runs and restarts.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/hrygo/slotwise/calendar"
	"github.com/hrygo/slotwise/schedule"
)

const (
	defaultLookaheadDays = 30

	// Prep blocks are searched in the stretch before the event: at most
	// three days ahead of it, ending an hour before it starts.
	prepWindowDays  = 3
	prepEventMargin = time.Hour
)

// prepCategories associates an event category with the keywords that place
// an event in it. Order matters: the first matching category wins.
var prepCategories = []struct {
	name     string
	keywords []string
}{
	{"interview", []string{"interview", "interviews", "interviewing"}},
	{"tournament", []string{"tournament", "tournaments", "competition", "competitions", "contest", "contests"}},
	{"presentation", []string{"presentation", "presentations", "presenting", "demo", "demos"}},
	{"meeting", []string{"meeting with", "meeting at", "call with"}},
	{"event", []string{"event", "events", "conference", "conferences"}},
}

// ChainParser extracts a task chain from a free-text request. Satisfied by
// taskgraph.Parser.
type ChainParser interface {
	Parse(ctx context.Context, request string) (schedule.TaskChain, error)
}

// EventMarker tags source events whose preparation has been planned.
type EventMarker interface {
	MarkPrepPlanned(ctx context.Context, id string) error
}

// Config wires a Monitor. Source, Busy, Sink, Parser and Store are
// required; Marker is optional.
type Config struct {
	Source calendar.EventSource
	Busy   schedule.BusyIntervalProvider
	Sink   calendar.EventSink
	Marker EventMarker
	Parser ChainParser
	Store  Store

	LookaheadDays int
	Clock         func() time.Time
}

// Monitor scans for events needing preparation and schedules prep blocks.
type Monitor struct {
	cfg      Config
	searcher *schedule.Searcher
}

// New creates a monitor from cfg.
func New(cfg Config) *Monitor {
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = defaultLookaheadDays
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Monitor{
		cfg:      cfg,
		searcher: schedule.NewSearcher().WithClock(cfg.Clock),
	}
}

// Planned describes one event the monitor handled in a pass.
type Planned struct {
	EventID  string
	Title    string
	Category string
	Prep     []schedule.Interval
}

// CheckOnce performs a single monitoring pass: scan the lookahead window,
// plan prep for every new event that needs it, and persist the updated
// processed set after each success. Events whose prep could not be placed
// stay unprocessed and are retried on the next pass.
func (m *Monitor) CheckOnce(ctx context.Context) ([]Planned, error) {
	processed, err := m.cfg.Store.Load()
	if err != nil {
		return nil, err
	}

	now := m.cfg.Clock()
	events, err := m.cfg.Source.ListEvents(ctx, now, now.AddDate(0, 0, m.cfg.LookaheadDays))
	if err != nil {
		return nil, errors.Wrap(err, "list upcoming events")
	}

	var handled []Planned
	for _, ev := range events {
		if processed.Contains(ev.ID) {
			continue
		}
		category, ok := needsPrep(ev)
		if !ok {
			continue
		}
		if !ev.Interval.Start.After(now) {
			continue
		}

		prep, err := m.planPrep(ctx, ev, now)
		if err != nil {
			slog.Warn("prep planning failed, will retry next pass",
				"event", ev.Title,
				"error", err)
			continue
		}

		processed.Add(ev.ID)
		if err := m.cfg.Store.Save(processed); err != nil {
			return handled, err
		}
		if m.cfg.Marker != nil {
			if err := m.cfg.Marker.MarkPrepPlanned(ctx, ev.ID); err != nil {
				slog.Warn("failed to tag source event", "event", ev.Title, "error", err)
			}
		}

		handled = append(handled, Planned{
			EventID:  ev.ID,
			Title:    ev.Title,
			Category: category,
			Prep:     prep,
		})
		slog.Info("prep planned",
			"event", ev.Title,
			"category", category,
			"prep_blocks", len(prep))
	}
	return handled, nil
}

// Run drives CheckOnce on a cron schedule until ctx is canceled. An empty
// spec checks hourly.
func (m *Monitor) Run(ctx context.Context, spec string) error {
	if spec == "" {
		spec = "@every 1h"
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := m.CheckOnce(ctx); err != nil {
			slog.Error("monitor pass failed", "error", err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "cron spec %q", spec)
	}

	c.Start()
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return ctx.Err()
}

// planPrep extracts prep tasks for the event and books a block for each in
// the stretch before it, feeding accepted blocks forward so they never
// overlap. Returns an error when no task could be placed.
func (m *Monitor) planPrep(ctx context.Context, ev calendar.Event, now time.Time) ([]schedule.Interval, error) {
	chain, err := m.cfg.Parser.Parse(ctx, prepRequest(ev))
	if err != nil {
		return nil, err
	}

	tasks := beforeTasks(chain, ev.Title)

	windowStart := ev.Interval.Start.AddDate(0, 0, -prepWindowDays)
	if windowStart.Before(now) {
		windowStart = now
	}
	windowEnd := ev.Interval.Start.Add(-prepEventMargin)
	if !windowStart.Before(windowEnd) {
		return nil, errors.Errorf("no prep room before %q", ev.Title)
	}

	busy, err := m.cfg.Busy.ListBusy(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, errors.Wrap(err, "prep window busy query")
	}
	// The search bounds slot starts by windowEnd but not slot ends, and the
	// busy query stops at windowEnd too. Block the margin and the event
	// itself so a long task in a crowded window cannot run into either.
	busy = append(busy, schedule.Interval{Start: windowEnd, End: ev.Interval.End})

	var booked []schedule.Interval
	for _, task := range tasks {
		result := m.searcher.Search(schedule.SearchPolicy{
			Duration:    task.Duration,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			TargetZone:  ev.Interval.Start.Location(),
		}, schedule.NewBusySet(append(busy, booked...)))
		if len(result.Available) == 0 {
			continue
		}

		slot := result.Available[0].Target
		title := fmt.Sprintf("Prep: %s - %s", ev.Title, task.Description)
		if _, err := m.cfg.Sink.CreateEvent(ctx, title, slot, "Automatically scheduled preparation"); err != nil {
			slog.Warn("failed to create prep event", "title", title, "error", err)
			continue
		}
		booked = append(booked, slot)
	}

	if len(booked) == 0 {
		return nil, errors.Errorf("no prep slot found for %q", ev.Title)
	}
	return booked, nil
}

// prepRequest turns an event into a scheduling request for the parser.
func prepRequest(ev calendar.Event) string {
	request := ev.Title
	if ev.Description != "" {
		desc := ev.Description
		if len(desc) > 100 {
			desc = desc[:100]
		}
		request += " - " + desc
	}
	return request
}

// beforeTasks returns the chain's preparation tasks. A chain without any
// (the regex fallback never invents them) still yields one generic block so
// detection alone is worth something.
func beforeTasks(chain schedule.TaskChain, title string) []schedule.Task {
	var tasks []schedule.Task
	for _, dep := range chain.Dependents {
		if dep.Relation == schedule.RelationBefore {
			tasks = append(tasks, dep.Task)
		}
	}
	if len(tasks) == 0 {
		tasks = append(tasks, schedule.NewTask("get ready for "+title, time.Hour, schedule.TaskConstraints{}))
	}
	return tasks
}

// needsPrep classifies an event. Already-marked events never match, and
// recurring events only match in the tournament category; a weekly sync
// does not need fresh prep every occurrence.
func needsPrep(ev calendar.Event) (string, bool) {
	if strings.HasPrefix(ev.Title, "Prep:") {
		// The monitor's own blocks repeat the source event's keywords.
		return "", false
	}
	if strings.Contains(ev.Title, calendar.PrepPlannedMarker) ||
		strings.Contains(ev.Description, calendar.PrepPlannedMarker) {
		return "", false
	}

	fullText := strings.ToLower(ev.Title + " " + ev.Description)
	for _, cat := range prepCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(fullText, kw) {
				if ev.Recurring && cat.name != "tournament" {
					break
				}
				return cat.name, true
			}
		}
	}
	return "", false
}
