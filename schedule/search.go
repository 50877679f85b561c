package schedule

import (
	"log/slog"
	"time"
)

// Searcher runs the core slot-scanning algorithm: a deterministic,
// single-pass scan at a fixed 30-minute cadence. A Searcher holds no state
// between calls; given the same policy and busy set, output is identical
// across calls except for the single "now" snapshot taken at entry.
type Searcher struct {
	now func() time.Time
}

// NewSearcher creates a searcher using the wall clock.
func NewSearcher() *Searcher {
	return &Searcher{now: time.Now}
}

// WithClock returns a searcher that reads time from now. Used by the chain
// planner and by tests to pin the "now" snapshot.
func (s *Searcher) WithClock(now func() time.Time) *Searcher {
	if now == nil {
		now = time.Now
	}
	return &Searcher{now: now}
}

// Search produces ordered candidate slots for the policy against the busy
// set. Slots never start in the past, never start outside [09:00, 18:00)
// target-local on a non-excluded weekday, and never run past the 18:00
// boundary (rejected, not truncated). A slot overlapping a busy interval
// shorter than two hours becomes a conflict record; one overlapping a
// longer busy interval is silently unavailable.
func (s *Searcher) Search(policy SearchPolicy, busy BusySet) SearchResult {
	policy = policy.normalized()
	now := s.now()

	if len(policy.SpecificDates) > 0 {
		return s.searchDates(policy, busy, now)
	}
	return s.searchRange(policy, busy, now)
}

// searchRange iterates the contiguous window [WindowStart, WindowEnd).
func (s *Searcher) searchRange(policy SearchPolicy, busy BusySet, now time.Time) SearchResult {
	var result SearchResult
	loc := policy.TargetZone
	windowEnd := policy.WindowEnd.In(loc)

	start := policy.WindowStart
	if now.After(start) {
		start = now
	}
	t := snapToCadence(start.In(loc))

	for t.Before(windowEnd) && !capsReached(result) {
		if policy.excludesDay(t) {
			t = nextWorkingDayStart(t)
			continue
		}
		if t.Hour() < workingHourStart {
			t = workingDayStart(t)
			continue
		}
		if t.Hour() >= workingHourEnd {
			t = nextWorkingDayStart(t)
			continue
		}

		slotEnd := t.Add(policy.Duration)
		if slotEnd.After(workingDayEnd(t)) {
			// Would run past 18:00; reject and keep stepping. The hour
			// check above moves to the next day once t itself passes 18:00.
			t = t.Add(slotStep)
			continue
		}

		classify(&result, policy, t, slotEnd, busy)
		t = t.Add(slotStep)
	}
	return result
}

// searchDates iterates only [09:00, 18:00) of each listed date, in order.
// Malformed dates are skipped with a warning, not fatal to the search.
func (s *Searcher) searchDates(policy SearchPolicy, busy BusySet, now time.Time) SearchResult {
	var result SearchResult
	loc := policy.TargetZone

	for _, raw := range policy.SpecificDates {
		if capsReached(result) {
			break
		}
		day, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			slog.Warn("skipping malformed specific date", "date", raw, "error", err)
			continue
		}
		if policy.excludesDay(day) {
			continue
		}

		dayEnd := workingDayEnd(day)
		t := workingDayStart(day)
		if now.After(t) {
			t = snapToCadence(now.In(loc))
		}

		for t.Before(dayEnd) && !capsReached(result) {
			slotEnd := t.Add(policy.Duration)
			if slotEnd.After(dayEnd) {
				// No later start on this date can fit either.
				break
			}
			classify(&result, policy, t, slotEnd, busy)
			t = t.Add(slotStep)
		}
	}
	return result
}

// classify tests one candidate against the busy set and appends it to the
// proper list, respecting the output caps.
func classify(result *SearchResult, policy SearchPolicy, start, end time.Time, busy BusySet) {
	candidate := Interval{Start: start, End: end}
	conflict, found := busy.FirstOverlap(candidate.In(time.UTC))
	if !found {
		if len(result.Available) < maxAvailableSlots {
			result.Available = append(result.Available, newCandidateSlot(start, end, policy.ViewerZone))
		}
		return
	}
	if conflict.Duration() >= movableThreshold {
		// Long events are immovable: the slot is simply unavailable and is
		// not offered as a conflict option either.
		return
	}
	if len(result.ConflictPossible) < maxConflictRecords {
		result.ConflictPossible = append(result.ConflictPossible, ConflictRecord{
			Slot:            newCandidateSlot(start, end, policy.ViewerZone),
			ConflictingWith: conflict.In(policy.TargetZone),
			Note:            MovableNote,
		})
	}
}

func capsReached(r SearchResult) bool {
	return len(r.Available) >= maxAvailableSlots && len(r.ConflictPossible) >= maxConflictRecords
}

// snapToCadence rounds t up to the next 30-minute wall-clock boundary.
// Wall-clock arithmetic keeps the cadence aligned to :00/:30 local time in
// zones with fractional UTC offsets.
func snapToCadence(t time.Time) time.Time {
	hour, min := t.Hour(), t.Minute()
	if t.Second() != 0 || t.Nanosecond() != 0 {
		min++
	}
	switch {
	case min == 0 || min == 30:
		// Already aligned.
	case min < 30:
		min = 30
	default:
		hour++
		min = 0
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, min, 0, 0, t.Location())
}

// workingDayStart returns 09:00 on t's date.
func workingDayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), workingHourStart, 0, 0, 0, t.Location())
}

// workingDayEnd returns 18:00 on t's date.
func workingDayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), workingHourEnd, 0, 0, 0, t.Location())
}

// nextWorkingDayStart returns 09:00 on the day after t.
func nextWorkingDayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, workingHourStart, 0, 0, 0, t.Location())
}
