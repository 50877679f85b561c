package schedule

import "time"

// SearchPolicy describes one slot search: what to look for, where to look,
// and which days are off limits. Working hours are fixed at [09:00, 18:00)
// in the target zone and are not part of the policy surface.
type SearchPolicy struct {
	// Duration of the slot to find. Defaults to DefaultDuration.
	Duration time.Duration

	// WindowStart and WindowEnd bound the contiguous search range
	// [WindowStart, WindowEnd). Ignored when SpecificDates is non-empty.
	WindowStart time.Time
	WindowEnd   time.Time

	// TargetZone is the zone the slot is scheduled in; iteration and the
	// working-hour policy apply to target-local wall time. Defaults to UTC.
	TargetZone *time.Location

	// ViewerZone is the requester's own zone, used only for the dual stamp
	// and the waking-hours reasonableness flag. Defaults to UTC.
	ViewerZone *time.Location

	// ExcludedWeekdays are skipped as whole days. Saturday and Sunday are
	// always skipped regardless of this set.
	ExcludedWeekdays map[time.Weekday]bool

	// ExcludedDates are calendar dates ("2006-01-02", target-local) skipped
	// as whole days.
	ExcludedDates map[string]bool

	// SpecificDates, when non-empty, replaces window-based iteration
	// entirely: only [09:00, 18:00) of each listed date is searched.
	// Malformed entries are skipped, not fatal.
	SpecificDates []string
}

// normalized returns a copy with defaults applied.
func (p SearchPolicy) normalized() SearchPolicy {
	if p.Duration <= 0 {
		p.Duration = DefaultDuration
	}
	if p.TargetZone == nil {
		p.TargetZone = time.UTC
	}
	if p.ViewerZone == nil {
		p.ViewerZone = time.UTC
	}
	return p
}

// excludesDay reports whether the whole day containing t (target-local)
// must be skipped: weekends, excluded weekdays, and excluded dates.
func (p SearchPolicy) excludesDay(t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return true
	}
	if p.ExcludedWeekdays[wd] {
		return true
	}
	return p.ExcludedDates[t.Format(dateLayout)]
}
