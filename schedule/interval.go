// Package schedule implements the slot-search engine: scanning a search
// window for free time slots against a set of busy intervals, reconciling
// target and viewer time zones, and composing chained searches for tasks
// with relative-timing dependencies.
package schedule

import (
	"sort"
	"time"
)

// Interval is a half-open time span [Start, End) of zoned instants.
// Construct with NewInterval to enforce Start < End.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval creates an interval and validates its ordering.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect:
// (StartA < EndB) && (EndA > StartB).
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// In returns the same instants expressed in loc.
func (iv Interval) In(loc *time.Location) Interval {
	return Interval{Start: iv.Start.In(loc), End: iv.End.In(loc)}
}

// IsZero reports whether the interval is unset.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// BusySet is a sorted view of externally supplied busy intervals, normalized
// to UTC for comparison. Intervals are deliberately not coalesced: overlap
// testing is done pairwise against the full sorted list, which is acceptable
// at calendar-query sizes (at most a few hundred records per query).
type BusySet struct {
	intervals []Interval
}

// NewBusySet normalizes raw intervals to UTC and sorts them by start time.
func NewBusySet(raw []Interval) BusySet {
	intervals := make([]Interval, 0, len(raw))
	for _, iv := range raw {
		intervals = append(intervals, iv.In(time.UTC))
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
	return BusySet{intervals: intervals}
}

// FirstOverlap returns the first busy interval (in start order) that
// intersects iv. The first hit wins; callers never need the full set of
// overlaps.
func (b BusySet) FirstOverlap(iv Interval) (Interval, bool) {
	for _, busy := range b.intervals {
		if iv.Overlaps(busy) {
			return busy, true
		}
	}
	return Interval{}, false
}

// Intervals returns the sorted, UTC-normalized intervals.
func (b BusySet) Intervals() []Interval {
	return b.intervals
}

// Len returns the number of busy intervals.
func (b BusySet) Len() int {
	return len(b.intervals)
}
