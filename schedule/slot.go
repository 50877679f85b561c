package schedule

import "time"

// MovableNote is the fixed annotation attached to conflict-possible slots.
// Callers and tests match on it verbatim.
const MovableNote = "Short event - might be movable"

// CandidateSlot is one proposed slot, dual-stamped in the target zone and
// the viewer's zone. Produced by Searcher.Search and consumed immediately;
// never persisted.
type CandidateSlot struct {
	// Target is the slot in the requested target zone.
	Target Interval `json:"target"`
	// Viewer is the same instants converted to the viewer's zone.
	Viewer Interval `json:"viewer"`
	// Reasonable flags whether the slot starts within waking hours
	// [07:00, 22:00) of the viewer's local time. Advisory only: slots are
	// ranked no differently, just marked.
	Reasonable bool `json:"reasonable"`
}

// newCandidateSlot stamps a target-zone interval with its viewer-zone
// conversion and the waking-hours flag.
func newCandidateSlot(start, end time.Time, viewerZone *time.Location) CandidateSlot {
	viewer := Interval{Start: start.In(viewerZone), End: end.In(viewerZone)}
	hour := viewer.Start.Hour()
	return CandidateSlot{
		Target:     Interval{Start: start, End: end},
		Viewer:     viewer,
		Reasonable: hour >= reasonableHourStart && hour < reasonableHourEnd,
	}
}

// ConflictRecord is a slot that overlaps a short ("movable") busy interval.
// Slots overlapping busy intervals of two hours or more never surface at
// all; long events are deemed immovable.
type ConflictRecord struct {
	Slot            CandidateSlot `json:"slot"`
	ConflictingWith Interval      `json:"conflicting_with"`
	Note            string        `json:"note"`
}

// SearchResult holds the ordered output of a single slot search. Both lists
// are strictly chronological by construction of the scan. Empty lists are a
// valid, expected outcome, not an error.
type SearchResult struct {
	Available        []CandidateSlot  `json:"available"`
	ConflictPossible []ConflictRecord `json:"conflict_possible"`
}
