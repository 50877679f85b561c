package schedule

import (
	"fmt"
	"time"
)

// ResolutionKind says which side of the conflicting event an alternative
// sits on.
type ResolutionKind string

const (
	BeforeConflict ResolutionKind = "before_conflict"
	AfterConflict  ResolutionKind = "after_conflict"
)

// Resolution is a proposed alternative slot near a conflicting event.
//
// Known limitation: alternatives are suggestions only and are never
// re-validated against the rest of the busy set, so a proposed alternative
// could itself overlap a different busy interval. Callers treat these as
// hints, not guarantees.
type Resolution struct {
	Kind            ResolutionKind `json:"kind"`
	Slot            CandidateSlot  `json:"slot"`
	ConflictingWith Interval       `json:"conflicting_with"`
	Note            string         `json:"note"`
}

// Advisor post-processes conflict-possible slots into "before/after the
// conflicting event" alternatives.
type Advisor struct{}

// NewAdvisor creates a conflict advisor.
func NewAdvisor() *Advisor {
	return &Advisor{}
}

// Suggest proposes alternatives for the first three conflict records: the
// slot ending right as the conflicting event starts, and the slot starting
// right as it ends. Alternatives must fall inside the search window and sit
// entirely within working hours; each is re-stamped with the viewer-zone
// conversion and reasonableness flag exactly like a scanned slot.
func (a *Advisor) Suggest(conflicts []ConflictRecord, duration time.Duration, windowStart, windowEnd time.Time) []Resolution {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if len(conflicts) > maxResolutions {
		conflicts = conflicts[:maxResolutions]
	}

	var resolutions []Resolution
	for _, record := range conflicts {
		viewerZone := record.Slot.Viewer.Start.Location()
		busy := record.ConflictingWith

		before := busy.Start.Add(-duration)
		if !before.Before(windowStart) && withinWorkingHours(before) &&
			!busy.Start.After(workingDayEnd(before)) {
			resolutions = append(resolutions, Resolution{
				Kind:            BeforeConflict,
				Slot:            newCandidateSlot(before, busy.Start, viewerZone),
				ConflictingWith: busy,
				Note:            fmt.Sprintf("Schedule before %s to avoid conflict", busy.Start.Format("15:04")),
			})
		}

		after := busy.End
		afterEnd := after.Add(duration)
		if !afterEnd.After(windowEnd) && withinWorkingHours(after) &&
			!afterEnd.After(workingDayEnd(after)) {
			resolutions = append(resolutions, Resolution{
				Kind:            AfterConflict,
				Slot:            newCandidateSlot(after, afterEnd, viewerZone),
				ConflictingWith: busy,
				Note:            fmt.Sprintf("Schedule after %s to avoid conflict", busy.End.Format("15:04")),
			})
		}
	}

	if len(resolutions) > maxResolutions {
		resolutions = resolutions[:maxResolutions]
	}
	return resolutions
}

// withinWorkingHours checks the start hour in the instant's own zone, which
// for conflict records is the target zone.
func withinWorkingHours(t time.Time) bool {
	hour := t.Hour()
	return hour >= workingHourStart && hour < workingHourEnd
}
