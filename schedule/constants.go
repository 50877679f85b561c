package schedule

import "time"

// Package-level constants for the slot-search engine. The working-hour and
// movability thresholds are fixed heuristics; the output caps and the skip
// behavior around excluded days are load-bearing for callers and tests, so
// they are not configurable.

const (
	// Working hours: candidate slots start within [09:00, 18:00) local
	// target time and must end by 18:00. Slots are rejected at the boundary,
	// never truncated.
	workingHourStart = 9
	workingHourEnd   = 18

	// Reasonable waking hours in the viewer's zone: [07:00, 22:00). Purely
	// advisory; unreasonable slots are still returned, just flagged.
	reasonableHourStart = 7
	reasonableHourEnd   = 22

	// slotStep is the fixed scan cadence for candidate start instants.
	slotStep = 30 * time.Minute

	// movableThreshold splits busy intervals into "movable" (shorter,
	// offered as conflict-possible) and immovable (excluded outright).
	movableThreshold = 2 * time.Hour

	// Output caps, in chronological order of production.
	maxAvailableSlots  = 10
	maxConflictRecords = 5

	// maxResolutions caps both the conflict records considered and the
	// alternative suggestions produced by the conflict advisor.
	maxResolutions = 3

	// Chain planning limits.
	maxPrimaryCandidates = 5
	maxChainSuggestions  = 5
	afterSubWindowDays   = 7

	// DefaultSearchWindowDays is used when the caller does not bound the
	// planner's primary search window.
	DefaultSearchWindowDays = 14

	// DefaultDuration applies when a task or policy omits its duration.
	DefaultDuration = 30 * time.Minute
)

// dateLayout is the calendar-date format for excluded and specific dates.
const dateLayout = "2006-01-02"
