package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Relation orders a dependent task relative to the primary task.
type Relation string

const (
	RelationBefore Relation = "before"
	RelationAfter  Relation = "after"
)

// TaskConstraints bound where and when a task may be placed.
type TaskConstraints struct {
	// Zone is the task's own target zone. Defaults to UTC.
	Zone *time.Location
	// TimePreference is a free-text preference evaluated on the candidate's
	// hour of day in the task's target zone: "morning", "afternoon",
	// "evening", "night", or "after N". Empty accepts any hour.
	TimePreference string
	// MinLeadDays is the minimum delay before the earliest searchable
	// instant for the task.
	MinLeadDays int
}

// Task is one schedulable unit of work.
type Task struct {
	Description string
	Duration    time.Duration
	Constraints TaskConstraints
}

// NewTask builds a task with defaults applied: missing durations default to
// DefaultDuration and a missing zone defaults to UTC. Defaults live here,
// once, so callers never patch them up ad hoc.
func NewTask(description string, duration time.Duration, constraints TaskConstraints) Task {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if constraints.Zone == nil {
		constraints.Zone = time.UTC
	}
	return Task{
		Description: description,
		Duration:    duration,
		Constraints: constraints,
	}
}

// DependentTask is a task tied to the primary by a relative-timing relation.
type DependentTask struct {
	Task
	Relation Relation
}

// TaskChain is a primary task plus zero or more ordered dependent tasks.
// A chain resolves together or not at all.
type TaskChain struct {
	Primary    Task
	Dependents []DependentTask
}

// DependentResult is one resolved dependent inside a chain suggestion.
type DependentResult struct {
	Description string   `json:"description"`
	Slot        Interval `json:"slot"`
	Zone        string   `json:"zone"`
}

// ChainSuggestion is a fully resolved chain: a primary slot plus one slot
// per dependent, in the chain's order. Partial chains are never surfaced.
type ChainSuggestion struct {
	PrimarySlot Interval          `json:"primary_slot"`
	Dependents  []DependentResult `json:"dependents"`
}

var afterHourPattern = regexp.MustCompile(`after\s+(\d{1,2})`)

// matchesPreference evaluates a time preference against an hour of day in
// the task's own target zone. "after N" assumes PM when N < 12.
func matchesPreference(hour int, preference string) bool {
	preference = strings.ToLower(strings.TrimSpace(preference))
	switch preference {
	case "":
		return true
	case "morning":
		return hour < 12
	case "afternoon":
		return hour >= 12 && hour < 17
	case "evening":
		return hour >= 17
	case "night":
		return hour >= 19
	}
	if m := afterHourPattern.FindStringSubmatch(preference); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			if n < 12 {
				n += 12
			}
			return hour >= n
		}
	}
	// Unrecognized preferences accept any hour rather than filtering
	// everything out.
	return true
}
