package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// BusyIntervalProvider lists busy intervals from an external calendar for a
// queried range. The result is treated as the full truth for that query even
// if the external store truncates; no truncation indication reaches the core.
type BusyIntervalProvider interface {
	ListBusy(ctx context.Context, start, end time.Time) ([]Interval, error)
}

// Planner composes one slot search for a primary task with a constrained
// sub-search per dependent task, assembling only fully satisfiable chains.
type Planner struct {
	provider BusyIntervalProvider
	searcher *Searcher
	viewer   *time.Location
	now      func() time.Time
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithViewerZone sets the requester's zone used for slot stamping.
func WithViewerZone(loc *time.Location) PlannerOption {
	return func(p *Planner) {
		if loc != nil {
			p.viewer = loc
		}
	}
}

// WithPlannerClock pins the planner's (and its searches') "now" snapshot.
func WithPlannerClock(now func() time.Time) PlannerOption {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPlanner creates a task-chain planner over the given provider.
func NewPlanner(provider BusyIntervalProvider, opts ...PlannerOption) *Planner {
	p := &Planner{
		provider: provider,
		viewer:   time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.searcher = NewSearcher().WithClock(p.now)
	return p
}

// Plan resolves a task chain into at most five fully satisfied suggestions.
//
// The primary search starts after a lead delay: the primary's MinLeadDays
// plus, per "before" dependent, max(1, ceil(hours/2)) days of preparation
// lead. Each of up to five primary candidates passing the primary's own time
// preference is then extended with every dependent in chain order; a chain
// is emitted only if every dependent resolves (all or nothing). A provider
// failure aborts the plan with ErrProviderFailure; an unsatisfiable chain
// for one primary candidate just moves on to the next.
func (p *Planner) Plan(ctx context.Context, chain TaskChain, windowDays int) ([]ChainSuggestion, error) {
	if windowDays <= 0 {
		windowDays = DefaultSearchWindowDays
	}
	now := p.now()

	delayDays := chain.Primary.Constraints.MinLeadDays
	for _, dep := range chain.Dependents {
		if dep.Relation == RelationBefore {
			delayDays += prepLeadDays(dep.Duration)
		}
	}

	searchStart := now.AddDate(0, 0, delayDays)
	searchEnd := searchStart.AddDate(0, 0, windowDays)

	busyRaw, err := p.provider.ListBusy(ctx, searchStart, searchEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: primary window: %v", ErrProviderFailure, err)
	}

	primaryResult := p.searcher.Search(SearchPolicy{
		Duration:    chain.Primary.Duration,
		WindowStart: searchStart,
		WindowEnd:   searchEnd,
		TargetZone:  chain.Primary.Constraints.Zone,
		ViewerZone:  p.viewer,
	}, NewBusySet(busyRaw))

	candidates := primaryResult.Available
	if len(candidates) > maxPrimaryCandidates {
		candidates = candidates[:maxPrimaryCandidates]
	}

	var suggestions []ChainSuggestion
	for _, primary := range candidates {
		if len(suggestions) >= maxChainSuggestions {
			break
		}
		if !matchesPreference(primary.Target.Start.Hour(), chain.Primary.Constraints.TimePreference) {
			continue
		}

		dependents, err := p.resolveDependents(ctx, chain, primary, now)
		if err != nil {
			return nil, err
		}
		if dependents == nil && len(chain.Dependents) > 0 {
			// Chain unsatisfiable for this primary candidate; not fatal.
			slog.Debug("chain unsatisfiable for primary candidate",
				"primary_start", primary.Target.Start,
				"dependents", len(chain.Dependents))
			continue
		}

		suggestions = append(suggestions, ChainSuggestion{
			PrimarySlot: primary.Target,
			Dependents:  dependents,
		})
	}
	return suggestions, nil
}

// resolveDependents places every dependent task around the primary slot, in
// chain order. Returns nil (and no error) when any dependent cannot be
// placed. Slots accepted for earlier dependents are fed into later
// sub-searches as extra busy intervals so that preparation tasks within one
// chain never overlap each other.
func (p *Planner) resolveDependents(ctx context.Context, chain TaskChain, primary CandidateSlot, now time.Time) ([]DependentResult, error) {
	if len(chain.Dependents) == 0 {
		return []DependentResult{}, nil
	}

	results := make([]DependentResult, 0, len(chain.Dependents))
	var accepted []Interval

	for _, dep := range chain.Dependents {
		var windowStart, windowEnd time.Time
		switch dep.Relation {
		case RelationAfter:
			windowStart = primary.Target.End
			windowEnd = windowStart.AddDate(0, 0, afterSubWindowDays)
		default:
			windowStart = now
			windowEnd = primary.Target.Start
		}
		if !windowStart.Before(windowEnd) {
			return nil, nil
		}

		busyRaw, err := p.provider.ListBusy(ctx, windowStart, windowEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: dependent window: %v", ErrProviderFailure, err)
		}
		busyRaw = append(busyRaw, accepted...)

		sub := p.searcher.Search(SearchPolicy{
			Duration:    dep.Duration,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			TargetZone:  dep.Constraints.Zone,
			ViewerZone:  p.viewer,
		}, NewBusySet(busyRaw))

		slot, ok := pickDependentSlot(sub.Available, dep, primary.Target)
		if !ok {
			return nil, nil
		}

		results = append(results, DependentResult{
			Description: dep.Description,
			Slot:        slot,
			Zone:        dep.Constraints.Zone.String(),
		})
		accepted = append(accepted, slot)
	}
	return results, nil
}

// pickDependentSlot scans sub-search candidates in order and accepts the
// first one that strictly respects the relation to the primary slot and
// satisfies the dependent's own time preference.
func pickDependentSlot(candidates []CandidateSlot, dep DependentTask, primary Interval) (Interval, bool) {
	for _, c := range candidates {
		switch dep.Relation {
		case RelationAfter:
			if c.Target.Start.Before(primary.End) {
				continue
			}
		default:
			if c.Target.End.After(primary.Start) {
				continue
			}
		}
		if !matchesPreference(c.Target.Start.Hour(), dep.Constraints.TimePreference) {
			continue
		}
		return c.Target, true
	}
	return Interval{}, false
}

// prepLeadDays estimates lead time for a preparation task: roughly half a
// day per hour of prep, rounded up, minimum one day.
func prepLeadDays(d time.Duration) int {
	days := int(math.Ceil(d.Hours() / 2))
	if days < 1 {
		return 1
	}
	return days
}
