package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monday is a fixed Monday used as the search-window anchor throughout the
// search tests; sundayBefore pins "now" safely before the window.
var (
	monday       = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sundayBefore = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testSearcher(now time.Time) *Searcher {
	return NewSearcher().WithClock(fixedClock(now))
}

func busyAt(day time.Time, hour, min, durMin int) Interval {
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
	return Interval{Start: start, End: start.Add(time.Duration(durMin) * time.Minute)}
}

func windowPolicy(d time.Duration, days int) SearchPolicy {
	return SearchPolicy{
		Duration:    d,
		WindowStart: monday,
		WindowEnd:   monday.AddDate(0, 0, days),
	}
}

func TestSearch_EmptyCalendar(t *testing.T) {
	s := testSearcher(sundayBefore)

	result := s.Search(windowPolicy(time.Hour, 14), BusySet{})

	require.Len(t, result.Available, 10, "output capped at ten available slots")
	assert.Empty(t, result.ConflictPossible)

	first := result.Available[0]
	assert.True(t, first.Target.Start.Equal(monday), "first slot starts Monday 09:00 sharp")
	assert.True(t, first.Target.End.Equal(monday.Add(time.Hour)))

	for i, slot := range result.Available {
		assert.Equal(t, time.Hour, slot.Target.Duration())
		wd := slot.Target.Start.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
		if i > 0 {
			prev := result.Available[i-1]
			assert.True(t, prev.Target.Start.Before(slot.Target.Start), "slots are chronological")
		}
	}
}

func TestSearch_ShortConflictIsOfferedAsMovable(t *testing.T) {
	s := testSearcher(sundayBefore)
	// A 30-minute event: short enough to be considered movable.
	busy := NewBusySet([]Interval{busyAt(monday, 10, 0, 30)})

	result := s.Search(windowPolicy(time.Hour, 14), busy)

	require.NotEmpty(t, result.ConflictPossible)
	record := result.ConflictPossible[0]
	assert.True(t, record.Slot.Target.Start.Equal(monday.Add(30*time.Minute)),
		"the 09:30-10:30 candidate is the first to overlap")
	assert.Equal(t, MovableNote, record.Note)
	assert.True(t, record.ConflictingWith.Start.Equal(busyAt(monday, 10, 0, 30).Start))

	for _, slot := range result.Available {
		assert.False(t, slot.Target.Start.Equal(monday.Add(30*time.Minute)),
			"a conflicting candidate must not also be listed as available")
	}
	// The 09:00-10:00 candidate touches the busy interval without overlap.
	assert.True(t, result.Available[0].Target.Start.Equal(monday))
}

func TestSearch_LongConflictIsSilentlyUnavailable(t *testing.T) {
	s := testSearcher(sundayBefore)
	// Five hours: immovable, excluded entirely rather than offered.
	long := busyAt(monday, 9, 0, 300)
	busy := NewBusySet([]Interval{long})

	result := s.Search(windowPolicy(time.Hour, 14), busy)

	assert.Empty(t, result.ConflictPossible)
	require.NotEmpty(t, result.Available)
	assert.True(t, result.Available[0].Target.Start.Equal(monday.Add(5*time.Hour)),
		"first free candidate starts at 14:00, right after the long event")
	for _, slot := range result.Available {
		assert.False(t, slot.Target.Overlaps(long))
	}
}

func TestSearch_ExcludedWeekday(t *testing.T) {
	s := testSearcher(sundayBefore)
	// An 8.5h duration leaves two candidate starts per day, so ten slots
	// span a full week and the scan actually reaches Friday.
	policy := windowPolicy(8*time.Hour+30*time.Minute, 14)
	policy.ExcludedWeekdays = map[time.Weekday]bool{time.Friday: true}

	result := s.Search(policy, BusySet{})

	require.NotEmpty(t, result.Available)
	seenNextWeek := false
	for _, slot := range result.Available {
		assert.NotEqual(t, time.Friday, slot.Target.Start.Weekday())
		if slot.Target.Start.After(monday.AddDate(0, 0, 5)) {
			seenNextWeek = true
		}
	}
	assert.True(t, seenNextWeek, "scan must have skipped past Friday into the next week")
}

func TestSearch_ExcludedDateSkipsWholeDay(t *testing.T) {
	s := testSearcher(sundayBefore)
	policy := windowPolicy(time.Hour, 14)
	policy.ExcludedDates = map[string]bool{"2026-03-02": true}

	result := s.Search(policy, BusySet{})

	require.NotEmpty(t, result.Available)
	tuesday := monday.AddDate(0, 0, 1)
	assert.True(t, result.Available[0].Target.Start.Equal(tuesday),
		"first slot moves to Tuesday 09:00 when Monday is excluded")
}

func TestSearch_NeverOffersThePast(t *testing.T) {
	// It is 10:05 on the window's first day; the next cadence point is 10:30.
	now := time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)
	s := testSearcher(now)

	result := s.Search(windowPolicy(time.Hour, 14), BusySet{})

	require.NotEmpty(t, result.Available)
	assert.True(t, result.Available[0].Target.Start.Equal(time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)))
}

func TestSearch_SlotMayEndExactlyAtSix(t *testing.T) {
	s := testSearcher(sundayBefore)
	// Nine hours fits [09:00, 18:00) exactly, once per day.
	result := s.Search(windowPolicy(9*time.Hour, 3), BusySet{})

	require.NotEmpty(t, result.Available)
	first := result.Available[0]
	assert.Equal(t, 9, first.Target.Start.Hour())
	assert.Equal(t, 18, first.Target.End.Hour())

	// Anything longer can never fit and is rejected, not truncated.
	none := s.Search(windowPolicy(9*time.Hour+30*time.Minute, 3), BusySet{})
	assert.Empty(t, none.Available)
	assert.Empty(t, none.ConflictPossible)
}

func TestSearch_SpecificDatesOverrideWindow(t *testing.T) {
	s := testSearcher(sundayBefore)
	policy := SearchPolicy{
		Duration: 8 * time.Hour, // three candidate starts per listed date
		// The window would otherwise start Monday; it must be ignored.
		WindowStart: monday,
		WindowEnd:   monday.AddDate(0, 0, 14),
		SpecificDates: []string{
			"2026-03-03",
			"not-a-date", // skipped with a warning, not fatal
			"2026-03-07", // Saturday, skipped
			"2026-03-04",
		},
	}

	result := s.Search(policy, BusySet{})

	require.Len(t, result.Available, 6)
	for _, slot := range result.Available[:3] {
		assert.Equal(t, 3, slot.Target.Start.Day())
	}
	for _, slot := range result.Available[3:] {
		assert.Equal(t, 4, slot.Target.Start.Day())
	}
	assert.Equal(t, 9, result.Available[0].Target.Start.Hour())
}

func TestSearch_DualStampAndReasonableness(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	windowStart := time.Date(2026, 3, 2, 9, 0, 0, 0, kolkata)
	s := testSearcher(windowStart.Add(-24 * time.Hour))

	result := s.Search(SearchPolicy{
		Duration:    time.Hour,
		WindowStart: windowStart,
		WindowEnd:   windowStart.AddDate(0, 0, 5),
		TargetZone:  kolkata,
		ViewerZone:  london,
	}, BusySet{})

	require.NotEmpty(t, result.Available)
	first := result.Available[0]

	// 09:00 IST on 2026-03-02 is 03:30 the same morning in London.
	assert.Equal(t, 9, first.Target.Start.Hour())
	assert.Equal(t, 3, first.Viewer.Start.Hour())
	assert.False(t, first.Reasonable, "03:30 viewer-local is outside waking hours")
	assert.True(t, first.Target.Start.Equal(first.Viewer.Start), "dual stamp must be the same instant")

	// Find a slot that lands in the viewer's morning: 12:00 IST == 06:30
	// London is still too early, 12:30 IST == 07:00 qualifies.
	var reasonable *CandidateSlot
	for i := range result.Available {
		if result.Available[i].Reasonable {
			reasonable = &result.Available[i]
			break
		}
	}
	require.NotNil(t, reasonable)
	assert.GreaterOrEqual(t, reasonable.Viewer.Start.Hour(), 7)
}

func TestSearch_OutputCaps(t *testing.T) {
	s := testSearcher(sundayBefore)

	// Alternate short busy events across the first days so the scan keeps
	// producing both kinds of record.
	var busy []Interval
	for day := 0; day < 5; day++ {
		d := monday.AddDate(0, 0, day)
		busy = append(busy,
			busyAt(d, 10, 0, 30),
			busyAt(d, 12, 0, 30),
			busyAt(d, 15, 0, 30),
		)
	}

	result := s.Search(windowPolicy(time.Hour, 14), NewBusySet(busy))

	assert.LessOrEqual(t, len(result.Available), 10)
	assert.LessOrEqual(t, len(result.ConflictPossible), 5)
	assert.Len(t, result.ConflictPossible, 5)
}

func TestSearch_Idempotent(t *testing.T) {
	s := testSearcher(sundayBefore)
	busy := NewBusySet([]Interval{
		busyAt(monday, 10, 0, 30),
		busyAt(monday.AddDate(0, 0, 1), 9, 0, 300),
	})
	policy := windowPolicy(45*time.Minute, 14)

	first := s.Search(policy, busy)
	second := s.Search(policy, busy)

	assert.Equal(t, first, second, "identical inputs and clock must yield identical output")
}

func TestSearch_AvailableSlotsNeverOverlapBusy(t *testing.T) {
	s := testSearcher(sundayBefore)
	busy := []Interval{
		busyAt(monday, 9, 30, 90),
		busyAt(monday, 13, 0, 45),
		busyAt(monday.AddDate(0, 0, 1), 11, 0, 240),
		busyAt(monday.AddDate(0, 0, 2), 16, 30, 60),
	}
	set := NewBusySet(busy)

	result := s.Search(windowPolicy(time.Hour, 14), set)

	for _, slot := range result.Available {
		_, overlaps := set.FirstOverlap(slot.Target.In(time.UTC))
		assert.False(t, overlaps, "available slot %v overlaps a busy interval", slot.Target)

		hour := slot.Target.Start.Hour()
		assert.GreaterOrEqual(t, hour, 9)
		assert.Less(t, hour, 18)
	}
	for _, record := range result.ConflictPossible {
		assert.Less(t, record.ConflictingWith.Duration(), 2*time.Hour,
			"only short busy intervals may back a conflict record")
		assert.True(t, record.Slot.Target.Overlaps(record.ConflictingWith))
	}
}
