package taskgraph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotwise/schedule"
)

type fixedZones struct {
	loc *time.Location
}

func (f fixedZones) Location(context.Context, string) *time.Location { return f.loc }

func TestParse_FallbackExtractsDuration(t *testing.T) {
	p := NewParser(Config{}, nil) // no API key: fallback only

	cases := []struct {
		request string
		want    time.Duration
	}{
		{"30 minutes interview with the platform team", 30 * time.Minute},
		{"45 min sync", 45 * time.Minute},
		{"2 hour design review", 2 * time.Hour},
		{"1 hr onboarding", time.Hour},
		{"catch up with Sam", 30 * time.Minute}, // no duration: default
	}

	for _, tc := range cases {
		chain, err := p.Parse(context.Background(), tc.request)
		require.NoError(t, err, tc.request)
		assert.Equal(t, tc.want, chain.Primary.Duration, "request %q", tc.request)
		assert.Equal(t, tc.request, chain.Primary.Description)
		assert.Empty(t, chain.Dependents, "fallback never invents prep tasks")
		assert.Equal(t, time.UTC, chain.Primary.Constraints.Zone)
	}
}

func TestParse_EmptyRequestIsAnError(t *testing.T) {
	p := NewParser(Config{}, nil)
	_, err := p.Parse(context.Background(), "   ")
	assert.Error(t, err)
}

func TestParseChainResponse(t *testing.T) {
	raw, err := parseChainResponse(`{
		"description": "interview with exec",
		"duration_minutes": 60,
		"timezone": "India",
		"time_preference": "morning",
		"min_lead_days": 1,
		"prep_tasks": [
			{"description": "research company", "duration_minutes": 120, "relation": "before"},
			{"description": "send thank-you note", "duration_minutes": 15, "relation": "after"}
		]
	}`)
	require.NoError(t, err)
	assert.Equal(t, "interview with exec", raw.Description)
	assert.Equal(t, 60, raw.DurationMinutes)
	assert.Len(t, raw.PrepTasks, 2)

	// Markdown fences around the JSON are tolerated.
	raw, err = parseChainResponse("```json\n{\"description\": \"sync\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "sync", raw.Description)

	_, err = parseChainResponse("I could not parse that request.")
	assert.Error(t, err)

	_, err = parseChainResponse(`{"duration_minutes": 30}`)
	assert.Error(t, err, "a chain without a description is unusable")
}

func TestBuildChain(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	p := NewParser(Config{}, fixedZones{loc: kolkata})
	raw := &rawChain{
		Description:     "interview with exec",
		DurationMinutes: 60,
		Timezone:        "India",
		TimePreference:  "morning",
		MinLeadDays:     2,
		PrepTasks: []rawTask{
			{Description: "research company", DurationMinutes: 120, Relation: "before"},
			{Description: "debrief", DurationMinutes: 30, Relation: "AFTER"},
			{Description: "", DurationMinutes: 30, Relation: "before"}, // dropped
			{Description: "review notes", DurationMinutes: 0, Relation: "unknown"},
		},
	}

	chain := p.buildChain(context.Background(), raw, "whatever")

	assert.Equal(t, time.Hour, chain.Primary.Duration)
	assert.Equal(t, kolkata, chain.Primary.Constraints.Zone)
	assert.Equal(t, "morning", chain.Primary.Constraints.TimePreference)
	assert.Equal(t, 2, chain.Primary.Constraints.MinLeadDays)

	require.Len(t, chain.Dependents, 3)
	assert.Equal(t, schedule.RelationBefore, chain.Dependents[0].Relation)
	assert.Equal(t, 2*time.Hour, chain.Dependents[0].Duration)
	assert.Equal(t, schedule.RelationAfter, chain.Dependents[1].Relation, "relation match is case-insensitive")
	assert.Equal(t, schedule.RelationBefore, chain.Dependents[2].Relation, "unknown relations read as before")
	assert.Equal(t, schedule.DefaultDuration, chain.Dependents[2].Duration, "zero duration takes the default")
}

func TestBuildChain_MissingZoneDefaultsToUTC(t *testing.T) {
	p := NewParser(Config{}, nil)
	chain := p.buildChain(context.Background(), &rawChain{Description: "sync"}, "sync")
	assert.Equal(t, time.UTC, chain.Primary.Constraints.Zone)
	assert.Equal(t, schedule.DefaultDuration, chain.Primary.Duration)
}
