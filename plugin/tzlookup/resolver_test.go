package tzlookup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	zone  string
	err   error
	calls int
}

func (s *stubBackend) Lookup(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.zone, s.err
}

func TestResolve_LocalPaths(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()

	cases := []struct {
		input string
		want  string
	}{
		{"", "UTC"},
		{"   ", "UTC"},
		{"utc", "UTC"},
		{"UTC", "UTC"},
		{"India", "Asia/Kolkata"},
		{"IST", "Asia/Kolkata"},
		{"uk", "Europe/London"},
		{"London", "Europe/London"},
		{"NYC", "America/New_York"},
		{"california", "America/Los_Angeles"},
		{"japan", "Asia/Tokyo"},
		{"Asia/Kolkata", "Asia/Kolkata"},
		{"America/New_York", "America/New_York"},
		// Loadable zone names win over the alias table, legacy links
		// such as "Japan" and "Singapore" included.
		{"Japan", "Japan"},
		{"Singapore", "Singapore"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, r.Resolve(ctx, tc.input), "input %q", tc.input)
	}
}

func TestResolve_NoBackendFallsBackToUTC(t *testing.T) {
	r := NewResolver(nil)
	assert.Equal(t, "UTC", r.Resolve(context.Background(), "the office in Reykjanesbaer"))
}

func TestResolve_BackendAnswerIsValidated(t *testing.T) {
	ctx := context.Background()

	good := &stubBackend{zone: "Europe/Paris"}
	assert.Equal(t, "Europe/Paris", NewResolver(good).Resolve(ctx, "our Paris office"))
	assert.Equal(t, 1, good.calls)

	// An invented identifier must not leak through.
	bogus := &stubBackend{zone: "Mars/Olympus_Mons"}
	assert.Equal(t, "UTC", NewResolver(bogus).Resolve(ctx, "somewhere odd"))

	failing := &stubBackend{err: errors.New("model unavailable")}
	assert.Equal(t, "UTC", NewResolver(failing).Resolve(ctx, "somewhere odd"))
	assert.Equal(t, 1, failing.calls, "lookup is single-shot, no retries")
}

func TestResolve_BackendSkippedForKnownInputs(t *testing.T) {
	backend := &stubBackend{zone: "Europe/Paris"}
	r := NewResolver(backend)
	ctx := context.Background()

	r.Resolve(ctx, "India")
	r.Resolve(ctx, "Asia/Tokyo")
	r.Resolve(ctx, "utc")

	assert.Zero(t, backend.calls, "alias and IANA hits never reach the backend")
}

func TestLocation_AlwaysLoadable(t *testing.T) {
	r := NewResolver(&stubBackend{err: errors.New("down")})

	loc := r.Location(context.Background(), "nowhere in particular")
	require.NotNil(t, loc)
	assert.Equal(t, "UTC", loc.String())

	loc = r.Location(context.Background(), "India")
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestParseZoneResponse(t *testing.T) {
	zone, err := parseZoneResponse(`{"timezone": "Asia/Kolkata"}`)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", zone)

	zone, err = parseZoneResponse("```json\n{\"timezone\": \"Europe/London\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", zone)

	_, err = parseZoneResponse("Sure! The timezone is Asia/Kolkata.")
	assert.Error(t, err)

	_, err = parseZoneResponse(`{"other": "field"}`)
	assert.Error(t, err)
}
