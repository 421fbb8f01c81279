package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/internal/calendar"
)

func day(s string) time.Time {
	d, err := calendar.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseBookedDatesRangeObjects(t *testing.T) {
	raw := json.RawMessage(`[
		{"start": "2025-06-10", "end": "2025-06-12"},
		{"start": "2025-07-01", "end": "2025-07-01"}
	]`)

	got, err := ParseBookedDates(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, calendar.NewDateRange(day("2025-06-10"), day("2025-06-12")), got[0])
	assert.Equal(t, calendar.NewDateRange(day("2025-07-01"), day("2025-07-01")), got[1])
}

func TestParseBookedDatesDayStrings(t *testing.T) {
	raw := json.RawMessage(`["2025-06-10", "2025-06-11"]`)

	got, err := ParseBookedDates(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Each day string becomes a single-day range.
	assert.True(t, got[0].Contains(day("2025-06-10")))
	assert.False(t, got[0].Contains(day("2025-06-11")))
	assert.True(t, got[1].Contains(day("2025-06-11")))
}

func TestParseBookedDatesEmpty(t *testing.T) {
	got, err := ParseBookedDates(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ParseBookedDates(json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseBookedDatesBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not a list", `{"start": "2025-06-10"}`},
		{"bad day string", `["June 10th"]`},
		{"bad range date", `[{"start": "2025-06-10", "end": "nope"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBookedDates(json.RawMessage(tt.raw))
			assert.Error(t, err)
		})
	}
}
