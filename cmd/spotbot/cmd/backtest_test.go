package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	t.Parallel()

	// Full RFC3339 with zone.
	got, err := parseTime("2024-01-01T06:30:00Z", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC), got)

	// Zone-less datetimes are read as UTC.
	got, err = parseTime("2024-01-01T06:30:00", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC), got)

	// Non-UTC offsets normalize to UTC.
	got, err = parseTime("2024-01-01T06:30:00+02:00", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC), got)
}

func TestParseTimeBareDates(t *testing.T) {
	t.Parallel()

	start, err := parseTime("2024-01-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)

	// A bare end date is inclusive to the last millisecond of that day.
	end, err := parseTime("2024-01-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 23, 59, 59, 999_000_000, time.UTC), end)
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "yesterday", "01/02/2024", "2024-13-01"} {
		_, err := parseTime(s, false)
		assert.Error(t, err, "input %q", s)
	}
}
