package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestNextBoundary(t *testing.T) {
	loc := kolkata(t)
	at := func(d, h, m, s int) time.Time { return time.Date(2024, 3, d, h, m, s, 0, loc) }

	tests := []struct {
		name   string
		now    time.Time
		offset time.Duration
		want   time.Time
	}{
		{"just before midnight", at(10, 23, 59, 59), 0, at(11, 0, 0, 0)},
		{"just after midnight", at(10, 0, 0, 1), 0, at(11, 0, 0, 0)},
		{"exactly midnight", at(10, 0, 0, 0), 0, at(11, 0, 0, 0)},
		{"before offset boundary", at(10, 0, 15, 0), 30 * time.Minute, at(10, 0, 30, 0)},
		{"exactly on offset boundary", at(10, 0, 30, 0), 30 * time.Minute, at(11, 0, 30, 0)},
		{"just past offset boundary", at(10, 0, 30, 1), 30 * time.Minute, at(11, 0, 30, 0)},
		{"late evening with offset", at(10, 23, 59, 59), 30 * time.Minute, at(11, 0, 30, 0)},
		{"month rollover", time.Date(2024, 2, 29, 12, 0, 0, 0, loc), 30 * time.Minute, time.Date(2024, 3, 1, 0, 30, 0, 0, loc)},
		{"year rollover", time.Date(2023, 12, 31, 23, 0, 0, 0, loc), 0, time.Date(2024, 1, 1, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBoundary(tt.now, loc, tt.offset)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			assert.True(t, got.After(tt.now))
		})
	}
}

func TestNextBoundaryDelay(t *testing.T) {
	loc := kolkata(t)
	now := time.Date(2024, 3, 10, 23, 59, 59, 0, loc)

	assert.Equal(t, time.Second, NextBoundary(now, loc, 0).Sub(now))
	assert.Equal(t, time.Second+30*time.Minute, NextBoundary(now, loc, 30*time.Minute).Sub(now))
}

func TestNextBoundaryUsesFixedZone(t *testing.T) {
	loc := kolkata(t)
	// 18:45 UTC is 00:15 the next day in Kolkata.
	now := time.Date(2024, 3, 10, 18, 45, 0, 0, time.UTC)

	got := NextBoundary(now, loc, 30*time.Minute)
	assert.True(t, got.Equal(time.Date(2024, 3, 11, 0, 30, 0, 0, loc)))
	assert.True(t, got.Equal(time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC)))
}

func TestDayOf(t *testing.T) {
	loc := kolkata(t)
	got := DayOf(time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, "2024-03-11", got.Format("2006-01-02"))
	assert.Equal(t, 0, got.Hour())
}
