package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartOfDayUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	// 02:00 at UTC+5 is still the previous UTC day.
	local := time.Date(2024, 3, 10, 2, 0, 0, 0, loc)
	assert.Equal(t, utcDate(2024, 3, 9), StartOfDay(local))
	assert.Equal(t, "2024-03-09", DayKey(local))
}

func TestYesterdayWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	from, to := YesterdayWindow(now)
	assert.Equal(t, utcDate(2024, 3, 9), from)
	assert.Equal(t, utcDate(2024, 3, 10), to)
}

func TestYesterdayWindowAcrossMonth(t *testing.T) {
	from, to := YesterdayWindow(time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC))
	assert.Equal(t, utcDate(2024, 2, 29), from)
	assert.Equal(t, Day, to.Sub(from))
}

func TestLastNDays(t *testing.T) {
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	days := LastNDays(now, 3)
	require.Len(t, days, 3)
	assert.Equal(t, utcDate(2024, 2, 29), days[0])
	assert.Equal(t, utcDate(2024, 3, 2), days[2])
	assert.Nil(t, LastNDays(now, 0))
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(utcDate(2024, 1, 1))
	c.Advance(36 * time.Hour)
	assert.Equal(t, "2024-01-02", DayKey(c.Now()))

	target := utcDate(2024, 1, 5)
	c.Set(target)
	assert.Equal(t, target, c.Now())
}
