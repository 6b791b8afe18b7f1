// Package timeutil provides the calendar helpers used by HabitVerse.
// All calendar-day arithmetic is done in UTC: "today" is the UTC day containing now.
package timeutil

import (
	"sync"
	"time"
)

// FormatDate is the calendar-day layout used in analytics and API payloads.
const FormatDate = "2006-01-02"

// Day is one calendar day.
const Day = 24 * time.Hour

// Clock abstracts the current time so day boundaries can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant until moved.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a FixedClock at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t.UTC()}
}

// Now returns the frozen instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// StartOfDay returns 00:00:00 UTC of the day containing t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// YesterdayWindow returns [start of yesterday, start of today) relative to now.
func YesterdayWindow(now time.Time) (from, to time.Time) {
	to = StartOfDay(now)
	return to.Add(-Day), to
}

// DayKey formats t as its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(FormatDate)
}

// LastNDays returns the starts of the n calendar days ending with the day of now,
// oldest first.
func LastNDays(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	today := StartOfDay(now)
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		days[i] = today.AddDate(0, 0, -(n - 1 - i))
	}
	return days
}
