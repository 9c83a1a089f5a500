// Package aggregate derives the daily and weekly caffeine figures shown by
// the dashboard, the log and the insights pages.
//
// Every function here is pure: inputs are never modified, nothing is fetched,
// and all results are defined for empty inputs and a zero limit.
package aggregate

import (
	"time"

	"caffeine/internal/core"
	"caffeine/internal/timezone"
)

// DayWindow is an inclusive [Start, End] range covering one local calendar day.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// WindowFor returns the local calendar day containing ref. End is one
// millisecond before the next local midnight.
func WindowFor(ref time.Time, loc *time.Location) DayWindow {
	start := timezone.StartOfDay(ref, loc)
	next := timezone.AddDays(start, 1)
	return DayWindow{Start: start, End: next.Add(-time.Millisecond)}
}

func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Total sums the amounts of entries falling inside the window.
func (w DayWindow) Total(entries []core.Entry) int64 {
	var total int64
	for _, e := range entries {
		if w.Contains(e.ConsumptionTime) {
			total += e.AmountMg
		}
	}
	return total
}

// DayTotal is the caffeine consumed on the local calendar day containing day.
func DayTotal(entries []core.Entry, day time.Time, loc *time.Location) int64 {
	return WindowFor(day, loc).Total(entries)
}

// Remaining is the caffeine left before reaching the limit, never negative.
func Remaining(limit, total int64) int64 {
	return max(0, limit-total)
}

// PercentUsed is total as a percentage of limit, 0 when limit is not positive.
func PercentUsed(total, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(total) / float64(limit) * 100
}
