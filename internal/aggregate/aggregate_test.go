package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caffeine/internal/core"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func entry(id, mg int64, at time.Time) core.Entry {
	return core.Entry{ID: id, DrinkName: "Coffee", AmountMg: mg, ConsumptionTime: at}
}

func TestDayTotalScenario(t *testing.T) {
	loc := mustLoc(t, "Europe/Rome")
	today := time.Date(2025, 5, 14, 18, 0, 0, 0, loc)
	entries := []core.Entry{
		entry(1, 95, time.Date(2025, 5, 14, 8, 0, 0, 0, loc)),
		entry(2, 200, time.Date(2025, 5, 14, 14, 0, 0, 0, loc)),
		entry(3, 500, time.Date(2025, 5, 13, 14, 0, 0, 0, loc)),
	}

	total := DayTotal(entries, today, loc)
	assert.Equal(t, int64(295), total)
	assert.Equal(t, int64(105), Remaining(400, total))
	assert.InDelta(t, 73.75, PercentUsed(total, 400), 1e-9)
}

func TestDayTotalIsOrderIndependent(t *testing.T) {
	loc := time.UTC
	day := time.Date(2025, 1, 10, 12, 0, 0, 0, loc)
	var entries []core.Entry
	for i := 0; i < 30; i++ {
		at := day.Add(time.Duration(i-15) * time.Hour)
		entries = append(entries, entry(int64(i), int64(10+i), at))
	}
	// Duplicate timestamps are counted twice.
	entries = append(entries, entry(99, 7, day), entry(100, 7, day))

	want := DayTotal(entries, day, loc)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]core.Entry(nil), entries...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, DayTotal(shuffled, day, loc))
	}
}

func TestWindowBoundaries(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, loc)
	lastMs := time.Date(2025, 6, 1, 23, 59, 59, int(999*time.Millisecond), loc)
	nextMidnight := time.Date(2025, 6, 2, 0, 0, 0, 0, loc)
	midnight := time.Date(2025, 6, 1, 0, 0, 0, 0, loc)

	w := WindowFor(day, loc)
	assert.True(t, w.Contains(midnight))
	assert.True(t, w.Contains(lastMs))
	assert.False(t, w.Contains(nextMidnight))

	entries := []core.Entry{entry(1, 50, lastMs), entry(2, 70, nextMidnight)}
	assert.Equal(t, int64(50), DayTotal(entries, day, loc))
	assert.Equal(t, int64(70), DayTotal(entries, nextMidnight, loc))
}

func TestWindowAcrossDST(t *testing.T) {
	loc := mustLoc(t, "Europe/Rome")
	// Clocks go back on 2025-10-26, making the day 25 hours long.
	w := WindowFor(time.Date(2025, 10, 26, 12, 0, 0, 0, loc), loc)
	assert.Equal(t, 25*time.Hour-time.Millisecond, w.End.Sub(w.Start))
	late := time.Date(2025, 10, 26, 23, 30, 0, 0, loc)
	assert.True(t, w.Contains(late))
}

func TestRemainingAndPercent(t *testing.T) {
	assert.Equal(t, int64(0), Remaining(400, 500))
	assert.Equal(t, int64(400), Remaining(400, 0))
	assert.Equal(t, 0.0, PercentUsed(300, 0))
	assert.Equal(t, 0.0, PercentUsed(0, 0))
	assert.InDelta(t, 125.0, PercentUsed(500, 400), 1e-9)
}

func TestTrendEmpty(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	points := Trend(nil, now, time.UTC)
	require.Len(t, points, TrendDays)
	for _, p := range points {
		assert.Zero(t, p.Total)
	}
	assert.Equal(t, "Feb 26", points[0].Label)
	assert.Equal(t, "Mar 4", points[6].Label)

	s := SummarizeWeek(points, 400)
	assert.Equal(t, WeekSummary{}, s)
}

func TestTrendOrderingAndTotals(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, loc)
	entries := []core.Entry{
		entry(1, 100, now),
		entry(2, 50, now.Add(-1*time.Hour)),
		entry(3, 300, now.AddDate(0, 0, -6)),
		entry(4, 999, now.AddDate(0, 0, -7)),
		entry(5, 40, now.AddDate(0, 0, 1)),
	}
	points := Trend(entries, now, loc)
	require.Len(t, points, 7)
	assert.Equal(t, int64(300), points[0].Total)
	assert.Equal(t, int64(150), points[6].Total)
	for i := 1; i < len(points); i++ {
		assert.True(t, points[i].Date.After(points[i-1].Date))
	}
}

func TestSummarizeWeek(t *testing.T) {
	mk := func(totals ...int64) []DayPoint {
		ps := make([]DayPoint, len(totals))
		for i, v := range totals {
			ps[i] = DayPoint{Total: v}
		}
		return ps
	}

	s := SummarizeWeek(mk(400, 401, 0, 0, 0, 0, 0), 400)
	assert.Equal(t, int64(801), s.Total)
	assert.Equal(t, int64(114), s.Average) // 114.43
	assert.Equal(t, 1, s.DaysOverLimit)

	s = SummarizeWeek(mk(73, 0, 0, 0, 0, 0, 0), 400)
	assert.Equal(t, int64(10), s.Average) // 10.43
	s = SummarizeWeek(mk(74, 0, 0, 0, 0, 0, 0), 400)
	assert.Equal(t, int64(11), s.Average) // 10.57

	// A limit of 0 flags every day with any intake.
	s = SummarizeWeek(mk(1, 0, 2, 0, 0, 0, 0), 0)
	assert.Equal(t, 2, s.DaysOverLimit)
}

func TestGroupByDay(t *testing.T) {
	loc := mustLoc(t, "Europe/Rome")
	d1 := time.Date(2025, 1, 6, 9, 0, 0, 0, loc)
	d2 := time.Date(2025, 1, 7, 9, 0, 0, 0, loc)
	entries := []core.Entry{
		entry(1, 80, d1),
		entry(2, 120, d2.Add(3*time.Hour)),
		entry(3, 60, d1.Add(5*time.Hour)),
		entry(4, 90, d2),
	}
	original := append([]core.Entry(nil), entries...)

	groups := GroupByDay(entries, loc)
	require.Len(t, groups, 2)

	assert.Equal(t, "Tuesday, January 7, 2025", groups[0].Label)
	assert.Equal(t, int64(210), groups[0].Total)
	assert.Equal(t, []int64{2, 4}, ids(groups[0].Entries))

	assert.Equal(t, "Monday, January 6, 2025", groups[1].Label)
	assert.Equal(t, int64(140), groups[1].Total)
	assert.Equal(t, []int64{3, 1}, ids(groups[1].Entries))

	assert.Equal(t, original, entries, "input must not be reordered")
	assert.Nil(t, GroupByDay(nil, loc))
}

func ids(entries []core.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
