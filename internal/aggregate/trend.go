package aggregate

import (
	"math"
	"sort"
	"time"

	"caffeine/internal/core"
	"caffeine/internal/timezone"
)

// TrendDays is the length of the trend series.
const TrendDays = 7

const (
	shortDayLayout = "Jan 2"
	longDayLayout  = "Monday, January 2, 2006"
)

type (
	DayPoint struct {
		Date  time.Time
		Label string
		Total int64
	}

	WeekSummary struct {
		Total         int64
		Average       int64
		DaysOverLimit int
	}

	// DayGroup holds one local calendar day of entries, newest first.
	DayGroup struct {
		Date    time.Time
		Label   string
		Total   int64
		Entries []core.Entry
	}
)

// Trend returns the totals of the seven local days ending with today, oldest first.
func Trend(entries []core.Entry, today time.Time, loc *time.Location) []DayPoint {
	start := timezone.StartOfDay(today, loc)
	points := make([]DayPoint, 0, TrendDays)
	for i := TrendDays - 1; i >= 0; i-- {
		day := timezone.AddDays(start, -i)
		points = append(points, DayPoint{
			Date:  day,
			Label: day.Format(shortDayLayout),
			Total: WindowFor(day, loc).Total(entries),
		})
	}
	return points
}

// SummarizeWeek folds a trend series into its total, rounded daily average
// and the number of days strictly above limit.
func SummarizeWeek(points []DayPoint, limit int64) WeekSummary {
	var s WeekSummary
	for _, p := range points {
		s.Total += p.Total
		if p.Total > limit {
			s.DaysOverLimit++
		}
	}
	s.Average = int64(math.Floor(float64(s.Total)/TrendDays + 0.5))
	return s
}

// GroupByDay partitions entries by local calendar day, newest day first.
func GroupByDay(entries []core.Entry, loc *time.Location) []DayGroup {
	if len(entries) == 0 {
		return nil
	}
	sorted := make([]core.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ConsumptionTime.After(sorted[j].ConsumptionTime)
	})

	var groups []DayGroup
	for _, e := range sorted {
		day := timezone.StartOfDay(e.ConsumptionTime, loc)
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			groups[n-1].Total += e.AmountMg
			continue
		}
		groups = append(groups, DayGroup{
			Date:    day,
			Label:   day.Format(longDayLayout),
			Total:   e.AmountMg,
			Entries: []core.Entry{e},
		})
	}
	return groups
}
