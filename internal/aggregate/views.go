package aggregate

import (
	"sort"
	"time"

	"caffeine/internal/core"
)

// recentEntries is how many of today's entries the dashboard previews.
const recentEntries = 3

type Dashboard struct {
	Total        int64
	Limit        int64
	Remaining    int64
	PercentUsed  float64
	OverLimit    bool
	Count        int
	TodayEntries []core.Entry
	Recent       []core.Entry
}

type Insights struct {
	HasEntries bool
	Limit      int64
	Trend      []DayPoint
	Week       WeekSummary
	Chart      Chart
}

// BuildDashboard computes today's figures for the dashboard page.
func BuildDashboard(data core.UserData, now time.Time, loc *time.Location) Dashboard {
	w := WindowFor(now, loc)
	var today []core.Entry
	for _, e := range data.Entries {
		if w.Contains(e.ConsumptionTime) {
			today = append(today, e)
		}
	}
	sort.SliceStable(today, func(i, j int) bool {
		return today[i].ConsumptionTime.After(today[j].ConsumptionTime)
	})

	limit := data.Settings.DailyLimitMg
	total := w.Total(today)
	d := Dashboard{
		Total:        total,
		Limit:        limit,
		Remaining:    Remaining(limit, total),
		PercentUsed:  PercentUsed(total, limit),
		OverLimit:    total > limit,
		Count:        len(today),
		TodayEntries: today,
	}
	d.Recent = today[:min(len(today), recentEntries)]
	return d
}

// BuildInsights computes the seven-day trend, the week summary and the chart.
func BuildInsights(data core.UserData, now time.Time, loc *time.Location) Insights {
	limit := data.Settings.DailyLimitMg
	trend := Trend(data.Entries, now, loc)
	return Insights{
		HasEntries: len(data.Entries) > 0,
		Limit:      limit,
		Trend:      trend,
		Week:       SummarizeWeek(trend, limit),
		Chart:      LayoutChart(trend, limit),
	}
}
