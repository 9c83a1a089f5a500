package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"caffeine/internal/core"
)

func TestBuildDashboard(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 2, 1, 20, 0, 0, 0, loc)
	data := core.UserData{
		Settings: core.UserSettings{DailyLimitMg: 300},
		Entries: []core.Entry{
			entry(1, 100, now.Add(-10*time.Hour)),
			entry(2, 80, now.Add(-2*time.Hour)),
			entry(3, 50, now.Add(-6*time.Hour)),
			entry(4, 90, now.Add(-1*time.Hour)),
			entry(5, 400, now.AddDate(0, 0, -1)),
		},
	}

	d := BuildDashboard(data, now, loc)
	assert.Equal(t, int64(320), d.Total)
	assert.Equal(t, int64(0), d.Remaining)
	assert.True(t, d.OverLimit)
	assert.Equal(t, 4, d.Count)
	assert.Equal(t, []int64{4, 2, 3}, ids(d.Recent))
	assert.Equal(t, []int64{4, 2, 3, 1}, ids(d.TodayEntries))
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(core.UserData{Settings: core.UserSettings{DailyLimitMg: 400}}, time.Now(), time.UTC)
	assert.Zero(t, d.Total)
	assert.Equal(t, int64(400), d.Remaining)
	assert.Zero(t, d.PercentUsed)
	assert.False(t, d.OverLimit)
	assert.Empty(t, d.Recent)
}

func TestBuildInsights(t *testing.T) {
	now := time.Date(2025, 2, 1, 20, 0, 0, 0, time.UTC)
	empty := BuildInsights(core.UserData{Settings: core.UserSettings{DailyLimitMg: 400}}, now, time.UTC)
	assert.False(t, empty.HasEntries)
	assert.Len(t, empty.Trend, 7)
	assert.Zero(t, empty.Week.Average)

	data := core.UserData{
		Settings: core.UserSettings{DailyLimitMg: 100},
		Entries:  []core.Entry{entry(1, 150, now), entry(2, 100, now.AddDate(0, 0, -2))},
	}
	in := BuildInsights(data, now, time.UTC)
	assert.True(t, in.HasEntries)
	assert.Equal(t, int64(250), in.Week.Total)
	assert.Equal(t, int64(36), in.Week.Average)
	assert.Equal(t, 1, in.Week.DaysOverLimit)
	assert.True(t, in.Chart.Bars[6].OverLimit)
}
