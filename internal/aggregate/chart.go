package aggregate

// Trend chart geometry, in SVG user units.
const (
	ChartHeight   = 200.0
	BarWidth      = 40.0
	BarGap        = 12.0
	minChartWidth = 400.0
	// chartFooter leaves room below the bars for the day labels.
	chartFooter = 60.0
)

type (
	Bar struct {
		X         float64
		Y         float64
		Height    float64
		LabelX    float64
		ValueY    float64
		Label     string
		Total     int64
		OverLimit bool
	}

	Chart struct {
		Width     float64
		SVGWidth  float64
		SVGHeight float64
		Height    float64
		BarWidth  float64
		LabelY    float64
		Scale     int64
		Limit     int64
		LimitY    float64
		ShowLimit bool
		Bars      []Bar
	}
)

// LayoutChart computes bar and limit-line positions for a trend series.
// The scale is the larger of the limit and the highest total so the limit
// line always stays on the chart.
func LayoutChart(points []DayPoint, limit int64) Chart {
	scale := limit
	for _, p := range points {
		scale = max(scale, p.Total)
	}

	width := float64(len(points)) * (BarWidth + BarGap)
	c := Chart{
		Width:     width,
		SVGWidth:  max(width, minChartWidth),
		SVGHeight: ChartHeight + chartFooter,
		Height:    ChartHeight,
		BarWidth:  BarWidth,
		LabelY:    ChartHeight + 20,
		Scale:     scale,
		Limit:     limit,
		LimitY:    ChartHeight,
		ShowLimit: limit > 0,
		Bars:      make([]Bar, 0, len(points)),
	}
	if scale > 0 {
		c.LimitY = ChartHeight - float64(limit)/float64(scale)*ChartHeight
	}

	for i, p := range points {
		h := 0.0
		if scale > 0 {
			h = float64(p.Total) / float64(scale) * ChartHeight
		}
		x := float64(i) * (BarWidth + BarGap)
		c.Bars = append(c.Bars, Bar{
			X:         x,
			Y:         ChartHeight - h,
			Height:    h,
			LabelX:    x + BarWidth/2,
			ValueY:    ChartHeight - h - 5,
			Label:     p.Label,
			Total:     p.Total,
			OverLimit: p.Total > limit,
		})
	}
	return c
}
