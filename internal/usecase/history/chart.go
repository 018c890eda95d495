package history

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

// RenderChart renders a PNG line chart of snapshot values over time.
// Returns raw PNG bytes.
func RenderChart(points []*domain.Snapshot, quoteAsset string) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))
	lo, hi := points[0].TotalValue.InexactFloat64(), points[0].TotalValue.InexactFloat64()

	for i, p := range points {
		xValues[i] = p.CreatedAt
		yValues[i] = p.TotalValue.InexactFloat64()
		lo = min(lo, yValues[i])
		hi = max(hi, yValues[i])
	}

	yAxis := chart.YAxis{
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.2f", f)
			}
			return ""
		},
	}
	// a flat series has no y-range to draw
	if lo == hi {
		pad := max(hi*0.05, 1)
		yAxis.Range = &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Portfolio value (%s)", quoteAsset),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan")
				}
				return ""
			},
		},
		YAxis: yAxis,
		Series: []chart.Series{
			chart.TimeSeries{
				Name: "Total value",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("16a34a"),
					StrokeWidth: 2.5,
				},
				XValues: xValues,
				YValues: yValues,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
