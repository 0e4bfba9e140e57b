package dashboard

import (
	"github.com/ledgerline/ledgerline/internal/activity"
	"github.com/ledgerline/ledgerline/internal/timeseries"
)

// CalculatePerformance derives delta and extrema from an already filtered and
// downsampled series. Extrema intentionally come from the downsampled points,
// not the raw series, so they match the rendered chart.
func CalculatePerformance(downsampled []timeseries.Point) (Delta, float64, float64) {
	if len(downsampled) == 0 {
		return Delta{}, 0, 0
	}

	max := downsampled[0].Value
	min := downsampled[0].Value
	for _, p := range downsampled[1:] {
		if p.Value > max {
			max = p.Value
		}
		if p.Value < min {
			min = p.Value
		}
	}

	var delta Delta
	if len(downsampled) >= 2 {
		start := downsampled[0].Value
		end := downsampled[len(downsampled)-1].Value
		delta = Delta{
			Absolute: round2(end - start),
			Percent:  percentDelta(start, end),
		}
	}

	return delta, max, min
}

// RenderSeriesFor expands a sparse series to a fixed-length render buffer for
// chart consumers. Series that already fill the target (or are empty) need no
// buffer and yield nil; deltas and extrema always come from the downsampled
// series, never from this one.
func RenderSeriesFor(series []timeseries.Point, target int) []timeseries.Point {
	if len(series) == 0 || len(series) >= target {
		return nil
	}
	return timeseries.RenderBuffer(series, target)
}

// CumulativeCashSeries turns dated cash flows into a running-total series,
// collapsing same-day flows onto one point.
func CumulativeCashSeries(flows []activity.CashFlow) []timeseries.Point {
	if len(flows) == 0 {
		return nil
	}

	series := make([]timeseries.Point, 0, len(flows))
	running := 0.0
	for _, f := range flows {
		running += f.Amount
		point := timeseries.Point{Timestamp: f.Date, Value: round2(running)}
		if n := len(series); n > 0 && series[n-1].Timestamp.Equal(f.Date) {
			series[n-1] = point
			continue
		}
		series = append(series, point)
	}
	return series
}
