package dashboard

import (
	"math"

	"github.com/ledgerline/ledgerline/internal/timeseries"
)

// CalculateTotals computes the headline figures from the in-range series and
// the live current total. Start is the first in-range point; with no history
// the result is fully zeroed regardless of the live figure.
func CalculateTotals(series []timeseries.Point, liveCurrent float64) Totals {
	if len(series) == 0 {
		return Totals{}
	}

	start := series[0].Value
	current := round2(liveCurrent)
	absolute := round2(current - start)

	return Totals{
		Current: current,
		Start:   start,
		Delta: Delta{
			Absolute: absolute,
			Percent:  percentDelta(start, current),
		},
	}
}

// percentDelta is zero whenever start is not positive: a relative change from
// nothing is undefined, so it is reported as no change rather than a synthetic
// figure.
func percentDelta(start, end float64) float64 {
	if start <= 0 {
		return 0
	}
	return round2((end - start) / start * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
