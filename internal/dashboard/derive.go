package dashboard

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/activity"
	"github.com/ledgerline/ledgerline/internal/timeseries"
)

// DeriveRange re-derives a narrower-range snapshot from a previously fetched
// full-range one without touching storage. It applies the same filter and
// downsample pipeline the query service uses, so a derived snapshot is
// indistinguishable from a freshly queried one up to the staleness of its
// source. The live current figure and the allocation breakdown carry over
// unchanged; only Start, deltas, series and the in-range activity move.
func DeriveRange(full Snapshot, rng timeseries.Range, targets timeseries.Targets, now time.Time) Snapshot {
	if targets == nil {
		targets = timeseries.DefaultTargets()
	}
	target := targets.Points(rng)

	totalSeries := timeseries.Downsample(timeseries.FilterRange(full.Performance.Series, rng, now), target)
	positionSeries := timeseries.Downsample(timeseries.FilterRange(full.Performance.PositionSeries, rng, now), target)
	cashSeries := timeseries.Downsample(timeseries.FilterRange(full.Performance.CashSeries, rng, now), target)

	delta, max, min := CalculatePerformance(totalSeries)

	return Snapshot{
		AsOf:  now,
		Range: rng,
		Total: CalculateTotals(totalSeries, full.Total.Current),
		Performance: Performance{
			Series:         totalSeries,
			PositionSeries: positionSeries,
			CashSeries:     cashSeries,
			RenderSeries:   RenderSeriesFor(totalSeries, target),
			Delta:          delta,
			Max:            max,
			Min:            min,
		},
		Allocation: full.Allocation,
		Activity:   filterActivity(full.Activity, rng, now),
	}
}

// filterActivity keeps in-range events plus upcoming dividends, which carry
// future timestamps and survive every range.
func filterActivity(items []activity.Item, rng timeseries.Range, now time.Time) []activity.Item {
	cutoff, bounded := rng.Cutoff(now)

	kept := make([]activity.Item, 0, len(items))
	for _, item := range items {
		if item.Type == activity.TypeUpcomingDividend {
			kept = append(kept, item)
			continue
		}
		if bounded && item.Timestamp.Before(cutoff) {
			continue
		}
		if item.Timestamp.After(now) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}
