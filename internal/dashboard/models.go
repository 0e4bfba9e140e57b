// Package dashboard assembles the portfolio dashboard response: totals,
// performance series, allocation breakdown and the activity feed. The
// calculators are pure functions over already-loaded data; all I/O lives in
// the query service.
package dashboard

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/activity"
	"github.com/ledgerline/ledgerline/internal/timeseries"
)

// Delta is a change expressed both in absolute currency and percent.
type Delta struct {
	Absolute float64 `json:"absolute" msgpack:"absolute"`
	Percent  float64 `json:"percent" msgpack:"percent"`
}

// Totals carries the headline portfolio figures. Current always comes from
// the live cache-backed valuation, never from the last historical snapshot,
// so switching ranges only moves Start and Delta.
type Totals struct {
	Current float64 `json:"current" msgpack:"current"`
	Start   float64 `json:"start" msgpack:"start"`
	Delta   Delta   `json:"delta" msgpack:"delta"`
}

// Performance carries the chart series and their derived stats. Max and min
// are computed over the downsampled series so extrema match what is rendered.
// RenderSeries is a fixed-length interpolation of a sparse Series for chart
// consumers and is omitted when Series already fills the range target.
type Performance struct {
	Series         []timeseries.Point `json:"series" msgpack:"series"`
	PositionSeries []timeseries.Point `json:"position_series,omitempty" msgpack:"position_series,omitempty"`
	CashSeries     []timeseries.Point `json:"cash_series,omitempty" msgpack:"cash_series,omitempty"`
	RenderSeries   []timeseries.Point `json:"render_series,omitempty" msgpack:"render_series,omitempty"`
	Delta          Delta              `json:"delta" msgpack:"delta"`
	Max            float64            `json:"max" msgpack:"max"`
	Min            float64            `json:"min" msgpack:"min"`
}

// AllocationItem is one asset-type slice of the portfolio.
type AllocationItem struct {
	AssetType string  `json:"asset_type" msgpack:"asset_type"`
	Label     string  `json:"label" msgpack:"label"`
	Value     float64 `json:"value" msgpack:"value"`
	Percent   float64 `json:"percent" msgpack:"percent"`
}

// Snapshot is the full dashboard response for one user and range.
type Snapshot struct {
	AsOf        time.Time        `json:"as_of" msgpack:"as_of"`
	Range       timeseries.Range `json:"range" msgpack:"range"`
	Total       Totals           `json:"total" msgpack:"total"`
	Performance Performance      `json:"performance" msgpack:"performance"`
	Allocation  []AllocationItem `json:"allocation" msgpack:"allocation"`
	Activity    []activity.Item  `json:"activity" msgpack:"activity"`
}
