package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// LiveValue is the cache-backed current valuation of one user's portfolio.
// Unlike snapshots it always reflects the freshest cached prices, so the
// displayed "right now" figure never changes when the time range does.
type LiveValue struct {
	TotalValue      float64
	InvestmentValue float64
	CashBalance     float64
	// PricesFresh is false when any priced position used a record older
	// than the freshness window, or when a held symbol had no price at all.
	PricesFresh bool
}

// LiveValuator computes live portfolio values from positions and the price
// cache. Positions without a cached price are excluded, not zero-valued.
type LiveValuator struct {
	cache     *Cache
	positions domain.PositionSource
	window    time.Duration
}

// NewLiveValuator creates a new live valuator.
func NewLiveValuator(cache *Cache, positions domain.PositionSource, window time.Duration) *LiveValuator {
	return &LiveValuator{cache: cache, positions: positions, window: window}
}

// Value computes the live value of one user's portfolio as of now.
func (v *LiveValuator) Value(ctx context.Context, user domain.User, now time.Time) (LiveValue, error) {
	positions, err := v.positions.ActivePositions(ctx, user.ID)
	if err != nil {
		return LiveValue{}, fmt.Errorf("failed to list positions for user %d: %w", user.ID, err)
	}

	investment := decimal.Zero
	fresh := true
	for _, pos := range positions {
		if pos.Shares <= 0 {
			continue
		}
		rec, ok := v.cache.Get(pos.Ticker)
		if !ok {
			fresh = false
			continue
		}
		if !rec.Fresh(now, v.window) {
			fresh = false
		}
		value := decimal.NewFromFloat(pos.Shares).Mul(decimal.NewFromFloat(rec.Price))
		investment = investment.Add(value)
	}

	investmentValue, _ := investment.Round(2).Float64()
	total, _ := investment.Add(decimal.NewFromFloat(user.CashBalance)).Round(2).Float64()

	return LiveValue{
		TotalValue:      total,
		InvestmentValue: investmentValue,
		CashBalance:     user.CashBalance,
		PricesFresh:     fresh,
	}, nil
}
