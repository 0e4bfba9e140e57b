package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/domain"
)

type fakePositionSource struct {
	users     []domain.User
	positions map[int64][]domain.Position
	err       error
}

func (f *fakePositionSource) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func (f *fakePositionSource) ActivePositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	return f.positions[userID], nil
}

type fakeQuoteSource struct {
	prices   map[string]float64
	failOn   string // fail the batch containing this symbol
	requests [][]string
}

func (f *fakeQuoteSource) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	f.requests = append(f.requests, append([]string(nil), symbols...))
	for _, s := range symbols {
		if s == f.failOn {
			return nil, errors.New("provider unavailable")
		}
	}
	out := make(map[string]float64)
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func newTestRefreshService(quotes QuoteSource, cache *Cache, positions domain.PositionSource, batchSize int) *RefreshService {
	return NewRefreshService(RefreshConfig{
		Quotes:    quotes,
		Cache:     cache,
		Positions: positions,
		BatchSize: batchSize,
		Timeout:   time.Second,
	}, zerolog.Nop())
}

func TestRefreshDeduplicatesSymbolsAcrossUsers(t *testing.T) {
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, Active: true}, {ID: 2, Active: true}},
		positions: map[int64][]domain.Position{
			1: {{Ticker: "AAPL", Shares: 10}, {Ticker: "MSFT", Shares: 5}},
			2: {{Ticker: "aapl", Shares: 3}, {Ticker: "GOOG", Shares: 1}},
		},
	}
	quotes := &fakeQuoteSource{prices: map[string]float64{
		"AAPL": 150.0, "MSFT": 300.0, "GOOG": 2500.0,
	}}
	cache := NewCache()

	stats, err := newTestRefreshService(quotes, cache, positions, 100).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.SymbolsChecked)
	assert.Equal(t, 3, stats.PricesFetched)
	assert.Equal(t, 0, stats.BatchesFailed)

	require.Len(t, quotes.requests, 1)
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, quotes.requests[0], "symbols are deduplicated and sorted")
}

func TestRefreshSkipsZeroShareAndInactive(t *testing.T) {
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, Active: true}},
		positions: map[int64][]domain.Position{
			1: {{Ticker: "AAPL", Shares: 10}, {Ticker: "SOLD", Shares: 0}},
		},
	}
	quotes := &fakeQuoteSource{prices: map[string]float64{"AAPL": 150.0, "SOLD": 1.0}}
	cache := NewCache()

	stats, err := newTestRefreshService(quotes, cache, positions, 100).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.SymbolsChecked)
	_, ok := cache.Get("SOLD")
	assert.False(t, ok, "zero-share positions are not quoted")
}

func TestRefreshBatchPartitioning(t *testing.T) {
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, Active: true}},
		positions: map[int64][]domain.Position{
			1: {
				{Ticker: "A", Shares: 1}, {Ticker: "B", Shares: 1}, {Ticker: "C", Shares: 1},
				{Ticker: "D", Shares: 1}, {Ticker: "E", Shares: 1},
			},
		},
	}
	quotes := &fakeQuoteSource{prices: map[string]float64{
		"A": 1, "B": 2, "C": 3, "D": 4, "E": 5,
	}}
	cache := NewCache()

	stats, err := newTestRefreshService(quotes, cache, positions, 2).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.PricesFetched)
	require.Len(t, quotes.requests, 3)
	assert.Equal(t, []string{"A", "B"}, quotes.requests[0])
	assert.Equal(t, []string{"C", "D"}, quotes.requests[1])
	assert.Equal(t, []string{"E"}, quotes.requests[2])
}

func TestRefreshFailedBatchDoesNotAbortRun(t *testing.T) {
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, Active: true}},
		positions: map[int64][]domain.Position{
			1: {
				{Ticker: "A", Shares: 1}, {Ticker: "B", Shares: 1},
				{Ticker: "C", Shares: 1}, {Ticker: "D", Shares: 1},
			},
		},
	}
	quotes := &fakeQuoteSource{
		prices: map[string]float64{"A": 1, "B": 2, "C": 3, "D": 4},
		failOn: "A",
	}
	cache := NewCache()

	stats, err := newTestRefreshService(quotes, cache, positions, 2).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.BatchesFailed)
	assert.Equal(t, 2, stats.PricesFetched, "surviving batches are still applied")

	_, ok := cache.Get("A")
	assert.False(t, ok)
	_, ok = cache.Get("C")
	assert.True(t, ok)
}

func TestRefreshPropagatesPositionSourceError(t *testing.T) {
	positions := &fakePositionSource{err: errors.New("db closed")}
	cache := NewCache()

	_, err := newTestRefreshService(&fakeQuoteSource{}, cache, positions, 100).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRefreshPartialQuoteResponse(t *testing.T) {
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, Active: true}},
		positions: map[int64][]domain.Position{
			1: {{Ticker: "AAPL", Shares: 1}, {Ticker: "DELISTED", Shares: 1}},
		},
	}
	quotes := &fakeQuoteSource{prices: map[string]float64{"AAPL": 150.0}}
	cache := NewCache()

	stats, err := newTestRefreshService(quotes, cache, positions, 100).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.SymbolsChecked)
	assert.Equal(t, 1, stats.PricesFetched)
	_, ok := cache.Get("DELISTED")
	assert.False(t, ok, "symbols the provider omits simply stay absent")
}
