package snapshots

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/pricing"
)

type fakePositionSource struct {
	users     []domain.User
	positions map[int64][]domain.Position
}

func (f *fakePositionSource) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	return f.users, nil
}

func (f *fakePositionSource) ActivePositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	return f.positions[userID], nil
}

type fakeDividendSource struct {
	paid map[int64]float64
}

func (f *fakeDividendSource) PaidTotal(ctx context.Context, userID int64, until time.Time) (float64, error) {
	return f.paid[userID], nil
}

// newTestService wires a service over a real in-memory repository. The users
// backing the fake position source are mirrored into the users table so the
// snapshot foreign key holds.
func newTestService(t *testing.T, cache *pricing.Cache, positions *fakePositionSource, dividends DividendSource) (*Service, *Repository) {
	t.Helper()

	db := setupTestDB(t)
	for _, u := range positions.users {
		_, err := db.Conn().Exec(
			"INSERT INTO users (id, email, cash_balance, active) VALUES (?, ?, ?, 1)",
			u.ID, fmt.Sprintf("user-%d@example.com", u.ID), u.CashBalance,
		)
		require.NoError(t, err)
	}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	if dividends == nil {
		dividends = &fakeDividendSource{}
	}
	return NewService(repo, cache, positions, dividends, zerolog.Nop()), repo
}

func TestRunOnceValuesPositions(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 30, 0, time.UTC)
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, CashBalance: 500.25, Active: true}},
		positions: map[int64][]domain.Position{
			1: {
				{Ticker: "AAPL", Shares: 10, CostBasis: 1200, AssetType: "common_stock"},
				{Ticker: "PFF", Shares: 4, CostBasis: 90, AssetType: "preferred_stock"},
			},
		},
	}
	cache := pricing.NewCache()
	cache.Upsert("AAPL", 150.10, now)
	cache.Upsert("PFF", 25.00, now)

	svc, repo := newTestService(t, cache, positions, nil)

	stats, err := svc.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UsersProcessed)
	assert.Equal(t, 0, stats.UsersFailed)

	history, err := repo.History(context.Background(), 1, time.Time{}, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)

	snap := history[0]
	assert.Equal(t, 1601.00, snap.InvestmentValue) // 10*150.10 + 4*25.00
	assert.Equal(t, 2101.25, snap.TotalValue)
	assert.Equal(t, 500.25, snap.CashBalance)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), snap.TakenAt, "timestamp is truncated to the minute")

	posRows, err := repo.LatestPositions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, posRows, 2)
	assert.Equal(t, "AAPL", posRows[0].Ticker)
	assert.Equal(t, 1501.00, posRows[0].CurrentValue)
	assert.Equal(t, 150.10, posRows[0].PricePerShare)
}

func TestRunOnceEmptyCacheProducesZeroInvestment(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, CashBalance: 100, Active: true}},
		positions: map[int64][]domain.Position{
			1: {
				{Ticker: "AAPL", Shares: 10},
				{Ticker: "MSFT", Shares: 5},
			},
		},
	}

	svc, repo := newTestService(t, pricing.NewCache(), positions, nil)

	stats, err := svc.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UsersProcessed)
	assert.Equal(t, 2, stats.PositionsSkipped)

	history, err := repo.History(context.Background(), 1, time.Time{}, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 0.0, history[0].InvestmentValue)
	assert.Equal(t, 100.0, history[0].TotalValue)

	posRows, err := repo.LatestPositions(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, posRows, "unpriced positions produce no rows")
}

func TestRunOnceRerunIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, CashBalance: 100, Active: true}},
		positions: map[int64][]domain.Position{
			1: {{Ticker: "AAPL", Shares: 1}},
		},
	}
	cache := pricing.NewCache()
	cache.Upsert("AAPL", 150.0, now)

	svc, repo := newTestService(t, cache, positions, nil)

	_, err := svc.RunOnce(context.Background(), now)
	require.NoError(t, err)

	// Same minute, later seconds: truncation maps to the same key.
	stats, err := svc.RunOnce(context.Background(), now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 0, stats.UsersFailed, "a duplicate is success, not failure")

	history, err := repo.History(context.Background(), 1, time.Time{}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, history, 1, "exactly one snapshot persists")
}

func TestRunOnceDividendsPaidFoldedIntoTotal(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	positions := &fakePositionSource{
		users: []domain.User{{ID: 1, CashBalance: 100, Active: true}},
		positions: map[int64][]domain.Position{
			1: {{Ticker: "AAPL", Shares: 1}},
		},
	}
	cache := pricing.NewCache()
	cache.Upsert("AAPL", 150.0, now)
	dividends := &fakeDividendSource{paid: map[int64]float64{1: 12.34}}

	svc, repo := newTestService(t, cache, positions, dividends)

	_, err := svc.RunOnce(context.Background(), now)
	require.NoError(t, err)

	history, err := repo.History(context.Background(), 1, time.Time{}, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 262.34, history[0].TotalValue)
	assert.Equal(t, 150.0, history[0].InvestmentValue)
}

func TestRunOnceOneUserFailureDoesNotAbortOthers(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	positions := &fakePositionSource{
		users: []domain.User{
			{ID: 1, CashBalance: 100, Active: true},
			{ID: 2, CashBalance: 200, Active: true},
		},
		positions: map[int64][]domain.Position{
			1: {{Ticker: "AAPL", Shares: 1}},
			2: {{Ticker: "AAPL", Shares: 2}},
		},
	}
	cache := pricing.NewCache()
	cache.Upsert("AAPL", 150.0, now)
	svc, repo := newTestService(t, cache, positions, &failingDividendSource{failFor: 1})

	stats, err := svc.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UsersFailed)
	assert.Equal(t, 1, stats.UsersProcessed)

	history, err := repo.History(context.Background(), 2, time.Time{}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, history, 1, "user 2 is snapshotted despite user 1 failing")
}

type failingDividendSource struct {
	failFor int64
}

func (f *failingDividendSource) PaidTotal(ctx context.Context, userID int64, until time.Time) (float64, error) {
	if userID == f.failFor {
		return 0, assert.AnError
	}
	return 0, nil
}
