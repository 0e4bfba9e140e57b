package snapshots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/pricing"
)

// DividendSource supplies the cumulative paid-dividend cash for a user, which
// is folded into the snapshot total alongside the cash balance.
type DividendSource interface {
	PaidTotal(ctx context.Context, userID int64, until time.Time) (float64, error)
}

// Service materializes portfolio snapshots from current positions and cached
// prices.
type Service struct {
	repo      *Repository
	cache     *pricing.Cache
	positions domain.PositionSource
	dividends DividendSource
	log       zerolog.Logger
}

// NewService creates a new snapshot service.
func NewService(repo *Repository, cache *pricing.Cache, positions domain.PositionSource, dividends DividendSource, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		positions: positions,
		dividends: dividends,
		log:       log.With().Str("service", "snapshots").Logger(),
	}
}

// Stats summarizes one snapshot run.
type Stats struct {
	UsersProcessed   int
	UsersFailed      int
	Duplicates       int
	PositionsSkipped int // Positions excluded for lack of a cached price
}

// Run executes one snapshot pass over all active users.
func (s *Service) Run(ctx context.Context) error {
	stats, err := s.RunOnce(ctx, time.Now())
	if err != nil {
		return err
	}

	s.log.Info().
		Int("users_processed", stats.UsersProcessed).
		Int("users_failed", stats.UsersFailed).
		Int("duplicates", stats.Duplicates).
		Int("positions_skipped", stats.PositionsSkipped).
		Msg("Snapshot run completed")
	return nil
}

// RunOnce snapshots every active user as of now. The timestamp is truncated
// to the minute so re-runs within the same scheduler tick collapse onto the
// same (user, taken_at) key and the uniqueness constraint makes the second
// write a no-op. Each user is written in its own transaction; one user's
// failure never aborts the others.
func (s *Service) RunOnce(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats

	takenAt := now.UTC().Truncate(time.Minute)

	users, err := s.positions.ActiveUsers(ctx)
	if err != nil {
		return stats, err
	}

	for _, user := range users {
		skipped, err := s.snapshotUser(ctx, user, takenAt)
		stats.PositionsSkipped += skipped
		switch {
		case errors.Is(err, domain.ErrDuplicateSnapshot):
			stats.Duplicates++
			stats.UsersProcessed++
		case err != nil:
			stats.UsersFailed++
			s.log.Error().
				Err(err).
				Int64("user_id", user.ID).
				Time("taken_at", takenAt).
				Msg("Failed to snapshot user, continuing")
		default:
			stats.UsersProcessed++
		}
	}

	return stats, nil
}

// snapshotUser values one user's holdings against the price cache and writes
// the snapshot. Positions with no cached price are skipped, not zero-valued;
// the count of skips is returned for the run stats.
func (s *Service) snapshotUser(ctx context.Context, user domain.User, takenAt time.Time) (int, error) {
	positions, err := s.positions.ActivePositions(ctx, user.ID)
	if err != nil {
		return 0, err
	}

	snapID := uuid.New().String()
	investment := decimal.Zero
	skipped := 0
	posSnaps := make([]domain.PositionSnapshot, 0, len(positions))

	for _, pos := range positions {
		rec, ok := s.cache.Get(pos.Ticker)
		if !ok {
			skipped++
			s.log.Debug().
				Str("ticker", pos.Ticker).
				Int64("user_id", user.ID).
				Msg("No cached price at snapshot time, excluding position")
			continue
		}

		value := decimal.NewFromFloat(pos.Shares).Mul(decimal.NewFromFloat(rec.Price)).Round(2)
		investment = investment.Add(value)
		currentValue, _ := value.Float64()

		posSnaps = append(posSnaps, domain.PositionSnapshot{
			ID:                  uuid.New().String(),
			PortfolioSnapshotID: snapID,
			Ticker:              rec.Symbol,
			AssetType:           pos.AssetType,
			Shares:              pos.Shares,
			CostBasis:           pos.CostBasis,
			CurrentValue:        currentValue,
			PricePerShare:       rec.Price,
		})
	}

	dividendsPaid, err := s.dividends.PaidTotal(ctx, user.ID, takenAt)
	if err != nil {
		return skipped, err
	}

	investmentValue, _ := investment.Float64()
	total, _ := investment.
		Add(decimal.NewFromFloat(user.CashBalance)).
		Add(decimal.NewFromFloat(dividendsPaid)).
		Round(2).
		Float64()

	snap := domain.PortfolioSnapshot{
		ID:              snapID,
		UserID:          user.ID,
		TotalValue:      total,
		CashBalance:     user.CashBalance,
		InvestmentValue: investmentValue,
		TakenAt:         takenAt,
	}

	return skipped, s.repo.Insert(ctx, snap, posSnaps)
}
