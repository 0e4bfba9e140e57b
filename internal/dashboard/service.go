package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/activity"
	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/pricing"
	"github.com/ledgerline/ledgerline/internal/timeseries"
)

// SnapshotStore reads historical portfolio snapshots.
type SnapshotStore interface {
	History(ctx context.Context, userID int64, since, until time.Time) ([]domain.PortfolioSnapshot, error)
	LatestPositions(ctx context.Context, userID int64) ([]domain.PositionSnapshot, error)
}

// ActivityStore reads dividend cash flows and feed items.
type ActivityStore interface {
	PaidTotal(ctx context.Context, userID int64, until time.Time) (float64, error)
	CashFlows(ctx context.Context, userID int64, until time.Time) ([]activity.CashFlow, error)
	PaidDividends(ctx context.Context, userID int64, since, until time.Time) ([]activity.Item, error)
	UpcomingDividends(ctx context.Context, userID int64, asOf time.Time) ([]activity.Item, error)
}

// UserStore resolves users.
type UserStore interface {
	User(ctx context.Context, userID int64) (domain.User, error)
}

// LiveValuer computes the cache-backed current portfolio value.
type LiveValuer interface {
	Value(ctx context.Context, user domain.User, now time.Time) (pricing.LiveValue, error)
}

// QueryService assembles dashboard snapshots. It never mutates stored data.
type QueryService struct {
	snapshots SnapshotStore
	activity  ActivityStore
	users     UserStore
	valuator  LiveValuer
	targets   timeseries.Targets
	now       func() time.Time
	log       zerolog.Logger
}

// NewQueryService creates a new dashboard query service.
func NewQueryService(snapshots SnapshotStore, activitySrc ActivityStore, users UserStore, valuator LiveValuer, targets timeseries.Targets, log zerolog.Logger) *QueryService {
	if targets == nil {
		targets = timeseries.DefaultTargets()
	}
	return &QueryService{
		snapshots: snapshots,
		activity:  activitySrc,
		users:     users,
		valuator:  valuator,
		targets:   targets,
		now:       time.Now,
		log:       log.With().Str("service", "dashboard").Logger(),
	}
}

// WithNow overrides the clock. Test hook.
func (s *QueryService) WithNow(now func() time.Time) *QueryService {
	s.now = now
	return s
}

// GetSnapshot builds the dashboard response for one user and range token.
// Unknown tokens fail with domain.ErrInvalidRange; an empty snapshot history
// yields a zeroed snapshot, not an error.
func (s *QueryService) GetSnapshot(ctx context.Context, userID int64, rangeToken string) (Snapshot, error) {
	rng, err := timeseries.ParseRange(rangeToken)
	if err != nil {
		return Snapshot{}, err
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	now := s.now()
	since, _ := rng.Cutoff(now) // zero time for ALL: no lower bound

	history, err := s.snapshots.History(ctx, userID, since, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot history: %w", err)
	}

	flows, err := s.activity.CashFlows(ctx, userID, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read cash flows: %w", err)
	}

	feed, err := s.activityFeed(ctx, userID, since, now)
	if err != nil {
		return Snapshot{}, err
	}

	if len(history) == 0 && len(flows) == 0 {
		return s.emptySnapshot(rng, now, feed), nil
	}

	target := s.targets.Points(rng)
	totalSeries := timeseries.Downsample(timeseries.FilterRange(totalsOf(history), rng, now), target)
	positionSeries := timeseries.Downsample(timeseries.FilterRange(investmentsOf(history), rng, now), target)
	cashSeries := timeseries.Downsample(timeseries.FilterRange(CumulativeCashSeries(flows), rng, now), target)

	live, err := s.valuator.Value(ctx, user, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to compute live value: %w", err)
	}
	paidTotal, err := s.activity.PaidTotal(ctx, userID, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to sum paid dividends: %w", err)
	}
	liveCurrent := live.TotalValue + paidTotal

	delta, max, min := CalculatePerformance(totalSeries)

	positions, err := s.snapshots.LatestPositions(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read latest positions: %w", err)
	}

	return Snapshot{
		AsOf:  now,
		Range: rng,
		Total: CalculateTotals(totalSeries, liveCurrent),
		Performance: Performance{
			Series:         totalSeries,
			PositionSeries: positionSeries,
			CashSeries:     cashSeries,
			RenderSeries:   RenderSeriesFor(totalSeries, target),
			Delta:          delta,
			Max:            max,
			Min:            min,
		},
		Allocation: CalculateAllocation(positions),
		Activity:   feed,
	}, nil
}

// activityFeed merges paid and upcoming dividends chronologically. Upcoming
// items carry future timestamps and sort to the end.
func (s *QueryService) activityFeed(ctx context.Context, userID int64, since, until time.Time) ([]activity.Item, error) {
	paid, err := s.activity.PaidDividends(ctx, userID, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to read paid dividends: %w", err)
	}
	upcoming, err := s.activity.UpcomingDividends(ctx, userID, until)
	if err != nil {
		return nil, fmt.Errorf("failed to read upcoming dividends: %w", err)
	}

	feed := make([]activity.Item, 0, len(paid)+len(upcoming))
	feed = append(feed, paid...)
	feed = append(feed, upcoming...)
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.Before(feed[j].Timestamp)
	})
	return feed, nil
}

func (s *QueryService) emptySnapshot(rng timeseries.Range, now time.Time, feed []activity.Item) Snapshot {
	return Snapshot{
		AsOf:  now,
		Range: rng,
		Performance: Performance{
			Series: []timeseries.Point{},
		},
		Allocation: []AllocationItem{},
		Activity:   feed,
	}
}

func totalsOf(history []domain.PortfolioSnapshot) []timeseries.Point {
	points := make([]timeseries.Point, len(history))
	for i, snap := range history {
		points[i] = timeseries.Point{Timestamp: snap.TakenAt, Value: snap.TotalValue}
	}
	return points
}

func investmentsOf(history []domain.PortfolioSnapshot) []timeseries.Point {
	points := make([]timeseries.Point, len(history))
	for i, snap := range history {
		points[i] = timeseries.Point{Timestamp: snap.TakenAt, Value: snap.InvestmentValue}
	}
	return points
}
