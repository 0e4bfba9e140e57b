package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// RefreshService drives the periodic price-refresh workflow: collect the
// distinct symbols held by anyone, fetch them in batches, and upsert every
// successfully fetched quote into the cache.
type RefreshService struct {
	quotes    QuoteSource
	cache     *Cache
	positions domain.PositionSource
	batchSize int
	timeout   time.Duration
	log       zerolog.Logger
}

// RefreshConfig holds refresh service configuration.
type RefreshConfig struct {
	Quotes    QuoteSource
	Cache     *Cache
	Positions domain.PositionSource
	BatchSize int           // Symbols per quote request
	Timeout   time.Duration // Per-batch fetch timeout
}

// NewRefreshService creates a new price refresh service.
func NewRefreshService(cfg RefreshConfig, log zerolog.Logger) *RefreshService {
	return &RefreshService{
		quotes:    cfg.Quotes,
		cache:     cfg.Cache,
		positions: cfg.Positions,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
		log:       log.With().Str("service", "price_refresh").Logger(),
	}
}

// RefreshStats summarizes one refresh run.
type RefreshStats struct {
	SymbolsChecked int
	PricesFetched  int
	BatchesFailed  int
}

// Run executes one refresh pass. A failed batch is logged and skipped; its
// symbols keep their previous (now aging) cache entries, which downstream
// consumers detect through the freshness predicate. Quote provider errors
// are never fatal: the next tick retries naturally.
func (s *RefreshService) Run(ctx context.Context) error {
	stats, err := s.RunOnce(ctx)
	if err != nil {
		return err
	}

	s.log.Info().
		Int("symbols_checked", stats.SymbolsChecked).
		Int("prices_fetched", stats.PricesFetched).
		Int("batches_failed", stats.BatchesFailed).
		Msg("Price refresh completed")
	return nil
}

// RunOnce executes one refresh pass and returns its stats. Only a failure to
// enumerate held symbols is an error; fetch failures are absorbed per batch.
func (s *RefreshService) RunOnce(ctx context.Context) (RefreshStats, error) {
	var stats RefreshStats

	symbols, err := s.heldSymbols(ctx)
	if err != nil {
		return stats, err
	}
	stats.SymbolsChecked = len(symbols)

	if len(symbols) == 0 {
		s.log.Debug().Msg("No active symbols to refresh")
		return stats, nil
	}

	now := time.Now()
	for start := 0; start < len(symbols); start += s.batchSize {
		end := start + s.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		prices, err := s.fetchBatch(ctx, batch)
		if err != nil {
			stats.BatchesFailed++
			s.log.Warn().
				Err(err).
				Int("batch_size", len(batch)).
				Str("first_symbol", batch[0]).
				Msg("Quote batch failed, continuing with remaining batches")
			continue
		}

		for symbol, price := range prices {
			s.cache.Upsert(symbol, price, now)
			stats.PricesFetched++
		}
	}

	return stats, nil
}

// fetchBatch fetches one batch under its own timeout so a hung provider call
// cannot outlive the refresh period.
func (s *RefreshService) fetchBatch(ctx context.Context, batch []string) (map[string]float64, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.quotes.FetchPrices(fetchCtx, batch)
}

// heldSymbols returns the sorted distinct symbols held by any active user
// with nonzero shares.
func (s *RefreshService) heldSymbols(ctx context.Context) ([]string, error) {
	users, err := s.positions.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, user := range users {
		positions, err := s.positions.ActivePositions(ctx, user.ID)
		if err != nil {
			s.log.Warn().
				Err(err).
				Int64("user_id", user.ID).
				Msg("Failed to list positions for symbol collection")
			continue
		}
		for _, pos := range positions {
			if pos.Shares <= 0 || pos.Ticker == "" {
				continue
			}
			seen[normalizeSymbol(pos.Ticker)] = true
		}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	// Deterministic batch boundaries across runs
	sort.Strings(symbols)
	return symbols, nil
}
