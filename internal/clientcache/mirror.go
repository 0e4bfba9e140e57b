package clientcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/dashboard"
	"github.com/ledgerline/ledgerline/internal/timeseries"
)

// Mirror is the client-side view over the cache: it takes one full-range
// snapshot per user and answers narrower ranges from it with the same
// filter/downsample pipeline the server runs.
type Mirror struct {
	repo    *Repository
	targets timeseries.Targets
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewMirror creates a new mirror.
func NewMirror(repo *Repository, targets timeseries.Targets, ttl time.Duration, log zerolog.Logger) *Mirror {
	if targets == nil {
		targets = timeseries.DefaultTargets()
	}
	return &Mirror{
		repo:    repo,
		targets: targets,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "client_cache").Logger(),
	}
}

// WithNow overrides the clock. Test hook.
func (m *Mirror) WithNow(now func() time.Time) *Mirror {
	m.now = now
	return m
}

// Put caches a user's full-range snapshot.
func (m *Mirror) Put(ctx context.Context, userID int64, full dashboard.Snapshot) error {
	return m.repo.Store(ctx, userID, full, m.ttl)
}

// Derive answers a range request from the cached full-range snapshot.
// ok=false means a cache miss (or expiry) and the caller must query the
// server instead.
func (m *Mirror) Derive(ctx context.Context, userID int64, rng timeseries.Range) (dashboard.Snapshot, bool, error) {
	now := m.now()

	full, ok, err := m.repo.GetIfFresh(ctx, userID, now)
	if err != nil || !ok {
		return dashboard.Snapshot{}, false, err
	}

	if rng == timeseries.RangeAll {
		return full, true, nil
	}
	return dashboard.DeriveRange(full, rng, m.targets, now), true, nil
}

// CleanupTask periodically evicts expired cache entries. Wired into the
// scheduler alongside the refresh and snapshot tasks.
type CleanupTask struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupTask creates a new cleanup task.
func NewCleanupTask(repo *Repository, log zerolog.Logger) *CleanupTask {
	return &CleanupTask{
		repo: repo,
		log:  log.With().Str("job", "client_cache_cleanup").Logger(),
	}
}

// Run deletes expired entries once.
func (t *CleanupTask) Run(ctx context.Context) error {
	deleted, err := t.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.log.Error().Err(err).Msg("Failed to delete expired cache entries")
		return err
	}

	if deleted > 0 {
		t.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired cache entries")
	}
	return nil
}
