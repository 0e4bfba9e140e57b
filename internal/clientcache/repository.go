// Package clientcache stores the full-range dashboard payload per user and
// re-derives narrower ranges from it locally, so range switches on the client
// cost no server round trip.
package clientcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ledgerline/ledgerline/internal/dashboard"
)

// Repository provides TTL cache operations over the client cache database.
// Payloads are msgpack blobs; the cache is ephemeral and safe to wipe.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves a user's full-range snapshot with expiration = now + ttl.
func (r *Repository) Store(ctx context.Context, userID int64, snap dashboard.Snapshot, ttl time.Duration) error {
	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard payload: %w", err)
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO dashboard_cache (user_id, payload, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, userID, payload, now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to store dashboard payload: %w", err)
	}

	return nil
}

// GetIfFresh returns the cached snapshot only while it is unexpired.
// ok=false for a miss or an expired entry.
func (r *Repository) GetIfFresh(ctx context.Context, userID int64, now time.Time) (dashboard.Snapshot, bool, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT payload FROM dashboard_cache
		WHERE user_id = ? AND expires_at > ?
	`, userID, now).Scan(&payload)
	if err == sql.ErrNoRows {
		return dashboard.Snapshot{}, false, nil
	}
	if err != nil {
		return dashboard.Snapshot{}, false, fmt.Errorf("failed to read dashboard payload: %w", err)
	}

	var snap dashboard.Snapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return dashboard.Snapshot{}, false, fmt.Errorf("failed to decode dashboard payload: %w", err)
	}

	return snap, true, nil
}

// DeleteExpired removes entries whose expiration has passed.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM dashboard_cache WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted cache entries: %w", err)
	}
	return deleted, nil
}
