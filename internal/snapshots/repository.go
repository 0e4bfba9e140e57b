// Package snapshots persists immutable per-instant portfolio valuations and
// materializes new ones on a schedule.
package snapshots

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// Repository handles snapshot database operations. Snapshots are append-only:
// rows are inserted once and never updated.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Insert writes one portfolio snapshot and its position rows in a single
// transaction, parent first so children are never visible without it.
// A snapshot that already exists for the same (user, taken_at) returns
// domain.ErrDuplicateSnapshot and writes nothing.
func (r *Repository) Insert(ctx context.Context, snap domain.PortfolioSnapshot, positions []domain.PositionSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots
			(id, user_id, total_value, cash_balance, investment_value, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.UserID, snap.TotalValue, snap.CashBalance, snap.InvestmentValue, snap.TakenAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSnapshot
		}
		return fmt.Errorf("failed to insert portfolio snapshot: %w", err)
	}

	for _, pos := range positions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO position_snapshots
				(id, portfolio_snapshot_id, ticker, asset_type, shares, cost_basis, current_value, price_per_share)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, pos.ID, pos.PortfolioSnapshotID, pos.Ticker, pos.AssetType, pos.Shares, pos.CostBasis, pos.CurrentValue, pos.PricePerShare)
		if err != nil {
			return fmt.Errorf("failed to insert position snapshot for %s: %w", pos.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	return nil
}

// History returns the user's portfolio snapshots ordered by taken_at
// ascending. A zero since means no lower bound; until is exclusive-free and
// normally just time.Now().
func (r *Repository) History(ctx context.Context, userID int64, since, until time.Time) ([]domain.PortfolioSnapshot, error) {
	query := `
		SELECT id, user_id, total_value, cash_balance, investment_value, taken_at
		FROM portfolio_snapshots
		WHERE user_id = ? AND taken_at <= ?
	`
	args := []any{userID, until}
	if !since.IsZero() {
		query += " AND taken_at >= ?"
		args = append(args, since)
	}
	query += " ORDER BY taken_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot history for user %d: %w", userID, err)
	}
	defer rows.Close()

	var snaps []domain.PortfolioSnapshot
	for rows.Next() {
		var s domain.PortfolioSnapshot
		if err := rows.Scan(&s.ID, &s.UserID, &s.TotalValue, &s.CashBalance, &s.InvestmentValue, &s.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}

// Latest returns the user's most recent portfolio snapshot, or ok=false when
// the user has no history yet.
func (r *Repository) Latest(ctx context.Context, userID int64) (domain.PortfolioSnapshot, bool, error) {
	var s domain.PortfolioSnapshot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_value, cash_balance, investment_value, taken_at
		FROM portfolio_snapshots
		WHERE user_id = ?
		ORDER BY taken_at DESC
		LIMIT 1
	`, userID).Scan(&s.ID, &s.UserID, &s.TotalValue, &s.CashBalance, &s.InvestmentValue, &s.TakenAt)
	if err == sql.ErrNoRows {
		return domain.PortfolioSnapshot{}, false, nil
	}
	if err != nil {
		return domain.PortfolioSnapshot{}, false, fmt.Errorf("failed to query latest snapshot for user %d: %w", userID, err)
	}
	return s, true, nil
}

// LatestPositions returns the position rows of the user's most recent
// snapshot, used by the allocation breakdown.
func (r *Repository) LatestPositions(ctx context.Context, userID int64) ([]domain.PositionSnapshot, error) {
	latest, ok, err := r.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.PositionSnapshot{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, portfolio_snapshot_id, ticker, asset_type, shares, cost_basis, current_value, price_per_share
		FROM position_snapshots
		WHERE portfolio_snapshot_id = ?
		ORDER BY current_value DESC
	`, latest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query position snapshots: %w", err)
	}
	defer rows.Close()

	var positions []domain.PositionSnapshot
	for rows.Next() {
		var p domain.PositionSnapshot
		if err := rows.Scan(&p.ID, &p.PortfolioSnapshotID, &p.Ticker, &p.AssetType, &p.Shares, &p.CostBasis, &p.CurrentValue, &p.PricePerShare); err != nil {
			return nil, fmt.Errorf("failed to scan position snapshot: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position snapshots: %w", err)
	}

	return positions, nil
}

// DeleteOlderThan removes snapshots taken before cutoff. Position rows go
// with their parents via the cascade. Retention hook; not currently scheduled.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM portfolio_snapshots WHERE taken_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted snapshots: %w", err)
	}
	return deleted, nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. modernc.org/sqlite does not export a stable error code type for
// this, so match on the constraint message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
