// Package positions provides the SQLite-backed source of users and their
// positions of record.
package positions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// Repository handles user and position database operations. It implements
// domain.PositionSource for the refresh and snapshot services.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

// ActiveUsers returns all active users ordered by id.
func (r *Repository) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, cash_balance, active
		FROM users
		WHERE active = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.CashBalance, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// User returns one user by id.
func (r *Repository) User(ctx context.Context, userID int64) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, cash_balance, active
		FROM users
		WHERE id = ?
	`, userID).Scan(&u.ID, &u.Email, &u.CashBalance, &u.Active)
	if err == sql.ErrNoRows {
		return domain.User{}, fmt.Errorf("user %d: %w", userID, domain.ErrUserNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to query user %d: %w", userID, err)
	}
	return u, nil
}

// ActivePositions returns the user's positions with nonzero shares.
func (r *Repository) ActivePositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, ticker, shares, cost_basis, asset_type
		FROM positions
		WHERE user_id = ? AND shares > 0
		ORDER BY ticker
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.ID, &p.UserID, &p.Ticker, &p.Shares, &p.CostBasis, &p.AssetType); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
