// Package activity exposes the portfolio event feed (paid and upcoming
// dividends) and the dividend cash flows folded into valuations.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// Item types for the activity feed.
const (
	TypeDividend         = "DIVIDEND"
	TypeUpcomingDividend = "UPCOMING_DIVIDEND"
)

// Item is one portfolio event, shaped for the dashboard feed.
type Item struct {
	Timestamp      time.Time  `json:"timestamp" msgpack:"timestamp"`
	Type           string     `json:"activity_type" msgpack:"activity_type"`
	Ticker         string     `json:"ticker" msgpack:"ticker"`
	AssetType      string     `json:"asset_type,omitempty" msgpack:"asset_type,omitempty"`
	DividendAmount float64    `json:"dividend_amount" msgpack:"dividend_amount"`
	ExDate         *time.Time `json:"ex_date,omitempty" msgpack:"ex_date,omitempty"`
}

// CashFlow is one dated cash amount, used to build the cumulative cash series.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// Repository handles dividend database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new activity repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "activity").Logger(),
	}
}

// PaidTotal returns the sum of dividends paid to the user up to and including
// until. Zero when the user has none.
func (r *Repository) PaidTotal(ctx context.Context, userID int64, until time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM dividends
		WHERE user_id = ? AND status = ? AND pay_date IS NOT NULL AND pay_date <= ?
	`, userID, domain.DividendPaid, until).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum paid dividends for user %d: %w", userID, err)
	}
	return total, nil
}

// CashFlows returns the user's paid dividends as dated amounts ordered by pay
// date, up to and including until.
func (r *Repository) CashFlows(ctx context.Context, userID int64, until time.Time) ([]CashFlow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pay_date, amount
		FROM dividends
		WHERE user_id = ? AND status = ? AND pay_date IS NOT NULL AND pay_date <= ?
		ORDER BY pay_date ASC
	`, userID, domain.DividendPaid, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividend cash flows for user %d: %w", userID, err)
	}
	defer rows.Close()

	var flows []CashFlow
	for rows.Next() {
		var f CashFlow
		if err := rows.Scan(&f.Date, &f.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow: %w", err)
		}
		flows = append(flows, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash flows: %w", err)
	}

	return flows, nil
}

// PaidDividends returns dividends paid within [since, until] as feed items
// ordered chronologically. A zero since means no lower bound.
func (r *Repository) PaidDividends(ctx context.Context, userID int64, since, until time.Time) ([]Item, error) {
	query := `
		SELECT d.pay_date, d.ticker, d.amount, d.ex_date,
		       COALESCE(p.asset_type, '')
		FROM dividends d
		LEFT JOIN positions p ON p.user_id = d.user_id AND p.ticker = d.ticker
		WHERE d.user_id = ? AND d.status = ? AND d.pay_date IS NOT NULL AND d.pay_date <= ?
	`
	args := []any{userID, domain.DividendPaid, until}
	if !since.IsZero() {
		query += " AND d.pay_date >= ?"
		args = append(args, since)
	}
	query += " ORDER BY d.pay_date ASC"

	return r.queryItems(ctx, TypeDividend, query, args...)
}

// UpcomingDividends returns announced dividends whose ex-date is after asOf,
// ordered by ex-date.
func (r *Repository) UpcomingDividends(ctx context.Context, userID int64, asOf time.Time) ([]Item, error) {
	query := `
		SELECT d.ex_date, d.ticker, d.amount, d.ex_date,
		       COALESCE(p.asset_type, '')
		FROM dividends d
		LEFT JOIN positions p ON p.user_id = d.user_id AND p.ticker = d.ticker
		WHERE d.user_id = ? AND d.status = ? AND d.ex_date IS NOT NULL AND d.ex_date > ?
		ORDER BY d.ex_date ASC
	`
	return r.queryItems(ctx, TypeUpcomingDividend, query, userID, domain.DividendAnnounced, asOf)
}

func (r *Repository) queryItems(ctx context.Context, itemType, query string, args ...any) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s activity: %w", itemType, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var exDate sql.NullTime
		if err := rows.Scan(&item.Timestamp, &item.Ticker, &item.DividendAmount, &exDate, &item.AssetType); err != nil {
			return nil, fmt.Errorf("failed to scan activity item: %w", err)
		}
		item.Type = itemType
		if exDate.Valid {
			d := exDate.Time
			item.ExDate = &d
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity items: %w", err)
	}

	return items, nil
}
