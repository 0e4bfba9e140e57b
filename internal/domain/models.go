// Package domain contains the core types shared across the application.
// It has no infrastructure dependencies.
package domain

import (
	"time"
)

// User represents an account whose portfolio is tracked.
type User struct {
	ID          int64
	Email       string
	CashBalance float64
	Active      bool
}

// Position is a holding in the position-of-record store.
type Position struct {
	ID        int64
	UserID    int64
	Ticker    string
	Shares    float64
	CostBasis float64
	AssetType string // e.g. "common_stock", "preferred_stock", "cash"
}

// PriceRecord is the latest known quote for a traded symbol.
// One record per symbol; the refresh task overwrites it on every fetch.
type PriceRecord struct {
	Symbol    string
	Price     float64
	UpdatedAt time.Time
}

// Fresh reports whether the record is recent enough to use for live valuation.
func (r PriceRecord) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(r.UpdatedAt) <= window
}

// PortfolioSnapshot is an immutable portfolio-level valuation at an instant.
// At most one snapshot exists per (UserID, TakenAt).
type PortfolioSnapshot struct {
	ID              string
	UserID          int64
	TotalValue      float64
	CashBalance     float64
	InvestmentValue float64
	TakenAt         time.Time
}

// PositionSnapshot is the valuation of one holding at the moment its parent
// portfolio snapshot was taken. Owned by the parent; cascade-deleted with it.
type PositionSnapshot struct {
	ID                  string
	PortfolioSnapshotID string
	Ticker              string
	AssetType           string
	Shares              float64
	CostBasis           float64
	CurrentValue        float64
	PricePerShare       float64
}

// DividendStatus marks whether a dividend has been paid out or is upcoming.
type DividendStatus string

const (
	DividendPaid      DividendStatus = "paid"
	DividendAnnounced DividendStatus = "announced"
)

// Dividend is a cash flow event attached to a user's holding.
type Dividend struct {
	ID      int64
	UserID  int64
	Ticker  string
	Amount  float64
	Status  DividendStatus
	ExDate  *time.Time
	PayDate *time.Time
}
