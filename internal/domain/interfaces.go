package domain

import "context"

// PositionSource is the narrow contract to the position-of-record store.
// The valuation engine depends on it for who is tracked and what they hold;
// it never writes through it.
type PositionSource interface {
	// ActiveUsers returns all users whose portfolios should be snapshotted.
	ActiveUsers(ctx context.Context) ([]User, error)
	// ActivePositions returns a user's holdings with nonzero shares.
	ActivePositions(ctx context.Context, userID int64) ([]Position, error)
}
