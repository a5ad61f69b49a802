package billing

import (
	"context"
	"time"
)

// Store persists billing accounts.
//
// Save is the only write operation for a single account and must be atomic for
// the whole document. Implementations insert when acc.Version is zero and
// otherwise replace the stored account only if its version equals acc.Version,
// returning ErrVersionConflict when it does not (including an insert that finds
// an existing record). On success Save increments acc.Version.
//
// Finders return ErrAccountNotFound or ErrOrderNotFound when nothing matches and
// must return copies the caller may mutate freely.
type Store interface {
	FindByID(ctx context.Context, userID string) (*Account, error)
	FindByOrderID(ctx context.Context, orderID string) (*Account, error)
	// FindByExpiryRange returns accounts whose subscription expiry is in [start, end).
	FindByExpiryRange(ctx context.Context, start, end time.Time) ([]*Account, error)
	// FindWithPendingOrders returns accounts holding a pending order created before createdBefore.
	FindWithPendingOrders(ctx context.Context, createdBefore time.Time) ([]*Account, error)
	Save(ctx context.Context, acc *Account) error
	// ResetUsage zeroes usage counters of every account, bumping each version so that
	// concurrent Saves of stale copies fail. It returns the number of accounts touched.
	ResetUsage(ctx context.Context, at time.Time) (int64, error)
}
