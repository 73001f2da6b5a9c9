// Package cache holds the derived balance projection read by the transfer-creation quick
// check. Entries are bounded-staleness only: the authoritative balance always comes from the
// row-locked read inside the balance mutator.
package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBalanceTTL = 300 * time.Second

// Store is a key-value view over account balances with TTL expiry and explicit invalidation.
type Store interface {
	// GetBalance returns the cached balance for userID. The second return is false on a miss;
	// a miss is not an error.
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, bool, error)
	// SetBalance caches the balance for userID under the store's TTL.
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error
	// Invalidate drops the entry for userID. Invalidating an absent entry is a no-op.
	Invalidate(ctx context.Context, userID string) error
}

func balanceKey(userID string) string {
	return "balance:" + userID
}
