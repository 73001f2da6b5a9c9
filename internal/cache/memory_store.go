package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

const defaultMemoryStoreSize = 10_000

// MemoryStore is an in-process balance cache backed by an expirable LRU. It serves
// single-replica runs and tests, where a network cache buys nothing.
type MemoryStore struct {
	lru *expirable.LRU[string, decimal.Decimal]
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, decimal.Decimal](defaultMemoryStoreSize, nil, ttl),
	}
}

func (s *MemoryStore) GetBalance(_ context.Context, userID string) (decimal.Decimal, bool, error) {
	balance, ok := s.lru.Get(balanceKey(userID))
	if !ok {
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

func (s *MemoryStore) SetBalance(_ context.Context, userID string, balance decimal.Decimal) error {
	s.lru.Add(balanceKey(userID), balance)
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, userID string) error {
	s.lru.Remove(balanceKey(userID))
	return nil
}
