package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisStore is the production balance cache. Balances are stored as their decimal string
// representation so the stored value round-trips at scale 2 without float drift.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) GetBalance(ctx context.Context, userID string) (decimal.Decimal, bool, error) {
	value, err := s.client.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("getting cached balance for %s: %w", userID, err)
	}

	balance, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parsing cached balance %q for %s: %w", value, userID, err)
	}

	return balance, true, nil
}

func (s *RedisStore) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	err := s.client.Set(ctx, balanceKey(userID), balance.StringFixed(2), s.ttl).Err()
	if err != nil {
		return fmt.Errorf("caching balance for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, userID string) error {
	err := s.client.Del(ctx, balanceKey(userID)).Err()
	if err != nil {
		return fmt.Errorf("invalidating cached balance for %s: %w", userID, err)
	}
	return nil
}

// Ping verifies the Redis connection, used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}
