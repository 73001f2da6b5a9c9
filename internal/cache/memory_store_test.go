package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	// miss is not an error
	balance, ok, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, balance.IsZero())

	want := decimal.RequireFromString("123.45")
	require.NoError(t, store.SetBalance(ctx, "user-1", want))

	balance, ok, err = store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, balance.Equal(want))

	// entries are keyed per user
	_, ok, err = store.GetBalance(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Invalidate(ctx, "user-1"))
	_, ok, err = store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// invalidating an absent entry is a no-op
	require.NoError(t, store.Invalidate(ctx, "user-1"))
}

func Test_MemoryStore_entriesExpire(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(20 * time.Millisecond)

	require.NoError(t, store.SetBalance(ctx, "user-1", decimal.RequireFromString("10.00")))

	_, ok, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)

	_, ok, err = store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_NewMemoryStore_defaultsTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	require.NoError(t, store.SetBalance(ctx, "user-1", decimal.New(1, 0)))
	_, ok, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
