package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/transfer-engine-backend/internal/locker"
)

func Test_runWithLease(t *testing.T) {
	ctx := context.Background()

	t.Run("runs fn while holding the lease and releases it", func(t *testing.T) {
		lease := &locker.Lease{Name: "sweep", HolderID: "holder-1"}

		lckr := &locker.MockLocker{}
		lckr.On("Acquire", ctx, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor).Return(lease, nil).Once()
		lckr.On("Release", ctx, lease).Return(nil).Once()
		defer lckr.AssertExpectations(t)

		ran := false
		err := runWithLease(ctx, lckr, nil, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor, func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("skips fn when the lease is held elsewhere", func(t *testing.T) {
		lckr := &locker.MockLocker{}
		lckr.On("Acquire", ctx, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor).Return(nil, nil).Once()
		defer lckr.AssertExpectations(t)
		defer lckr.AssertNotCalled(t, "Release")

		ran := false
		err := runWithLease(ctx, lckr, nil, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor, func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.False(t, ran)
	})

	t.Run("acquire failure is returned", func(t *testing.T) {
		lckr := &locker.MockLocker{}
		lckr.On("Acquire", ctx, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor).
			Return(nil, errors.New("db down")).Once()
		defer lckr.AssertExpectations(t)

		err := runWithLease(ctx, lckr, nil, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor, func(ctx context.Context) error {
			t.Fatal("fn should not run when the lease cannot be acquired")
			return nil
		})
		assert.ErrorContains(t, err, `acquiring lease "sweep"`)
	})

	t.Run("fn error propagates and the lease is still released", func(t *testing.T) {
		lease := &locker.Lease{Name: "sweep", HolderID: "holder-1"}

		lckr := &locker.MockLocker{}
		lckr.On("Acquire", ctx, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor).Return(lease, nil).Once()
		lckr.On("Release", ctx, lease).Return(nil).Once()
		defer lckr.AssertExpectations(t)

		err := runWithLease(ctx, lckr, nil, "sweep", DefaultLockAtMostFor, DefaultLockAtLeastFor, func(ctx context.Context) error {
			return errors.New("sweep failed")
		})
		assert.EqualError(t, err, "sweep failed")
	})
}
