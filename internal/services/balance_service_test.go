package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/transfer-engine-backend/db"
	"github.com/ledgerline/transfer-engine-backend/internal/cache"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
)

// immediateTxRunner stands in for db.RunInTransactionWithPostCommit: it runs the atomic
// function without a real transaction, wraps its error the same way, and runs the post-commit
// function on success.
func immediateTxRunner(_ context.Context, _ db.DBConnectionPool, _ *sql.TxOptions, fn db.AtomicFunctionWithPostCommit) error {
	postCommitFn, err := fn(nil)
	if err != nil {
		return db.NewTransactionExecutionError(err)
	}
	if postCommitFn != nil {
		if err = postCommitFn(); err != nil {
			return fmt.Errorf("executing post-commit function: %w", err)
		}
	}
	return nil
}

func newTestBalanceService(accounts *MockAccountStore, mutations *MockBalanceMutationStore, cacheStore cache.Store, dispatcher *MockDispatcher) *BalanceService {
	return &BalanceService{
		accounts:   accounts,
		mutations:  mutations,
		cacheStore: cacheStore,
		dispatcher: dispatcher,
		runInTx:    immediateTxRunner,
	}
}

func Test_BalanceService_applyMutation(t *testing.T) {
	ctx := context.Background()
	amount := decimal.RequireFromString("25.00")

	t.Run("debit stores the negative signed amount and moves the balance down", func(t *testing.T) {
		accounts := &MockAccountStore{}
		mutations := &MockBalanceMutationStore{}
		dispatcher := &MockDispatcher{}

		balanceBefore := decimal.RequireFromString("100.00")
		signedAmount := amount.Neg()
		newBalance := decimal.RequireFromString("75.00")
		inserted := &data.BalanceMutation{ID: 7, ExternalID: 42, Type: data.DebitMutationType, UserID: "sender", Amount: signedAmount, Status: data.ProcessingMutationStatus}
		completed := &data.BalanceMutation{ID: 7, ExternalID: 42, Type: data.DebitMutationType, UserID: "sender", Amount: signedAmount, Status: data.CompletedMutationStatus, BalanceBefore: &balanceBefore, BalanceAfter: &newBalance}

		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.DebitMutationType).Return(nil, data.ErrRecordNotFound).Once()
		accounts.On("GetForUpdate", ctx, mock.Anything, "sender").Return(&data.Account{UserID: "sender", Balance: balanceBefore}, nil).Once()
		mutations.On("Insert", ctx, mock.Anything, int64(42), data.DebitMutationType, "sender", signedAmount, balanceBefore).Return(inserted, nil).Once()
		accounts.On("UpdateBalance", ctx, mock.Anything, "sender", newBalance).Return(nil).Once()
		mutations.On("MarkCompleted", ctx, mock.Anything, int64(7), newBalance).Return(completed, nil).Once()
		dispatcher.On("DispatchBalanceMutationCompleted", ctx, completed).Return(nil).Once()
		defer accounts.AssertExpectations(t)
		defer mutations.AssertExpectations(t)
		defer dispatcher.AssertExpectations(t)

		s := newTestBalanceService(accounts, mutations, cache.NewMemoryStore(0), dispatcher)
		mutation, err := s.Debit(ctx, 42, "sender", amount)
		require.NoError(t, err)
		assert.Equal(t, completed, mutation)
		assert.True(t, mutation.Amount.IsNegative(), "a debit row must carry a negative amount")
	})

	t.Run("credit stores the positive signed amount and moves the balance up", func(t *testing.T) {
		accounts := &MockAccountStore{}
		mutations := &MockBalanceMutationStore{}
		dispatcher := &MockDispatcher{}

		balanceBefore := decimal.RequireFromString("100.00")
		newBalance := decimal.RequireFromString("125.00")
		inserted := &data.BalanceMutation{ID: 8, ExternalID: 42, Type: data.CreditMutationType, UserID: "receiver", Amount: amount, Status: data.ProcessingMutationStatus}
		completed := &data.BalanceMutation{ID: 8, ExternalID: 42, Type: data.CreditMutationType, UserID: "receiver", Amount: amount, Status: data.CompletedMutationStatus, BalanceBefore: &balanceBefore, BalanceAfter: &newBalance}

		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.CreditMutationType).Return(nil, data.ErrRecordNotFound).Once()
		accounts.On("GetForUpdate", ctx, mock.Anything, "receiver").Return(&data.Account{UserID: "receiver", Balance: balanceBefore}, nil).Once()
		mutations.On("Insert", ctx, mock.Anything, int64(42), data.CreditMutationType, "receiver", amount, balanceBefore).Return(inserted, nil).Once()
		accounts.On("UpdateBalance", ctx, mock.Anything, "receiver", newBalance).Return(nil).Once()
		mutations.On("MarkCompleted", ctx, mock.Anything, int64(8), newBalance).Return(completed, nil).Once()
		dispatcher.On("DispatchBalanceMutationCompleted", ctx, completed).Return(nil).Once()
		defer accounts.AssertExpectations(t)
		defer mutations.AssertExpectations(t)
		defer dispatcher.AssertExpectations(t)

		s := newTestBalanceService(accounts, mutations, cache.NewMemoryStore(0), dispatcher)
		mutation, err := s.Credit(ctx, 42, "receiver", amount)
		require.NoError(t, err)
		assert.Equal(t, completed, mutation)
		assert.True(t, mutation.Amount.IsPositive(), "a credit row must carry a positive amount")
	})

	t.Run("recorded mutation short-circuits and re-dispatches the result", func(t *testing.T) {
		accounts := &MockAccountStore{}
		mutations := &MockBalanceMutationStore{}
		dispatcher := &MockDispatcher{}

		existing := &data.BalanceMutation{ID: 7, ExternalID: 42, Type: data.DebitMutationType, UserID: "sender", Amount: amount.Neg(), Status: data.CompletedMutationStatus}
		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.DebitMutationType).Return(existing, nil).Once()
		dispatcher.On("DispatchBalanceMutationCompleted", ctx, existing).Return(nil).Once()
		defer mutations.AssertExpectations(t)
		defer dispatcher.AssertExpectations(t)

		s := newTestBalanceService(accounts, mutations, cache.NewMemoryStore(0), dispatcher)
		mutation, err := s.Debit(ctx, 42, "sender", amount)
		require.NoError(t, err)
		assert.Equal(t, existing, mutation)

		accounts.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything, mock.Anything)
		mutations.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient balance records a terminal failed mutation with the signed amount", func(t *testing.T) {
		accounts := &MockAccountStore{}
		mutations := &MockBalanceMutationStore{}
		dispatcher := &MockDispatcher{}

		balanceBefore := decimal.RequireFromString("10.00")
		signedAmount := amount.Neg()
		failed := &data.BalanceMutation{ID: 9, ExternalID: 42, Type: data.DebitMutationType, UserID: "sender", Amount: signedAmount, Status: data.FailedMutationStatus, BalanceBefore: &balanceBefore}

		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.DebitMutationType).Return(nil, data.ErrRecordNotFound).Once()
		accounts.On("GetForUpdate", ctx, mock.Anything, "sender").Return(&data.Account{UserID: "sender", Balance: balanceBefore}, nil).Once()
		mutations.On("InsertFailed", ctx, mock.Anything, int64(42), data.DebitMutationType, "sender", signedAmount, balanceBefore, "insufficient balance: have=10.00, need=25.00").Return(failed, nil).Once()
		dispatcher.On("DispatchBalanceMutationCompleted", ctx, failed).Return(nil).Once()
		defer accounts.AssertExpectations(t)
		defer mutations.AssertExpectations(t)
		defer dispatcher.AssertExpectations(t)

		s := newTestBalanceService(accounts, mutations, cache.NewMemoryStore(0), dispatcher)
		mutation, err := s.Debit(ctx, 42, "sender", amount)
		require.NoError(t, err)
		assert.Equal(t, data.FailedMutationStatus, mutation.Status)

		accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mutations.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user surfaces ErrAccountNotFound", func(t *testing.T) {
		accounts := &MockAccountStore{}
		mutations := &MockBalanceMutationStore{}
		dispatcher := &MockDispatcher{}

		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.DebitMutationType).Return(nil, data.ErrRecordNotFound).Once()
		accounts.On("GetForUpdate", ctx, mock.Anything, "ghost").Return(nil, data.ErrRecordNotFound).Once()
		defer accounts.AssertExpectations(t)
		defer mutations.AssertExpectations(t)

		s := newTestBalanceService(accounts, mutations, cache.NewMemoryStore(0), dispatcher)
		mutation, err := s.Debit(ctx, 42, "ghost", amount)
		assert.Nil(t, mutation)
		assert.ErrorIs(t, err, ErrAccountNotFound)

		dispatcher.AssertNotCalled(t, "DispatchBalanceMutationCompleted", mock.Anything, mock.Anything)
	})

	t.Run("racing duplicate insert falls back to the recorded row", func(t *testing.T) {
		accounts := &MockAccountStore{}
		mutations := &MockBalanceMutationStore{}
		dispatcher := &MockDispatcher{}

		balanceBefore := decimal.RequireFromString("100.00")
		existing := &data.BalanceMutation{ID: 7, ExternalID: 42, Type: data.DebitMutationType, UserID: "sender", Amount: amount.Neg(), Status: data.CompletedMutationStatus}

		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.DebitMutationType).Return(nil, data.ErrRecordNotFound).Once()
		accounts.On("GetForUpdate", ctx, mock.Anything, "sender").Return(&data.Account{UserID: "sender", Balance: balanceBefore}, nil).Once()
		mutations.On("Insert", ctx, mock.Anything, int64(42), data.DebitMutationType, "sender", amount.Neg(), balanceBefore).Return(nil, data.ErrRecordAlreadyExists).Once()
		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.DebitMutationType).Return(existing, nil).Once()
		dispatcher.On("DispatchBalanceMutationCompleted", ctx, existing).Return(nil).Once()
		defer accounts.AssertExpectations(t)
		defer mutations.AssertExpectations(t)
		defer dispatcher.AssertExpectations(t)

		s := newTestBalanceService(accounts, mutations, cache.NewMemoryStore(0), dispatcher)
		mutation, err := s.Debit(ctx, 42, "sender", amount)
		require.NoError(t, err)
		assert.Equal(t, existing, mutation)

		accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non-positive amounts are rejected before touching the database", func(t *testing.T) {
		s := newTestBalanceService(&MockAccountStore{}, &MockBalanceMutationStore{}, cache.NewMemoryStore(0), &MockDispatcher{})

		_, err := s.Debit(ctx, 42, "sender", decimal.Zero)
		assert.EqualError(t, err, "mutation amount must be positive, got 0")

		_, err = s.Credit(ctx, 42, "receiver", decimal.RequireFromString("-1.00"))
		assert.EqualError(t, err, "mutation amount must be positive, got -1.00")
	})

	t.Run("database errors inside the transaction propagate", func(t *testing.T) {
		accounts := &MockAccountStore{}
		mutations := &MockBalanceMutationStore{}
		dispatcher := &MockDispatcher{}

		mutations.On("GetByExternalID", ctx, mock.Anything, int64(42), data.CreditMutationType).Return(nil, data.ErrRecordNotFound).Once()
		accounts.On("GetForUpdate", ctx, mock.Anything, "receiver").Return(nil, errors.New("connection reset")).Once()
		defer accounts.AssertExpectations(t)
		defer mutations.AssertExpectations(t)

		s := newTestBalanceService(accounts, mutations, cache.NewMemoryStore(0), dispatcher)
		_, err := s.Credit(ctx, 42, "receiver", amount)
		require.Error(t, err)
		assert.ErrorContains(t, err, "locking account receiver")
	})
}

func Test_BalanceService_GetBalance(t *testing.T) {
	ctx := context.Background()
	balance := decimal.RequireFromString("100.00")

	t.Run("cache hit skips the database", func(t *testing.T) {
		accounts := &MockAccountStore{}
		cacheStore := cache.NewMemoryStore(0)
		require.NoError(t, cacheStore.SetBalance(ctx, "sender", balance))

		s := newTestBalanceService(accounts, &MockBalanceMutationStore{}, cacheStore, &MockDispatcher{})
		got, err := s.GetBalance(ctx, "sender")
		require.NoError(t, err)
		assert.True(t, got.Equal(balance))

		accounts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache miss reads the database and fills the cache", func(t *testing.T) {
		accounts := &MockAccountStore{}
		accounts.On("Get", ctx, mock.Anything, "sender").Return(&data.Account{UserID: "sender", Balance: balance}, nil).Once()
		defer accounts.AssertExpectations(t)

		cacheStore := cache.NewMemoryStore(0)
		s := newTestBalanceService(accounts, &MockBalanceMutationStore{}, cacheStore, &MockDispatcher{})
		got, err := s.GetBalance(ctx, "sender")
		require.NoError(t, err)
		assert.True(t, got.Equal(balance))

		cached, found, err := cacheStore.GetBalance(ctx, "sender")
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, cached.Equal(balance))
	})

	t.Run("unknown user surfaces ErrAccountNotFound", func(t *testing.T) {
		accounts := &MockAccountStore{}
		accounts.On("Get", ctx, mock.Anything, "ghost").Return(nil, data.ErrRecordNotFound).Once()
		defer accounts.AssertExpectations(t)

		s := newTestBalanceService(accounts, &MockBalanceMutationStore{}, cache.NewMemoryStore(0), &MockDispatcher{})
		_, err := s.GetBalance(ctx, "ghost")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}
