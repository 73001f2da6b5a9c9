package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ledgerline/transfer-engine-backend/db"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
)

type MockDispatcher struct {
	mock.Mock
}

var _ DispatcherInterface = (*MockDispatcher)(nil)

func (m *MockDispatcher) DispatchBalanceMutationCompleted(ctx context.Context, mutation *data.BalanceMutation) error {
	args := m.Called(ctx, mutation)
	return args.Error(0)
}

func (m *MockDispatcher) DispatchTransferStatusChanged(ctx context.Context, transfer *data.Transfer, oldStatus data.TransferStatus) error {
	args := m.Called(ctx, transfer, oldStatus)
	return args.Error(0)
}

type MockBalanceService struct {
	mock.Mock
}

var _ BalanceServiceInterface = (*MockBalanceService)(nil)

func (m *MockBalanceService) Debit(ctx context.Context, externalID int64, userID string, amount decimal.Decimal) (*data.BalanceMutation, error) {
	args := m.Called(ctx, externalID, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BalanceMutation), args.Error(1)
}

func (m *MockBalanceService) Credit(ctx context.Context, externalID int64, userID string, amount decimal.Decimal) (*data.BalanceMutation, error) {
	args := m.Called(ctx, externalID, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BalanceMutation), args.Error(1)
}

func (m *MockBalanceService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBalanceService) AccountExists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockTransferService struct {
	mock.Mock
}

var _ TransferServiceInterface = (*MockTransferService)(nil)

func (m *MockTransferService) Create(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal) (*data.Transfer, error) {
	args := m.Called(ctx, fromUserID, toUserID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) Get(ctx context.Context, id int64) (*data.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) Cancel(ctx context.Context, id int64) (*data.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) MarkDebitProcessing(ctx context.Context, id int64) (*data.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) MarkCreditProcessing(ctx context.Context, id int64) (*data.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) HandleDebitSuccess(ctx context.Context, id int64) (*data.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) HandleDebitFailure(ctx context.Context, id int64, reason string) (*data.Transfer, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) Complete(ctx context.Context, id int64) (*data.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transfer), args.Error(1)
}

func (m *MockTransferService) TouchUpdatedAt(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTransferService) GetPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]data.Transfer, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.Transfer), args.Error(1)
}

func (m *MockTransferService) GetInFlightStaleThan(ctx context.Context, status data.TransferStatus, cutoff time.Time, limit int) ([]data.Transfer, error) {
	args := m.Called(ctx, status, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.Transfer), args.Error(1)
}

func (m *MockTransferService) GetHistory(ctx context.Context, userID string, page, size int) ([]data.Transfer, int64, error) {
	args := m.Called(ctx, userID, page, size)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]data.Transfer), args.Get(1).(int64), args.Error(2)
}

type MockAccountStore struct {
	mock.Mock
}

var _ accountStore = (*MockAccountStore)(nil)

func (m *MockAccountStore) Get(ctx context.Context, sqlExec db.SQLExecuter, userID string) (*data.Account, error) {
	args := m.Called(ctx, sqlExec, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Account), args.Error(1)
}

func (m *MockAccountStore) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, userID string) (*data.Account, error) {
	args := m.Called(ctx, dbTx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Account), args.Error(1)
}

func (m *MockAccountStore) UpdateBalance(ctx context.Context, dbTx db.DBTransaction, userID string, newBalance decimal.Decimal) error {
	args := m.Called(ctx, dbTx, userID, newBalance)
	return args.Error(0)
}

type MockBalanceMutationStore struct {
	mock.Mock
}

var _ balanceMutationStore = (*MockBalanceMutationStore)(nil)

func (m *MockBalanceMutationStore) GetByExternalID(ctx context.Context, sqlExec db.SQLExecuter, externalID int64, mutationType data.MutationType) (*data.BalanceMutation, error) {
	args := m.Called(ctx, sqlExec, externalID, mutationType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BalanceMutation), args.Error(1)
}

func (m *MockBalanceMutationStore) Insert(ctx context.Context, dbTx db.DBTransaction, externalID int64, mutationType data.MutationType, userID string, amount, balanceBefore decimal.Decimal) (*data.BalanceMutation, error) {
	args := m.Called(ctx, dbTx, externalID, mutationType, userID, amount, balanceBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BalanceMutation), args.Error(1)
}

func (m *MockBalanceMutationStore) InsertFailed(ctx context.Context, dbTx db.DBTransaction, externalID int64, mutationType data.MutationType, userID string, amount, balanceBefore decimal.Decimal, failureReason string) (*data.BalanceMutation, error) {
	args := m.Called(ctx, dbTx, externalID, mutationType, userID, amount, balanceBefore, failureReason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BalanceMutation), args.Error(1)
}

func (m *MockBalanceMutationStore) MarkCompleted(ctx context.Context, dbTx db.DBTransaction, id int64, balanceAfter decimal.Decimal) (*data.BalanceMutation, error) {
	args := m.Called(ctx, dbTx, id, balanceAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BalanceMutation), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

var _ UserServiceInterface = (*MockUserService)(nil)

func (m *MockUserService) CreateAccount(ctx context.Context, userID string, initialBalance decimal.Decimal) (*data.Account, error) {
	args := m.Called(ctx, userID, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Account), args.Error(1)
}

func (m *MockUserService) GetAccount(ctx context.Context, userID string) (*data.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Account), args.Error(1)
}
