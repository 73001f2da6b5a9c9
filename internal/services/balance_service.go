package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/db"
	"github.com/ledgerline/transfer-engine-backend/internal/cache"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
)

// BalanceServiceInterface is the idempotent balance mutator. Debit and Credit are safe to
// call any number of times with the same (externalID, type): the first call moves money and
// every later call short-circuits to the recorded outcome, re-emitting the result event.
type BalanceServiceInterface interface {
	Debit(ctx context.Context, externalID int64, userID string, amount decimal.Decimal) (*data.BalanceMutation, error)
	Credit(ctx context.Context, externalID int64, userID string, amount decimal.Decimal) (*data.BalanceMutation, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	AccountExists(ctx context.Context, userID string) (bool, error)
}

type accountStore interface {
	Get(ctx context.Context, sqlExec db.SQLExecuter, userID string) (*data.Account, error)
	GetForUpdate(ctx context.Context, dbTx db.DBTransaction, userID string) (*data.Account, error)
	UpdateBalance(ctx context.Context, dbTx db.DBTransaction, userID string, newBalance decimal.Decimal) error
}

type balanceMutationStore interface {
	GetByExternalID(ctx context.Context, sqlExec db.SQLExecuter, externalID int64, mutationType data.MutationType) (*data.BalanceMutation, error)
	Insert(ctx context.Context, dbTx db.DBTransaction, externalID int64, mutationType data.MutationType, userID string, amount, balanceBefore decimal.Decimal) (*data.BalanceMutation, error)
	InsertFailed(ctx context.Context, dbTx db.DBTransaction, externalID int64, mutationType data.MutationType, userID string, amount, balanceBefore decimal.Decimal, failureReason string) (*data.BalanceMutation, error)
	MarkCompleted(ctx context.Context, dbTx db.DBTransaction, id int64, balanceAfter decimal.Decimal) (*data.BalanceMutation, error)
}

var (
	_ accountStore         = (*data.AccountModel)(nil)
	_ balanceMutationStore = (*data.BalanceMutationModel)(nil)
)

type postCommitTxRunner func(ctx context.Context, dbConnectionPool db.DBConnectionPool, opts *sql.TxOptions, fn db.AtomicFunctionWithPostCommit) error

type BalanceService struct {
	dbConnectionPool db.DBConnectionPool
	accounts         accountStore
	mutations        balanceMutationStore
	cacheStore       cache.Store
	dispatcher       DispatcherInterface
	runInTx          postCommitTxRunner
}

var _ BalanceServiceInterface = (*BalanceService)(nil)

func NewBalanceService(models *data.Models, cacheStore cache.Store, dispatcher DispatcherInterface) *BalanceService {
	return &BalanceService{
		dbConnectionPool: models.DBConnectionPool,
		accounts:         models.Accounts,
		mutations:        models.BalanceMutations,
		cacheStore:       cacheStore,
		dispatcher:       dispatcher,
		runInTx:          db.RunInTransactionWithPostCommit,
	}
}

// Debit removes amount from userID's balance, fenced by (externalID, DEBIT). An insufficient
// balance produces a terminal FAILED mutation, not an error: the caller learns the outcome
// from the returned row.
func (s *BalanceService) Debit(ctx context.Context, externalID int64, userID string, amount decimal.Decimal) (*data.BalanceMutation, error) {
	return s.applyMutation(ctx, externalID, data.DebitMutationType, userID, amount)
}

// Credit adds amount to userID's balance, fenced by (externalID, CREDIT).
func (s *BalanceService) Credit(ctx context.Context, externalID int64, userID string, amount decimal.Decimal) (*data.BalanceMutation, error) {
	return s.applyMutation(ctx, externalID, data.CreditMutationType, userID, amount)
}

func (s *BalanceService) applyMutation(ctx context.Context, externalID int64, mutationType data.MutationType, userID string, amount decimal.Decimal) (*data.BalanceMutation, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, fmt.Errorf("mutation amount must be positive, got %s", amount)
	}

	// Idempotency short-circuit: a row for this (externalID, type) means the effect already
	// happened (or terminally failed). Re-dispatch so a lost result message gets re-emitted.
	existing, err := s.mutations.GetByExternalID(ctx, s.dbConnectionPool, externalID, mutationType)
	if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
		return nil, fmt.Errorf("looking up mutation (%d, %s): %w", externalID, mutationType, err)
	}
	if existing != nil {
		log.Ctx(ctx).Infof("mutation (%d, %s) already recorded with status %s, short-circuiting", externalID, mutationType, existing.Status)
		return existing, s.dispatcher.DispatchBalanceMutationCompleted(ctx, existing)
	}

	// Ledger rows carry the signed movement: debits negative, credits positive.
	signedAmount := s.signedAmount(mutationType, amount)

	var mutation *data.BalanceMutation
	err = s.runInTx(ctx, s.dbConnectionPool, nil, func(dbTx db.DBTransaction) (db.PostCommitFunction, error) {
		account, accErr := s.accounts.GetForUpdate(ctx, dbTx, userID)
		if accErr != nil {
			if errors.Is(accErr, data.ErrRecordNotFound) {
				return nil, fmt.Errorf("applying mutation (%d, %s): %w", externalID, mutationType, ErrAccountNotFound)
			}
			return nil, fmt.Errorf("locking account %s: %w", userID, accErr)
		}

		if mutationType == data.DebitMutationType && account.Balance.LessThan(amount) {
			reason := fmt.Sprintf("insufficient balance: have=%s, need=%s", account.Balance.StringFixed(2), amount.StringFixed(2))
			failed, insErr := s.mutations.InsertFailed(ctx, dbTx, externalID, mutationType, userID, signedAmount, account.Balance, reason)
			if insErr != nil {
				return nil, insErr
			}
			mutation = failed
			return func() error {
				return s.dispatcher.DispatchBalanceMutationCompleted(ctx, mutation)
			}, nil
		}

		inserted, insErr := s.mutations.Insert(ctx, dbTx, externalID, mutationType, userID, signedAmount, account.Balance)
		if insErr != nil {
			return nil, insErr
		}

		newBalance := account.Balance.Add(signedAmount)
		if updErr := s.accounts.UpdateBalance(ctx, dbTx, userID, newBalance); updErr != nil {
			return nil, updErr
		}

		completed, cmpErr := s.mutations.MarkCompleted(ctx, dbTx, inserted.ID, newBalance)
		if cmpErr != nil {
			return nil, cmpErr
		}
		mutation = completed

		return func() error {
			return s.dispatcher.DispatchBalanceMutationCompleted(ctx, mutation)
		}, nil
	})
	if err != nil {
		// A racing consumer inserted the fence row between our lookup and our insert. The
		// other writer owns the effect; fall back to the short-circuit path.
		if errors.Is(err, data.ErrRecordAlreadyExists) {
			existing, lookupErr := s.mutations.GetByExternalID(ctx, s.dbConnectionPool, externalID, mutationType)
			if lookupErr != nil {
				return nil, fmt.Errorf("looking up mutation (%d, %s) after duplicate insert: %w", externalID, mutationType, lookupErr)
			}
			log.Ctx(ctx).Warnf("mutation (%d, %s) raced a concurrent writer, short-circuiting", externalID, mutationType)
			return existing, s.dispatcher.DispatchBalanceMutationCompleted(ctx, existing)
		}
		return nil, err
	}

	return mutation, nil
}

func (s *BalanceService) signedAmount(mutationType data.MutationType, amount decimal.Decimal) decimal.Decimal {
	if mutationType == data.DebitMutationType {
		return amount.Neg()
	}
	return amount
}

// GetBalance reads the user's balance through the cache. Cache failures degrade to the
// database, never to an error.
func (s *BalanceService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	balance, found, err := s.cacheStore.GetBalance(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Errorf("reading cached balance for %s: %s", userID, err.Error())
	} else if found {
		return balance, nil
	}

	account, err := s.accounts.Get(ctx, s.dbConnectionPool, userID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("getting account %s: %w", userID, err)
	}

	if err = s.cacheStore.SetBalance(ctx, userID, account.Balance); err != nil {
		log.Ctx(ctx).Errorf("caching balance for %s: %s", userID, err.Error())
	}

	return account.Balance, nil
}

// AccountExists reports whether userID has an account, without disturbing the cache.
func (s *BalanceService) AccountExists(ctx context.Context, userID string) (bool, error) {
	_, err := s.accounts.Get(ctx, s.dbConnectionPool, userID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("getting account %s: %w", userID, err)
	}
	return true, nil
}
