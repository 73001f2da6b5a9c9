package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/transfer-engine-backend/db"
)

// Account is the authoritative balance record for a user. The balance column carries a
// non-negative check constraint and is only ever mutated through UpdateBalance, which bumps
// the version counter on every write.
type Account struct {
	UserID    string          `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Version   int64           `json:"-" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type AccountModel struct {
	dbConnectionPool db.DBConnectionPool
}

// Insert creates a new account with the given initial balance. Returns
// ErrRecordAlreadyExists when the user id is taken.
func (m *AccountModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, userID string, initialBalance decimal.Decimal) (*Account, error) {
	const query = `
		INSERT INTO user_accounts (user_id, balance)
		VALUES ($1, $2)
		RETURNING user_id, balance, version, created_at
	`

	var account Account
	err := sqlExec.GetContext(ctx, &account, query, userID, initialBalance)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting account %s: %w", userID, err)
	}

	return &account, nil
}

// Get returns the account for userID, or ErrRecordNotFound.
func (m *AccountModel) Get(ctx context.Context, sqlExec db.SQLExecuter, userID string) (*Account, error) {
	const query = `
		SELECT user_id, balance, version, created_at
		FROM user_accounts
		WHERE user_id = $1
	`

	var account Account
	err := sqlExec.GetContext(ctx, &account, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", userID, err)
	}

	return &account, nil
}

// GetForUpdate returns the account for userID while holding a row-level write lock for the
// remainder of dbTx. Every balance read that precedes a write must go through here.
func (m *AccountModel) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, userID string) (*Account, error) {
	const query = `
		SELECT user_id, balance, version, created_at
		FROM user_accounts
		WHERE user_id = $1
		FOR UPDATE
	`

	var account Account
	err := dbTx.GetContext(ctx, &account, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting account %s for update: %w", userID, err)
	}

	return &account, nil
}

// UpdateBalance sets the account balance and bumps the version. The caller must hold the row
// lock acquired through GetForUpdate in the same transaction.
func (m *AccountModel) UpdateBalance(ctx context.Context, dbTx db.DBTransaction, userID string, newBalance decimal.Decimal) error {
	const query = `
		UPDATE user_accounts
		SET balance = $2, version = version + 1
		WHERE user_id = $1
	`

	result, err := dbTx.ExecContext(ctx, query, userID, newBalance)
	if err != nil {
		return fmt.Errorf("updating balance of account %s: %w", userID, err)
	}

	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected != 1 {
		return ErrMismatchNumRowsAffected
	}

	return nil
}
