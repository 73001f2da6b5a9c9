package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/transfer-engine-backend/db"
)

type MutationType string

const (
	DebitMutationType  MutationType = "DEBIT"
	CreditMutationType MutationType = "CREDIT"
	RefundMutationType MutationType = "REFUND"
)

// Validate validates the mutation type
func (t MutationType) Validate() error {
	switch MutationType(strings.ToUpper(string(t))) {
	case DebitMutationType, CreditMutationType, RefundMutationType:
		return nil
	default:
		return fmt.Errorf("invalid mutation type: %s", t)
	}
}

type MutationStatus string

const (
	ProcessingMutationStatus MutationStatus = "PROCESSING"
	CompletedMutationStatus  MutationStatus = "COMPLETED"
	FailedMutationStatus     MutationStatus = "FAILED"
)

const balanceMutationColumns = `
	id,
	external_id,
	type,
	user_id,
	amount,
	status,
	balance_before,
	balance_after,
	created_at,
	completed_at,
	failure_reason
`

// BalanceMutation is the idempotency ledger row for one debit or credit. The unique
// (external_id, type) index is the fence that makes redelivered balance-change requests
// collapse onto a single effect.
type BalanceMutation struct {
	ID            int64            `json:"id" db:"id"`
	ExternalID    int64            `json:"external_id" db:"external_id"`
	Type          MutationType     `json:"type" db:"type"`
	UserID        string           `json:"user_id" db:"user_id"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	Status        MutationStatus   `json:"status" db:"status"`
	BalanceBefore *decimal.Decimal `json:"balance_before,omitempty" db:"balance_before"`
	BalanceAfter  *decimal.Decimal `json:"balance_after,omitempty" db:"balance_after"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	FailureReason *string          `json:"failure_reason,omitempty" db:"failure_reason"`
}

// Succeeded reports whether the mutation reached COMPLETED.
func (bm *BalanceMutation) Succeeded() bool {
	return bm.Status == CompletedMutationStatus
}

type BalanceMutationModel struct {
	dbConnectionPool db.DBConnectionPool
}

// GetByExternalID returns the mutation keyed by (externalID, mutationType), or
// ErrRecordNotFound. This is the idempotency lookup; any terminal or in-progress row counts.
func (m *BalanceMutationModel) GetByExternalID(ctx context.Context, sqlExec db.SQLExecuter, externalID int64, mutationType MutationType) (*BalanceMutation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM balance_mutations
		WHERE external_id = $1 AND type = $2
	`, balanceMutationColumns)

	var mutation BalanceMutation
	err := sqlExec.GetContext(ctx, &mutation, query, externalID, mutationType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting mutation (%d, %s): %w", externalID, mutationType, err)
	}

	return &mutation, nil
}

// Insert creates a PROCESSING mutation with balance_before set. A racing duplicate on the
// (external_id, type) unique index surfaces as ErrRecordAlreadyExists so the caller can fall
// back to the idempotency short-circuit.
func (m *BalanceMutationModel) Insert(ctx context.Context, dbTx db.DBTransaction, externalID int64, mutationType MutationType, userID string, amount, balanceBefore decimal.Decimal) (*BalanceMutation, error) {
	query := fmt.Sprintf(`
		INSERT INTO balance_mutations (external_id, type, user_id, amount, status, balance_before)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, balanceMutationColumns)

	var mutation BalanceMutation
	err := dbTx.GetContext(ctx, &mutation, query, externalID, mutationType, userID, amount, ProcessingMutationStatus, balanceBefore)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting mutation (%d, %s): %w", externalID, mutationType, err)
	}

	return &mutation, nil
}

// InsertFailed records a precondition failure (insufficient balance) as a terminal FAILED row
// with no balance movement.
func (m *BalanceMutationModel) InsertFailed(ctx context.Context, dbTx db.DBTransaction, externalID int64, mutationType MutationType, userID string, amount, balanceBefore decimal.Decimal, failureReason string) (*BalanceMutation, error) {
	query := fmt.Sprintf(`
		INSERT INTO balance_mutations (external_id, type, user_id, amount, status, balance_before, completed_at, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		RETURNING %s
	`, balanceMutationColumns)

	var mutation BalanceMutation
	err := dbTx.GetContext(ctx, &mutation, query, externalID, mutationType, userID, amount, FailedMutationStatus, balanceBefore, failureReason)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting failed mutation (%d, %s): %w", externalID, mutationType, err)
	}

	return &mutation, nil
}

// MarkCompleted transitions the mutation to COMPLETED with balance_after, inside the same
// transaction that moved the account balance.
func (m *BalanceMutationModel) MarkCompleted(ctx context.Context, dbTx db.DBTransaction, id int64, balanceAfter decimal.Decimal) (*BalanceMutation, error) {
	query := fmt.Sprintf(`
		UPDATE balance_mutations
		SET status = $2, balance_after = $3, completed_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, balanceMutationColumns)

	var mutation BalanceMutation
	err := dbTx.GetContext(ctx, &mutation, query, id, CompletedMutationStatus, balanceAfter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("completing mutation %d: %w", id, err)
	}

	return &mutation, nil
}
