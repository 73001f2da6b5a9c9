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

const transferColumns = `
	id,
	from_user_id,
	to_user_id,
	amount,
	status,
	created_at,
	updated_at,
	completed_at,
	cancelled_at,
	failure_reason
`

// Transfer is the persistent state machine row for one logical money movement. A transfer is
// created PENDING and advances through the edges in transfers_state_machine.go; it is never
// deleted.
type Transfer struct {
	ID            int64           `json:"id" db:"id"`
	FromUserID    string          `json:"from_user_id" db:"from_user_id"`
	ToUserID      string          `json:"to_user_id" db:"to_user_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        TransferStatus  `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	FailureReason *string         `json:"failure_reason,omitempty" db:"failure_reason"`
}

type TransferModel struct {
	dbConnectionPool db.DBConnectionPool
}

// TransferUpdate carries the mutable columns of a status transition. Terminal payload fields
// are only set on the transition that makes them meaningful.
type TransferUpdate struct {
	Status        TransferStatus
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	FailureReason *string
}

// Insert persists a new PENDING transfer.
func (m *TransferModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, fromUserID, toUserID string, amount decimal.Decimal) (*Transfer, error) {
	query := fmt.Sprintf(`
		INSERT INTO transfers (from_user_id, to_user_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, transferColumns)

	var transfer Transfer
	err := sqlExec.GetContext(ctx, &transfer, query, fromUserID, toUserID, amount, PendingTransferStatus)
	if err != nil {
		return nil, fmt.Errorf("inserting transfer %s->%s: %w", fromUserID, toUserID, err)
	}

	return &transfer, nil
}

// Get returns the transfer with the given id, or ErrRecordNotFound.
func (m *TransferModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id int64) (*Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE id = $1`, transferColumns)

	var transfer Transfer
	err := sqlExec.GetContext(ctx, &transfer, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting transfer %d: %w", id, err)
	}

	return &transfer, nil
}

// GetForUpdate returns the transfer while holding a row-level write lock for the remainder of
// dbTx. State transitions must read the current status through here so racing writers
// serialize on the row.
func (m *TransferModel) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, id int64) (*Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE id = $1 FOR UPDATE`, transferColumns)

	var transfer Transfer
	err := dbTx.GetContext(ctx, &transfer, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting transfer %d for update: %w", id, err)
	}

	return &transfer, nil
}

// UpdateStatus writes the new status together with the terminal payload columns and refreshes
// updated_at. Transition legality is the caller's responsibility; the caller must hold the
// row lock from GetForUpdate in the same transaction.
func (m *TransferModel) UpdateStatus(ctx context.Context, dbTx db.DBTransaction, id int64, update TransferUpdate) (*Transfer, error) {
	if err := update.Status.Validate(); err != nil {
		return nil, fmt.Errorf("validating target status: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE transfers
		SET
			status = $2,
			updated_at = NOW(),
			completed_at = COALESCE($3, completed_at),
			cancelled_at = COALESCE($4, cancelled_at),
			failure_reason = COALESCE($5, failure_reason)
		WHERE id = $1
		RETURNING %s
	`, transferColumns)

	var transfer Transfer
	err := dbTx.GetContext(ctx, &transfer, query, id, update.Status, update.CompletedAt, update.CancelledAt, update.FailureReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("updating status of transfer %d: %w", id, err)
	}

	return &transfer, nil
}

// TouchUpdatedAt refreshes updated_at so the stale-transfer sweep does not immediately
// re-scan a row it has just re-driven.
func (m *TransferModel) TouchUpdatedAt(ctx context.Context, sqlExec db.SQLExecuter, id int64) error {
	const query = `UPDATE transfers SET updated_at = NOW() WHERE id = $1`

	result, err := sqlExec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touching updated_at of transfer %d: %w", id, err)
	}

	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected != 1 {
		return ErrRecordNotFound
	}

	return nil
}

// GetPendingOlderThan returns up to limit PENDING transfers created before cutoff, oldest
// first. Served by the (status, created_at) index.
func (m *TransferModel) GetPendingOlderThan(ctx context.Context, sqlExec db.SQLExecuter, cutoff time.Time, limit int) ([]Transfer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM transfers
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`, transferColumns)

	transfers := []Transfer{}
	err := sqlExec.SelectContext(ctx, &transfers, query, PendingTransferStatus, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("getting pending transfers older than %s: %w", cutoff, err)
	}

	return transfers, nil
}

// GetInFlightStaleThan returns up to limit transfers in the given in-flight status whose
// updated_at predates cutoff, oldest first. Served by the (status, updated_at) index.
func (m *TransferModel) GetInFlightStaleThan(ctx context.Context, sqlExec db.SQLExecuter, status TransferStatus, cutoff time.Time, limit int) ([]Transfer, error) {
	if !status.IsInFlight() {
		return nil, fmt.Errorf("status %s is not an in-flight status", status)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM transfers
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`, transferColumns)

	transfers := []Transfer{}
	err := sqlExec.SelectContext(ctx, &transfers, query, status, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("getting stale %s transfers: %w", status, err)
	}

	return transfers, nil
}

// GetHistory returns the page of transfers where userID is sender or receiver, newest first.
// page is 0-based.
func (m *TransferModel) GetHistory(ctx context.Context, sqlExec db.SQLExecuter, userID string, page, size int) ([]Transfer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM transfers
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, transferColumns)

	transfers := []Transfer{}
	err := sqlExec.SelectContext(ctx, &transfers, query, userID, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("getting transfer history of %s: %w", userID, err)
	}

	return transfers, nil
}

// CountHistory returns the total number of transfers where userID is sender or receiver.
func (m *TransferModel) CountHistory(ctx context.Context, sqlExec db.SQLExecuter, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM transfers WHERE from_user_id = $1 OR to_user_id = $1`

	var total int64
	err := sqlExec.GetContext(ctx, &total, query, userID)
	if err != nil {
		return 0, fmt.Errorf("counting transfer history of %s: %w", userID, err)
	}

	return total, nil
}
