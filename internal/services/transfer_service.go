package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/transfer-engine-backend/db"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/utils"
)

const (
	// CancellationWindow is how long after creation a PENDING transfer can still be cancelled.
	CancellationWindow = 10 * time.Minute

	maxFailureReasonLength = 255
)

// TransferServiceInterface is the transfer state engine. Every transition runs in its own
// transaction under a row lock and re-validates the edge against the current status, so racing
// writers serialize and at most one of them commits a given transition.
type TransferServiceInterface interface {
	Create(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal) (*data.Transfer, error)
	Get(ctx context.Context, id int64) (*data.Transfer, error)
	Cancel(ctx context.Context, id int64) (*data.Transfer, error)
	MarkDebitProcessing(ctx context.Context, id int64) (*data.Transfer, error)
	MarkCreditProcessing(ctx context.Context, id int64) (*data.Transfer, error)
	HandleDebitSuccess(ctx context.Context, id int64) (*data.Transfer, error)
	HandleDebitFailure(ctx context.Context, id int64, reason string) (*data.Transfer, error)
	Complete(ctx context.Context, id int64) (*data.Transfer, error)
	TouchUpdatedAt(ctx context.Context, id int64) error
	GetPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]data.Transfer, error)
	GetInFlightStaleThan(ctx context.Context, status data.TransferStatus, cutoff time.Time, limit int) ([]data.Transfer, error)
	GetHistory(ctx context.Context, userID string, page, size int) ([]data.Transfer, int64, error)
}

type TransferService struct {
	models     *data.Models
	dispatcher DispatcherInterface
}

var _ TransferServiceInterface = (*TransferService)(nil)

func NewTransferService(models *data.Models, dispatcher DispatcherInterface) *TransferService {
	return &TransferService{
		models:     models,
		dispatcher: dispatcher,
	}
}

// Create persists a new PENDING transfer. Validation of the participants is the caller's
// concern; this only enforces the structural invariants.
func (s *TransferService) Create(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal) (*data.Transfer, error) {
	if fromUserID == toUserID {
		return nil, ErrSameAccountTransfer
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, fmt.Errorf("transfer amount must be positive, got %s", amount)
	}

	transfer, err := s.models.Transfers.Insert(ctx, s.models.DBConnectionPool, fromUserID, toUserID, amount)
	if err != nil {
		return nil, fmt.Errorf("creating transfer: %w", err)
	}

	if err = s.dispatcher.DispatchTransferStatusChanged(ctx, transfer, ""); err != nil {
		return nil, fmt.Errorf("dispatching creation of transfer %d: %w", transfer.ID, err)
	}

	return transfer, nil
}

func (s *TransferService) Get(ctx context.Context, id int64) (*data.Transfer, error) {
	transfer, err := s.models.Transfers.Get(ctx, s.models.DBConnectionPool, id)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return transfer, nil
}

// Cancel moves a PENDING transfer to CANCELLED. The transfer must still be inside the
// cancellation window; past it the request is rejected even when the row is still PENDING,
// because the pending sweep may pick it up at any moment. The window is measured on the
// database clock, the same clock that stamped created_at, so app-server skew cannot widen or
// shrink it.
func (s *TransferService) Cancel(ctx context.Context, id int64) (*data.Transfer, error) {
	return s.transition(ctx, id, data.CancelledTransferStatus, func(dbTx db.DBTransaction, current *data.Transfer) (data.TransferUpdate, error) {
		var now time.Time
		if err := dbTx.GetContext(ctx, &now, "SELECT NOW()"); err != nil {
			return data.TransferUpdate{}, fmt.Errorf("reading database time: %w", err)
		}
		if cancellationWindowExpired(now, current.CreatedAt) {
			return data.TransferUpdate{}, ErrCancellationWindowExpired
		}
		return data.TransferUpdate{
			Status:      data.CancelledTransferStatus,
			CancelledAt: utils.TimePtr(now.UTC()),
		}, nil
	})
}

func cancellationWindowExpired(now, createdAt time.Time) bool {
	return now.Sub(createdAt) > CancellationWindow
}

// MarkDebitProcessing claims a PENDING transfer for processing. The post-commit dispatch
// publishes the debit request.
func (s *TransferService) MarkDebitProcessing(ctx context.Context, id int64) (*data.Transfer, error) {
	return s.transition(ctx, id, data.DebitProcessingTransferStatus, func(db.DBTransaction, *data.Transfer) (data.TransferUpdate, error) {
		return data.TransferUpdate{Status: data.DebitProcessingTransferStatus}, nil
	})
}

// MarkCreditProcessing advances a debited transfer towards the receiver's credit. The
// post-commit dispatch publishes the credit request.
func (s *TransferService) MarkCreditProcessing(ctx context.Context, id int64) (*data.Transfer, error) {
	return s.transition(ctx, id, data.CreditProcessingTransferStatus, func(db.DBTransaction, *data.Transfer) (data.TransferUpdate, error) {
		return data.TransferUpdate{Status: data.CreditProcessingTransferStatus}, nil
	})
}

// HandleDebitSuccess reacts to a successful sender debit.
func (s *TransferService) HandleDebitSuccess(ctx context.Context, id int64) (*data.Transfer, error) {
	return s.MarkCreditProcessing(ctx, id)
}

// HandleDebitFailure terminates the transfer as DEBIT_FAILED, recording why. No money moved,
// so there is nothing to compensate.
func (s *TransferService) HandleDebitFailure(ctx context.Context, id int64, reason string) (*data.Transfer, error) {
	return s.transition(ctx, id, data.DebitFailedTransferStatus, func(db.DBTransaction, *data.Transfer) (data.TransferUpdate, error) {
		return data.TransferUpdate{
			Status:        data.DebitFailedTransferStatus,
			FailureReason: utils.StringPtr(utils.TruncateString(reason, maxFailureReasonLength)),
		}, nil
	})
}

// Complete terminates the transfer as COMPLETED after the receiver's credit settled.
func (s *TransferService) Complete(ctx context.Context, id int64) (*data.Transfer, error) {
	return s.transition(ctx, id, data.CompletedTransferStatus, func(db.DBTransaction, *data.Transfer) (data.TransferUpdate, error) {
		return data.TransferUpdate{
			Status:      data.CompletedTransferStatus,
			CompletedAt: utils.TimePtr(time.Now().UTC()),
		}, nil
	})
}

// transition is the single write path for status changes: lock the row, re-check the edge
// against the live status, write, and only after commit hand the change to the dispatcher.
func (s *TransferService) transition(ctx context.Context, id int64, target data.TransferStatus, buildUpdate func(dbTx db.DBTransaction, current *data.Transfer) (data.TransferUpdate, error)) (*data.Transfer, error) {
	var transfer *data.Transfer
	err := db.RunInTransactionWithPostCommit(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (db.PostCommitFunction, error) {
		current, err := s.models.Transfers.GetForUpdate(ctx, dbTx, id)
		if err != nil {
			if errors.Is(err, data.ErrRecordNotFound) {
				return nil, ErrTransferNotFound
			}
			return nil, err
		}

		if err = current.Status.TransitionTo(target); err != nil {
			return nil, fmt.Errorf("transfer %d cannot go from %s to %s: %w", id, current.Status, target, ErrInvalidTransferState)
		}

		update, err := buildUpdate(dbTx, current)
		if err != nil {
			return nil, err
		}

		updated, err := s.models.Transfers.UpdateStatus(ctx, dbTx, id, update)
		if err != nil {
			return nil, err
		}
		transfer = updated

		oldStatus := current.Status
		return func() error {
			return s.dispatcher.DispatchTransferStatusChanged(ctx, transfer, oldStatus)
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return transfer, nil
}

func (s *TransferService) TouchUpdatedAt(ctx context.Context, id int64) error {
	return s.models.Transfers.TouchUpdatedAt(ctx, s.models.DBConnectionPool, id)
}

func (s *TransferService) GetPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]data.Transfer, error) {
	return s.models.Transfers.GetPendingOlderThan(ctx, s.models.DBConnectionPool, cutoff, limit)
}

func (s *TransferService) GetInFlightStaleThan(ctx context.Context, status data.TransferStatus, cutoff time.Time, limit int) ([]data.Transfer, error) {
	return s.models.Transfers.GetInFlightStaleThan(ctx, s.models.DBConnectionPool, status, cutoff, limit)
}

// GetHistory returns one page of the user's transfers, newest first, plus the total count.
func (s *TransferService) GetHistory(ctx context.Context, userID string, page, size int) ([]data.Transfer, int64, error) {
	transfers, err := s.models.Transfers.GetHistory(ctx, s.models.DBConnectionPool, userID, page, size)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.models.Transfers.CountHistory(ctx, s.models.DBConnectionPool, userID)
	if err != nil {
		return nil, 0, err
	}

	return transfers, total, nil
}
