package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/events/schemas"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
)

// TransferOrchestrator glues the transfer state engine and the balance mutator together: it
// serves the synchronous API operations, consumes both topics, and runs the sweeps that keep
// transfers moving when a message goes missing.
type TransferOrchestrator struct {
	transferService TransferServiceInterface
	balanceService  BalanceServiceInterface
	producer        events.Producer
	monitorService  monitor.MonitorServiceInterface
}

func NewTransferOrchestrator(transferService TransferServiceInterface, balanceService BalanceServiceInterface, producer events.Producer, monitorService monitor.MonitorServiceInterface) *TransferOrchestrator {
	return &TransferOrchestrator{
		transferService: transferService,
		balanceService:  balanceService,
		producer:        producer,
		monitorService:  monitorService,
	}
}

// CreateTransfer validates both participants and the sender's funds, then persists a PENDING
// transfer. The balance check here is advisory: the authoritative check happens later, under
// the row lock, when the debit request is processed. It exists to fail obviously doomed
// requests at the API boundary.
func (o *TransferOrchestrator) CreateTransfer(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal) (*data.Transfer, error) {
	if fromUserID == toUserID {
		return nil, ErrSameAccountTransfer
	}

	senderBalance, err := o.balanceService.GetBalance(ctx, fromUserID)
	if err != nil {
		return nil, fmt.Errorf("checking sender %s: %w", fromUserID, err)
	}

	receiverExists, err := o.balanceService.AccountExists(ctx, toUserID)
	if err != nil {
		return nil, fmt.Errorf("checking receiver %s: %w", toUserID, err)
	}
	if !receiverExists {
		return nil, fmt.Errorf("checking receiver %s: %w", toUserID, ErrAccountNotFound)
	}

	if senderBalance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	return o.transferService.Create(ctx, fromUserID, toUserID, amount)
}

// CancelTransfer cancels a PENDING transfer inside the cancellation window.
func (o *TransferOrchestrator) CancelTransfer(ctx context.Context, transferID int64) (*data.Transfer, error) {
	return o.transferService.Cancel(ctx, transferID)
}

// GetTransfer returns a single transfer by id.
func (o *TransferOrchestrator) GetTransfer(ctx context.Context, transferID int64) (*data.Transfer, error) {
	return o.transferService.Get(ctx, transferID)
}

// GetHistory returns one page of the user's transfer history plus the total count. The user
// must exist.
func (o *TransferOrchestrator) GetHistory(ctx context.Context, userID string, page, size int) ([]data.Transfer, int64, error) {
	exists, err := o.balanceService.AccountExists(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("checking user %s: %w", userID, err)
	}
	if !exists {
		return nil, 0, fmt.Errorf("checking user %s: %w", userID, ErrAccountNotFound)
	}

	return o.transferService.GetHistory(ctx, userID, page, size)
}

// HandleBalanceChangeRequest applies one request-topic message to the ledger. The balance
// service's idempotency fence makes redeliveries harmless; an unknown user is a permanent
// condition surfaced as ErrAccountNotFound so the consumer can record it and move on instead
// of redelivering.
func (o *TransferOrchestrator) HandleBalanceChangeRequest(ctx context.Context, request schemas.EventBalanceChangeData) error {
	mutationType, err := request.Type.MutationType()
	if err != nil {
		return fmt.Errorf("handling balance change request for transfer %d: %w", request.ExternalID, err)
	}

	switch mutationType {
	case data.DebitMutationType:
		_, err = o.balanceService.Debit(ctx, request.ExternalID, request.UserID, request.AbsAmount())
	case data.CreditMutationType:
		_, err = o.balanceService.Credit(ctx, request.ExternalID, request.UserID, request.AbsAmount())
	default:
		return fmt.Errorf("handling balance change request for transfer %d: unsupported mutation type %s", request.ExternalID, mutationType)
	}
	if err != nil {
		return fmt.Errorf("applying %s for transfer %d: %w", mutationType, request.ExternalID, err)
	}

	return nil
}

// HandleBalanceChangeResult advances the transfer state machine from one result-topic
// message. A redelivered result finds the transition already committed and no-ops. A failed
// credit has no automatic recovery path and is returned as an error, so the message is
// retried and eventually dead-lettered rather than silently dropped.
func (o *TransferOrchestrator) HandleBalanceChangeResult(ctx context.Context, result schemas.EventBalanceChangeResultData) error {
	var err error
	switch {
	case result.Type == schemas.TransferOutBalanceChangeType && result.Success:
		_, err = o.transferService.HandleDebitSuccess(ctx, result.ExternalID)

	case result.Type == schemas.TransferOutBalanceChangeType && !result.Success:
		reason := "debit failed"
		if result.FailureReason != nil {
			reason = *result.FailureReason
		}
		_, err = o.transferService.HandleDebitFailure(ctx, result.ExternalID, reason)

	case result.Type == schemas.TransferInBalanceChangeType && result.Success:
		_, err = o.transferService.Complete(ctx, result.ExternalID)

	case result.Type == schemas.TransferInBalanceChangeType && !result.Success:
		reason := "unknown"
		if result.FailureReason != nil {
			reason = *result.FailureReason
		}
		return fmt.Errorf("credit failed for transfer %d (user %s): %s", result.ExternalID, result.UserID, reason)

	default:
		return fmt.Errorf("handling balance change result for transfer %d: unknown type %s", result.ExternalID, result.Type)
	}

	if err != nil {
		if errors.Is(err, ErrInvalidTransferState) {
			// Duplicate delivery: another consumer (or an earlier attempt) already committed
			// this transition.
			log.Ctx(ctx).Warnf("result for transfer %d already applied, skipping: %s", result.ExternalID, err.Error())
			return nil
		}
		return fmt.Errorf("applying result for transfer %d: %w", result.ExternalID, err)
	}

	return nil
}

// SweepPendingTransfers drives PENDING transfers older than delay into DEBIT_PROCESSING. The
// status transition's dispatch publishes the debit request. Individual failures are logged
// and skipped so one stuck row cannot stall the batch.
func (o *TransferOrchestrator) SweepPendingTransfers(ctx context.Context, delay time.Duration, batchSize int) error {
	cutoff := time.Now().Add(-delay)
	transfers, err := o.transferService.GetPendingOlderThan(ctx, cutoff, batchSize)
	if err != nil {
		return fmt.Errorf("querying pending transfers: %w", err)
	}

	driven := 0
	for _, transfer := range transfers {
		if _, err = o.transferService.MarkDebitProcessing(ctx, transfer.ID); err != nil {
			log.Ctx(ctx).Errorf("driving pending transfer %d: %s", transfer.ID, err.Error())
			continue
		}
		driven++
	}

	o.monitorSweep("pending", driven)
	if driven > 0 {
		log.Ctx(ctx).Infof("pending sweep drove %d of %d transfers", driven, len(transfers))
	}

	return nil
}

// SweepStaleTransfers re-publishes the outstanding balance-change request for in-flight
// transfers whose updated_at has not moved for delay. The transfer stays in its current
// status; only updated_at is refreshed, and only after the re-publish succeeded. Duplicated
// requests are absorbed by the mutation fence.
func (o *TransferOrchestrator) SweepStaleTransfers(ctx context.Context, status data.TransferStatus, delay time.Duration, batchSize int) error {
	cutoff := time.Now().Add(-delay)
	transfers, err := o.transferService.GetInFlightStaleThan(ctx, status, cutoff, batchSize)
	if err != nil {
		return fmt.Errorf("querying stale %s transfers: %w", status, err)
	}

	driven := 0
	for _, transfer := range transfers {
		if err = o.republishRequest(ctx, transfer); err != nil {
			log.Ctx(ctx).Errorf("re-driving stale transfer %d: %s", transfer.ID, err.Error())
			continue
		}
		if err = o.transferService.TouchUpdatedAt(ctx, transfer.ID); err != nil {
			log.Ctx(ctx).Errorf("touching re-driven transfer %d: %s", transfer.ID, err.Error())
			continue
		}
		driven++
	}

	o.monitorSweep(string(status), driven)
	if driven > 0 {
		log.Ctx(ctx).Infof("stale %s sweep re-drove %d of %d transfers", status, driven, len(transfers))
	}

	return nil
}

func (o *TransferOrchestrator) republishRequest(ctx context.Context, transfer data.Transfer) error {
	var requestData schemas.EventBalanceChangeData
	switch transfer.Status {
	case data.DebitProcessingTransferStatus:
		requestData = schemas.NewDebitRequestData(&transfer)
	case data.CreditProcessingTransferStatus:
		requestData = schemas.NewCreditRequestData(&transfer)
	default:
		return fmt.Errorf("no request to re-publish for status %s", transfer.Status)
	}

	msg, err := events.NewMessage(events.BalanceChangeRequestTopic, requestData.UserID, events.BalanceChangeRequestType, requestData)
	if err != nil {
		return fmt.Errorf("building request message: %w", err)
	}

	return o.producer.WriteMessages(ctx, *msg)
}

func (o *TransferOrchestrator) monitorSweep(sweep string, driven int) {
	if o.monitorService == nil {
		return
	}
	labels := monitor.SweepLabels{Job: sweep}.ToMap()
	if err := o.monitorService.MonitorCounters(monitor.SweepRunsCounterTag, labels); err != nil {
		log.Errorf("monitoring counter %s: %s", monitor.SweepRunsCounterTag, err.Error())
	}
	for i := 0; i < driven; i++ {
		if err := o.monitorService.MonitorCounters(monitor.SweepTransfersDrivenCounterTag, labels); err != nil {
			log.Errorf("monitoring counter %s: %s", monitor.SweepTransfersDrivenCounterTag, err.Error())
			return
		}
	}
}
