package services

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/internal/cache"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/events/schemas"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
)

const defaultPublishAttempts = 3

// DispatcherInterface receives post-commit domain events and turns them into the external
// side effects: cache invalidation and outbound messages. Implementations must tolerate being
// called again with the same event (redeliveries replay completion events).
type DispatcherInterface interface {
	DispatchBalanceMutationCompleted(ctx context.Context, mutation *data.BalanceMutation) error
	DispatchTransferStatusChanged(ctx context.Context, transfer *data.Transfer, oldStatus data.TransferStatus) error
}

// EventDispatcher is the production dispatcher. All its work happens after a commit, so
// nothing here can roll back: failures are logged, counted, and left for the retry sweep to
// absorb through re-publication.
type EventDispatcher struct {
	producer        events.Producer
	cacheStore      cache.Store
	monitorService  monitor.MonitorServiceInterface
	publishAttempts uint
}

var _ DispatcherInterface = (*EventDispatcher)(nil)

func NewEventDispatcher(producer events.Producer, cacheStore cache.Store, monitorService monitor.MonitorServiceInterface) *EventDispatcher {
	return &EventDispatcher{
		producer:        producer,
		cacheStore:      cacheStore,
		monitorService:  monitorService,
		publishAttempts: defaultPublishAttempts,
	}
}

// DispatchBalanceMutationCompleted invalidates the cached balance of the affected user (on
// success only) and publishes the BalanceChangeResult message keyed by the user id.
// Invalidation runs before the publish so downstream reads through the cache observe the new
// balance. A lost result message is re-driven by the stale-transfer sweep; staleness from a
// failed invalidation is bounded by the cache TTL.
func (d *EventDispatcher) DispatchBalanceMutationCompleted(ctx context.Context, mutation *data.BalanceMutation) error {
	d.monitorCounter(monitor.BalanceMutationsCounterTag, monitor.MutationLabels{
		Type:    string(mutation.Type),
		Outcome: string(mutation.Status),
	}.ToMap())

	if mutation.Succeeded() {
		if err := d.cacheStore.Invalidate(ctx, mutation.UserID); err != nil {
			log.Ctx(ctx).Errorf("invalidating cached balance for %s after mutation %d: %s", mutation.UserID, mutation.ID, err.Error())
		}
	}

	resultData, err := schemas.NewBalanceChangeResultData(mutation)
	if err != nil {
		return fmt.Errorf("building balance change result for mutation %d: %w", mutation.ID, err)
	}

	msg, err := events.NewMessage(events.BalanceChangeResultTopic, mutation.UserID, events.BalanceChangeResultType, resultData)
	if err != nil {
		return fmt.Errorf("building result message for mutation %d: %w", mutation.ID, err)
	}

	if err = d.publish(ctx, *msg); err != nil {
		log.Ctx(ctx).Errorf("publishing balance change result for mutation %d: %s", mutation.ID, err.Error())
	}

	return nil
}

// DispatchTransferStatusChanged publishes the next balance-change request for the two edges
// that need one. Other edges are observability-only.
func (d *EventDispatcher) DispatchTransferStatusChanged(ctx context.Context, transfer *data.Transfer, oldStatus data.TransferStatus) error {
	log.Ctx(ctx).Infof("transfer %d status changed: %s -> %s", transfer.ID, oldStatus, transfer.Status)
	d.monitorCounter(monitor.TransfersCounterTag, monitor.TransferLabels{Status: string(transfer.Status)}.ToMap())

	var requestData schemas.EventBalanceChangeData
	switch {
	case oldStatus == data.PendingTransferStatus && transfer.Status == data.DebitProcessingTransferStatus:
		requestData = schemas.NewDebitRequestData(transfer)
	case oldStatus == data.DebitProcessingTransferStatus && transfer.Status == data.CreditProcessingTransferStatus:
		requestData = schemas.NewCreditRequestData(transfer)
	default:
		return nil
	}

	msg, err := events.NewMessage(events.BalanceChangeRequestTopic, requestData.UserID, events.BalanceChangeRequestType, requestData)
	if err != nil {
		return fmt.Errorf("building balance change request for transfer %d: %w", transfer.ID, err)
	}

	if err = d.publish(ctx, *msg); err != nil {
		// Cannot roll back here: the transition already committed. The stale-transfer sweep
		// re-publishes the request for rows that stop making progress.
		log.Ctx(ctx).Errorf("publishing balance change request for transfer %d: %s", transfer.ID, err.Error())
	}

	return nil
}

func (d *EventDispatcher) publish(ctx context.Context, msg events.Message) error {
	return retry.Do(
		func() error {
			return d.producer.WriteMessages(ctx, msg)
		},
		retry.Context(ctx),
		retry.Attempts(d.publishAttempts),
		retry.LastErrorOnly(true),
	)
}

func (d *EventDispatcher) monitorCounter(tag monitor.MetricTag, labels map[string]string) {
	if d.monitorService == nil {
		return
	}
	if err := d.monitorService.MonitorCounters(tag, labels); err != nil {
		log.Errorf("monitoring counter %s: %s", tag, err.Error())
	}
}
