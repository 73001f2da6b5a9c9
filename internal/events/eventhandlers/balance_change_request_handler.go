// Package eventhandlers binds the consumer loops to the orchestration services.
package eventhandlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/events/schemas"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
	"github.com/ledgerline/transfer-engine-backend/internal/utils"
)

// BalanceChangeRequestEventHandler applies debit/credit requests to the ledger. Requests are
// partitioned by user id, so all mutations of one account arrive in order on a single
// consumer; the mutation fence absorbs redeliveries.
type BalanceChangeRequestEventHandler struct {
	Orchestrator *services.TransferOrchestrator
}

var _ events.EventHandler = (*BalanceChangeRequestEventHandler)(nil)

func (h *BalanceChangeRequestEventHandler) Name() string {
	return "BalanceChangeRequestEventHandler"
}

func (h *BalanceChangeRequestEventHandler) CanHandleMessage(ctx context.Context, message *events.Message) bool {
	return message.Topic == events.BalanceChangeRequestTopic
}

func (h *BalanceChangeRequestEventHandler) Handle(ctx context.Context, message *events.Message) error {
	request, err := utils.ConvertType[any, schemas.EventBalanceChangeData](message.Data)
	if err != nil {
		return fmt.Errorf("could not convert message data to %T: %w", schemas.EventBalanceChangeData{}, err)
	}

	err = h.Orchestrator.HandleBalanceChangeRequest(ctx, request)
	if err != nil {
		// An unknown account never becomes known by redelivering the request. Record it and
		// move on so the partition does not wedge on a poison message.
		if errors.Is(err, services.ErrAccountNotFound) {
			log.Ctx(ctx).Errorf("dropping balance change request (%d, %s) for unknown user %s: %s", request.ExternalID, request.Type, request.UserID, err.Error())
			return nil
		}
		return err
	}

	return nil
}
