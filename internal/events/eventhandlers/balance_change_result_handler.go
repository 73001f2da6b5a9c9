package eventhandlers

import (
	"context"
	"fmt"

	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/events/schemas"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
	"github.com/ledgerline/transfer-engine-backend/internal/utils"
)

// BalanceChangeResultEventHandler advances transfers from settled mutation results. Results
// only need per-transfer serialization, which the row lock inside the state engine provides,
// so this topic is consumed concurrently.
type BalanceChangeResultEventHandler struct {
	Orchestrator *services.TransferOrchestrator
}

var _ events.EventHandler = (*BalanceChangeResultEventHandler)(nil)

func (h *BalanceChangeResultEventHandler) Name() string {
	return "BalanceChangeResultEventHandler"
}

func (h *BalanceChangeResultEventHandler) CanHandleMessage(ctx context.Context, message *events.Message) bool {
	return message.Topic == events.BalanceChangeResultTopic
}

func (h *BalanceChangeResultEventHandler) Handle(ctx context.Context, message *events.Message) error {
	result, err := utils.ConvertType[any, schemas.EventBalanceChangeResultData](message.Data)
	if err != nil {
		return fmt.Errorf("could not convert message data to %T: %w", schemas.EventBalanceChangeResultData{}, err)
	}

	return h.Orchestrator.HandleBalanceChangeResult(ctx, result)
}
