package eventhandlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

func Test_BalanceChangeResultEventHandler_CanHandleMessage(t *testing.T) {
	handler := &BalanceChangeResultEventHandler{}
	ctx := context.Background()

	assert.True(t, handler.CanHandleMessage(ctx, &events.Message{Topic: events.BalanceChangeResultTopic}))
	assert.False(t, handler.CanHandleMessage(ctx, &events.Message{Topic: events.BalanceChangeRequestTopic}))
}

func Test_BalanceChangeResultEventHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("advances the transfer on a successful debit result", func(t *testing.T) {
		transferService := &services.MockTransferService{}
		transferService.On("HandleDebitSuccess", ctx, int64(42)).
			Return(&data.Transfer{ID: 42, Status: data.CreditProcessingTransferStatus}, nil).Once()
		defer transferService.AssertExpectations(t)

		handler := &BalanceChangeResultEventHandler{
			Orchestrator: services.NewTransferOrchestrator(transferService, &services.MockBalanceService{}, nil, nil),
		}

		resultData := map[string]any{
			"externalId": 42,
			"type":       "TRANSFER_OUT",
			"success":    true,
			"userId":     "sender",
		}
		err := handler.Handle(ctx, &events.Message{Topic: events.BalanceChangeResultTopic, Data: resultData})
		require.NoError(t, err)
	})

	t.Run("fails a transfer on a failed debit result", func(t *testing.T) {
		transferService := &services.MockTransferService{}
		transferService.On("HandleDebitFailure", ctx, int64(42), "Insufficient balance").
			Return(&data.Transfer{ID: 42, Status: data.DebitFailedTransferStatus}, nil).Once()
		defer transferService.AssertExpectations(t)

		handler := &BalanceChangeResultEventHandler{
			Orchestrator: services.NewTransferOrchestrator(transferService, &services.MockBalanceService{}, nil, nil),
		}

		resultData := map[string]any{
			"externalId":    42,
			"type":          "TRANSFER_OUT",
			"success":       false,
			"userId":        "sender",
			"failureReason": "Insufficient balance",
		}
		err := handler.Handle(ctx, &events.Message{Topic: events.BalanceChangeResultTopic, Data: resultData})
		require.NoError(t, err)
	})

	t.Run("rejects data that cannot be decoded", func(t *testing.T) {
		handler := &BalanceChangeResultEventHandler{}

		err := handler.Handle(ctx, &events.Message{Topic: events.BalanceChangeResultTopic, Data: map[string]any{"oldBalance": "not-a-number"}})
		assert.ErrorContains(t, err, "could not convert message data")
	})
}
