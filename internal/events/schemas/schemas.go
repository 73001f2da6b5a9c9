// Package schemas defines the wire payloads exchanged over the balance-change topics.
package schemas

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
)

type BalanceChangeType string

const (
	// TransferOutBalanceChangeType is a debit against the sender.
	TransferOutBalanceChangeType BalanceChangeType = "TRANSFER_OUT"
	// TransferInBalanceChangeType is a credit to the receiver.
	TransferInBalanceChangeType BalanceChangeType = "TRANSFER_IN"
)

// MutationType maps the wire type onto the ledger mutation type.
func (t BalanceChangeType) MutationType() (data.MutationType, error) {
	switch t {
	case TransferOutBalanceChangeType:
		return data.DebitMutationType, nil
	case TransferInBalanceChangeType:
		return data.CreditMutationType, nil
	default:
		return "", fmt.Errorf("invalid balance change type: %s", t)
	}
}

// EventBalanceChangeData is the request-topic payload. Amount is signed: negative for
// TRANSFER_OUT, positive for TRANSFER_IN. The partition key is UserID.
type EventBalanceChangeData struct {
	ExternalID int64             `json:"externalId"`
	Type       BalanceChangeType `json:"type"`
	UserID     string            `json:"userId"`
	Amount     decimal.Decimal   `json:"amount"`
	RelatedID  int64             `json:"relatedId"`
	Timestamp  int64             `json:"timestamp"`
}

// AbsAmount returns the unsigned amount the ledger operates on.
func (d EventBalanceChangeData) AbsAmount() decimal.Decimal {
	return d.Amount.Abs()
}

// EventBalanceChangeResultData is the result-topic payload. The partition key is UserID.
type EventBalanceChangeResultData struct {
	ExternalID    int64             `json:"externalId"`
	Type          BalanceChangeType `json:"type"`
	Success       bool              `json:"success"`
	UserID        string            `json:"userId"`
	OldBalance    *decimal.Decimal  `json:"oldBalance,omitempty"`
	NewBalance    *decimal.Decimal  `json:"newBalance,omitempty"`
	FailureReason *string           `json:"failureReason,omitempty"`
	Timestamp     int64             `json:"timestamp"`
}

// NewDebitRequestData builds the TRANSFER_OUT request for a transfer's sender.
func NewDebitRequestData(transfer *data.Transfer) EventBalanceChangeData {
	return EventBalanceChangeData{
		ExternalID: transfer.ID,
		Type:       TransferOutBalanceChangeType,
		UserID:     transfer.FromUserID,
		Amount:     transfer.Amount.Neg(),
		RelatedID:  transfer.ID,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// NewCreditRequestData builds the TRANSFER_IN request for a transfer's receiver.
func NewCreditRequestData(transfer *data.Transfer) EventBalanceChangeData {
	return EventBalanceChangeData{
		ExternalID: transfer.ID,
		Type:       TransferInBalanceChangeType,
		UserID:     transfer.ToUserID,
		Amount:     transfer.Amount,
		RelatedID:  transfer.ID,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// NewBalanceChangeResultData builds the result payload for a settled mutation row.
func NewBalanceChangeResultData(mutation *data.BalanceMutation) (EventBalanceChangeResultData, error) {
	var changeType BalanceChangeType
	switch mutation.Type {
	case data.DebitMutationType:
		changeType = TransferOutBalanceChangeType
	case data.CreditMutationType:
		changeType = TransferInBalanceChangeType
	default:
		return EventBalanceChangeResultData{}, fmt.Errorf("mutation type %s has no balance change type", mutation.Type)
	}

	return EventBalanceChangeResultData{
		ExternalID:    mutation.ExternalID,
		Type:          changeType,
		Success:       mutation.Succeeded(),
		UserID:        mutation.UserID,
		OldBalance:    mutation.BalanceBefore,
		NewBalance:    mutation.BalanceAfter,
		FailureReason: mutation.FailureReason,
		Timestamp:     time.Now().UnixMilli(),
	}, nil
}
