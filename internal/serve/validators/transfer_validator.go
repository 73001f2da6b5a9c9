package validators

import (
	"github.com/shopspring/decimal"
)

const (
	MinUserIDLength = 3
	MaxUserIDLength = 50

	// MaxAmountScale is the number of decimal places an amount may carry.
	MaxAmountScale = 2
)

type TransferValidator struct {
	*Validator
}

func NewTransferValidator() *TransferValidator {
	return &TransferValidator{Validator: NewValidator()}
}

// ValidateCreateTransferRequest checks the participants and amount of a transfer creation
// request.
func (tv *TransferValidator) ValidateCreateTransferRequest(fromUserID, toUserID string, amount decimal.Decimal) {
	tv.CheckUserID(fromUserID, "fromUserId")
	tv.CheckUserID(toUserID, "toUserId")
	if fromUserID != "" && fromUserID == toUserID {
		tv.AddError("toUserId", "sender and receiver must be different accounts")
	}

	tv.CheckAmount(amount, "amount")
}

// CheckUserID validates a user id field: required, 3 to 50 characters.
func (tv *TransferValidator) CheckUserID(userID, key string) {
	tv.Check(userID != "", key, "user id is required")
	if userID != "" {
		tv.Check(len(userID) >= MinUserIDLength && len(userID) <= MaxUserIDLength, key, "user id must be between 3 and 50 characters")
	}
}

// CheckAmount validates a monetary amount: positive, at most two decimal places.
func (tv *TransferValidator) CheckAmount(amount decimal.Decimal, key string) {
	tv.Check(amount.IsPositive(), key, "amount must be greater than zero")
	tv.Check(amount.Exponent() >= -MaxAmountScale, key, "amount cannot have more than 2 decimal places")
}
