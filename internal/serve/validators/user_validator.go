package validators

import (
	"github.com/shopspring/decimal"
)

type UserValidator struct {
	*Validator
}

func NewUserValidator() *UserValidator {
	return &UserValidator{Validator: NewValidator()}
}

// ValidateUserID checks that the user id is present and within the length bounds.
func (uv *UserValidator) ValidateUserID(userID string) {
	uv.Check(userID != "", "userId", "user id is required")
	if userID != "" {
		uv.Check(len(userID) >= MinUserIDLength && len(userID) <= MaxUserIDLength, "userId", "user id must be between 3 and 50 characters")
	}
}

// ValidateCreateUserRequest checks the user id and opening balance of an account creation
// request. A nil balance defaults to zero.
func (uv *UserValidator) ValidateCreateUserRequest(userID string, initialBalance *decimal.Decimal) decimal.Decimal {
	uv.ValidateUserID(userID)

	if initialBalance == nil {
		return decimal.Zero
	}

	uv.Check(!initialBalance.IsNegative(), "initialBalance", "initial balance cannot be negative")
	uv.Check(initialBalance.Exponent() >= -MaxAmountScale, "initialBalance", "initial balance cannot have more than 2 decimal places")

	return *initialBalance
}
