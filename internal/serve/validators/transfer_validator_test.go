package validators

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func Test_TransferValidator_ValidateCreateTransferRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		tv := NewTransferValidator()
		tv.ValidateCreateTransferRequest("user-1", "user-2", decimal.RequireFromString("10.50"))
		assert.False(t, tv.HasErrors())
	})

	t.Run("missing user ids", func(t *testing.T) {
		tv := NewTransferValidator()
		tv.ValidateCreateTransferRequest("", "", decimal.RequireFromString("10.50"))
		assert.True(t, tv.HasErrors())
		assert.Equal(t, "user id is required", tv.Errors["fromUserId"])
		assert.Equal(t, "user id is required", tv.Errors["toUserId"])
	})

	t.Run("same sender and receiver", func(t *testing.T) {
		tv := NewTransferValidator()
		tv.ValidateCreateTransferRequest("user-1", "user-1", decimal.RequireFromString("10.50"))
		assert.True(t, tv.HasErrors())
		assert.Equal(t, "sender and receiver must be different accounts", tv.Errors["toUserId"])
	})

	t.Run("user id too short or too long", func(t *testing.T) {
		tv := NewTransferValidator()
		tv.ValidateCreateTransferRequest("ab", strings.Repeat("x", 51), decimal.RequireFromString("10.50"))
		assert.True(t, tv.HasErrors())
		assert.Equal(t, "user id must be between 3 and 50 characters", tv.Errors["fromUserId"])
		assert.Equal(t, "user id must be between 3 and 50 characters", tv.Errors["toUserId"])
	})

	t.Run("amount must be positive", func(t *testing.T) {
		for _, amountStr := range []string{"0", "-10.50"} {
			tv := NewTransferValidator()
			tv.ValidateCreateTransferRequest("user-1", "user-2", decimal.RequireFromString(amountStr))
			assert.True(t, tv.HasErrors())
			assert.Equal(t, "amount must be greater than zero", tv.Errors["amount"])
		}
	})

	t.Run("amount scale is capped at two decimal places", func(t *testing.T) {
		tv := NewTransferValidator()
		tv.ValidateCreateTransferRequest("user-1", "user-2", decimal.RequireFromString("10.505"))
		assert.True(t, tv.HasErrors())
		assert.Equal(t, "amount cannot have more than 2 decimal places", tv.Errors["amount"])
	})
}
