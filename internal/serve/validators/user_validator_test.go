package validators

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func Test_UserValidator_ValidateUserID(t *testing.T) {
	testCases := []struct {
		name    string
		userID  string
		wantErr string
	}{
		{name: "valid", userID: "user-1"},
		{name: "minimum length", userID: "abc"},
		{name: "maximum length", userID: strings.Repeat("a", 50)},
		{name: "missing", userID: "", wantErr: "user id is required"},
		{name: "too short", userID: "ab", wantErr: "user id must be between 3 and 50 characters"},
		{name: "too long", userID: strings.Repeat("a", 51), wantErr: "user id must be between 3 and 50 characters"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			uv := NewUserValidator()
			uv.ValidateUserID(tc.userID)
			if tc.wantErr == "" {
				assert.False(t, uv.HasErrors())
			} else {
				assert.True(t, uv.HasErrors())
				assert.Equal(t, tc.wantErr, uv.Errors["userId"])
			}
		})
	}
}

func Test_UserValidator_ValidateCreateUserRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		uv := NewUserValidator()
		initialBalance := decimal.RequireFromString("100.00")
		got := uv.ValidateCreateUserRequest("user-1", &initialBalance)
		assert.False(t, uv.HasErrors())
		assert.True(t, got.Equal(initialBalance))
	})

	t.Run("nil balance defaults to zero", func(t *testing.T) {
		uv := NewUserValidator()
		got := uv.ValidateCreateUserRequest("user-1", nil)
		assert.False(t, uv.HasErrors())
		assert.True(t, got.IsZero())
	})

	t.Run("missing user id", func(t *testing.T) {
		uv := NewUserValidator()
		uv.ValidateCreateUserRequest("", nil)
		assert.True(t, uv.HasErrors())
		assert.Equal(t, "user id is required", uv.Errors["userId"])
	})

	t.Run("user id too short", func(t *testing.T) {
		uv := NewUserValidator()
		uv.ValidateCreateUserRequest("ab", nil)
		assert.True(t, uv.HasErrors())
		assert.Equal(t, "user id must be between 3 and 50 characters", uv.Errors["userId"])
	})

	t.Run("negative balance", func(t *testing.T) {
		uv := NewUserValidator()
		initialBalance := decimal.RequireFromString("-1.00")
		uv.ValidateCreateUserRequest("user-1", &initialBalance)
		assert.True(t, uv.HasErrors())
		assert.Equal(t, "initial balance cannot be negative", uv.Errors["initialBalance"])
	})

	t.Run("balance scale is capped at two decimal places", func(t *testing.T) {
		uv := NewUserValidator()
		initialBalance := decimal.RequireFromString("1.005")
		uv.ValidateCreateUserRequest("user-1", &initialBalance)
		assert.True(t, uv.HasErrors())
		assert.Equal(t, "initial balance cannot have more than 2 decimal places", uv.Errors["initialBalance"])
	})
}
