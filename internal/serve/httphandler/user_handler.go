package httphandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/ledgerline/transfer-engine-backend/internal/serve/httperror"
	"github.com/ledgerline/transfer-engine-backend/internal/serve/validators"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

type UserHandler struct {
	UserService    services.UserServiceInterface
	BalanceService services.BalanceServiceInterface
}

type CreateUserRequest struct {
	UserID         string           `json:"userId"`
	InitialBalance *decimal.Decimal `json:"initialBalance"`
}

type UserResponse struct {
	UserID  string          `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

type BalanceResponse struct {
	UserID  string          `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

// CreateUser provisions a new account.
func (h UserHandler) CreateUser(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var reqBody CreateUserRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadRequest("", err, nil).Render(rw, req)
		return
	}

	validator := validators.NewUserValidator()
	initialBalance := validator.ValidateCreateUserRequest(reqBody.UserID, reqBody.InitialBalance)
	if validator.HasErrors() {
		httperror.BadRequest("invalid request body", nil, validator.Errors).Render(rw, req)
		return
	}

	account, err := h.UserService.CreateAccount(ctx, reqBody.UserID, initialBalance)
	if err != nil {
		if errors.Is(err, services.ErrAccountAlreadyExists) {
			httperror.Conflict("an account with this user id already exists", err, nil).Render(rw, req)
			return
		}
		httperror.InternalError(ctx, "Cannot create account", err, nil).Render(rw, req)
		return
	}

	httpjson.RenderStatus(rw, http.StatusCreated, UserResponse{UserID: account.UserID, Balance: account.Balance}, httpjson.JSON)
}

// GetBalance returns the user's current balance, served through the cache.
func (h UserHandler) GetBalance(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	userID := chi.URLParam(req, "userId")

	validator := validators.NewUserValidator()
	validator.ValidateUserID(userID)
	if validator.HasErrors() {
		httperror.BadRequest("invalid request parameters", nil, validator.Errors).Render(rw, req)
		return
	}

	balance, err := h.BalanceService.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			httperror.NotFound("user not found", err, nil).Render(rw, req)
			return
		}
		httperror.InternalError(ctx, "Cannot retrieve balance", err, nil).Render(rw, req)
		return
	}

	httpjson.Render(rw, BalanceResponse{UserID: userID, Balance: balance}, httpjson.JSON)
}
