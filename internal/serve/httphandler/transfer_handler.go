package httphandler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/ledgerline/transfer-engine-backend/internal/serve/httperror"
	"github.com/ledgerline/transfer-engine-backend/internal/serve/httpresponse"
	"github.com/ledgerline/transfer-engine-backend/internal/serve/validators"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

type TransferHandler struct {
	Orchestrator *services.TransferOrchestrator
}

type CreateTransferRequest struct {
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
}

// CreateTransfer accepts a new transfer and returns it in PENDING. The money moves later,
// asynchronously; the client polls or consults history for the outcome.
func (h TransferHandler) CreateTransfer(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var reqBody CreateTransferRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadRequest("", err, nil).Render(rw, req)
		return
	}

	validator := validators.NewTransferValidator()
	validator.ValidateCreateTransferRequest(reqBody.FromUserID, reqBody.ToUserID, reqBody.Amount)
	if validator.HasErrors() {
		httperror.BadRequest("invalid request body", nil, validator.Errors).Render(rw, req)
		return
	}

	transfer, err := h.Orchestrator.CreateTransfer(ctx, reqBody.FromUserID, reqBody.ToUserID, reqBody.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			httperror.NotFound("user not found", err, nil).Render(rw, req)
		case errors.Is(err, services.ErrInsufficientBalance):
			httperror.BadRequest("insufficient balance", err, nil).Render(rw, req)
		case errors.Is(err, services.ErrSameAccountTransfer):
			httperror.BadRequest("sender and receiver must be different accounts", err, nil).Render(rw, req)
		default:
			httperror.InternalError(ctx, "Cannot create transfer", err, nil).Render(rw, req)
		}
		return
	}

	httpjson.RenderStatus(rw, http.StatusCreated, transfer, httpjson.JSON)
}

// GetTransfer returns a single transfer by id.
func (h TransferHandler) GetTransfer(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	transferID, err := parseTransferID(req)
	if err != nil {
		httperror.BadRequest("transfer id must be a positive integer", err, nil).Render(rw, req)
		return
	}

	transfer, err := h.Orchestrator.GetTransfer(ctx, transferID)
	if err != nil {
		if errors.Is(err, services.ErrTransferNotFound) {
			httperror.NotFound("transfer not found", err, nil).Render(rw, req)
			return
		}
		httperror.InternalError(ctx, "Cannot retrieve transfer", err, nil).Render(rw, req)
		return
	}

	httpjson.Render(rw, transfer, httpjson.JSON)
}

// GetTransfers returns one page of the user's transfer history, newest first.
func (h TransferHandler) GetTransfers(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	userID := req.URL.Query().Get("userId")
	validator := validators.NewHistoryQueryValidator()
	validator.Check(userID != "", "userId", "userId is required")
	page, size := validator.ValidatePagination(req.URL.Query().Get("page"), req.URL.Query().Get("size"))
	if validator.HasErrors() {
		httperror.BadRequest("invalid request parameters", nil, validator.Errors).Render(rw, req)
		return
	}

	transfers, total, err := h.Orchestrator.GetHistory(ctx, userID, page, size)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			httperror.NotFound("user not found", err, nil).Render(rw, req)
			return
		}
		httperror.InternalError(ctx, "Cannot retrieve transfer history", err, nil).Render(rw, req)
		return
	}

	if total == 0 {
		httpjson.Render(rw, httpresponse.NewEmptyPaginatedResponse(), httpjson.JSON)
		return
	}

	response, err := httpresponse.NewPaginatedResponse(req, transfers, page, size, total)
	if err != nil {
		httperror.InternalError(ctx, "Cannot build paginated response", err, nil).Render(rw, req)
		return
	}

	httpjson.Render(rw, response, httpjson.JSON)
}

// CancelTransfer cancels a PENDING transfer inside the cancellation window.
func (h TransferHandler) CancelTransfer(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	transferID, err := parseTransferID(req)
	if err != nil {
		httperror.BadRequest("transfer id must be a positive integer", err, nil).Render(rw, req)
		return
	}

	transfer, err := h.Orchestrator.CancelTransfer(ctx, transferID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransferNotFound):
			httperror.NotFound("transfer not found", err, nil).Render(rw, req)
		case errors.Is(err, services.ErrCancellationWindowExpired):
			httperror.BadRequest("transfer can no longer be cancelled", err, nil).Render(rw, req)
		case errors.Is(err, services.ErrInvalidTransferState):
			httperror.BadRequest("transfer is not in a cancellable state", err, nil).Render(rw, req)
		default:
			httperror.InternalError(ctx, "Cannot cancel transfer", err, nil).Render(rw, req)
		}
		return
	}

	httpjson.Render(rw, transfer, httpjson.JSON)
}

func parseTransferID(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, "transferId"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("transfer id must be positive, got %d", id)
	}
	return id, nil
}
