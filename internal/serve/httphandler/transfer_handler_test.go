package httphandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

func setupTransferRouter(transferService services.TransferServiceInterface, balanceService services.BalanceServiceInterface) *chi.Mux {
	orchestrator := services.NewTransferOrchestrator(transferService, balanceService, &events.MockProducer{}, nil)
	handler := TransferHandler{Orchestrator: orchestrator}

	mux := chi.NewMux()
	mux.Post("/transfers", handler.CreateTransfer)
	mux.Get("/transfers", handler.GetTransfers)
	mux.Get("/transfers/{transferId}", handler.GetTransfer)
	mux.Post("/transfers/{transferId}/cancel", handler.CancelTransfer)
	return mux
}

func Test_TransferHandler_CreateTransfer(t *testing.T) {
	amount := decimal.RequireFromString("25.00")

	t.Run("returns 400 with field errors on an invalid body", func(t *testing.T) {
		mux := setupTransferRouter(&services.MockTransferService{}, &services.MockBalanceService{})

		rr := httptest.NewRecorder()
		reqBody := `{"fromUserId": "user-1", "toUserId": "user-2", "amount": "-1"}`
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(reqBody)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		extras, ok := body["extras"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "amount must be greater than zero", extras["amount"])
	})

	t.Run("returns 400 when sender and receiver are the same", func(t *testing.T) {
		mux := setupTransferRouter(&services.MockTransferService{}, &services.MockBalanceService{})

		rr := httptest.NewRecorder()
		reqBody := `{"fromUserId": "user-1", "toUserId": "user-1", "amount": "25.00"}`
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(reqBody)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("returns 404 for an unknown receiver", func(t *testing.T) {
		balanceService := &services.MockBalanceService{}
		balanceService.On("GetBalance", mock.Anything, "user-1").Return(decimal.RequireFromString("100.00"), nil).Once()
		balanceService.On("AccountExists", mock.Anything, "ghost").Return(false, nil).Once()
		defer balanceService.AssertExpectations(t)

		mux := setupTransferRouter(&services.MockTransferService{}, balanceService)

		rr := httptest.NewRecorder()
		reqBody := `{"fromUserId": "user-1", "toUserId": "ghost", "amount": "25.00"}`
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(reqBody)))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("returns 400 when the sender is underfunded", func(t *testing.T) {
		balanceService := &services.MockBalanceService{}
		balanceService.On("GetBalance", mock.Anything, "user-1").Return(decimal.RequireFromString("1.00"), nil).Once()
		balanceService.On("AccountExists", mock.Anything, "user-2").Return(true, nil).Once()
		defer balanceService.AssertExpectations(t)

		mux := setupTransferRouter(&services.MockTransferService{}, balanceService)

		rr := httptest.NewRecorder()
		reqBody := `{"fromUserId": "user-1", "toUserId": "user-2", "amount": "25.00"}`
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(reqBody)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "insufficient balance", body["message"])
	})

	t.Run("returns 201 with the pending transfer", func(t *testing.T) {
		balanceService := &services.MockBalanceService{}
		balanceService.On("GetBalance", mock.Anything, "user-1").Return(decimal.RequireFromString("100.00"), nil).Once()
		balanceService.On("AccountExists", mock.Anything, "user-2").Return(true, nil).Once()
		defer balanceService.AssertExpectations(t)

		transferService := &services.MockTransferService{}
		transferService.On("Create", mock.Anything, "user-1", "user-2", mock.MatchedBy(func(a decimal.Decimal) bool {
			return a.Equal(amount)
		})).Return(&data.Transfer{ID: 7, FromUserID: "user-1", ToUserID: "user-2", Amount: amount, Status: data.PendingTransferStatus}, nil).Once()
		defer transferService.AssertExpectations(t)

		mux := setupTransferRouter(transferService, balanceService)

		rr := httptest.NewRecorder()
		reqBody := `{"fromUserId": "user-1", "toUserId": "user-2", "amount": "25.00"}`
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(reqBody)))

		assert.Equal(t, http.StatusCreated, rr.Code)
		var gotTransfer data.Transfer
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &gotTransfer))
		assert.Equal(t, int64(7), gotTransfer.ID)
		assert.Equal(t, data.PendingTransferStatus, gotTransfer.Status)
	})
}

func Test_TransferHandler_GetTransfer(t *testing.T) {
	t.Run("returns 400 for a non-numeric id", func(t *testing.T) {
		mux := setupTransferRouter(&services.MockTransferService{}, &services.MockBalanceService{})

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers/abc", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("returns 400 for a non-positive id", func(t *testing.T) {
		transferService := &services.MockTransferService{}
		mux := setupTransferRouter(transferService, &services.MockBalanceService{})

		for _, id := range []string{"0", "-5"} {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers/"+id, nil))

			assert.Equalf(t, http.StatusBadRequest, rr.Code, "id %q should be rejected", id)
		}

		transferService.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("returns 404 for an unknown transfer", func(t *testing.T) {
		transferService := &services.MockTransferService{}
		transferService.On("Get", mock.Anything, int64(99)).Return(nil, services.ErrTransferNotFound).Once()
		defer transferService.AssertExpectations(t)

		mux := setupTransferRouter(transferService, &services.MockBalanceService{})

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers/99", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("returns the transfer", func(t *testing.T) {
		transferService := &services.MockTransferService{}
		transferService.On("Get", mock.Anything, int64(7)).
			Return(&data.Transfer{ID: 7, Status: data.CompletedTransferStatus}, nil).Once()
		defer transferService.AssertExpectations(t)

		mux := setupTransferRouter(transferService, &services.MockBalanceService{})

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers/7", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var gotTransfer data.Transfer
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &gotTransfer))
		assert.Equal(t, data.CompletedTransferStatus, gotTransfer.Status)
	})
}

func Test_TransferHandler_GetTransfers(t *testing.T) {
	t.Run("returns 400 when userId is missing", func(t *testing.T) {
		mux := setupTransferRouter(&services.MockTransferService{}, &services.MockBalanceService{})

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("returns 404 for an unknown user", func(t *testing.T) {
		balanceService := &services.MockBalanceService{}
		balanceService.On("AccountExists", mock.Anything, "ghost").Return(false, nil).Once()
		defer balanceService.AssertExpectations(t)

		mux := setupTransferRouter(&services.MockTransferService{}, balanceService)

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers?userId=ghost", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("returns an empty page for a user with no transfers", func(t *testing.T) {
		balanceService := &services.MockBalanceService{}
		balanceService.On("AccountExists", mock.Anything, "user-1").Return(true, nil).Once()
		defer balanceService.AssertExpectations(t)

		transferService := &services.MockTransferService{}
		transferService.On("GetHistory", mock.Anything, "user-1", 0, 20).Return([]data.Transfer{}, int64(0), nil).Once()
		defer transferService.AssertExpectations(t)

		mux := setupTransferRouter(transferService, balanceService)

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers?userId=user-1", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.JSONEq(t, `[]`, string(body["data"]))
		assert.JSONEq(t, `{"pages": 0, "total": 0}`, string(body["pagination"]))
	})

	t.Run("returns the paginated history", func(t *testing.T) {
		balanceService := &services.MockBalanceService{}
		balanceService.On("AccountExists", mock.Anything, "user-1").Return(true, nil).Once()
		defer balanceService.AssertExpectations(t)

		transfers := []data.Transfer{{ID: 2}, {ID: 1}}
		transferService := &services.MockTransferService{}
		transferService.On("GetHistory", mock.Anything, "user-1", 0, 2).Return(transfers, int64(5), nil).Once()
		defer transferService.AssertExpectations(t)

		mux := setupTransferRouter(transferService, balanceService)

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transfers?userId=user-1&page=0&size=2", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Pagination struct {
				Next  string `json:"next"`
				Prev  string `json:"prev"`
				Pages int    `json:"pages"`
				Total int64  `json:"total"`
			} `json:"pagination"`
			Data []data.Transfer `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, 3, body.Pagination.Pages)
		assert.Equal(t, int64(5), body.Pagination.Total)
		assert.NotEmpty(t, body.Pagination.Next)
		assert.Empty(t, body.Pagination.Prev)
		assert.Len(t, body.Data, 2)
	})
}

func Test_TransferHandler_CancelTransfer(t *testing.T) {
	testCases := []struct {
		name           string
		cancelErr      error
		wantStatusCode int
		wantMessage    string
	}{
		{
			name:           "unknown transfer",
			cancelErr:      services.ErrTransferNotFound,
			wantStatusCode: http.StatusNotFound,
			wantMessage:    "transfer not found",
		},
		{
			name:           "cancellation window expired",
			cancelErr:      services.ErrCancellationWindowExpired,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "transfer can no longer be cancelled",
		},
		{
			name:           "transfer already in flight",
			cancelErr:      services.ErrInvalidTransferState,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "transfer is not in a cancellable state",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			transferService := &services.MockTransferService{}
			transferService.On("Cancel", mock.Anything, int64(7)).Return(nil, tc.cancelErr).Once()
			defer transferService.AssertExpectations(t)

			mux := setupTransferRouter(transferService, &services.MockBalanceService{})

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers/7/cancel", nil))

			assert.Equal(t, tc.wantStatusCode, rr.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.wantMessage, body["message"])
		})
	}

	t.Run("returns the cancelled transfer", func(t *testing.T) {
		transferService := &services.MockTransferService{}
		transferService.On("Cancel", mock.Anything, int64(7)).
			Return(&data.Transfer{ID: 7, Status: data.CancelledTransferStatus}, nil).Once()
		defer transferService.AssertExpectations(t)

		mux := setupTransferRouter(transferService, &services.MockBalanceService{})

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers/7/cancel", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var gotTransfer data.Transfer
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &gotTransfer))
		assert.Equal(t, data.CancelledTransferStatus, gotTransfer.Status)
	})
}
