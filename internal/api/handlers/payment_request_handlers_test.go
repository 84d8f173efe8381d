package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/services/paymentrequest"
	"github.com/settlepay/settlement_service/pkg/logger"
)

func newPaymentRequestRouter(svc *MockPaymentRequestService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentRequestHandlers(svc, logger.NewNop())

	router := gin.New()
	router.POST("/merchants/:merchantId/paymentrequests", h.CreatePaymentRequest)
	router.GET("/merchants/:merchantId/paymentrequests", h.ListPaymentRequests)
	router.GET("/merchants/:merchantId/paymentrequests/:id", h.GetPaymentRequest)
	router.POST("/merchants/:merchantId/paymentrequests/:id/checkout", h.Checkout)
	router.POST("/wallets/:address/status", h.RefreshStatus)
	router.POST("/maintenance/expired", h.SweepExpired)
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) entities.ErrorResponse {
	t.Helper()
	var resp entities.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreatePaymentRequest_Validation(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode string
	}{
		{
			name:         "Malformed JSON",
			body:         `{"amount":`,
			expectedCode: ErrCodeInvalidRequest,
		},
		{
			name:         "Missing assets",
			body:         `{"amount":"1.5","due_date":"2030-01-01T00:00:00Z"}`,
			expectedCode: ErrCodeValidationError,
		},
		{
			name:         "Negative pips",
			body:         `{"amount":"1.5","due_date":"2030-01-01T00:00:00Z","payment_asset_id":"BTC","settlement_asset_id":"CHF","markup_pips":-1}`,
			expectedCode: ErrCodeValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentRequestService)
			router := newPaymentRequestRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/merchants/m1/paymentrequests", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePaymentRequest_UsesMerchantFromPath(t *testing.T) {
	svc := new(MockPaymentRequestService)
	router := newPaymentRequestRouter(svc)

	created := &entities.PaymentRequest{
		ID:         uuid.New(),
		MerchantID: "m1",
		Amount:     decimal.RequireFromString("1.5"),
		Status:     entities.PaymentRequestStatusNew,
	}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(cmd *entities.CreatePaymentRequestCommand) bool {
		return cmd.MerchantID == "m1" && cmd.PaymentAssetID == "BTC" && cmd.Amount.Equal(decimal.RequireFromString("1.5"))
	})).Return(created, nil)

	body := `{"merchant_id":"other","amount":"1.5","due_date":"2030-01-01T00:00:00Z","payment_asset_id":"BTC","settlement_asset_id":"CHF"}`
	req := httptest.NewRequest(http.MethodPost, "/merchants/m1/paymentrequests", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp entities.PaymentRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
	svc.AssertExpectations(t)
}

func TestGetPaymentRequest(t *testing.T) {
	id := uuid.New()

	t.Run("Invalid id", func(t *testing.T) {
		svc := new(MockPaymentRequestService)
		router := newPaymentRequestRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/merchants/m1/paymentrequests/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrCodeInvalidID, decodeError(t, w).Code)
	})

	t.Run("Other merchant", func(t *testing.T) {
		svc := new(MockPaymentRequestService)
		router := newPaymentRequestRouter(svc)
		svc.On("Get", mock.Anything, "m2", id).Return(nil, domainerrors.MerchantMismatch("m2", id.String()))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/merchants/m2/paymentrequests/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domainerrors.CodeMerchantMismatch, decodeError(t, w).Code)
	})

	t.Run("Found", func(t *testing.T) {
		svc := new(MockPaymentRequestService)
		router := newPaymentRequestRouter(svc)
		svc.On("Get", mock.Anything, "m1", id).Return(&entities.PaymentRequest{ID: id, MerchantID: "m1"}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/merchants/m1/paymentrequests/"+id.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestListPaymentRequests_EmptyIsArray(t *testing.T) {
	svc := new(MockPaymentRequestService)
	router := newPaymentRequestRouter(svc)
	svc.On("GetByMerchant", mock.Anything, "m1").Return(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/merchants/m1/paymentrequests", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCheckout(t *testing.T) {
	id := uuid.New()

	t.Run("Force flag is passed through", func(t *testing.T) {
		svc := new(MockPaymentRequestService)
		router := newPaymentRequestRouter(svc)

		orderID := uuid.New()
		result := &paymentrequest.CheckoutResult{
			PaymentRequest: &entities.PaymentRequest{ID: id, WalletAddress: "bc1qwallet", Status: entities.PaymentRequestStatusInProcess},
			Order:          &entities.Order{ID: orderID, PaymentRequestID: id, DueDate: time.Now().Add(10 * time.Minute)},
		}
		svc.On("Checkout", mock.Anything, "m1", id, true).Return(result, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/merchants/m1/paymentrequests/"+id.String()+"/checkout?force=true", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp entities.CheckoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "bc1qwallet", resp.PaymentRequest.WalletAddress)
		assert.Equal(t, orderID, resp.Order.ID)
		svc.AssertExpectations(t)
	})

	t.Run("Not allowed status is a conflict", func(t *testing.T) {
		svc := new(MockPaymentRequestService)
		router := newPaymentRequestRouter(svc)
		svc.On("Checkout", mock.Anything, "m1", id, false).
			Return(nil, domainerrors.NotAllowedStatus(string(entities.PaymentRequestStatusConfirmed)))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/merchants/m1/paymentrequests/"+id.String()+"/checkout", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, domainerrors.CodeNotAllowedStatus, decodeError(t, w).Code)
	})

	t.Run("Allocation failure is a bad gateway", func(t *testing.T) {
		svc := new(MockPaymentRequestService)
		router := newPaymentRequestRouter(svc)
		svc.On("Checkout", mock.Anything, "m1", id, false).
			Return(nil, domainerrors.WalletAllocationFailed("Bitcoin", "node unavailable"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/merchants/m1/paymentrequests/"+id.String()+"/checkout", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, domainerrors.CodeWalletAllocationFailed, decodeError(t, w).Code)
	})
}

func TestRefreshStatus(t *testing.T) {
	svc := new(MockPaymentRequestService)
	router := newPaymentRequestRouter(svc)

	pr := &entities.PaymentRequest{ID: uuid.New(), WalletAddress: "bc1qwallet", Status: entities.PaymentRequestStatusConfirmed}
	svc.On("UpdateStatus", mock.Anything, "bc1qwallet", (*entities.StatusInfo)(nil)).Return(nil)
	svc.On("FindByWallet", mock.Anything, "bc1qwallet").Return(pr, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/wallets/bc1qwallet/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSweepExpired(t *testing.T) {
	svc := new(MockPaymentRequestService)
	router := newPaymentRequestRouter(svc)
	svc.On("HandleExpired", mock.Anything).Return(&paymentrequest.SweepResult{Expired: 3, Released: 1}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/maintenance/expired", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"expired":3,"released":1,"failed":0}`, w.Body.String())
}

func TestSendDomainError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendDomainError(c, logger.NewNop(), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, ErrCodeInternalError, resp.Code)
	assert.NotContains(t, resp.Message, assert.AnError.Error())
}
