package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/pkg/logger"
)

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateTransaction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Rejects unknown transaction type", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := gin.New()
		router.POST("/transactions", NewTransactionHandlers(svc, logger.NewNop()).CreateTransaction)

		body := `{"transaction_id":"t1","blockchain":"Bitcoin","identity_type":"Hash","identity":"abc","asset_id":"BTC","wallet_address":"bc1q","type":"Gift"}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/transactions", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrCodeValidationError, decodeError(t, w).Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Unknown wallet is not found", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := gin.New()
		router.POST("/transactions", NewTransactionHandlers(svc, logger.NewNop()).CreateTransaction)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, domainerrors.PaymentRequestNotFound("bc1q"))

		body := `{"transaction_id":"t1","blockchain":"Bitcoin","identity_type":"Hash","identity":"abc","amount":"0.1","asset_id":"BTC","wallet_address":"bc1q","type":"Payment"}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/transactions", body))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domainerrors.CodePaymentRequestNotFound, decodeError(t, w).Code)
	})

	t.Run("Recorded", func(t *testing.T) {
		svc := new(MockTransactionService)
		router := gin.New()
		router.POST("/transactions", NewTransactionHandlers(svc, logger.NewNop()).CreateTransaction)

		stored := &entities.PaymentRequestTransaction{ID: uuid.New(), Identity: "abc", Confirmations: 2}
		svc.On("Create", mock.Anything, mock.MatchedBy(func(cmd *entities.CreateTransactionCommand) bool {
			return cmd.Identity == "abc" && cmd.Confirmations == 2 && cmd.Amount.Equal(decimal.RequireFromString("0.1"))
		})).Return(stored, nil)

		body := `{"transaction_id":"t1","blockchain":"Bitcoin","identity_type":"Hash","identity":"abc","amount":"0.1","asset_id":"BTC","confirmations":2,"wallet_address":"bc1q","type":"Payment"}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/transactions", body))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestUpdateTransaction_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(MockTransactionService)
	router := gin.New()
	router.PUT("/transactions", NewTransactionHandlers(svc, logger.NewNop()).UpdateTransaction)
	svc.On("Update", mock.Anything, mock.Anything).
		Return(nil, domainerrors.TypedNotFound(domainerrors.CodeTransactionNotFound, "transaction", "abc"))

	body := `{"blockchain":"Bitcoin","identity_type":"Hash","identity":"abc","confirmations":3}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPut, "/transactions", body))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domainerrors.CodeTransactionNotFound, decodeError(t, w).Code)
}

func TestCreateRefund(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(svc *MockRefundService) *gin.Engine {
		h := NewRefundHandlers(svc, logger.NewNop())
		router := gin.New()
		router.POST("/merchants/:merchantId/refunds", h.CreateRefund)
		router.GET("/merchants/:merchantId/refunds/:id", h.GetRefund)
		return router
	}

	t.Run("Source address is required", func(t *testing.T) {
		svc := new(MockRefundService)
		w := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, "/merchants/m1/refunds", `{"destination_address":"bc1qdest"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("Accepted", func(t *testing.T) {
		svc := new(MockRefundService)
		result := &entities.RefundResult{RefundID: uuid.New(), PaymentRequestID: uuid.New(), Amount: decimal.RequireFromString("0.25")}
		svc.On("Execute", mock.Anything, &entities.RefundRequest{
			MerchantID:         "m1",
			SourceAddress:      "bc1qsource",
			DestinationAddress: "bc1qdest",
		}).Return(result, nil)

		w := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, "/merchants/m1/refunds",
			`{"source_address":"bc1qsource","destination_address":"bc1qdest"}`))

		assert.Equal(t, http.StatusAccepted, w.Code)
		var resp entities.RefundResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, result.RefundID, resp.RefundID)
		svc.AssertExpectations(t)
	})

	t.Run("Multiple payments are rejected", func(t *testing.T) {
		svc := new(MockRefundService)
		svc.On("Execute", mock.Anything, mock.Anything).Return(nil, domainerrors.MultiTransactionRefundNotSupported(2))

		w := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, "/merchants/m1/refunds",
			`{"source_address":"bc1qsource","destination_address":"bc1qdest"}`))

		assert.Equal(t, domainerrors.CodeMultiTransactionRefund, decodeError(t, w).Code)
	})

	t.Run("Get unknown refund", func(t *testing.T) {
		svc := new(MockRefundService)
		id := uuid.New()
		svc.On("GetRefund", mock.Anything, "m1", id).
			Return(nil, domainerrors.TypedNotFound(domainerrors.CodeRefundNotFound, "refund", id.String()))

		w := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/merchants/m1/refunds/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domainerrors.CodeRefundNotFound, decodeError(t, w).Code)
	})
}

func TestSetExpiredWallet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Invalid address", func(t *testing.T) {
		svc := new(MockWalletService)
		router := gin.New()
		router.POST("/wallets/expired", NewWalletHandlers(svc, logger.NewNop()).SetExpired)
		svc.On("SetExpired", mock.Anything, "nope", entities.BlockchainBitcoin).
			Return(domainerrors.InvalidAddress("nope", "Bitcoin"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/wallets/expired", `{"wallet_address":"nope","blockchain":"Bitcoin"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, domainerrors.CodeInvalidAddress, decodeError(t, w).Code)
	})

	t.Run("Released", func(t *testing.T) {
		svc := new(MockWalletService)
		router := gin.New()
		router.POST("/wallets/expired", NewWalletHandlers(svc, logger.NewNop()).SetExpired)
		svc.On("SetExpired", mock.Anything, "bc1qwallet", entities.BlockchainBitcoin).Return(nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/wallets/expired", `{"wallet_address":"bc1qwallet","blockchain":"Bitcoin"}`))

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestMarkupHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Set takes merchant and pair from path", func(t *testing.T) {
		svc := new(MockMarkupService)
		router := gin.New()
		router.PUT("/merchants/:merchantId/markups/:assetPairId", NewMarkupHandlers(svc, logger.NewNop()).SetMarkup)
		svc.On("Set", mock.Anything, mock.MatchedBy(func(m *entities.Markup) bool {
			return m.MerchantID == "m1" && m.AssetPairID == "BTCCHF" && m.Pips == 10 && m.Percent.Equal(decimal.RequireFromString("1.5"))
		})).Return(nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPut, "/merchants/m1/markups/BTCCHF", `{"percent":"1.5","pips":10}`))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Unknown price method", func(t *testing.T) {
		svc := new(MockMarkupService)
		router := gin.New()
		router.PUT("/merchants/:merchantId/markups/:assetPairId", NewMarkupHandlers(svc, logger.NewNop()).SetMarkup)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPut, "/merchants/m1/markups/BTCCHF", `{"price_method":"Sideways"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Resolve missing markup", func(t *testing.T) {
		svc := new(MockMarkupService)
		router := gin.New()
		router.GET("/merchants/:merchantId/markups/:assetPairId", NewMarkupHandlers(svc, logger.NewNop()).GetMarkup)
		svc.On("Resolve", mock.Anything, "m1", "ETHCHF").Return(nil, domainerrors.MarkupNotFound("m1", "ETHCHF"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/merchants/m1/markups/ETHCHF", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domainerrors.CodeMarkupNotFound, decodeError(t, w).Code)
	})
}

func TestHealthHandler_Readiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	t.Run("All checks pass", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{"database": healthy, "redis": healthy}, zap.NewNop(), "test")
		router := gin.New()
		router.GET("/health/readiness", h.Readiness)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("One failing check", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{"database": healthy, "redis": failing}, zap.NewNop(), "test")
		router := gin.New()
		router.GET("/health/readiness", h.Readiness)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})
}
