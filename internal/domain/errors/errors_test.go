package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_Categories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category error
		code     string
	}{
		{"not allowed status", NotAllowedStatus("New"), ErrConflict, CodeNotAllowedStatus},
		{"asset not supported", AssetNotSupported("USD", "Bitcoin"), ErrInvalidInput, CodeAssetNotSupported},
		{"wallet allocation", WalletAllocationFailed("Ethereum", "node down"), ErrServiceUnavailable, CodeWalletAllocationFailed},
		{"market price zero", MarketPriceZero("BTCUSD"), ErrInvariant, CodeMarketPriceZero},
		{"multi tx refund", MultiTransactionRefundNotSupported(2), ErrInvariant, CodeMultiTransactionRefund},
		{"insufficient balance", InsufficientBalance("addr", decimal.NewFromInt(1), decimal.NewFromInt(2)), ErrConflict, CodeInsufficientBalance},
		{"payment request not found", PaymentRequestNotFound("addr"), ErrNotFound, CodePaymentRequestNotFound},
		{"negative value", NegativeValue("amount", decimal.NewFromInt(-1)), ErrInvalidInput, CodeNegativeValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.category)
			assert.Equal(t, tt.code, GetErrorCode(wrapped))
			assert.True(t, HasCode(wrapped, tt.code))
		})
	}
}

func TestDomainError_WithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ServiceUnavailableError("market profile", cause)

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)
	assert.Equal(t, "market profile", GetErrorDetails(err)["service"])
}

func TestGetErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(errors.New("plain")))
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}
