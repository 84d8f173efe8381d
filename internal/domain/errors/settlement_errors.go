package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Settlement error codes
const (
	CodePaymentRequestNotFound      = "PAYMENT_REQUEST_NOT_FOUND"
	CodeOrderNotFound               = "ORDER_NOT_FOUND"
	CodeWalletNotFound              = "WALLET_NOT_FOUND"
	CodeRefundNotFound              = "REFUND_NOT_FOUND"
	CodeTransactionNotFound         = "TRANSACTION_NOT_FOUND"
	CodeAssetNotFound               = "ASSET_NOT_FOUND"
	CodeAssetPairNotFound           = "ASSET_PAIR_NOT_FOUND"
	CodeMarkupNotFound              = "MARKUP_NOT_FOUND"
	CodeAssetNotSupported           = "ASSET_NOT_SUPPORTED"
	CodeBlockchainNotSupported      = "BLOCKCHAIN_NOT_SUPPORTED"
	CodeWalletAllocationFailed      = "WALLET_ALLOCATION_FAILED"
	CodeNotAllowedStatus            = "NOT_ALLOWED_STATUS"
	CodeInsufficientBalance         = "INSUFFICIENT_BALANCE"
	CodeNoTransactionsToRefund      = "NO_TRANSACTIONS_TO_REFUND"
	CodeMultiTransactionRefund      = "MULTI_TRANSACTION_REFUND_NOT_SUPPORTED"
	CodeTransferFailed              = "TRANSFER_FAILED"
	CodeMarketPriceZero             = "MARKET_PRICE_ZERO"
	CodeUnexpectedCalculationMethod = "UNEXPECTED_PRICE_CALCULATION_METHOD"
	CodeNegativeValue               = "NEGATIVE_VALUE"
	CodeInvalidAddress              = "INVALID_ADDRESS"
	CodeWalletLeaseDenied           = "WALLET_LEASE_DENIED"
	CodeRefundDestinationRequired   = "REFUND_DESTINATION_REQUIRED"
	CodeRefundDestinationConflict   = "REFUND_DESTINATION_CONFLICT"
	CodePaymentAlreadyReceived      = "PAYMENT_ALREADY_RECEIVED"
	CodeMerchantMismatch            = "PAYMENT_REQUEST_MERCHANT_MISMATCH"
)

// PaymentRequestNotFound is returned when no request matches the lookup key
func PaymentRequestNotFound(key string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    CodePaymentRequestNotFound,
		Message: fmt.Sprintf("payment request not found: %s", key),
		Details: map[string]interface{}{"key": key},
	}
}

// MerchantMismatch is reported as not found so callers cannot probe other merchants' requests
func MerchantMismatch(merchantID, paymentRequestID string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    CodeMerchantMismatch,
		Message: fmt.Sprintf("payment request %s not found for merchant %s", paymentRequestID, merchantID),
		Details: map[string]interface{}{"merchant_id": merchantID, "payment_request_id": paymentRequestID},
	}
}

// WalletNotFound is returned when an address is not one of the merchant's wallets
func WalletNotFound(address string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    CodeWalletNotFound,
		Message: fmt.Sprintf("wallet not found: %s", address),
		Details: map[string]interface{}{"address": address},
	}
}

// TypedNotFound builds a not found error with one of the codes above
func TypedNotFound(code, what, key string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    code,
		Message: fmt.Sprintf("%s not found: %s", what, key),
		Details: map[string]interface{}{"key": key},
	}
}

// MarkupNotFound is returned when neither a merchant nor a default markup exists
func MarkupNotFound(merchantID, assetPairID string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    CodeMarkupNotFound,
		Message: fmt.Sprintf("markup not found for merchant %s and asset pair %s", merchantID, assetPairID),
		Details: map[string]interface{}{"merchant_id": merchantID, "asset_pair_id": assetPairID},
	}
}

// AssetNotSupported is returned before any network call when a backend cannot move an asset
func AssetNotSupported(assetID, blockchain string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    CodeAssetNotSupported,
		Message: fmt.Sprintf("asset %s is not supported on %s", assetID, blockchain),
		Details: map[string]interface{}{"asset_id": assetID, "blockchain": blockchain},
	}
}

// BlockchainNotSupported is returned when no backend is registered for a blockchain
func BlockchainNotSupported(blockchain string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    CodeBlockchainNotSupported,
		Message: fmt.Sprintf("blockchain %s is not supported", blockchain),
		Details: map[string]interface{}{"blockchain": blockchain},
	}
}

// WalletAllocationFailed is returned when a backend could not create an address
func WalletAllocationFailed(blockchain, reason string) *DomainError {
	return &DomainError{
		Err:       ErrServiceUnavailable,
		Code:      CodeWalletAllocationFailed,
		Message:   fmt.Sprintf("wallet allocation failed for blockchain %s: %s", blockchain, reason),
		Details:   map[string]interface{}{"blockchain": blockchain, "reason": reason},
		Retryable: true,
	}
}

// NotAllowedStatus is returned when an operation is not valid in the request's current status
func NotAllowedStatus(status string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    CodeNotAllowedStatus,
		Message: fmt.Sprintf("operation not allowed in status %s", status),
		Details: map[string]interface{}{"status": status},
	}
}

// InsufficientBalance is returned when the spendable balance cannot cover a transfer
func InsufficientBalance(address string, available, required decimal.Decimal) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    CodeInsufficientBalance,
		Message: fmt.Sprintf("not enough money on %s: available %s, required %s", address, available, required),
		Details: map[string]interface{}{
			"address":   address,
			"available": available.String(),
			"required":  required.String(),
		},
	}
}

// NoTransactionsToRefund is returned when a request has no payment to refund
func NoTransactionsToRefund(paymentRequestID string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    CodeNoTransactionsToRefund,
		Message: fmt.Sprintf("no payment transactions to refund for payment request %s", paymentRequestID),
		Details: map[string]interface{}{"payment_request_id": paymentRequestID},
	}
}

// MultiTransactionRefundNotSupported is returned when more than one payment would have to be refunded
func MultiTransactionRefundNotSupported(count int) *DomainError {
	return &DomainError{
		Err:     ErrInvariant,
		Code:    CodeMultiTransactionRefund,
		Message: fmt.Sprintf("refund of %d payment transactions is not supported", count),
		Details: map[string]interface{}{"count": count},
	}
}

// TransferFailed carries the gateway's failure message
func TransferFailed(message string) *DomainError {
	return &DomainError{
		Err:     ErrServiceUnavailable,
		Code:    CodeTransferFailed,
		Message: fmt.Sprintf("transfer failed: %s", message),
		Details: map[string]interface{}{"reason": message},
	}
}

// MarketPriceZero is returned when a reverse price needs a zero market price
func MarketPriceZero(assetPairID string) *DomainError {
	return &DomainError{
		Err:     ErrInvariant,
		Code:    CodeMarketPriceZero,
		Message: fmt.Sprintf("market price is zero for asset pair %s", assetPairID),
		Details: map[string]interface{}{"asset_pair_id": assetPairID},
	}
}

// UnexpectedCalculationMethod is a contract violation in the pricing engine
func UnexpectedCalculationMethod(method string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    CodeUnexpectedCalculationMethod,
		Message: fmt.Sprintf("unexpected price calculation method: %s", method),
		Details: map[string]interface{}{"method": method},
	}
}

// NegativeValue is returned for amounts or percentages that must not be negative
func NegativeValue(field string, value decimal.Decimal) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    CodeNegativeValue,
		Message: fmt.Sprintf("%s must not be negative, got %s", field, value),
		Details: map[string]interface{}{"field": field, "value": value.String()},
	}
}

// InvalidAddress is returned when a backend rejects an address
func InvalidAddress(address, blockchain string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    CodeInvalidAddress,
		Message: fmt.Sprintf("address %s is not valid on %s", address, blockchain),
		Details: map[string]interface{}{"address": address, "blockchain": blockchain},
	}
}

// WalletLeaseDenied is returned when every candidate wallet was taken concurrently
func WalletLeaseDenied(blockchain string) *DomainError {
	return &DomainError{
		Err:       ErrConflict,
		Code:      CodeWalletLeaseDenied,
		Message:   fmt.Sprintf("no wallet could be leased on %s", blockchain),
		Details:   map[string]interface{}{"blockchain": blockchain},
		Retryable: true,
	}
}

// RefundDestinationRequired is returned when a refund has no destination address
func RefundDestinationRequired() *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    CodeRefundDestinationRequired,
		Message: "refund destination address is required",
		Details: map[string]interface{}{"field": "destination_address"},
	}
}

// RefundDestinationConflict is returned when a retried refund names another destination
func RefundDestinationConflict(paymentRequestID, destination string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    CodeRefundDestinationConflict,
		Message: fmt.Sprintf("refund of payment request %s is already going to %s", paymentRequestID, destination),
		Details: map[string]interface{}{"payment_request_id": paymentRequestID, "destination_address": destination},
	}
}

// PaymentAlreadyReceived is returned when a request with observed payments is cancelled
func PaymentAlreadyReceived(paymentRequestID string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    CodePaymentAlreadyReceived,
		Message: fmt.Sprintf("payment request %s already received a payment", paymentRequestID),
		Details: map[string]interface{}{"payment_request_id": paymentRequestID},
	}
}
