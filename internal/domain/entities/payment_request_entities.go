package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest is a merchant's request to collect a settlement amount from a payer
type PaymentRequest struct {
	ID                uuid.UUID            `json:"id" db:"id"`
	MerchantID        string               `json:"merchant_id" db:"merchant_id"`
	ExternalOrderID   string               `json:"external_order_id,omitempty" db:"external_order_id"`
	SettlementAssetID string               `json:"settlement_asset_id" db:"settlement_asset_id"`
	PaymentAssetID    string               `json:"payment_asset_id" db:"payment_asset_id"`
	Amount            decimal.Decimal      `json:"amount" db:"amount"`
	DueDate           time.Time            `json:"due_date" db:"due_date"`
	MarkupPercent     decimal.Decimal      `json:"markup_percent" db:"markup_percent"`
	MarkupPips        int32                `json:"markup_pips" db:"markup_pips"`
	MarkupFixedFee    decimal.Decimal      `json:"markup_fixed_fee" db:"markup_fixed_fee"`
	WalletAddress     string               `json:"wallet_address,omitempty" db:"wallet_address"`
	WalletBoundAt     *time.Time           `json:"wallet_bound_at,omitempty" db:"wallet_bound_at"`
	OrderID           *uuid.UUID           `json:"order_id,omitempty" db:"order_id"`
	Status            PaymentRequestStatus `json:"status" db:"status"`
	ProcessingError   ProcessingError      `json:"processing_error,omitempty" db:"processing_error"`
	PaidAmount        decimal.Decimal      `json:"paid_amount" db:"paid_amount"`
	PaidDate          *time.Time           `json:"paid_date,omitempty" db:"paid_date"`
	Timestamp         time.Time            `json:"timestamp" db:"timestamp"`
}

// RequestMarkup returns the per request markup terms
func (p *PaymentRequest) RequestMarkup() RequestMarkup {
	return RequestMarkup{Percent: p.MarkupPercent, Pips: p.MarkupPips, FixedFee: p.MarkupFixedFee}
}

// IsExpired reports whether the request due date has passed at now
func (p *PaymentRequest) IsExpired(now time.Time) bool {
	return now.After(p.DueDate)
}

// WalletState is a wallet chain watchers should keep observing until DueDate
type WalletState struct {
	Address          string         `json:"address"`
	Blockchain       BlockchainType `json:"blockchain"`
	DueDate          time.Time      `json:"due_date"`
	PaymentRequestID uuid.UUID      `json:"payment_request_id"`
}

// CreatePaymentRequestCommand carries the fields needed to open a payment request
type CreatePaymentRequestCommand struct {
	MerchantID        string          `json:"merchant_id" validate:"required"`
	ExternalOrderID   string          `json:"external_order_id"`
	SettlementAssetID string          `json:"settlement_asset_id" validate:"required"`
	PaymentAssetID    string          `json:"payment_asset_id" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	DueDate           time.Time       `json:"due_date" validate:"required"`
	MarkupPercent     decimal.Decimal `json:"markup_percent"`
	MarkupPips        int32           `json:"markup_pips" validate:"gte=0"`
	MarkupFixedFee    decimal.Decimal `json:"markup_fixed_fee"`
}

// Order is a rate-locked, time-boxed quote for a payment request.
// It is valid for new checkouts until DueDate and accepts payments until ExtendedDueDate.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	MerchantID       string          `json:"merchant_id" db:"merchant_id"`
	PaymentRequestID uuid.UUID       `json:"payment_request_id" db:"payment_request_id"`
	AssetPairID      string          `json:"asset_pair_id" db:"asset_pair_id"`
	SettlementAmount decimal.Decimal `json:"settlement_amount" db:"settlement_amount"`
	PaymentAmount    decimal.Decimal `json:"payment_amount" db:"payment_amount"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	DueDate          time.Time       `json:"due_date" db:"due_date"`
	ExtendedDueDate  time.Time       `json:"extended_due_date" db:"extended_due_date"`
	CreatedDate      time.Time       `json:"created_date" db:"created_date"`
}

// IsValidAt reports whether the order can still be reused for checkout at t
func (o *Order) IsValidAt(t time.Time) bool {
	return !t.After(o.DueDate)
}

// StatusInfo is the result of a status resolution or an explicit status request
type StatusInfo struct {
	Status          PaymentRequestStatus
	ProcessingError ProcessingError
	Amount          decimal.Decimal
	Date            *time.Time
}

// NewStatusInfo returns a status without error details
func NewStatusInfo(status PaymentRequestStatus) StatusInfo {
	return StatusInfo{Status: status}
}

// ErrorStatusInfo returns an Error status carrying kind
func ErrorStatusInfo(kind ProcessingError) StatusInfo {
	return StatusInfo{Status: PaymentRequestStatusError, ProcessingError: kind}
}

// ConfirmedStatusInfo returns a Confirmed status with the paid amount and date
func ConfirmedStatusInfo(amount decimal.Decimal, date time.Time) StatusInfo {
	return StatusInfo{Status: PaymentRequestStatusConfirmed, Amount: amount, Date: &date}
}

// Equal reports whether two status infos describe the same persisted state
func (s StatusInfo) Equal(other StatusInfo) bool {
	return s.Status == other.Status && s.ProcessingError == other.ProcessingError
}

// StatusTransitionEvent is emitted whenever a payment request changes status
type StatusTransitionEvent struct {
	PaymentRequestID uuid.UUID            `json:"payment_request_id"`
	MerchantID       string               `json:"merchant_id"`
	WalletAddress    string               `json:"wallet_address"`
	OldStatus        PaymentRequestStatus `json:"old_status"`
	NewStatus        PaymentRequestStatus `json:"new_status"`
	ProcessingError  ProcessingError      `json:"processing_error,omitempty"`
	OccurredAt       time.Time            `json:"occurred_at"`
}
