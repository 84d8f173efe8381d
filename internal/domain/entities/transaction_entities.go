package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction observed on a wallet
type TransactionType string

const (
	TransactionTypePayment  TransactionType = "Payment"
	TransactionTypeRefund   TransactionType = "Refund"
	TransactionTypeTransfer TransactionType = "Transfer"
)

// TransactionIdentityType tells what Identity holds
type TransactionIdentityType string

const (
	TransactionIdentityHash     TransactionIdentityType = "Hash"
	TransactionIdentitySpecific TransactionIdentityType = "Specific"
)

// PaymentRequestTransaction is an observed blockchain transaction tied to a wallet.
// It is unique by (Blockchain, IdentityType, Identity).
type PaymentRequestTransaction struct {
	ID                    uuid.UUID               `json:"id" db:"id"`
	TransactionID         string                  `json:"transaction_id" db:"transaction_id"`
	Blockchain            BlockchainType          `json:"blockchain" db:"blockchain"`
	IdentityType          TransactionIdentityType `json:"identity_type" db:"identity_type"`
	Identity              string                  `json:"identity" db:"identity"`
	PaymentRequestID      *uuid.UUID              `json:"payment_request_id,omitempty" db:"payment_request_id"`
	Amount                decimal.Decimal         `json:"amount" db:"amount"`
	AssetID               string                  `json:"asset_id" db:"asset_id"`
	Confirmations         int                     `json:"confirmations" db:"confirmations"`
	BlockID               string                  `json:"block_id,omitempty" db:"block_id"`
	WalletAddress         string                  `json:"wallet_address" db:"wallet_address"`
	SourceWalletAddresses []string                `json:"source_wallet_addresses" db:"-"`
	TransactionType       TransactionType         `json:"transaction_type" db:"transaction_type"`
	FirstSeen             *time.Time              `json:"first_seen,omitempty" db:"first_seen"`
	DueDate               *time.Time              `json:"due_date,omitempty" db:"due_date"`
}

// IsConfirmed reports whether the transaction reached the required confirmations
func (t *PaymentRequestTransaction) IsConfirmed(required int) bool {
	return t.Confirmations >= required
}

// IsPayment reports whether the transaction pays into a request
func (t *PaymentRequestTransaction) IsPayment() bool {
	return t.TransactionType == TransactionTypePayment
}

// IsRefund reports whether the transaction refunds a request
func (t *PaymentRequestTransaction) IsRefund() bool {
	return t.TransactionType == TransactionTypeRefund
}

// CreateTransactionCommand records a newly observed transaction
type CreateTransactionCommand struct {
	TransactionID         string                  `json:"transaction_id" validate:"required"`
	Blockchain            BlockchainType          `json:"blockchain" validate:"required"`
	IdentityType          TransactionIdentityType `json:"identity_type" validate:"required,oneof=Hash Specific"`
	Identity              string                  `json:"identity" validate:"required"`
	Amount                decimal.Decimal         `json:"amount"`
	AssetID               string                  `json:"asset_id" validate:"required"`
	Confirmations         int                     `json:"confirmations" validate:"gte=0"`
	BlockID               string                  `json:"block_id"`
	WalletAddress         string                  `json:"wallet_address" validate:"required"`
	SourceWalletAddresses []string                `json:"source_wallet_addresses"`
	Type                  TransactionType         `json:"type" validate:"required,oneof=Payment Refund Transfer"`
	FirstSeen             *time.Time              `json:"first_seen"`
	DueDate               *time.Time              `json:"due_date"`
}

// UpdateTransactionCommand carries a later observation of a known transaction.
// WalletAddress may be empty, in which case the stored transaction supplies it.
type UpdateTransactionCommand struct {
	Blockchain    BlockchainType          `json:"blockchain" validate:"required"`
	IdentityType  TransactionIdentityType `json:"identity_type" validate:"required,oneof=Hash Specific"`
	Identity      string                  `json:"identity" validate:"required"`
	WalletAddress string                  `json:"wallet_address"`
	Amount        decimal.Decimal         `json:"amount"`
	Confirmations int                     `json:"confirmations" validate:"gte=0"`
	BlockID       string                  `json:"block_id"`
	FirstSeen     *time.Time              `json:"first_seen"`
}

// TransferReportCommand reports the chain hash of a transfer the node accepted
// under an operation id. Blockchain defaults to Ethereum.
type TransferReportCommand struct {
	TransferID      string         `json:"TransferId" validate:"required"`
	TransactionHash string         `json:"TransactionHash" validate:"required"`
	Blockchain      BlockchainType `json:"Blockchain"`
}

// TransactionEvent is published for new and updated transactions
type TransactionEvent struct {
	Kind        string                     `json:"kind"`
	Transaction *PaymentRequestTransaction `json:"transaction"`
	OccurredAt  time.Time                  `json:"occurred_at"`
}

const (
	TransactionEventCreated = "created"
	TransactionEventUpdated = "updated"
)
