package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundState tracks whether the refund transfer reached the node
type RefundState string

const (
	// RefundStatePending is saved before the transfer is sent. A retry resends it under the same id.
	RefundStatePending RefundState = "Pending"
	RefundStateSent    RefundState = "Sent"
)

// RefundRecord is one refund of a payment request. Its ID is the operation id
// handed to the node, so every retry of the refund reuses the record.
type RefundRecord struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	PaymentRequestID   uuid.UUID       `json:"payment_request_id" db:"payment_request_id"`
	MerchantID         string          `json:"merchant_id" db:"merchant_id"`
	State              RefundState     `json:"state" db:"state"`
	SourceAddress      string          `json:"source_address" db:"source_address"`
	DestinationAddress string          `json:"destination_address" db:"destination_address"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	DueDate            time.Time       `json:"due_date" db:"due_date"`
	SettlementID       string          `json:"settlement_id,omitempty" db:"settlement_id"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// RefundInfo summarizes the refund transactions sent from a wallet
type RefundInfo struct {
	PaymentRequestID uuid.UUID                 `json:"payment_request_id"`
	WalletAddress    string                    `json:"wallet_address"`
	AssetID          string                    `json:"asset_id"`
	Amount           decimal.Decimal           `json:"amount"`
	DueDate          *time.Time                `json:"due_date,omitempty"`
	Transactions     []RefundTransactionResult `json:"transactions"`
}

// RefundRequest asks to return the payment on SourceAddress to DestinationAddress
type RefundRequest struct {
	MerchantID         string `json:"merchant_id" validate:"required"`
	SourceAddress      string `json:"source_address" validate:"required"`
	DestinationAddress string `json:"destination_address"`
	CallbackURL        string `json:"callback_url,omitempty" validate:"omitempty,url"`
}

// RefundResult describes an accepted refund
type RefundResult struct {
	RefundID         uuid.UUID                 `json:"refund_id"`
	PaymentRequestID uuid.UUID                 `json:"payment_request_id"`
	AssetID          string                    `json:"asset_id"`
	Amount           decimal.Decimal           `json:"amount"`
	DueDate          time.Time                 `json:"due_date"`
	Transactions     []RefundTransactionResult `json:"transactions"`
}

// RefundTransactionResult is one on-chain leg of a refund
type RefundTransactionResult struct {
	Amount             decimal.Decimal         `json:"amount"`
	AssetID            string                  `json:"asset_id"`
	Blockchain         BlockchainType          `json:"blockchain"`
	Hash               string                  `json:"hash"`
	IdentityType       TransactionIdentityType `json:"identity_type"`
	Identity           string                  `json:"identity"`
	SourceAddress      string                  `json:"source_address"`
	DestinationAddress string                  `json:"destination_address"`
}
