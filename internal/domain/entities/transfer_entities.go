package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferState is the terminal outcome of a transfer
type TransferState string

const (
	TransferStateSuccess TransferState = "Success"
	TransferStateFail    TransferState = "Fail"
)

// AddressAmount is an amount attributed to one address
type AddressAmount struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// TransferCommand moves AssetID from source to destination pairs on one blockchain.
// Resending a command with the same OperationID must not move funds twice.
type TransferCommand struct {
	OperationID string           `json:"operation_id,omitempty"`
	AssetID     string           `json:"asset_id"`
	Amounts     []TransferAmount `json:"amounts"`
}

// TransferAmount is a single source to destination leg
type TransferAmount struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
}

// TransactionResult is the outcome for one destination group. Error is empty on success.
type TransactionResult struct {
	Blockchain   BlockchainType          `json:"blockchain"`
	Hash         string                  `json:"hash"`
	IdentityType TransactionIdentityType `json:"identity_type"`
	Identity     string                  `json:"identity"`
	Sources      []AddressAmount         `json:"sources"`
	Destination  string                  `json:"destination"`
	Amount       decimal.Decimal         `json:"amount"`
	AssetID      string                  `json:"asset_id"`
	Error        string                  `json:"error,omitempty"`
}

// Failed reports whether this leg failed
func (r *TransactionResult) Failed() bool {
	return r.Error != ""
}

// TransferResult aggregates the per destination results of a TransferCommand
type TransferResult struct {
	Blockchain   BlockchainType      `json:"blockchain"`
	Transactions []TransactionResult `json:"transactions"`
}

// HasFailures reports whether any leg failed
func (r *TransferResult) HasFailures() bool {
	for i := range r.Transactions {
		if r.Transactions[i].Failed() {
			return true
		}
	}
	return false
}

// TransferPart moves funds from one or more sources to a single destination
type TransferPart struct {
	Sources     []AddressAmount `json:"sources"`
	Destination AddressAmount   `json:"destination"`
}

// MultipartTransfer is an ephemeral plan to move funds for a payment request.
// OperationID identifies the transfer to the node across retries.
type MultipartTransfer struct {
	OperationID      string          `json:"operation_id,omitempty"`
	PaymentRequestID string          `json:"payment_request_id"`
	AssetID          string          `json:"asset_id"`
	Blockchain       BlockchainType  `json:"blockchain"`
	TransactionType  TransactionType `json:"transaction_type"`
	Parts            []TransferPart  `json:"parts"`
	// DueDate is stamped on the recorded transactions
	DueDate *time.Time `json:"due_date,omitempty"`
}

// MultipartTransferResult is the terminal outcome of a MultipartTransfer
type MultipartTransferResult struct {
	State        TransferState       `json:"state"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Transactions []TransactionResult `json:"transactions"`
}
