package entities

import (
	"time"
)

// WalletLease is the exclusive assignment of an address to one payment request.
// An empty OccupiedBy means the wallet is vacant.
type WalletLease struct {
	WalletAddress string         `json:"wallet_address" db:"wallet_address"`
	Blockchain    BlockchainType `json:"blockchain" db:"blockchain"`
	OccupiedBy    string         `json:"occupied_by" db:"occupied_by"`
	Since         time.Time      `json:"since" db:"since"`
	Version       int64          `json:"version" db:"version"`
}

// IsVacant reports whether nobody holds the lease
func (l *WalletLease) IsVacant() bool {
	return l.OccupiedBy == ""
}

// MerchantWallet is an address that was issued to a merchant
type MerchantWallet struct {
	MerchantID string         `json:"merchant_id" db:"merchant_id"`
	Address    string         `json:"address" db:"address"`
	Blockchain BlockchainType `json:"blockchain" db:"blockchain"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
