package entities

import (
	"strings"
	"time"
)

// AssetAvailabilityType tells which side of a payment an asset is enabled for
type AssetAvailabilityType string

const (
	AssetAvailabilityPayment    AssetAvailabilityType = "Payment"
	AssetAvailabilitySettlement AssetAvailabilityType = "Settlement"
)

// IsValid reports whether the type is known
func (t AssetAvailabilityType) IsValid() bool {
	return t == AssetAvailabilityPayment || t == AssetAvailabilitySettlement
}

// AssetAvailability is the service wide switch for one asset and type
type AssetAvailability struct {
	AssetID          string                `json:"asset_id" db:"asset_id"`
	AvailabilityType AssetAvailabilityType `json:"availability_type" db:"availability_type"`
	Available        bool                  `json:"available" db:"available"`
	UpdatedAt        time.Time             `json:"updated_at" db:"updated_at"`
}

// AssetsSeparator joins asset ids in merchant availability lists
const AssetsSeparator = ";"

// AssetAvailabilityByMerchant narrows the assets one merchant may use.
// Both lists are AssetsSeparator joined; an empty list means "use the defaults".
type AssetAvailabilityByMerchant struct {
	MerchantID       string    `json:"merchant_id" db:"merchant_id"`
	PaymentAssets    string    `json:"payment_assets" db:"payment_assets"`
	SettlementAssets string    `json:"settlement_assets" db:"settlement_assets"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Assets returns the merchant list for the given type
func (a *AssetAvailabilityByMerchant) Assets(t AssetAvailabilityType) string {
	if t == AssetAvailabilitySettlement {
		return a.SettlementAssets
	}
	return a.PaymentAssets
}

// SplitAssets splits an AssetsSeparator joined list, dropping blanks
func SplitAssets(list string) []string {
	var ids []string
	for _, id := range strings.Split(list, AssetsSeparator) {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// SetGeneralAvailabilityCommand toggles an asset service wide
type SetGeneralAvailabilityCommand struct {
	AssetID          string                `json:"asset_id" validate:"required"`
	AvailabilityType AssetAvailabilityType `json:"availability_type" validate:"required,oneof=Payment Settlement"`
	Value            bool                  `json:"value"`
}

// SetPersonalAvailabilityCommand replaces a merchant's asset lists
type SetPersonalAvailabilityCommand struct {
	PaymentAssets    string `json:"payment_assets"`
	SettlementAssets string `json:"settlement_assets"`
}
