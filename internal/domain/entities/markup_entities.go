package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceCalculationMethod selects which side of the book a price is taken from
type PriceCalculationMethod string

const (
	PriceCalculationByBid PriceCalculationMethod = "ByBid"
	PriceCalculationByAsk PriceCalculationMethod = "ByAsk"
)

// PriceMethod tells how a merchant's price asset pair maps to the payment rate
type PriceMethod string

const (
	PriceMethodNone    PriceMethod = "None"
	PriceMethodDirect  PriceMethod = "Direct"
	PriceMethodReverse PriceMethod = "Reverse"
)

// DefaultMarkupIdentity is the merchant id under which default markups are stored
const DefaultMarkupIdentity = "default"

// Markup is a merchant level pricing adjustment for an asset pair.
// Negative Percent or Pips mean "use the liquidity provider default".
type Markup struct {
	MerchantID       string          `json:"merchant_id" db:"merchant_id"`
	AssetPairID      string          `json:"asset_pair_id" db:"asset_pair_id"`
	DeltaSpread      decimal.Decimal `json:"delta_spread" db:"delta_spread"`
	Percent          decimal.Decimal `json:"percent" db:"percent"`
	Pips             int32           `json:"pips" db:"pips"`
	FixedFee         decimal.Decimal `json:"fixed_fee" db:"fixed_fee"`
	PriceAssetPairID string          `json:"price_asset_pair_id,omitempty" db:"price_asset_pair_id"`
	PriceMethod      PriceMethod     `json:"price_method" db:"price_method"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// RequestMarkup is the per payment request markup supplied by the merchant
type RequestMarkup struct {
	Percent  decimal.Decimal `json:"percent"`
	Pips     int32           `json:"pips"`
	FixedFee decimal.Decimal `json:"fixed_fee"`
}

// LpMarkup is the liquidity provider default fee
type LpMarkup struct {
	Percent decimal.Decimal `json:"percent"`
	Pips    int32           `json:"pips"`
}
