package entities

import "github.com/shopspring/decimal"

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CheckoutResponse returns the bound wallet and the active order
type CheckoutResponse struct {
	PaymentRequest *PaymentRequest `json:"payment_request"`
	Order          *Order          `json:"order"`
}

// ExpiredWalletRequest asks to release a wallet whose lifecycle ended
type ExpiredWalletRequest struct {
	WalletAddress string         `json:"wallet_address" validate:"required"`
	Blockchain    BlockchainType `json:"blockchain" validate:"required"`
}

// SetMarkupRequest stores a merchant or default markup for an asset pair
type SetMarkupRequest struct {
	DeltaSpread      decimal.Decimal `json:"delta_spread"`
	Percent          decimal.Decimal `json:"percent"`
	Pips             int32           `json:"pips"`
	FixedFee         decimal.Decimal `json:"fixed_fee"`
	PriceAssetPairID string          `json:"price_asset_pair_id"`
	PriceMethod      PriceMethod     `json:"price_method" validate:"omitempty,oneof=None Direct Reverse"`
}

// SweepResponse reports one expiration sweep
type SweepResponse struct {
	Expired  int `json:"expired"`
	Released int `json:"released"`
	Failed   int `json:"failed"`
}

// AvailableAssetsResponse lists the asset ids a merchant may use
type AvailableAssetsResponse struct {
	Assets []string `json:"assets"`
}
