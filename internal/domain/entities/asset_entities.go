package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BlockchainType identifies a blockchain backend
type BlockchainType string

const (
	BlockchainNone     BlockchainType = "None"
	BlockchainBitcoin  BlockchainType = "Bitcoin"
	BlockchainEthereum BlockchainType = "Ethereum"
)

var validBlockchains = map[BlockchainType]bool{
	BlockchainBitcoin:  true,
	BlockchainEthereum: true,
}

// IsValid reports whether b names a supported blockchain
func (b BlockchainType) IsValid() bool {
	return validBlockchains[b]
}

// ParseBlockchainType parses a blockchain name, rejecting None and unknown values
func ParseBlockchainType(s string) (BlockchainType, error) {
	b := BlockchainType(s)
	if !b.IsValid() {
		return BlockchainNone, fmt.Errorf("unsupported blockchain: %q", s)
	}
	return b, nil
}

// AssetType describes how an asset is represented on chain
type AssetType string

const (
	AssetTypeNative     AssetType = "Native"
	AssetTypeErc20Token AssetType = "Erc20Token"
)

// Well-known bitcoin asset identifiers
const (
	AssetBTC     = "BTC"
	AssetSatoshi = "SATOSHI"
)

// SatoshisPerBitcoin converts satoshi amounts to BTC
var SatoshisPerBitcoin = decimal.New(1, 8)

// Asset is the catalog view of an asset
type Asset struct {
	ID           string         `json:"id"`
	DisplayID    string         `json:"display_id"`
	Accuracy     int32          `json:"accuracy"`
	Type         AssetType      `json:"type"`
	Blockchain   BlockchainType `json:"blockchain"`
	AssetAddress string         `json:"asset_address,omitempty"`
	IsTradable   bool           `json:"is_tradable"`
}

// AssetPair is a tradable base/quoting pair
type AssetPair struct {
	ID             string `json:"id"`
	BaseAssetID    string `json:"base_asset_id"`
	QuotingAssetID string `json:"quoting_asset_id"`
	Accuracy       int32  `json:"accuracy"`
}

// AssetPairRate is the current market quote for a pair
type AssetPairRate struct {
	AssetPairID string          `json:"asset_pair_id"`
	BidPrice    decimal.Decimal `json:"bid_price"`
	AskPrice    decimal.Decimal `json:"ask_price"`
}
