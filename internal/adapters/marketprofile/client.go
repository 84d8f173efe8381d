// Package marketprofile reads current bid/ask quotes from the market profile service.
package marketprofile

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/infrastructure/adapters/apiclient"
)

type assetPairModel struct {
	AssetPair string          `json:"assetPair"`
	BidPrice  decimal.Decimal `json:"bidPrice"`
	AskPrice  decimal.Decimal `json:"askPrice"`
}

// Client fetches market rates
type Client struct {
	api    *apiclient.Client
	logger *zap.Logger
}

// NewClient creates a market profile client
func NewClient(api *apiclient.Client, logger *zap.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// GetRate returns the current quote for assetPairID
func (c *Client) GetRate(ctx context.Context, assetPairID string) (*entities.AssetPairRate, error) {
	var resp assetPairModel
	if err := c.api.Get(ctx, "/api/MarketProfile/"+url.PathEscape(assetPairID), &resp); err != nil {
		if apiclient.IsNotFound(err) {
			return nil, domainerrors.TypedNotFound(domainerrors.CodeAssetPairNotFound, "market profile", assetPairID)
		}
		return nil, domainerrors.ServiceUnavailableError("market profile", err)
	}

	c.logger.Debug("Market rate received",
		zap.String("asset_pair", assetPairID),
		zap.String("bid", resp.BidPrice.String()),
		zap.String("ask", resp.AskPrice.String()))

	return &entities.AssetPairRate{
		AssetPairID: assetPairID,
		BidPrice:    resp.BidPrice,
		AskPrice:    resp.AskPrice,
	}, nil
}
