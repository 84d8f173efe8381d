// Package assets reads asset and asset pair metadata from the asset registry service.
package assets

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/infrastructure/adapters/apiclient"
)

type assetResponse struct {
	ID           string `json:"id"`
	DisplayID    string `json:"displayId"`
	Accuracy     int32  `json:"accuracy"`
	Type         string `json:"type"`
	Blockchain   string `json:"blockchain"`
	AssetAddress string `json:"assetAddress"`
	IsTradable   bool   `json:"isTradable"`
}

type assetPairResponse struct {
	ID             string `json:"id"`
	BaseAssetID    string `json:"baseAssetId"`
	QuotingAssetID string `json:"quotingAssetId"`
	Accuracy       int32  `json:"accuracy"`
}

// Client talks to the asset registry
type Client struct {
	api    *apiclient.Client
	logger *zap.Logger
}

// NewClient creates an asset registry client
func NewClient(api *apiclient.Client, logger *zap.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// GetAsset returns a single asset
func (c *Client) GetAsset(ctx context.Context, id string) (*entities.Asset, error) {
	var resp assetResponse
	if err := c.api.Get(ctx, "/api/v2/assets/"+url.PathEscape(id), &resp); err != nil {
		if apiclient.IsNotFound(err) {
			return nil, domainerrors.TypedNotFound(domainerrors.CodeAssetNotFound, "asset", id)
		}
		return nil, domainerrors.ServiceUnavailableError("asset registry", err)
	}

	blockchain := entities.BlockchainType(resp.Blockchain)
	if !blockchain.IsValid() {
		blockchain = entities.BlockchainNone
	}

	return &entities.Asset{
		ID:           resp.ID,
		DisplayID:    resp.DisplayID,
		Accuracy:     resp.Accuracy,
		Type:         entities.AssetType(resp.Type),
		Blockchain:   blockchain,
		AssetAddress: resp.AssetAddress,
		IsTradable:   resp.IsTradable,
	}, nil
}

// GetAssetPairByID returns a single asset pair
func (c *Client) GetAssetPairByID(ctx context.Context, id string) (*entities.AssetPair, error) {
	var resp assetPairResponse
	if err := c.api.Get(ctx, "/api/v2/asset-pairs/"+url.PathEscape(id), &resp); err != nil {
		if apiclient.IsNotFound(err) {
			return nil, domainerrors.TypedNotFound(domainerrors.CodeAssetPairNotFound, "asset pair", id)
		}
		return nil, domainerrors.ServiceUnavailableError("asset registry", err)
	}
	return toAssetPair(resp), nil
}

// ListAssetPairs returns every listed asset pair
func (c *Client) ListAssetPairs(ctx context.Context) ([]*entities.AssetPair, error) {
	var resp []assetPairResponse
	if err := c.api.Get(ctx, "/api/v2/asset-pairs", &resp); err != nil {
		return nil, domainerrors.ServiceUnavailableError("asset registry", err)
	}

	pairs := make([]*entities.AssetPair, 0, len(resp))
	for _, p := range resp {
		pairs = append(pairs, toAssetPair(p))
	}
	c.logger.Debug("Asset pairs loaded", zap.Int("count", len(pairs)))
	return pairs, nil
}

func toAssetPair(p assetPairResponse) *entities.AssetPair {
	return &entities.AssetPair{
		ID:             p.ID,
		BaseAssetID:    p.BaseAssetID,
		QuotingAssetID: p.QuotingAssetID,
		Accuracy:       p.Accuracy,
	}
}
