package blockchain

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/infrastructure/adapters/apiclient"
)

type erc20DepositResponse struct {
	Contract string     `json:"contract"`
	Error    *nodeError `json:"error,omitempty"`
}

type erc20TransferRequest struct {
	OperationID  string          `json:"operation_id"`
	TokenAddress string          `json:"token_address"`
	Sources      []sourceAmount  `json:"sources"`
	Destination  string          `json:"destination"`
	Amount       decimal.Decimal `json:"amount"`
}

type erc20TransferResponse struct {
	OperationID string     `json:"operation_id"`
	Error       *nodeError `json:"error,omitempty"`
}

// EthereumClient moves ERC20 tokens through deposit contracts managed by an ethereum node service
type EthereumClient struct {
	api    *apiclient.Client
	assets AssetLookup
	logger *zap.Logger
}

// NewEthereumClient creates the ethereum backend
func NewEthereumClient(api *apiclient.Client, assets AssetLookup, logger *zap.Logger) *EthereumClient {
	return &EthereumClient{
		api:    api,
		assets: assets,
		logger: logger.Named("ethereum"),
	}
}

// Blockchain implements Client
func (c *EthereumClient) Blockchain() entities.BlockchainType {
	return entities.BlockchainEthereum
}

// CreateAddress registers a new deposit contract and returns its address
func (c *EthereumClient) CreateAddress(ctx context.Context) (string, error) {
	var resp erc20DepositResponse
	if err := c.api.Post(ctx, "/api/erc20deposits", nil, &resp); err != nil {
		c.logger.Warn("New erc20 address generation failed", zap.Error(err))
		return "", domainerrors.WalletAllocationFailed(string(entities.BlockchainEthereum), err.Error())
	}

	outcome := AddressOutcome{Address: resp.Contract}
	if resp.Error != nil {
		outcome.Failure = resp.Error.Message
	}
	if !outcome.Created() {
		c.logger.Warn("New erc20 address generation rejected", zap.String("reason", outcome.Failure))
		return "", domainerrors.WalletAllocationFailed(string(entities.BlockchainEthereum), outcome.Failure)
	}
	return outcome.Address, nil
}

// ValidateAddress checks the 20 byte hex form
func (c *EthereumClient) ValidateAddress(_ context.Context, address string) (bool, error) {
	return common.IsHexAddress(address), nil
}

func (c *EthereumClient) tokenAsset(ctx context.Context, assetID string) (*entities.Asset, error) {
	asset, err := c.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", assetID, err)
	}
	if asset.Type != entities.AssetTypeErc20Token || !asset.IsTradable {
		return nil, domainerrors.AssetNotSupported(assetID, string(entities.BlockchainEthereum))
	}
	return asset, nil
}

// Transfer sends one token transfer per destination
func (c *EthereumClient) Transfer(ctx context.Context, cmd *entities.TransferCommand) (*entities.TransferResult, error) {
	asset, err := c.tokenAsset(ctx, cmd.AssetID)
	if err != nil {
		return nil, err
	}

	result := &entities.TransferResult{Blockchain: entities.BlockchainEthereum}
	for _, group := range groupByDestination(cmd.Amounts) {
		req := erc20TransferRequest{
			OperationID:  nodeTransactionID(cmd.OperationID, group.destination),
			TokenAddress: asset.AssetAddress,
			Destination:  group.destination,
			Amount:       decimal.Zero,
		}
		txResult := entities.TransactionResult{
			Blockchain:   entities.BlockchainEthereum,
			IdentityType: entities.TransactionIdentitySpecific,
			Destination:  group.destination,
			AssetID:      asset.ID,
		}
		for _, leg := range group.legs {
			req.Sources = append(req.Sources, sourceAmount{Address: leg.Source, Amount: leg.Amount})
			req.Amount = req.Amount.Add(leg.Amount)
			txResult.Sources = append(txResult.Sources, entities.AddressAmount{Address: leg.Source, Amount: leg.Amount})
		}
		txResult.Amount = req.Amount

		outcome := c.transfer(ctx, req)
		txResult.Identity = outcome.Identity
		if !outcome.Accepted() {
			txResult.Error = outcome.Failure
		}
		result.Transactions = append(result.Transactions, txResult)
	}

	return result, nil
}

func (c *EthereumClient) transfer(ctx context.Context, req erc20TransferRequest) TransferOutcome {
	var resp erc20TransferResponse
	if err := c.api.Post(ctx, "/api/erc20deposits/transfer", req, &resp); err != nil {
		c.logger.Error("Erc20 transfer request failed",
			zap.String("destination", req.Destination),
			zap.Error(err))
		return TransferOutcome{Failure: err.Error()}
	}
	if resp.Error != nil {
		c.logger.Warn("Erc20 transfer rejected",
			zap.String("destination", req.Destination),
			zap.String("message", resp.Error.Message))
		return TransferOutcome{Failure: resp.Error.Message}
	}
	if resp.OperationID == "" {
		return TransferOutcome{Failure: "node returned no operation id"}
	}
	return TransferOutcome{Identity: resp.OperationID}
}

// GetBalance returns the token balance held by a deposit contract
func (c *EthereumClient) GetBalance(ctx context.Context, address, assetID string) (decimal.Decimal, error) {
	asset, err := c.tokenAsset(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	endpoint := fmt.Sprintf("/api/erc20deposits/%s/balance?token=%s", url.PathEscape(address), url.QueryEscape(asset.AssetAddress))
	var resp balanceResponse
	if err := c.api.Get(ctx, endpoint, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("get erc20 balance: %w", err)
	}
	return resp.Amount, nil
}
