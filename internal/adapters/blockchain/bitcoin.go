package blockchain

import (
	"context"
	"fmt"
	"net/url"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/infrastructure/adapters/apiclient"
)

// BitcoinConfig configures the bitcoin backend
type BitcoinConfig struct {
	Network  string
	FeeRate  int
	FixedFee decimal.Decimal
}

type bitcoinWalletResponse struct {
	Address string     `json:"address"`
	Error   *nodeError `json:"error,omitempty"`
}

type bitcoinMultipleTransferRequest struct {
	TransactionID string          `json:"transaction_id"`
	Destination   string          `json:"destination"`
	Asset         string          `json:"asset"`
	FeeRate       int             `json:"fee_rate"`
	FixedFee      decimal.Decimal `json:"fixed_fee"`
	Sources       []sourceAmount  `json:"sources"`
}

type bitcoinTransferResponse struct {
	Transaction *struct {
		Hash string `json:"hash"`
	} `json:"transaction,omitempty"`
	Error *nodeError `json:"error,omitempty"`
}

// BitcoinClient moves BTC through a bitcoin node service
type BitcoinClient struct {
	api     *apiclient.Client
	network *chaincfg.Params
	config  BitcoinConfig
	logger  *zap.Logger
}

// NewBitcoinClient creates the bitcoin backend
func NewBitcoinClient(api *apiclient.Client, config BitcoinConfig, logger *zap.Logger) (*BitcoinClient, error) {
	params, err := networkParams(config.Network)
	if err != nil {
		return nil, err
	}
	return &BitcoinClient{
		api:     api,
		network: params,
		config:  config,
		logger:  logger.Named("bitcoin"),
	}, nil
}

func networkParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "", chaincfg.MainNetParams.Name:
		return &chaincfg.MainNetParams, nil
	case chaincfg.TestNet3Params.Name, "testnet":
		return &chaincfg.TestNet3Params, nil
	case chaincfg.RegressionNetParams.Name:
		return &chaincfg.RegressionNetParams, nil
	case chaincfg.SimNetParams.Name:
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin network %q", name)
	}
}

// Blockchain implements Client
func (c *BitcoinClient) Blockchain() entities.BlockchainType {
	return entities.BlockchainBitcoin
}

// CreateAddress asks the node for a new wallet address
func (c *BitcoinClient) CreateAddress(ctx context.Context) (string, error) {
	var resp bitcoinWalletResponse
	if err := c.api.Post(ctx, "/api/wallets", nil, &resp); err != nil {
		c.logger.Warn("New bitcoin address generation failed", zap.Error(err))
		return "", domainerrors.WalletAllocationFailed(string(entities.BlockchainBitcoin), err.Error())
	}

	outcome := AddressOutcome{Address: resp.Address}
	if resp.Error != nil {
		outcome.Failure = resp.Error.Message
	}
	if !outcome.Created() {
		c.logger.Warn("New bitcoin address generation rejected", zap.String("reason", outcome.Failure))
		return "", domainerrors.WalletAllocationFailed(string(entities.BlockchainBitcoin), outcome.Failure)
	}
	return outcome.Address, nil
}

// ValidateAddress decodes address for the configured network
func (c *BitcoinClient) ValidateAddress(_ context.Context, address string) (bool, error) {
	decoded, err := btcutil.DecodeAddress(address, c.network)
	if err != nil {
		return false, nil
	}
	return decoded.IsForNet(c.network), nil
}

// toBitcoin converts amount of assetID into BTC, rejecting anything but BTC and satoshi
func toBitcoin(assetID string, amount decimal.Decimal) (decimal.Decimal, error) {
	switch assetID {
	case entities.AssetBTC:
		return amount, nil
	case entities.AssetSatoshi:
		return amount.Div(entities.SatoshisPerBitcoin), nil
	default:
		return decimal.Zero, domainerrors.AssetNotSupported(assetID, string(entities.BlockchainBitcoin))
	}
}

// Transfer sends one multiple-source transaction per destination
func (c *BitcoinClient) Transfer(ctx context.Context, cmd *entities.TransferCommand) (*entities.TransferResult, error) {
	groups := groupByDestination(cmd.Amounts)

	// validate every leg before the first network call
	converted := make([][]sourceAmount, len(groups))
	for i, group := range groups {
		for _, leg := range group.legs {
			amount, err := toBitcoin(cmd.AssetID, leg.Amount)
			if err != nil {
				return nil, err
			}
			converted[i] = append(converted[i], sourceAmount{Address: leg.Source, Amount: amount})
		}
	}

	result := &entities.TransferResult{Blockchain: entities.BlockchainBitcoin}
	for i, group := range groups {
		outcome := c.multipleTransfer(ctx, nodeTransactionID(cmd.OperationID, group.destination), group.destination, converted[i])

		// recorded in the caller's units, the node only sees BTC
		txResult := entities.TransactionResult{
			Blockchain:   entities.BlockchainBitcoin,
			Hash:         outcome.Identity,
			IdentityType: entities.TransactionIdentityHash,
			Identity:     outcome.Identity,
			Destination:  group.destination,
			AssetID:      cmd.AssetID,
			Amount:       decimal.Zero,
		}
		for _, leg := range group.legs {
			txResult.Amount = txResult.Amount.Add(leg.Amount)
			txResult.Sources = append(txResult.Sources, entities.AddressAmount{Address: leg.Source, Amount: leg.Amount})
		}
		if !outcome.Accepted() {
			txResult.Error = fmt.Sprintf("error placing multiple transfer to destination address %s: %s", group.destination, outcome.Failure)
		}
		result.Transactions = append(result.Transactions, txResult)
	}

	return result, nil
}

func (c *BitcoinClient) multipleTransfer(ctx context.Context, transactionID, destination string, sources []sourceAmount) TransferOutcome {
	req := bitcoinMultipleTransferRequest{
		TransactionID: transactionID,
		Destination:   destination,
		Asset:         entities.AssetBTC,
		FeeRate:       c.config.FeeRate,
		FixedFee:      c.config.FixedFee,
		Sources:       sources,
	}

	var resp bitcoinTransferResponse
	if err := c.api.Post(ctx, "/api/transactions/multiple-transfer", req, &resp); err != nil {
		c.logger.Error("Multiple transfer request failed",
			zap.String("destination", destination),
			zap.Error(err))
		return TransferOutcome{Failure: err.Error()}
	}
	if resp.Error != nil {
		c.logger.Warn("Multiple transfer rejected",
			zap.String("destination", destination),
			zap.String("code", resp.Error.Code),
			zap.String("message", resp.Error.Message))
		return TransferOutcome{Failure: fmt.Sprintf("code = %s, message = %s", resp.Error.Code, resp.Error.Message)}
	}
	if resp.Transaction == nil || resp.Transaction.Hash == "" {
		return TransferOutcome{Failure: "node returned no transaction hash"}
	}
	return TransferOutcome{Identity: resp.Transaction.Hash}
}

// GetBalance returns the spendable balance of address in assetID units
func (c *BitcoinClient) GetBalance(ctx context.Context, address, assetID string) (decimal.Decimal, error) {
	if _, err := toBitcoin(assetID, decimal.Zero); err != nil {
		return decimal.Zero, err
	}

	var resp balanceResponse
	if err := c.api.Get(ctx, "/api/balances/"+url.PathEscape(address), &resp); err != nil {
		return decimal.Zero, fmt.Errorf("get bitcoin balance: %w", err)
	}
	if assetID == entities.AssetSatoshi {
		return resp.Amount.Mul(entities.SatoshisPerBitcoin), nil
	}
	return resp.Amount, nil
}
