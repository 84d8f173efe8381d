package blockchain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/pkg/metrics"
)

// Gateway dispatches to the Client registered for a blockchain
type Gateway struct {
	clients map[entities.BlockchainType]Client
	logger  *zap.Logger
}

// NewGateway registers clients by their Blockchain tag
func NewGateway(logger *zap.Logger, clients ...Client) *Gateway {
	g := &Gateway{
		clients: make(map[entities.BlockchainType]Client, len(clients)),
		logger:  logger,
	}
	for _, c := range clients {
		g.clients[c.Blockchain()] = c
	}
	return g
}

// Client returns the backend for blockchain
func (g *Gateway) Client(blockchain entities.BlockchainType) (Client, error) {
	c, ok := g.clients[blockchain]
	if !ok {
		return nil, domainerrors.BlockchainNotSupported(string(blockchain))
	}
	return c, nil
}

// CreateAddress allocates a fresh address on blockchain
func (g *Gateway) CreateAddress(ctx context.Context, blockchain entities.BlockchainType) (address string, err error) {
	c, err := g.Client(blockchain)
	if err != nil {
		return "", err
	}
	defer func(started time.Time) {
		metrics.ObserveGatewayCall(string(blockchain), "create_address", started, err)
	}(time.Now())

	address, err = c.CreateAddress(ctx)
	if err == nil {
		g.logger.Info("Wallet address created",
			zap.String("blockchain", string(blockchain)),
			zap.String("address", address))
	}
	return address, err
}

// ValidateAddress checks address against the blockchain's rules
func (g *Gateway) ValidateAddress(ctx context.Context, blockchain entities.BlockchainType, address string) (bool, error) {
	c, err := g.Client(blockchain)
	if err != nil {
		return false, err
	}
	return c.ValidateAddress(ctx, address)
}

// Transfer executes cmd on blockchain. Every destination gets a result entry.
func (g *Gateway) Transfer(ctx context.Context, blockchain entities.BlockchainType, cmd *entities.TransferCommand) (result *entities.TransferResult, err error) {
	c, err := g.Client(blockchain)
	if err != nil {
		return nil, err
	}
	if len(cmd.Amounts) == 0 {
		return nil, domainerrors.ValidationError("amounts", "transfer has no amounts")
	}
	defer func(started time.Time) {
		metrics.ObserveGatewayCall(string(blockchain), "transfer", started, err)
	}(time.Now())

	result, err = c.Transfer(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if result.HasFailures() {
		for _, tx := range result.Transactions {
			if tx.Failed() {
				g.logger.Warn("Transfer leg failed",
					zap.String("blockchain", string(blockchain)),
					zap.String("destination", tx.Destination),
					zap.String("error", tx.Error))
			}
		}
	}
	return result, nil
}

// GetBalance returns the spendable balance of address
func (g *Gateway) GetBalance(ctx context.Context, blockchain entities.BlockchainType, address, assetID string) (balance decimal.Decimal, err error) {
	c, err := g.Client(blockchain)
	if err != nil {
		return decimal.Zero, err
	}
	defer func(started time.Time) {
		metrics.ObserveGatewayCall(string(blockchain), "get_balance", started, err)
	}(time.Now())

	return c.GetBalance(ctx, address, assetID)
}
