package wallet

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
)

// LeaseLedger is the exclusive wallet lease ledger
type LeaseLedger interface {
	TryLock(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string) (bool, error)
	Release(ctx context.Context, address string, blockchain entities.BlockchainType) (bool, error)
	GetVacant(ctx context.Context, blockchain entities.BlockchainType) ([]*entities.WalletLease, error)
}

// AddressGateway issues and validates blockchain addresses
type AddressGateway interface {
	CreateAddress(ctx context.Context, blockchain entities.BlockchainType) (string, error)
	ValidateAddress(ctx context.Context, blockchain entities.BlockchainType, address string) (bool, error)
}

// Service hands out merchant wallets for payment requests, reusing vacant ones first
type Service struct {
	leases  LeaseLedger
	gateway AddressGateway
	wallets repositories.MerchantWalletRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a wallet allocation service
func NewService(leases LeaseLedger, gateway AddressGateway, wallets repositories.MerchantWalletRepository, logger *zap.Logger) *Service {
	return &Service{
		leases:  leases,
		gateway: gateway,
		wallets: wallets,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Allocate leases a wallet of merchantID on blockchain to occupiedBy. A vacant
// merchant wallet is tried first, then a fresh address is created.
func (s *Service) Allocate(ctx context.Context, merchantID string, blockchain entities.BlockchainType, occupiedBy string) (string, error) {
	candidates, err := s.vacantMerchantWallets(ctx, merchantID, blockchain)
	if err != nil {
		return "", err
	}

	for _, address := range candidates {
		locked, err := s.leases.TryLock(ctx, address, blockchain, occupiedBy)
		if err != nil {
			return "", err
		}
		if locked {
			s.logger.Info("Reusing vacant wallet",
				zap.String("merchant_id", merchantID),
				zap.String("wallet_address", address),
				zap.String("occupied_by", occupiedBy))
			return address, nil
		}
	}

	address, err := s.gateway.CreateAddress(ctx, blockchain)
	if err != nil {
		return "", fmt.Errorf("create wallet address: %w", err)
	}

	wallet := &entities.MerchantWallet{
		MerchantID: merchantID,
		Address:    address,
		Blockchain: blockchain,
		CreatedAt:  s.now(),
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return "", fmt.Errorf("save merchant wallet: %w", err)
	}

	locked, err := s.leases.TryLock(ctx, address, blockchain, occupiedBy)
	if err != nil {
		return "", err
	}
	if !locked {
		return "", domainerrors.WalletLeaseDenied(string(blockchain))
	}

	s.logger.Info("New wallet allocated",
		zap.String("merchant_id", merchantID),
		zap.String("blockchain", string(blockchain)),
		zap.String("wallet_address", address),
		zap.String("occupied_by", occupiedBy))

	return address, nil
}

func (s *Service) vacantMerchantWallets(ctx context.Context, merchantID string, blockchain entities.BlockchainType) ([]string, error) {
	wallets, err := s.wallets.GetByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("get merchant wallets: %w", err)
	}
	owned := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		if w.Blockchain == blockchain {
			owned[w.Address] = true
		}
	}
	if len(owned) == 0 {
		return nil, nil
	}

	vacant, err := s.leases.GetVacant(ctx, blockchain)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, lease := range vacant {
		if owned[lease.WalletAddress] {
			candidates = append(candidates, lease.WalletAddress)
		}
	}
	return candidates, nil
}

// IsMerchantWallet reports whether address was issued to merchantID
func (s *Service) IsMerchantWallet(ctx context.Context, merchantID, address string) (bool, error) {
	wallets, err := s.wallets.GetByMerchant(ctx, merchantID)
	if err != nil {
		return false, fmt.Errorf("get merchant wallets: %w", err)
	}
	for _, w := range wallets {
		if w.Address == address {
			return true, nil
		}
	}
	return false, nil
}

// SetExpired validates address on blockchain and releases its lease
func (s *Service) SetExpired(ctx context.Context, address string, blockchain entities.BlockchainType) error {
	valid, err := s.gateway.ValidateAddress(ctx, blockchain, address)
	if err != nil {
		return fmt.Errorf("validate address: %w", err)
	}
	if !valid {
		return domainerrors.InvalidAddress(address, string(blockchain))
	}

	if _, err := s.leases.Release(ctx, address, blockchain); err != nil {
		return err
	}
	return nil
}
