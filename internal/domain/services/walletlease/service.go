package walletlease

import (
	"context"
	"fmt"
	"time"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/pkg/logger"
	"github.com/settlepay/settlement_service/pkg/metrics"
)

// Service is the wallet allocation ledger. All coordination goes through the
// store's conditional write, so several instances can share one store.
type Service struct {
	store  repositories.WalletLeaseStore
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a wallet lease service
func NewService(store repositories.WalletLeaseStore, logger *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TryLock leases address to occupiedBy. It returns false, nil when somebody else
// holds the wallet or a concurrent writer won, and false, err when the store failed.
func (s *Service) TryLock(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string) (bool, error) {
	if address == "" {
		return false, domainerrors.ValidationError("wallet_address", "wallet address is required")
	}
	if occupiedBy == "" {
		return false, domainerrors.ValidationError("occupied_by", "lease holder is required")
	}

	lease := &entities.WalletLease{
		WalletAddress: address,
		Blockchain:    blockchain,
		OccupiedBy:    occupiedBy,
		Since:         s.now(),
	}

	locked, err := s.store.TryLock(ctx, lease)
	if err != nil {
		metrics.WalletLeaseAttemptsTotal.WithLabelValues(string(blockchain), "error").Inc()
		return false, fmt.Errorf("try lock wallet %s: %w", address, err)
	}

	outcome := "denied"
	if locked {
		outcome = "locked"
	}
	metrics.WalletLeaseAttemptsTotal.WithLabelValues(string(blockchain), outcome).Inc()

	s.logger.Debug("Wallet lease attempt",
		"wallet_address", address,
		"blockchain", blockchain,
		"occupied_by", occupiedBy,
		"locked", locked)

	return locked, nil
}

// Release resets the lease to vacant. Releasing a vacant or unknown lease succeeds.
func (s *Service) Release(ctx context.Context, address string, blockchain entities.BlockchainType) (bool, error) {
	if err := s.store.Release(ctx, address, blockchain, s.now()); err != nil {
		return false, fmt.Errorf("release wallet %s: %w", address, err)
	}

	metrics.WalletLeaseReleasesTotal.WithLabelValues(string(blockchain)).Inc()
	s.logger.Info("Wallet lease released", "wallet_address", address, "blockchain", blockchain)
	return true, nil
}

// ReleaseHeldBy releases the lease if occupiedBy still holds it
func (s *Service) ReleaseHeldBy(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string) (bool, error) {
	released, err := s.store.ReleaseHeldBy(ctx, address, blockchain, occupiedBy, s.now())
	if err != nil {
		return false, fmt.Errorf("release wallet %s held by %s: %w", address, occupiedBy, err)
	}
	if !released {
		return false, nil
	}

	metrics.WalletLeaseReleasesTotal.WithLabelValues(string(blockchain)).Inc()
	s.logger.Info("Wallet lease released",
		"wallet_address", address,
		"blockchain", blockchain,
		"occupied_by", occupiedBy)
	return true, nil
}

// Get returns the lease or nil when the wallet was never used
func (s *Service) Get(ctx context.Context, address string, blockchain entities.BlockchainType) (*entities.WalletLease, error) {
	lease, err := s.store.Get(ctx, address, blockchain)
	if err != nil {
		return nil, fmt.Errorf("get wallet lease: %w", err)
	}
	return lease, nil
}

// GetVacant lists known wallets nobody holds
func (s *Service) GetVacant(ctx context.Context, blockchain entities.BlockchainType) ([]*entities.WalletLease, error) {
	leases, err := s.store.GetVacant(ctx, blockchain)
	if err != nil {
		return nil, fmt.Errorf("get vacant wallets: %w", err)
	}
	return leases, nil
}

// GetOccupied lists every held lease across blockchains
func (s *Service) GetOccupied(ctx context.Context) ([]*entities.WalletLease, error) {
	leases, err := s.store.GetOccupied(ctx)
	if err != nil {
		return nil, fmt.Errorf("get occupied wallets: %w", err)
	}
	return leases, nil
}
