package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/settlepay/settlement_service/internal/domain/entities"
)

// Lookups return (nil, nil) when the record does not exist.

// WalletLeaseStore persists wallet leases. TryLock must be a single atomic
// conditional write: it returns false, nil when the lease is held by anyone
// or when the store detected a concurrent writer.
type WalletLeaseStore interface {
	TryLock(ctx context.Context, lease *entities.WalletLease) (bool, error)
	Release(ctx context.Context, address string, blockchain entities.BlockchainType, at time.Time) error
	// ReleaseHeldBy releases the lease only while occupiedBy still holds it
	ReleaseHeldBy(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string, at time.Time) (bool, error)
	Get(ctx context.Context, address string, blockchain entities.BlockchainType) (*entities.WalletLease, error)
	GetVacant(ctx context.Context, blockchain entities.BlockchainType) ([]*entities.WalletLease, error)
	GetOccupied(ctx context.Context) ([]*entities.WalletLease, error)
}

// PaymentRequestRepository persists payment requests
type PaymentRequestRepository interface {
	Create(ctx context.Context, pr *entities.PaymentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error)
	GetByMerchant(ctx context.Context, merchantID string) ([]*entities.PaymentRequest, error)
	// FindByWalletAddress returns the request that bound address most recently
	FindByWalletAddress(ctx context.Context, address string) (*entities.PaymentRequest, error)
	GetWithWalletDueAfter(ctx context.Context, after time.Time) ([]*entities.PaymentRequest, error)
	GetByStatusesDueBefore(ctx context.Context, statuses []entities.PaymentRequestStatus, before time.Time, limit int) ([]*entities.PaymentRequest, error)
	// BindWallet sets the wallet address and its binding time unless a different one is already bound
	BindWallet(ctx context.Context, id uuid.UUID, address string) (bool, error)
	SetOrder(ctx context.Context, id, orderID uuid.UUID) error
	// UpdateStatus applies next only if the stored status still equals expected
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next entities.StatusInfo, at time.Time) (bool, error)
}

// OrderRepository persists orders
type OrderRepository interface {
	Create(ctx context.Context, order *entities.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Order, error)
	GetLatest(ctx context.Context, paymentRequestID uuid.UUID) (*entities.Order, error)
}

// TransactionRepository persists observed transactions keyed by (blockchain, identity type, identity)
type TransactionRepository interface {
	// Upsert inserts tx or merges it into the stored row. Confirmations never decrease.
	Upsert(ctx context.Context, tx *entities.PaymentRequestTransaction) (stored *entities.PaymentRequestTransaction, inserted bool, err error)
	GetByIdentity(ctx context.Context, blockchain entities.BlockchainType, identityType entities.TransactionIdentityType, identity string) (*entities.PaymentRequestTransaction, error)
	GetByWallet(ctx context.Context, address string) ([]*entities.PaymentRequestTransaction, error)
	GetByPaymentRequest(ctx context.Context, paymentRequestID uuid.UUID) ([]*entities.PaymentRequestTransaction, error)
}

// RefundRepository persists refund records
type RefundRepository interface {
	Create(ctx context.Context, refund *entities.RefundRecord) error
	Get(ctx context.Context, merchantID string, id uuid.UUID) (*entities.RefundRecord, error)
	// GetLatest returns the newest refund of the payment request
	GetLatest(ctx context.Context, paymentRequestID uuid.UUID) (*entities.RefundRecord, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}

// MarkupRepository persists merchant and default markups
type MarkupRepository interface {
	Get(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error)
	Upsert(ctx context.Context, markup *entities.Markup) error
}

// AssetAvailabilityRepository persists service wide asset switches
type AssetAvailabilityRepository interface {
	GetByType(ctx context.Context, t entities.AssetAvailabilityType) ([]*entities.AssetAvailability, error)
	Set(ctx context.Context, availability *entities.AssetAvailability) error
}

// MerchantAssetAvailabilityRepository persists per merchant asset lists.
// Get returns nil when the merchant has no lists.
type MerchantAssetAvailabilityRepository interface {
	Get(ctx context.Context, merchantID string) (*entities.AssetAvailabilityByMerchant, error)
	Set(ctx context.Context, availability *entities.AssetAvailabilityByMerchant) error
}

// MerchantWalletRepository persists addresses issued to merchants
type MerchantWalletRepository interface {
	Create(ctx context.Context, wallet *entities.MerchantWallet) error
	GetByMerchant(ctx context.Context, merchantID string) ([]*entities.MerchantWallet, error)
}
