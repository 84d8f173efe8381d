package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/tracing"
)

// AssetAvailabilityRepository persists service wide asset switches
type AssetAvailabilityRepository struct {
	db *sqlx.DB
}

// NewAssetAvailabilityRepository creates an asset availability repository
func NewAssetAvailabilityRepository(db *sqlx.DB) *AssetAvailabilityRepository {
	return &AssetAvailabilityRepository{db: db}
}

// GetByType returns the assets switched on for the type
func (r *AssetAvailabilityRepository) GetByType(ctx context.Context, t entities.AssetAvailabilityType) ([]*entities.AssetAvailability, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "asset_availability"})
	defer span.End()

	var rows []*entities.AssetAvailability
	err := r.db.SelectContext(ctx, &rows, `
		SELECT asset_id, availability_type, available, updated_at
		FROM asset_availability
		WHERE availability_type = $1 AND available
		ORDER BY asset_id`, t)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get asset availability: %w", err)
	}
	tracing.EndDBSpan(span, nil, int64(len(rows)))
	return rows, nil
}

// Set stores the switch for an asset and type
func (r *AssetAvailabilityRepository) Set(ctx context.Context, availability *entities.AssetAvailability) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPSERT", Table: "asset_availability"})
	defer span.End()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO asset_availability (asset_id, availability_type, available, updated_at)
		VALUES (:asset_id, :availability_type, :available, :updated_at)
		ON CONFLICT (asset_id, availability_type) DO UPDATE
		SET available = EXCLUDED.available,
		    updated_at = EXCLUDED.updated_at
	`, availability)
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		return fmt.Errorf("failed to set asset availability: %w", err)
	}
	return nil
}

// MerchantAssetAvailabilityRepository persists per merchant asset lists
type MerchantAssetAvailabilityRepository struct {
	db *sqlx.DB
}

// NewMerchantAssetAvailabilityRepository creates a merchant asset availability repository
func NewMerchantAssetAvailabilityRepository(db *sqlx.DB) *MerchantAssetAvailabilityRepository {
	return &MerchantAssetAvailabilityRepository{db: db}
}

// Get returns the merchant lists or nil
func (r *MerchantAssetAvailabilityRepository) Get(ctx context.Context, merchantID string) (*entities.AssetAvailabilityByMerchant, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "asset_availability_by_merchant"})
	defer span.End()

	var row entities.AssetAvailabilityByMerchant
	err := r.db.GetContext(ctx, &row, `
		SELECT merchant_id, payment_assets, settlement_assets, updated_at
		FROM asset_availability_by_merchant
		WHERE merchant_id = $1`, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get merchant asset availability: %w", err)
	}
	tracing.EndDBSpan(span, nil, 1)
	return &row, nil
}

// Set replaces the merchant lists
func (r *MerchantAssetAvailabilityRepository) Set(ctx context.Context, availability *entities.AssetAvailabilityByMerchant) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPSERT", Table: "asset_availability_by_merchant"})
	defer span.End()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO asset_availability_by_merchant (merchant_id, payment_assets, settlement_assets, updated_at)
		VALUES (:merchant_id, :payment_assets, :settlement_assets, :updated_at)
		ON CONFLICT (merchant_id) DO UPDATE
		SET payment_assets = EXCLUDED.payment_assets,
		    settlement_assets = EXCLUDED.settlement_assets,
		    updated_at = EXCLUDED.updated_at
	`, availability)
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		return fmt.Errorf("failed to set merchant asset availability: %w", err)
	}
	return nil
}
