package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/tracing"
)

// RefundRepository persists refund records
type RefundRepository struct {
	db *sqlx.DB
}

// NewRefundRepository creates a refund repository
func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

const refundColumns = `
	id, payment_request_id, merchant_id, state, source_address, destination_address,
	amount, due_date, settlement_id, created_at`

// Create inserts a refund record
func (r *RefundRepository) Create(ctx context.Context, refund *entities.RefundRecord) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "INSERT", Table: "refunds"})
	defer span.End()

	query := `
		INSERT INTO refunds (` + refundColumns + `)
		VALUES (:id, :payment_request_id, :merchant_id, :state, :source_address, :destination_address,
			:amount, :due_date, :settlement_id, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, refund)
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// Get returns the merchant's refund or nil
func (r *RefundRepository) Get(ctx context.Context, merchantID string, id uuid.UUID) (*entities.RefundRecord, error) {
	return r.getOne(ctx, `SELECT `+refundColumns+` FROM refunds WHERE merchant_id = $1 AND id = $2`, merchantID, id)
}

// GetLatest returns the newest refund of the payment request or nil
func (r *RefundRepository) GetLatest(ctx context.Context, paymentRequestID uuid.UUID) (*entities.RefundRecord, error) {
	return r.getOne(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE payment_request_id = $1 ORDER BY created_at DESC LIMIT 1`,
		paymentRequestID)
}

// MarkSent records that the node accepted the refund transfer
func (r *RefundRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPDATE", Table: "refunds"})
	defer span.End()

	res, err := r.db.ExecContext(ctx,
		`UPDATE refunds SET state = $2, updated_at = NOW() WHERE id = $1`,
		id, entities.RefundStateSent)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return fmt.Errorf("failed to mark refund sent: %w", err)
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return nil
}

func (r *RefundRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entities.RefundRecord, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "refunds"})
	defer span.End()

	var refund entities.RefundRecord
	err := r.db.GetContext(ctx, &refund, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}
	tracing.EndDBSpan(span, nil, 1)
	return &refund, nil
}

// MarkupRepository persists merchant and default markups
type MarkupRepository struct {
	db *sqlx.DB
}

// NewMarkupRepository creates a markup repository
func NewMarkupRepository(db *sqlx.DB) *MarkupRepository {
	return &MarkupRepository{db: db}
}

// Get returns the markup or nil
func (r *MarkupRepository) Get(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "markups"})
	defer span.End()

	var markup entities.Markup
	err := r.db.GetContext(ctx, &markup, `
		SELECT merchant_id, asset_pair_id, delta_spread, percent, pips, fixed_fee,
		       price_asset_pair_id, price_method, updated_at
		FROM markups
		WHERE merchant_id = $1 AND asset_pair_id = $2`, merchantID, assetPairID)
	if errors.Is(err, sql.ErrNoRows) {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get markup: %w", err)
	}
	tracing.EndDBSpan(span, nil, 1)
	return &markup, nil
}

// Upsert stores the markup, replacing an existing one for the same merchant and pair
func (r *MarkupRepository) Upsert(ctx context.Context, markup *entities.Markup) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPSERT", Table: "markups"})
	defer span.End()

	query := `
		INSERT INTO markups (merchant_id, asset_pair_id, delta_spread, percent, pips, fixed_fee,
		                     price_asset_pair_id, price_method, updated_at)
		VALUES (:merchant_id, :asset_pair_id, :delta_spread, :percent, :pips, :fixed_fee,
		        :price_asset_pair_id, :price_method, :updated_at)
		ON CONFLICT (merchant_id, asset_pair_id) DO UPDATE
		SET delta_spread = EXCLUDED.delta_spread,
		    percent = EXCLUDED.percent,
		    pips = EXCLUDED.pips,
		    fixed_fee = EXCLUDED.fixed_fee,
		    price_asset_pair_id = EXCLUDED.price_asset_pair_id,
		    price_method = EXCLUDED.price_method,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, markup)
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		return fmt.Errorf("failed to upsert markup: %w", err)
	}
	return nil
}

// MerchantWalletRepository persists addresses issued to merchants
type MerchantWalletRepository struct {
	db *sqlx.DB
}

// NewMerchantWalletRepository creates a merchant wallet repository
func NewMerchantWalletRepository(db *sqlx.DB) *MerchantWalletRepository {
	return &MerchantWalletRepository{db: db}
}

// Create records a wallet; recording the same address twice is a no-op
func (r *MerchantWalletRepository) Create(ctx context.Context, wallet *entities.MerchantWallet) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "INSERT", Table: "merchant_wallets"})
	defer span.End()

	query := `
		INSERT INTO merchant_wallets (merchant_id, address, blockchain, created_at)
		VALUES (:merchant_id, :address, :blockchain, :created_at)
		ON CONFLICT (address, blockchain) DO NOTHING
	`
	_, err := r.db.NamedExecContext(ctx, query, wallet)
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		return fmt.Errorf("failed to create merchant wallet: %w", err)
	}
	return nil
}

// GetByMerchant lists the merchant's wallets
func (r *MerchantWalletRepository) GetByMerchant(ctx context.Context, merchantID string) ([]*entities.MerchantWallet, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "merchant_wallets"})
	defer span.End()

	var wallets []*entities.MerchantWallet
	err := r.db.SelectContext(ctx, &wallets, `
		SELECT merchant_id, address, blockchain, created_at
		FROM merchant_wallets
		WHERE merchant_id = $1
		ORDER BY created_at`, merchantID)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to list merchant wallets: %w", err)
	}
	tracing.EndDBSpan(span, nil, int64(len(wallets)))
	return wallets, nil
}
