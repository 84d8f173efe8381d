package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/logger"
	"github.com/settlepay/settlement_service/pkg/tracing"
)

const paymentRequestColumns = `
	id, merchant_id, external_order_id, settlement_asset_id, payment_asset_id, amount, due_date,
	markup_percent, markup_pips, markup_fixed_fee, wallet_address, wallet_bound_at, order_id, status,
	processing_error, paid_amount, paid_date, timestamp`

// PaymentRequestRepository persists payment requests
type PaymentRequestRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPaymentRequestRepository creates a payment request repository
func NewPaymentRequestRepository(db *sqlx.DB, logger *logger.Logger) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db, logger: logger}
}

// Create inserts a payment request
func (r *PaymentRequestRepository) Create(ctx context.Context, pr *entities.PaymentRequest) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "INSERT", Table: "payment_requests"})
	defer span.End()

	query := `
		INSERT INTO payment_requests (` + paymentRequestColumns + `)
		VALUES (
			:id, :merchant_id, :external_order_id, :settlement_asset_id, :payment_asset_id, :amount, :due_date,
			:markup_percent, :markup_pips, :markup_fixed_fee, :wallet_address, :wallet_bound_at, :order_id, :status,
			:processing_error, :paid_amount, :paid_date, :timestamp
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, pr)
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		r.logger.Error("Failed to create payment request", "error", err, "payment_request_id", pr.ID)
		return fmt.Errorf("failed to create payment request: %w", err)
	}
	return nil
}

// GetByID returns the payment request or nil
func (r *PaymentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	return r.getOne(ctx, `SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id = $1`, id)
}

// GetByMerchant lists a merchant's requests, newest first
func (r *PaymentRequestRepository) GetByMerchant(ctx context.Context, merchantID string) ([]*entities.PaymentRequest, error) {
	return r.list(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE merchant_id = $1 ORDER BY timestamp DESC`,
		merchantID)
}

// FindByWalletAddress returns the request that bound address last, or nil.
// Wallets are reused, so creation time says nothing about the current holder.
func (r *PaymentRequestRepository) FindByWalletAddress(ctx context.Context, address string) (*entities.PaymentRequest, error) {
	return r.getOne(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests
		 WHERE wallet_address = $1
		 ORDER BY wallet_bound_at DESC NULLS LAST, timestamp DESC
		 LIMIT 1`,
		address)
}

// GetWithWalletDueAfter lists requests holding a wallet whose due date is after the given time
func (r *PaymentRequestRepository) GetWithWalletDueAfter(ctx context.Context, after time.Time) ([]*entities.PaymentRequest, error) {
	return r.list(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests
		 WHERE wallet_address <> '' AND due_date > $1
		 ORDER BY due_date`,
		after)
}

// GetByStatusesDueBefore lists requests in statuses whose due date is before the given time
func (r *PaymentRequestRepository) GetByStatusesDueBefore(ctx context.Context, statuses []entities.PaymentRequestStatus, before time.Time, limit int) ([]*entities.PaymentRequest, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return r.list(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests
		 WHERE status = ANY($1) AND due_date < $2
		 ORDER BY due_date
		 LIMIT $3`,
		pq.Array(names), before, limit)
}

// BindWallet sets the wallet unless a different one is already bound
func (r *PaymentRequestRepository) BindWallet(ctx context.Context, id uuid.UUID, address string) (bool, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPDATE", Table: "payment_requests"})
	defer span.End()

	query := `
		UPDATE payment_requests
		SET wallet_address = $2,
		    wallet_bound_at = CASE WHEN wallet_address = $2 THEN wallet_bound_at ELSE NOW() END,
		    updated_at = NOW()
		WHERE id = $1 AND (wallet_address = '' OR wallet_address = $2)
	`

	res, err := r.db.ExecContext(ctx, query, id, address)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return false, fmt.Errorf("failed to bind wallet: %w", err)
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return rows == 1, nil
}

// SetOrder points the request at its current order
func (r *PaymentRequestRepository) SetOrder(ctx context.Context, id, orderID uuid.UUID) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPDATE", Table: "payment_requests"})
	defer span.End()

	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_requests SET order_id = $2, updated_at = NOW() WHERE id = $1`,
		id, orderID)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return fmt.Errorf("failed to set order: %w", err)
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return nil
}

// UpdateStatus applies next only while the stored status and processing error equal expected
func (r *PaymentRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next entities.StatusInfo, at time.Time) (bool, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPDATE", Table: "payment_requests"})
	defer span.End()

	query := `
		UPDATE payment_requests
		SET status = $4,
		    processing_error = $5,
		    paid_amount = CASE WHEN $6::timestamptz IS NULL THEN paid_amount ELSE $7 END,
		    paid_date = COALESCE($6::timestamptz, paid_date),
		    updated_at = $8
		WHERE id = $1 AND status = $2 AND processing_error = $3
	`

	res, err := r.db.ExecContext(ctx, query,
		id,
		expected.Status,
		expected.ProcessingError,
		next.Status,
		next.ProcessingError,
		next.Date,
		next.Amount,
		at,
	)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return false, fmt.Errorf("failed to update payment request status: %w", err)
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return rows == 1, nil
}

func (r *PaymentRequestRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entities.PaymentRequest, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "payment_requests"})
	defer span.End()

	var pr entities.PaymentRequest
	err := r.db.GetContext(ctx, &pr, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	tracing.EndDBSpan(span, nil, 1)
	return &pr, nil
}

func (r *PaymentRequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entities.PaymentRequest, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "payment_requests"})
	defer span.End()

	var prs []*entities.PaymentRequest
	if err := r.db.SelectContext(ctx, &prs, query, args...); err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	tracing.EndDBSpan(span, nil, int64(len(prs)))
	return prs, nil
}
