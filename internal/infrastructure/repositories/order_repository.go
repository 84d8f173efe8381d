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

const orderColumns = `
	id, merchant_id, payment_request_id, asset_pair_id, settlement_amount, payment_amount,
	exchange_rate, due_date, extended_due_date, created_date`

// OrderRepository handles order database operations
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order. Orders are never updated.
func (r *OrderRepository) Create(ctx context.Context, order *entities.Order) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "INSERT", Table: "orders"})
	defer span.End()

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (
			:id, :merchant_id, :payment_request_id, :asset_pair_id, :settlement_amount, :payment_amount,
			:exchange_rate, :due_date, :extended_due_date, :created_date
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, order)
	tracing.EndDBSpan(span, err, 1)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetLatest returns the newest order of a payment request
func (r *OrderRepository) GetLatest(ctx context.Context, paymentRequestID uuid.UUID) (*entities.Order, error) {
	return r.getOne(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_request_id = $1 ORDER BY created_date DESC LIMIT 1`,
		paymentRequestID)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entities.Order, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "orders"})
	defer span.End()

	var order entities.Order
	err := r.db.GetContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	tracing.EndDBSpan(span, nil, 1)
	return &order, nil
}
