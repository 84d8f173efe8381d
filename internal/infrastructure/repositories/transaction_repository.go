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
	"github.com/shopspring/decimal"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/tracing"
)

const transactionColumns = `
	id, transaction_id, blockchain, identity_type, identity, payment_request_id, amount, asset_id,
	confirmations, block_id, wallet_address, source_wallet_addresses, transaction_type, first_seen, due_date`

type transactionRow struct {
	ID                    uuid.UUID                        `db:"id"`
	TransactionID         string                           `db:"transaction_id"`
	Blockchain            entities.BlockchainType          `db:"blockchain"`
	IdentityType          entities.TransactionIdentityType `db:"identity_type"`
	Identity              string                           `db:"identity"`
	PaymentRequestID      *uuid.UUID                       `db:"payment_request_id"`
	Amount                decimal.Decimal                  `db:"amount"`
	AssetID               string                           `db:"asset_id"`
	Confirmations         int                              `db:"confirmations"`
	BlockID               string                           `db:"block_id"`
	WalletAddress         string                           `db:"wallet_address"`
	SourceWalletAddresses pq.StringArray                   `db:"source_wallet_addresses"`
	TransactionType       entities.TransactionType         `db:"transaction_type"`
	FirstSeen             *time.Time                       `db:"first_seen"`
	DueDate               *time.Time                       `db:"due_date"`
	Inserted              bool                             `db:"inserted"`
}

func (row *transactionRow) toEntity() *entities.PaymentRequestTransaction {
	return &entities.PaymentRequestTransaction{
		ID:                    row.ID,
		TransactionID:         row.TransactionID,
		Blockchain:            row.Blockchain,
		IdentityType:          row.IdentityType,
		Identity:              row.Identity,
		PaymentRequestID:      row.PaymentRequestID,
		Amount:                row.Amount,
		AssetID:               row.AssetID,
		Confirmations:         row.Confirmations,
		BlockID:               row.BlockID,
		WalletAddress:         row.WalletAddress,
		SourceWalletAddresses: []string(row.SourceWalletAddresses),
		TransactionType:       row.TransactionType,
		FirstSeen:             row.FirstSeen,
		DueDate:               row.DueDate,
	}
}

// TransactionRepository persists observed transactions, unique by (blockchain, identity_type, identity)
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a transaction repository
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert inserts tx or merges it into the stored row. Confirmations only grow and
// the first observation time is kept.
func (r *TransactionRepository) Upsert(ctx context.Context, tx *entities.PaymentRequestTransaction) (*entities.PaymentRequestTransaction, bool, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPSERT", Table: "payment_request_transactions"})
	defer span.End()

	query := `
		INSERT INTO payment_request_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (blockchain, identity_type, identity) DO UPDATE
		SET transaction_id = COALESCE(NULLIF(EXCLUDED.transaction_id, ''), payment_request_transactions.transaction_id),
		    amount = EXCLUDED.amount,
		    confirmations = GREATEST(payment_request_transactions.confirmations, EXCLUDED.confirmations),
		    block_id = COALESCE(NULLIF(EXCLUDED.block_id, ''), payment_request_transactions.block_id),
		    payment_request_id = COALESCE(payment_request_transactions.payment_request_id, EXCLUDED.payment_request_id),
		    first_seen = COALESCE(payment_request_transactions.first_seen, EXCLUDED.first_seen),
		    due_date = COALESCE(EXCLUDED.due_date, payment_request_transactions.due_date),
		    updated_at = NOW()
		RETURNING ` + transactionColumns + `, (xmax = 0) AS inserted
	`

	var row transactionRow
	err := r.db.QueryRowxContext(ctx, query,
		tx.ID,
		tx.TransactionID,
		tx.Blockchain,
		tx.IdentityType,
		tx.Identity,
		tx.PaymentRequestID,
		tx.Amount,
		tx.AssetID,
		tx.Confirmations,
		tx.BlockID,
		tx.WalletAddress,
		pq.StringArray(tx.SourceWalletAddresses),
		tx.TransactionType,
		tx.FirstSeen,
		tx.DueDate,
	).StructScan(&row)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, false, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	tracing.EndDBSpan(span, nil, 1)
	return row.toEntity(), row.Inserted, nil
}

// GetByIdentity returns the transaction or nil
func (r *TransactionRepository) GetByIdentity(ctx context.Context, blockchain entities.BlockchainType, identityType entities.TransactionIdentityType, identity string) (*entities.PaymentRequestTransaction, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "payment_request_transactions"})
	defer span.End()

	var row transactionRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+transactionColumns+`, false AS inserted FROM payment_request_transactions
		 WHERE blockchain = $1 AND identity_type = $2 AND identity = $3`,
		blockchain, identityType, identity)
	if errors.Is(err, sql.ErrNoRows) {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	tracing.EndDBSpan(span, nil, 1)
	return row.toEntity(), nil
}

// GetByWallet lists transactions observed on a wallet
func (r *TransactionRepository) GetByWallet(ctx context.Context, address string) ([]*entities.PaymentRequestTransaction, error) {
	return r.list(ctx,
		`SELECT `+transactionColumns+`, false AS inserted FROM payment_request_transactions
		 WHERE wallet_address = $1 ORDER BY first_seen`,
		address)
}

// GetByPaymentRequest lists transactions tagged with a payment request
func (r *TransactionRepository) GetByPaymentRequest(ctx context.Context, paymentRequestID uuid.UUID) ([]*entities.PaymentRequestTransaction, error) {
	return r.list(ctx,
		`SELECT `+transactionColumns+`, false AS inserted FROM payment_request_transactions
		 WHERE payment_request_id = $1 ORDER BY first_seen`,
		paymentRequestID)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entities.PaymentRequestTransaction, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "payment_request_transactions"})
	defer span.End()

	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txs := make([]*entities.PaymentRequestTransaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].toEntity())
	}
	tracing.EndDBSpan(span, nil, int64(len(txs)))
	return txs, nil
}
