package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/tracing"
)

const leaseColumns = `wallet_address, blockchain, occupied_by, since, version`

// WalletLeaseRepository stores wallet leases in Postgres. TryLock is one
// conditional upsert, so concurrent writers are serialized by the row lock.
type WalletLeaseRepository struct {
	db *sqlx.DB
}

// NewWalletLeaseRepository creates a Postgres lease store
func NewWalletLeaseRepository(db *sqlx.DB) *WalletLeaseRepository {
	return &WalletLeaseRepository{db: db}
}

// TryLock leases the wallet if it is unknown or vacant
func (r *WalletLeaseRepository) TryLock(ctx context.Context, lease *entities.WalletLease) (bool, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPSERT", Table: "wallet_leases"})
	defer span.End()

	query := `
		INSERT INTO wallet_leases (` + leaseColumns + `)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (wallet_address, blockchain) DO UPDATE
		SET occupied_by = EXCLUDED.occupied_by,
		    since = EXCLUDED.since,
		    version = wallet_leases.version + 1
		WHERE wallet_leases.occupied_by = ''
		RETURNING version
	`

	var version int64
	err := r.db.QueryRowxContext(ctx, query, lease.WalletAddress, lease.Blockchain, lease.OccupiedBy, lease.Since).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) || isConcurrentWrite(err) {
		tracing.EndDBSpan(span, nil, 0)
		return false, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return false, fmt.Errorf("failed to lock wallet: %w", err)
	}

	lease.Version = version
	tracing.EndDBSpan(span, nil, 1)
	return true, nil
}

// Release marks the wallet vacant. Unknown or vacant wallets are left untouched.
func (r *WalletLeaseRepository) Release(ctx context.Context, address string, blockchain entities.BlockchainType, at time.Time) error {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPDATE", Table: "wallet_leases"})
	defer span.End()

	query := `
		UPDATE wallet_leases
		SET occupied_by = '', since = $3, version = version + 1
		WHERE wallet_address = $1 AND blockchain = $2 AND occupied_by <> ''
	`

	res, err := r.db.ExecContext(ctx, query, address, blockchain, at)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return fmt.Errorf("failed to release wallet: %w", err)
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return nil
}

// ReleaseHeldBy marks the wallet vacant only while occupiedBy holds it
func (r *WalletLeaseRepository) ReleaseHeldBy(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string, at time.Time) (bool, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "UPDATE", Table: "wallet_leases"})
	defer span.End()

	query := `
		UPDATE wallet_leases
		SET occupied_by = '', since = $4, version = version + 1
		WHERE wallet_address = $1 AND blockchain = $2 AND occupied_by = $3
	`

	res, err := r.db.ExecContext(ctx, query, address, blockchain, occupiedBy, at)
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return false, fmt.Errorf("failed to release wallet: %w", err)
	}
	rows, _ := res.RowsAffected()
	tracing.EndDBSpan(span, nil, rows)
	return rows == 1, nil
}

// Get returns the lease or nil
func (r *WalletLeaseRepository) Get(ctx context.Context, address string, blockchain entities.BlockchainType) (*entities.WalletLease, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "wallet_leases"})
	defer span.End()

	var lease entities.WalletLease
	err := r.db.GetContext(ctx, &lease,
		`SELECT `+leaseColumns+` FROM wallet_leases WHERE wallet_address = $1 AND blockchain = $2`,
		address, blockchain)
	if errors.Is(err, sql.ErrNoRows) {
		tracing.EndDBSpan(span, nil, 0)
		return nil, nil
	}
	if err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to get wallet lease: %w", err)
	}
	tracing.EndDBSpan(span, nil, 1)
	return &lease, nil
}

// GetVacant lists vacant wallets on blockchain, longest idle first
func (r *WalletLeaseRepository) GetVacant(ctx context.Context, blockchain entities.BlockchainType) ([]*entities.WalletLease, error) {
	return r.list(ctx,
		`SELECT `+leaseColumns+` FROM wallet_leases WHERE blockchain = $1 AND occupied_by = '' ORDER BY since`,
		blockchain)
}

// GetOccupied lists held wallets on every blockchain
func (r *WalletLeaseRepository) GetOccupied(ctx context.Context) ([]*entities.WalletLease, error) {
	return r.list(ctx, `SELECT `+leaseColumns+` FROM wallet_leases WHERE occupied_by <> '' ORDER BY since`)
}

func (r *WalletLeaseRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entities.WalletLease, error) {
	ctx, span := tracing.StartDBSpan(ctx, tracing.DBSpanConfig{Operation: "SELECT", Table: "wallet_leases"})
	defer span.End()

	var leases []*entities.WalletLease
	if err := r.db.SelectContext(ctx, &leases, query, args...); err != nil {
		tracing.EndDBSpan(span, err, 0)
		return nil, fmt.Errorf("failed to list wallet leases: %w", err)
	}
	tracing.EndDBSpan(span, nil, int64(len(leases)))
	return leases, nil
}

// isConcurrentWrite reports serialization failures and lost insert races
func isConcurrentWrite(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "23505"
}
