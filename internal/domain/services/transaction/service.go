package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// PaymentRequestFinder resolves the request a wallet is bound to
type PaymentRequestFinder interface {
	FindByWallet(ctx context.Context, walletAddress string) (*entities.PaymentRequest, error)
}

// StatusUpdater recomputes a payment request status after new observations
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, walletAddress string, explicit *entities.StatusInfo) error
}

// Publisher receives transaction notifications
type Publisher interface {
	PublishTransaction(ctx context.Context, event *entities.TransactionEvent) error
}

// Service ingests blockchain observations. Replaying an observation is harmless:
// the store merges by identity and confirmations never go down.
type Service struct {
	repo     repositories.TransactionRepository
	requests PaymentRequestFinder
	statuses StatusUpdater
	events   Publisher
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a transaction ingestion service
func NewService(
	repo repositories.TransactionRepository,
	requests PaymentRequestFinder,
	statuses StatusUpdater,
	events Publisher,
	logger *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		requests: requests,
		statuses: statuses,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create records a newly observed transaction and refreshes its request status
func (s *Service) Create(ctx context.Context, cmd *entities.CreateTransactionCommand) (*entities.PaymentRequestTransaction, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	pr, err := s.requests.FindByWallet(ctx, cmd.WalletAddress)
	if err != nil {
		return nil, err
	}

	firstSeen := cmd.FirstSeen
	if firstSeen == nil {
		now := s.now()
		firstSeen = &now
	}

	tx := &entities.PaymentRequestTransaction{
		ID:                    uuid.New(),
		TransactionID:         cmd.TransactionID,
		Blockchain:            cmd.Blockchain,
		IdentityType:          cmd.IdentityType,
		Identity:              cmd.Identity,
		PaymentRequestID:      &pr.ID,
		Amount:                cmd.Amount,
		AssetID:               cmd.AssetID,
		Confirmations:         cmd.Confirmations,
		BlockID:               cmd.BlockID,
		WalletAddress:         cmd.WalletAddress,
		SourceWalletAddresses: cmd.SourceWalletAddresses,
		TransactionType:       cmd.Type,
		FirstSeen:             firstSeen,
		DueDate:               cmd.DueDate,
	}

	stored, inserted, err := s.repo.Upsert(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	kind := entities.TransactionEventCreated
	if !inserted {
		kind = entities.TransactionEventUpdated
	}
	s.publish(ctx, kind, stored)

	s.logger.Info("Transaction recorded",
		"identity", stored.Identity,
		"blockchain", stored.Blockchain,
		"wallet_address", stored.WalletAddress,
		"payment_request_id", pr.ID,
		"type", stored.TransactionType,
		"amount", stored.Amount.String(),
		"confirmations", stored.Confirmations,
		"inserted", inserted)

	if err := s.statuses.UpdateStatus(ctx, cmd.WalletAddress, nil); err != nil {
		return stored, fmt.Errorf("update payment request status: %w", err)
	}
	return stored, nil
}

// Update merges a later observation into a known transaction and refreshes the
// request status. An empty wallet address falls back to the stored one.
func (s *Service) Update(ctx context.Context, cmd *entities.UpdateTransactionCommand) (*entities.PaymentRequestTransaction, error) {
	if err := validateUpdate(cmd); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByIdentity(ctx, cmd.Blockchain, cmd.IdentityType, cmd.Identity)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if existing == nil {
		return nil, domainerrors.TypedNotFound(domainerrors.CodeTransactionNotFound, "transaction", cmd.Identity)
	}

	if !cmd.Amount.IsZero() {
		existing.Amount = cmd.Amount
	}
	if cmd.Confirmations > existing.Confirmations {
		existing.Confirmations = cmd.Confirmations
	}
	if cmd.BlockID != "" {
		existing.BlockID = cmd.BlockID
	}
	if existing.FirstSeen == nil {
		existing.FirstSeen = cmd.FirstSeen
	}

	stored, _, err := s.repo.Upsert(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, entities.TransactionEventUpdated, stored)

	s.logger.Debug("Transaction updated",
		"identity", stored.Identity,
		"blockchain", stored.Blockchain,
		"confirmations", stored.Confirmations)

	wallet := cmd.WalletAddress
	if wallet == "" {
		wallet = stored.WalletAddress
	}
	if err := s.statuses.UpdateStatus(ctx, wallet, nil); err != nil {
		return stored, fmt.Errorf("update payment request status: %w", err)
	}
	return stored, nil
}

// ReportTransfer attaches the chain hash to a transfer recorded by its operation id
func (s *Service) ReportTransfer(ctx context.Context, cmd *entities.TransferReportCommand) (*entities.PaymentRequestTransaction, error) {
	switch {
	case cmd.TransferID == "":
		return nil, domainerrors.ValidationError("TransferId", "transfer id is required")
	case cmd.TransactionHash == "":
		return nil, domainerrors.ValidationError("TransactionHash", "transaction hash is required")
	}
	blockchain := cmd.Blockchain
	if blockchain == "" {
		blockchain = entities.BlockchainEthereum
	}
	if !blockchain.IsValid() {
		return nil, domainerrors.BlockchainNotSupported(string(blockchain))
	}

	existing, err := s.repo.GetByIdentity(ctx, blockchain, entities.TransactionIdentitySpecific, cmd.TransferID)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if existing == nil {
		return nil, domainerrors.TypedNotFound(domainerrors.CodeTransactionNotFound, "transaction", cmd.TransferID)
	}
	if existing.TransactionID == cmd.TransactionHash {
		return existing, nil
	}

	existing.TransactionID = cmd.TransactionHash
	stored, _, err := s.repo.Upsert(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, entities.TransactionEventUpdated, stored)

	s.logger.Info("Transfer hash reported",
		"transfer_id", cmd.TransferID,
		"transaction_hash", cmd.TransactionHash,
		"blockchain", blockchain)

	if err := s.statuses.UpdateStatus(ctx, stored.WalletAddress, nil); err != nil {
		return stored, fmt.Errorf("update payment request status: %w", err)
	}
	return stored, nil
}

func (s *Service) publish(ctx context.Context, kind string, tx *entities.PaymentRequestTransaction) {
	if s.events == nil {
		return
	}
	event := &entities.TransactionEvent{Kind: kind, Transaction: tx, OccurredAt: s.now()}
	if err := s.events.PublishTransaction(ctx, event); err != nil {
		s.logger.Error("Failed to publish transaction", "identity", tx.Identity, "error", err)
	}
}

func validateCreate(cmd *entities.CreateTransactionCommand) error {
	switch {
	case !cmd.Blockchain.IsValid():
		return domainerrors.BlockchainNotSupported(string(cmd.Blockchain))
	case cmd.Identity == "":
		return domainerrors.ValidationError("identity", "transaction identity is required")
	case cmd.WalletAddress == "":
		return domainerrors.ValidationError("wallet_address", "wallet address is required")
	case cmd.AssetID == "":
		return domainerrors.ValidationError("asset_id", "asset is required")
	case cmd.Amount.IsNegative():
		return domainerrors.NegativeValue("amount", cmd.Amount)
	case cmd.Confirmations < 0:
		return domainerrors.ValidationError("confirmations", "confirmations must not be negative")
	}
	return nil
}

func validateUpdate(cmd *entities.UpdateTransactionCommand) error {
	switch {
	case !cmd.Blockchain.IsValid():
		return domainerrors.BlockchainNotSupported(string(cmd.Blockchain))
	case cmd.Identity == "":
		return domainerrors.ValidationError("identity", "transaction identity is required")
	case cmd.Amount.IsNegative():
		return domainerrors.NegativeValue("amount", cmd.Amount)
	case cmd.Confirmations < 0:
		return domainerrors.ValidationError("confirmations", "confirmations must not be negative")
	}
	return nil
}
