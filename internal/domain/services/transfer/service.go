package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
)

// Gateway executes transfers on a blockchain
type Gateway interface {
	Transfer(ctx context.Context, blockchain entities.BlockchainType, cmd *entities.TransferCommand) (*entities.TransferResult, error)
}

// Service runs multipart transfers and records the resulting transactions
type Service struct {
	gateway Gateway
	repo    repositories.TransactionRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a transfer service
func NewService(gateway Gateway, repo repositories.TransactionRepository, logger *zap.Logger) *Service {
	return &Service{
		gateway: gateway,
		repo:    repo,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Execute sends every part of transfer through the gateway. Gateway failures
// come back as a Fail result; only invalid input and storage errors are returned.
func (s *Service) Execute(ctx context.Context, transfer *entities.MultipartTransfer) (*entities.MultipartTransferResult, error) {
	cmd, err := buildCommand(transfer)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Transfer(ctx, transfer.Blockchain, cmd)
	if err != nil {
		s.logger.Warn("Transfer rejected by gateway",
			zap.String("payment_request_id", transfer.PaymentRequestID),
			zap.String("blockchain", string(transfer.Blockchain)),
			zap.Error(err))
		return &entities.MultipartTransferResult{
			State:        entities.TransferStateFail,
			ErrorMessage: err.Error(),
		}, nil
	}

	var (
		accepted []entities.TransactionResult
		failures []string
	)
	for _, tx := range result.Transactions {
		if tx.Failed() {
			failures = append(failures, tx.Error)
			continue
		}
		accepted = append(accepted, tx)
	}

	if err := s.record(ctx, transfer, accepted); err != nil {
		return nil, err
	}

	if len(failures) > 0 {
		return &entities.MultipartTransferResult{
			State:        entities.TransferStateFail,
			ErrorMessage: strings.Join(failures, "; "),
			Transactions: accepted,
		}, nil
	}

	s.logger.Info("Transfer executed",
		zap.String("payment_request_id", transfer.PaymentRequestID),
		zap.String("asset_id", transfer.AssetID),
		zap.String("type", string(transfer.TransactionType)),
		zap.Int("transactions", len(accepted)))

	return &entities.MultipartTransferResult{
		State:        entities.TransferStateSuccess,
		Transactions: accepted,
	}, nil
}

func buildCommand(transfer *entities.MultipartTransfer) (*entities.TransferCommand, error) {
	if len(transfer.Parts) == 0 {
		return nil, domainerrors.ValidationError("parts", "transfer has no parts")
	}

	cmd := &entities.TransferCommand{OperationID: transfer.OperationID, AssetID: transfer.AssetID}
	for _, part := range transfer.Parts {
		if part.Destination.Address == "" {
			return nil, domainerrors.ValidationError("destination", "transfer destination is required")
		}
		if len(part.Sources) == 0 {
			return nil, domainerrors.ValidationError("sources", "transfer part has no sources")
		}
		for _, src := range part.Sources {
			if !src.Amount.IsPositive() {
				return nil, domainerrors.ValidationError("amount", "transfer amount must be positive")
			}
			cmd.Amounts = append(cmd.Amounts, entities.TransferAmount{
				Source:      src.Address,
				Destination: part.Destination.Address,
				Amount:      src.Amount,
			})
		}
	}
	return cmd, nil
}

func (s *Service) record(ctx context.Context, transfer *entities.MultipartTransfer, txs []entities.TransactionResult) error {
	var paymentRequestID *uuid.UUID
	if id, err := uuid.Parse(transfer.PaymentRequestID); err == nil {
		paymentRequestID = &id
	}
	now := s.now()

	for _, tx := range txs {
		sources := make([]string, 0, len(tx.Sources))
		for _, src := range tx.Sources {
			sources = append(sources, src.Address)
		}
		wallet := ""
		if len(sources) > 0 {
			wallet = sources[0]
		}

		transactionID := tx.Hash
		if transactionID == "" {
			transactionID = tx.Identity
		}

		firstSeen := now
		record := &entities.PaymentRequestTransaction{
			ID:                    uuid.New(),
			TransactionID:         transactionID,
			Blockchain:            tx.Blockchain,
			IdentityType:          tx.IdentityType,
			Identity:              tx.Identity,
			PaymentRequestID:      paymentRequestID,
			Amount:                tx.Amount,
			AssetID:               tx.AssetID,
			WalletAddress:         wallet,
			SourceWalletAddresses: sources,
			TransactionType:       transfer.TransactionType,
			FirstSeen:             &firstSeen,
			DueDate:               transfer.DueDate,
		}
		if _, _, err := s.repo.Upsert(ctx, record); err != nil {
			s.logger.Error("Transfer sent but not recorded",
				zap.String("identity", tx.Identity),
				zap.String("payment_request_id", transfer.PaymentRequestID),
				zap.Error(err))
			return fmt.Errorf("record transfer transaction %s: %w", tx.Identity, err)
		}
	}
	return nil
}
