package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/pkg/logger"
	"github.com/settlepay/settlement_service/pkg/metrics"
)

// PaymentRequests is the part of the payment request service refunds need
type PaymentRequests interface {
	FindByWallet(ctx context.Context, walletAddress string) (*entities.PaymentRequest, error)
	UpdateStatus(ctx context.Context, walletAddress string, explicit *entities.StatusInfo) error
}

// MerchantWallets checks wallet ownership
type MerchantWallets interface {
	IsMerchantWallet(ctx context.Context, merchantID, address string) (bool, error)
}

// Chain reads balances and validates addresses
type Chain interface {
	GetBalance(ctx context.Context, blockchain entities.BlockchainType, address, assetID string) (decimal.Decimal, error)
	ValidateAddress(ctx context.Context, blockchain entities.BlockchainType, address string) (bool, error)
}

// Transferer executes multipart transfers
type Transferer interface {
	Execute(ctx context.Context, transfer *entities.MultipartTransfer) (*entities.MultipartTransferResult, error)
}

// TransactionReader lists the transactions of a payment request
type TransactionReader interface {
	GetByPaymentRequest(ctx context.Context, paymentRequestID uuid.UUID) ([]*entities.PaymentRequestTransaction, error)
}

// Config holds refund settings
type Config struct {
	// Period is how long a refund transfer has to confirm
	Period time.Duration
}

// Service returns a confirmed or failed payment to the payer
type Service struct {
	repo         repositories.RefundRepository
	requests     PaymentRequests
	wallets      MerchantWallets
	transactions TransactionReader
	chain        Chain
	transfers    Transferer
	config       Config
	logger       *logger.Logger
	now          func() time.Time
}

// NewService creates a refund service
func NewService(
	repo repositories.RefundRepository,
	requests PaymentRequests,
	wallets MerchantWallets,
	transactions TransactionReader,
	chain Chain,
	transfers Transferer,
	config Config,
	logger *logger.Logger,
) *Service {
	return &Service{
		repo:         repo,
		requests:     requests,
		wallets:      wallets,
		transactions: transactions,
		chain:        chain,
		transfers:    transfers,
		config:       config,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Execute refunds the single payment received on req.SourceAddress. On success
// the payment request moves to RefundInProgress.
func (s *Service) Execute(ctx context.Context, req *entities.RefundRequest) (*entities.RefundResult, error) {
	result, err := s.execute(ctx, req)
	switch {
	case err == nil:
		metrics.RefundsTotal.WithLabelValues("accepted").Inc()
	case domainerrors.HasCode(err, domainerrors.CodeTransferFailed):
		metrics.RefundsTotal.WithLabelValues("transfer_failed").Inc()
	default:
		metrics.RefundsTotal.WithLabelValues("rejected").Inc()
	}
	return result, err
}

func (s *Service) execute(ctx context.Context, req *entities.RefundRequest) (*entities.RefundResult, error) {
	pr, err := s.requests.FindByWallet(ctx, req.SourceAddress)
	if err != nil {
		return nil, err
	}
	if pr.MerchantID != req.MerchantID {
		return nil, domainerrors.MerchantMismatch(req.MerchantID, pr.ID.String())
	}
	if !pr.Status.AllowsRefund() {
		return nil, domainerrors.NotAllowedStatus(string(pr.Status))
	}

	owned, err := s.wallets.IsMerchantWallet(ctx, req.MerchantID, req.SourceAddress)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, domainerrors.WalletNotFound(req.SourceAddress)
	}

	payment, err := s.refundablePayment(ctx, pr)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetLatest(ctx, pr.ID)
	if err != nil {
		return nil, fmt.Errorf("get refund: %w", err)
	}
	if record != nil {
		if req.DestinationAddress != "" && req.DestinationAddress != record.DestinationAddress {
			return nil, domainerrors.RefundDestinationConflict(pr.ID.String(), record.DestinationAddress)
		}
		s.logger.Info("Resuming refund",
			"refund_id", record.ID,
			"payment_request_id", pr.ID,
			"state", record.State)
	} else {
		record, err = s.newRecord(ctx, pr, payment, req)
		if err != nil {
			return nil, err
		}
	}

	var sent []entities.RefundTransactionResult
	if record.State == entities.RefundStateSent {
		// the node already accepted it, only the status update is missing
		sent, err = s.recordedRefunds(ctx, pr.ID, record.DestinationAddress)
		if err != nil {
			return nil, err
		}
	} else {
		sent, err = s.send(ctx, pr, payment, record)
		if err != nil {
			return nil, err
		}
	}

	refunding := entities.NewStatusInfo(entities.PaymentRequestStatusRefundInProgress)
	if err := s.requests.UpdateStatus(ctx, req.SourceAddress, &refunding); err != nil {
		return nil, fmt.Errorf("mark refund in progress: %w", err)
	}

	s.logger.Info("Refund started",
		"refund_id", record.ID,
		"payment_request_id", pr.ID,
		"merchant_id", pr.MerchantID,
		"amount", record.Amount.String(),
		"destination", record.DestinationAddress,
		"due_date", record.DueDate)

	return &entities.RefundResult{
		RefundID:         record.ID,
		PaymentRequestID: pr.ID,
		AssetID:          payment.AssetID,
		Amount:           record.Amount,
		DueDate:          record.DueDate,
		Transactions:     sent,
	}, nil
}

// newRecord checks the wallet balance and the destination, then saves a pending refund
func (s *Service) newRecord(ctx context.Context, pr *entities.PaymentRequest, payment *entities.PaymentRequestTransaction, req *entities.RefundRequest) (*entities.RefundRecord, error) {
	balance, err := s.chain.GetBalance(ctx, payment.Blockchain, req.SourceAddress, payment.AssetID)
	if err != nil {
		return nil, fmt.Errorf("get wallet balance: %w", err)
	}
	if balance.LessThan(payment.Amount) {
		return nil, domainerrors.InsufficientBalance(req.SourceAddress, balance, payment.Amount)
	}

	if req.DestinationAddress == "" {
		return nil, domainerrors.RefundDestinationRequired()
	}
	valid, err := s.chain.ValidateAddress(ctx, payment.Blockchain, req.DestinationAddress)
	if err != nil {
		return nil, fmt.Errorf("validate refund destination: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidAddress(req.DestinationAddress, string(payment.Blockchain))
	}

	now := s.now()
	record := &entities.RefundRecord{
		ID:                 uuid.New(),
		PaymentRequestID:   pr.ID,
		MerchantID:         pr.MerchantID,
		State:              entities.RefundStatePending,
		SourceAddress:      req.SourceAddress,
		DestinationAddress: req.DestinationAddress,
		Amount:             payment.Amount,
		DueDate:            now.Add(s.config.Period),
		CreatedAt:          now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("save refund: %w", err)
	}
	return record, nil
}

// send hands the refund to the node under the record id and marks it sent
func (s *Service) send(ctx context.Context, pr *entities.PaymentRequest, payment *entities.PaymentRequestTransaction, record *entities.RefundRecord) ([]entities.RefundTransactionResult, error) {
	transfer, err := s.transfers.Execute(ctx, &entities.MultipartTransfer{
		OperationID:      record.ID.String(),
		PaymentRequestID: pr.ID.String(),
		AssetID:          payment.AssetID,
		Blockchain:       payment.Blockchain,
		TransactionType:  entities.TransactionTypeRefund,
		DueDate:          &record.DueDate,
		Parts: []entities.TransferPart{{
			Sources:     []entities.AddressAmount{{Address: record.SourceAddress, Amount: record.Amount}},
			Destination: entities.AddressAmount{Address: record.DestinationAddress, Amount: record.Amount},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("execute refund transfer: %w", err)
	}
	if transfer.State == entities.TransferStateFail {
		s.logger.Warn("Refund transfer failed",
			"refund_id", record.ID,
			"payment_request_id", pr.ID,
			"error", transfer.ErrorMessage)
		return nil, domainerrors.TransferFailed(transfer.ErrorMessage)
	}

	if err := s.repo.MarkSent(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("mark refund sent: %w", err)
	}
	record.State = entities.RefundStateSent

	sent := make([]entities.RefundTransactionResult, 0, len(transfer.Transactions))
	for _, tx := range transfer.Transactions {
		source := ""
		if len(tx.Sources) > 0 {
			source = tx.Sources[0].Address
		}
		sent = append(sent, entities.RefundTransactionResult{
			Amount:             tx.Amount,
			AssetID:            tx.AssetID,
			Blockchain:         tx.Blockchain,
			Hash:               tx.Hash,
			IdentityType:       tx.IdentityType,
			Identity:           tx.Identity,
			SourceAddress:      source,
			DestinationAddress: tx.Destination,
		})
	}
	return sent, nil
}

func (s *Service) recordedRefunds(ctx context.Context, paymentRequestID uuid.UUID, destination string) ([]entities.RefundTransactionResult, error) {
	txs, err := s.transactions.GetByPaymentRequest(ctx, paymentRequestID)
	if err != nil {
		return nil, fmt.Errorf("get refund transactions: %w", err)
	}

	var out []entities.RefundTransactionResult
	for _, tx := range txs {
		if !tx.IsRefund() {
			continue
		}
		hash := ""
		if tx.IdentityType == entities.TransactionIdentityHash {
			hash = tx.Identity
		}
		out = append(out, entities.RefundTransactionResult{
			Amount:             tx.Amount,
			AssetID:            tx.AssetID,
			Blockchain:         tx.Blockchain,
			Hash:               hash,
			IdentityType:       tx.IdentityType,
			Identity:           tx.Identity,
			SourceAddress:      tx.WalletAddress,
			DestinationAddress: destination,
		})
	}
	return out, nil
}

func (s *Service) refundablePayment(ctx context.Context, pr *entities.PaymentRequest) (*entities.PaymentRequestTransaction, error) {
	txs, err := s.transactions.GetByPaymentRequest(ctx, pr.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment transactions: %w", err)
	}

	var payments []*entities.PaymentRequestTransaction
	for _, tx := range txs {
		if tx.IsPayment() {
			payments = append(payments, tx)
		}
	}

	switch len(payments) {
	case 0:
		return nil, domainerrors.NoTransactionsToRefund(pr.ID.String())
	case 1:
		return payments[0], nil
	default:
		return nil, domainerrors.MultiTransactionRefundNotSupported(len(payments))
	}
}

// GetRefund returns a refund of the merchant
func (s *Service) GetRefund(ctx context.Context, merchantID string, id uuid.UUID) (*entities.RefundRecord, error) {
	record, err := s.repo.Get(ctx, merchantID, id)
	if err != nil {
		return nil, fmt.Errorf("get refund: %w", err)
	}
	if record == nil {
		return nil, domainerrors.TypedNotFound(domainerrors.CodeRefundNotFound, "refund", id.String())
	}
	return record, nil
}

// GetRefundInfo summarizes the refunds sent for the request bound to walletAddress
func (s *Service) GetRefundInfo(ctx context.Context, walletAddress string) (*entities.RefundInfo, error) {
	pr, err := s.requests.FindByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetLatest(ctx, pr.ID)
	if err != nil {
		return nil, fmt.Errorf("get refund: %w", err)
	}
	destination := ""
	if record != nil {
		destination = record.DestinationAddress
	}

	sent, err := s.recordedRefunds(ctx, pr.ID, destination)
	if err != nil {
		return nil, err
	}
	if len(sent) == 0 {
		return nil, domainerrors.TypedNotFound(domainerrors.CodeRefundNotFound, "refund", walletAddress)
	}

	info := &entities.RefundInfo{
		PaymentRequestID: pr.ID,
		WalletAddress:    walletAddress,
		AssetID:          sent[0].AssetID,
		Amount:           decimal.Zero,
		Transactions:     sent,
	}
	for _, tx := range sent {
		info.Amount = info.Amount.Add(tx.Amount)
	}
	if record != nil {
		due := record.DueDate
		info.DueDate = &due
	}
	return info, nil
}
