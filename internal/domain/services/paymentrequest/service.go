package paymentrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/pkg/logger"
	"github.com/settlepay/settlement_service/pkg/metrics"
)

// OrderProvider issues and looks up orders
type OrderProvider interface {
	Get(ctx context.Context, paymentRequestID, orderID uuid.UUID) (*entities.Order, error)
	GetLatest(ctx context.Context, paymentRequestID uuid.UUID) (*entities.Order, error)
	// GetActual returns the latest order if it still accepted payments at date
	GetActual(ctx context.Context, paymentRequestID uuid.UUID, date time.Time) (*entities.Order, error)
	GetLatestOrCreate(ctx context.Context, pr *entities.PaymentRequest, force bool) (*entities.Order, error)
}

// WalletAllocator leases a merchant wallet to a payment request
type WalletAllocator interface {
	Allocate(ctx context.Context, merchantID string, blockchain entities.BlockchainType, occupiedBy string) (string, error)
}

// LeaseLedger is the part of the wallet lease ledger the sweep needs
type LeaseLedger interface {
	ReleaseHeldBy(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string) (bool, error)
	GetOccupied(ctx context.Context) ([]*entities.WalletLease, error)
}

// TransactionReader reads observed transactions
type TransactionReader interface {
	GetByWallet(ctx context.Context, address string) ([]*entities.PaymentRequestTransaction, error)
	GetByPaymentRequest(ctx context.Context, paymentRequestID uuid.UUID) ([]*entities.PaymentRequestTransaction, error)
}

// AssetLookup resolves asset metadata
type AssetLookup interface {
	GetAsset(ctx context.Context, id string) (*entities.Asset, error)
}

// EventPublisher receives status transitions
type EventPublisher interface {
	PublishStatusTransition(ctx context.Context, event *entities.StatusTransitionEvent) error
}

// Config holds the state machine settings
type Config struct {
	TransactionConfirmationCount int
	// WalletExtra keeps a wallet leased past the request due date for late payments
	WalletExtra    time.Duration
	SweepBatchSize int
}

// DefaultConfig returns default settings
func DefaultConfig() Config {
	return Config{
		TransactionConfirmationCount: 6,
		WalletExtra:                  time.Hour,
		SweepBatchSize:               500,
	}
}

// CheckoutResult is the wallet and order a payer should use
type CheckoutResult struct {
	PaymentRequest *entities.PaymentRequest `json:"payment_request"`
	Order          *entities.Order          `json:"order"`
}

// SweepResult summarizes one HandleExpired run
type SweepResult struct {
	Expired  int
	Released int
	Failed   int
}

// Service owns the payment request lifecycle
type Service struct {
	repo         repositories.PaymentRequestRepository
	orders       OrderProvider
	wallets      WalletAllocator
	leases       LeaseLedger
	transactions TransactionReader
	assets       AssetLookup
	events       EventPublisher
	config       Config
	logger       *logger.Logger
	now          func() time.Time
}

// NewService creates a payment request service
func NewService(
	repo repositories.PaymentRequestRepository,
	orders OrderProvider,
	wallets WalletAllocator,
	leases LeaseLedger,
	transactions TransactionReader,
	assets AssetLookup,
	events EventPublisher,
	config Config,
	logger *logger.Logger,
) *Service {
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = DefaultConfig().SweepBatchSize
	}
	return &Service{
		repo:         repo,
		orders:       orders,
		wallets:      wallets,
		leases:       leases,
		transactions: transactions,
		assets:       assets,
		events:       events,
		config:       config,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new payment request in status New
func (s *Service) Create(ctx context.Context, cmd *entities.CreatePaymentRequestCommand) (*entities.PaymentRequest, error) {
	now := s.now()
	if err := s.validateCreate(cmd, now); err != nil {
		return nil, err
	}

	if _, err := s.paymentBlockchain(ctx, cmd.PaymentAssetID); err != nil {
		return nil, err
	}

	pr := &entities.PaymentRequest{
		ID:                uuid.New(),
		MerchantID:        cmd.MerchantID,
		ExternalOrderID:   cmd.ExternalOrderID,
		SettlementAssetID: cmd.SettlementAssetID,
		PaymentAssetID:    cmd.PaymentAssetID,
		Amount:            cmd.Amount,
		DueDate:           cmd.DueDate.UTC(),
		MarkupPercent:     cmd.MarkupPercent,
		MarkupPips:        cmd.MarkupPips,
		MarkupFixedFee:    cmd.MarkupFixedFee,
		Status:            entities.PaymentRequestStatusNew,
		Timestamp:         now,
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(entities.PaymentRequestStatusNone), string(pr.Status)).Inc()
	s.publish(ctx, pr, entities.PaymentRequestStatusNone, now)

	s.logger.Info("Payment request created",
		"payment_request_id", pr.ID,
		"merchant_id", pr.MerchantID,
		"settlement_asset_id", pr.SettlementAssetID,
		"payment_asset_id", pr.PaymentAssetID,
		"amount", pr.Amount.String(),
		"due_date", pr.DueDate)

	return pr, nil
}

func (s *Service) validateCreate(cmd *entities.CreatePaymentRequestCommand, now time.Time) error {
	switch {
	case cmd.MerchantID == "":
		return domainerrors.ValidationError("merchant_id", "merchant id is required")
	case cmd.SettlementAssetID == "":
		return domainerrors.ValidationError("settlement_asset_id", "settlement asset is required")
	case cmd.PaymentAssetID == "":
		return domainerrors.ValidationError("payment_asset_id", "payment asset is required")
	case cmd.Amount.IsNegative():
		return domainerrors.NegativeValue("amount", cmd.Amount)
	case cmd.Amount.IsZero():
		return domainerrors.ValidationError("amount", "amount must be positive")
	case cmd.MarkupPercent.IsNegative():
		return domainerrors.NegativeValue("markup_percent", cmd.MarkupPercent)
	case cmd.MarkupFixedFee.IsNegative():
		return domainerrors.NegativeValue("markup_fixed_fee", cmd.MarkupFixedFee)
	case cmd.MarkupPips < 0:
		return domainerrors.ValidationError("markup_pips", "markup pips must not be negative")
	case !cmd.DueDate.After(now):
		return domainerrors.ValidationError("due_date", "due date must be in the future")
	}
	return nil
}

// Get returns the merchant's payment request
func (s *Service) Get(ctx context.Context, merchantID string, id uuid.UUID) (*entities.PaymentRequest, error) {
	pr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	if pr == nil {
		return nil, domainerrors.PaymentRequestNotFound(id.String())
	}
	if pr.MerchantID != merchantID {
		return nil, domainerrors.MerchantMismatch(merchantID, id.String())
	}
	return pr, nil
}

// GetByMerchant lists the merchant's payment requests
func (s *Service) GetByMerchant(ctx context.Context, merchantID string) ([]*entities.PaymentRequest, error) {
	prs, err := s.repo.GetByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("get merchant payment requests: %w", err)
	}
	return prs, nil
}

// FindByWallet returns the request the wallet is bound to
func (s *Service) FindByWallet(ctx context.Context, walletAddress string) (*entities.PaymentRequest, error) {
	pr, err := s.repo.FindByWalletAddress(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("find payment request by wallet: %w", err)
	}
	if pr == nil {
		return nil, domainerrors.PaymentRequestNotFound(walletAddress)
	}
	return pr, nil
}

// GetOrder returns an order issued for the merchant's payment request
func (s *Service) GetOrder(ctx context.Context, merchantID string, id, orderID uuid.UUID) (*entities.Order, error) {
	pr, err := s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	return s.orders.Get(ctx, pr.ID, orderID)
}

// GetNotExpiredWallets lists the wallets of requests still inside their due date
// plus the wallet grace period, one entry per address
func (s *Service) GetNotExpiredWallets(ctx context.Context) ([]*entities.WalletState, error) {
	prs, err := s.repo.GetWithWalletDueAfter(ctx, s.now().Add(-s.config.WalletExtra))
	if err != nil {
		return nil, fmt.Errorf("get payment requests with wallets: %w", err)
	}

	blockchains := make(map[string]entities.BlockchainType)
	latest := make(map[string]*entities.PaymentRequest)
	var order []string
	for _, pr := range prs {
		if pr.Status == entities.PaymentRequestStatusCancelled {
			continue
		}
		prev, ok := latest[pr.WalletAddress]
		if !ok {
			order = append(order, pr.WalletAddress)
		}
		if !ok || boundAfter(pr, prev) {
			latest[pr.WalletAddress] = pr
		}
	}

	wallets := make([]*entities.WalletState, 0, len(order))
	for _, address := range order {
		pr := latest[address]
		blockchain, ok := blockchains[pr.PaymentAssetID]
		if !ok {
			blockchain, err = s.paymentBlockchain(ctx, pr.PaymentAssetID)
			if err != nil {
				return nil, err
			}
			blockchains[pr.PaymentAssetID] = blockchain
		}
		wallets = append(wallets, &entities.WalletState{
			Address:          address,
			Blockchain:       blockchain,
			DueDate:          pr.DueDate.Add(s.config.WalletExtra),
			PaymentRequestID: pr.ID,
		})
	}
	return wallets, nil
}

func boundAfter(a, b *entities.PaymentRequest) bool {
	switch {
	case a.WalletBoundAt == nil:
		return false
	case b.WalletBoundAt == nil:
		return true
	}
	return a.WalletBoundAt.After(*b.WalletBoundAt)
}

// Cancel stops a request that has not been paid and frees its wallet.
// Cancelling a cancelled request returns it unchanged.
func (s *Service) Cancel(ctx context.Context, merchantID string, id uuid.UUID) (*entities.PaymentRequest, error) {
	pr, err := s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if pr.Status == entities.PaymentRequestStatusCancelled {
		return pr, nil
	}
	if !pr.Status.AllowsCheckout() {
		return nil, domainerrors.NotAllowedStatus(string(pr.Status))
	}

	if pr.WalletAddress != "" {
		paid, err := s.hasPayments(ctx, pr)
		if err != nil {
			return nil, err
		}
		if paid {
			return nil, domainerrors.PaymentAlreadyReceived(pr.ID.String())
		}
	}

	if err := s.apply(ctx, pr, entities.NewStatusInfo(entities.PaymentRequestStatusCancelled)); err != nil {
		return nil, err
	}
	if pr.Status != entities.PaymentRequestStatusCancelled {
		return nil, domainerrors.ConflictError("payment request", "status changed while cancelling")
	}

	if pr.WalletAddress != "" {
		s.releaseWallet(ctx, pr)
	}
	return pr, nil
}

// hasPayments reports whether a payment landed on the wallet while pr held it
func (s *Service) hasPayments(ctx context.Context, pr *entities.PaymentRequest) (bool, error) {
	txs, err := s.transactions.GetByWallet(ctx, pr.WalletAddress)
	if err != nil {
		return false, fmt.Errorf("get wallet transactions: %w", err)
	}
	for _, tx := range txs {
		if !tx.IsPayment() {
			continue
		}
		if tx.PaymentRequestID != nil && *tx.PaymentRequestID != pr.ID {
			continue
		}
		if pr.WalletBoundAt != nil && tx.FirstSeen != nil && tx.FirstSeen.Before(*pr.WalletBoundAt) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (s *Service) releaseWallet(ctx context.Context, pr *entities.PaymentRequest) {
	blockchain, err := s.paymentBlockchain(ctx, pr.PaymentAssetID)
	if err != nil {
		s.logger.Warn("Cancelled request wallet left to the sweep", "payment_request_id", pr.ID, "error", err)
		return
	}
	if _, err := s.leases.ReleaseHeldBy(ctx, pr.WalletAddress, blockchain, pr.ID.String()); err != nil {
		s.logger.Warn("Failed to release cancelled request wallet",
			"payment_request_id", pr.ID,
			"wallet_address", pr.WalletAddress,
			"error", err)
	}
}

// Checkout binds a wallet and a valid order to the request and moves it to InProcess.
// Repeated calls return the same wallet. force prices a new order even if the current one is valid.
func (s *Service) Checkout(ctx context.Context, merchantID string, id uuid.UUID, force bool) (*CheckoutResult, error) {
	pr, err := s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}

	if pr.Status.AllowsCheckout() && pr.IsExpired(s.now()) {
		if err := s.refresh(ctx, pr, nil); err != nil {
			return nil, err
		}
	}
	if !pr.Status.AllowsCheckout() {
		return nil, domainerrors.NotAllowedStatus(string(pr.Status))
	}

	if pr.WalletAddress == "" {
		if err := s.bindWallet(ctx, pr); err != nil {
			return nil, err
		}
	}

	order, err := s.orders.GetLatestOrCreate(ctx, pr, force)
	if err != nil {
		return nil, err
	}
	if pr.OrderID == nil || *pr.OrderID != order.ID {
		if err := s.repo.SetOrder(ctx, pr.ID, order.ID); err != nil {
			return nil, fmt.Errorf("set payment request order: %w", err)
		}
		pr.OrderID = &order.ID
	}

	if pr.Status != entities.PaymentRequestStatusInProcess {
		if err := s.apply(ctx, pr, entities.NewStatusInfo(entities.PaymentRequestStatusInProcess)); err != nil {
			return nil, err
		}
	}

	return &CheckoutResult{PaymentRequest: pr, Order: order}, nil
}

func (s *Service) bindWallet(ctx context.Context, pr *entities.PaymentRequest) error {
	blockchain, err := s.paymentBlockchain(ctx, pr.PaymentAssetID)
	if err != nil {
		return err
	}

	holder := pr.ID.String()
	address, err := s.wallets.Allocate(ctx, pr.MerchantID, blockchain, holder)
	if err != nil {
		return fmt.Errorf("allocate wallet: %w", err)
	}

	bound, err := s.repo.BindWallet(ctx, pr.ID, address)
	if err != nil {
		return fmt.Errorf("bind wallet: %w", err)
	}
	if bound {
		at := s.now()
		pr.WalletAddress = address
		pr.WalletBoundAt = &at
		return nil
	}

	// A concurrent checkout bound its own wallet first
	if _, err := s.leases.ReleaseHeldBy(ctx, address, blockchain, holder); err != nil {
		s.logger.Warn("Failed to release surplus wallet", "wallet_address", address, "error", err)
	}
	current, err := s.repo.GetByID(ctx, pr.ID)
	if err != nil {
		return fmt.Errorf("reload payment request: %w", err)
	}
	if current == nil {
		return domainerrors.PaymentRequestNotFound(pr.ID.String())
	}
	*pr = *current
	return nil
}

func (s *Service) paymentBlockchain(ctx context.Context, paymentAssetID string) (entities.BlockchainType, error) {
	asset, err := s.assets.GetAsset(ctx, paymentAssetID)
	if err != nil {
		return entities.BlockchainNone, fmt.Errorf("get payment asset: %w", err)
	}
	if !asset.Blockchain.IsValid() {
		return entities.BlockchainNone, domainerrors.AssetNotSupported(paymentAssetID, string(asset.Blockchain))
	}
	return asset.Blockchain, nil
}

// UpdateStatus recomputes the status of the request bound to walletAddress, or
// applies explicit when it is given. Applying the current status is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, walletAddress string, explicit *entities.StatusInfo) error {
	pr, err := s.FindByWallet(ctx, walletAddress)
	if err != nil {
		return err
	}
	return s.refresh(ctx, pr, explicit)
}

// HandleExpired fails overdue requests and releases wallets whose holder is
// finished and past the wallet grace period. Running it twice changes nothing.
func (s *Service) HandleExpired(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	result := &SweepResult{}

	overdue, err := s.repo.GetByStatusesDueBefore(ctx,
		[]entities.PaymentRequestStatus{entities.PaymentRequestStatusNew, entities.PaymentRequestStatusInProcess},
		now, s.config.SweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("get overdue payment requests: %w", err)
	}

	for _, pr := range overdue {
		before := pr.Status
		if err := s.refresh(ctx, pr, nil); err != nil {
			result.Failed++
			s.logger.Error("Failed to expire payment request", "payment_request_id", pr.ID, "error", err)
			continue
		}
		if pr.Status != before {
			result.Expired++
		}
	}

	leases, err := s.leases.GetOccupied(ctx)
	if err != nil {
		return result, fmt.Errorf("get occupied wallets: %w", err)
	}

	for _, lease := range leases {
		release, err := s.leaseExpired(ctx, lease, now)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to check wallet lease", "wallet_address", lease.WalletAddress, "error", err)
			continue
		}
		if !release {
			continue
		}

		released, err := s.leases.ReleaseHeldBy(ctx, lease.WalletAddress, lease.Blockchain, lease.OccupiedBy)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to release wallet", "wallet_address", lease.WalletAddress, "error", err)
			continue
		}
		if released {
			result.Released++
		}
	}

	s.logger.Info("Expiration sweep finished",
		"expired", result.Expired,
		"released", result.Released,
		"failed", result.Failed)

	return result, nil
}

func (s *Service) leaseExpired(ctx context.Context, lease *entities.WalletLease, now time.Time) (bool, error) {
	holderID, err := uuid.Parse(lease.OccupiedBy)
	if err != nil {
		s.logger.Warn("Wallet lease holder is not a payment request", "wallet_address", lease.WalletAddress, "occupied_by", lease.OccupiedBy)
		return false, nil
	}

	pr, err := s.repo.GetByID(ctx, holderID)
	if err != nil {
		return false, err
	}
	if pr == nil {
		return now.After(lease.Since.Add(s.config.WalletExtra)), nil
	}
	if pr.Status.IsActive() {
		return false, nil
	}
	return now.After(pr.DueDate.Add(s.config.WalletExtra)), nil
}

// refresh resolves (or takes) the next status and applies it
func (s *Service) refresh(ctx context.Context, pr *entities.PaymentRequest, explicit *entities.StatusInfo) error {
	next := explicit
	if next == nil {
		resolved, err := s.resolve(ctx, pr)
		if err != nil {
			return err
		}
		next = &resolved
	}
	return s.apply(ctx, pr, *next)
}

// apply persists next with a conditional write and emits the transition event
func (s *Service) apply(ctx context.Context, pr *entities.PaymentRequest, next entities.StatusInfo) error {
	current := currentStatus(pr)
	if next.Equal(current) {
		return nil
	}
	if err := pr.Status.ValidateTransition(next.Status); err != nil {
		return domainerrors.NotAllowedStatus(string(pr.Status)).WithCause(err)
	}

	at := s.now()
	updated, err := s.repo.UpdateStatus(ctx, pr.ID, current, next, at)
	if err != nil {
		return fmt.Errorf("update payment request status: %w", err)
	}
	if !updated {
		s.logger.Warn("Payment request status changed concurrently",
			"payment_request_id", pr.ID,
			"expected", current.Status,
			"next", next.Status)
		return nil
	}

	old := pr.Status
	pr.Status = next.Status
	pr.ProcessingError = next.ProcessingError
	if next.Date != nil {
		pr.PaidAmount = next.Amount
		pr.PaidDate = next.Date
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(old), string(pr.Status)).Inc()
	s.publish(ctx, pr, old, at)

	s.logger.Info("Payment request status changed",
		"payment_request_id", pr.ID,
		"wallet_address", pr.WalletAddress,
		"from", old,
		"to", pr.Status,
		"processing_error", pr.ProcessingError)

	return nil
}

func (s *Service) publish(ctx context.Context, pr *entities.PaymentRequest, old entities.PaymentRequestStatus, at time.Time) {
	if s.events == nil {
		return
	}
	event := &entities.StatusTransitionEvent{
		PaymentRequestID: pr.ID,
		MerchantID:       pr.MerchantID,
		WalletAddress:    pr.WalletAddress,
		OldStatus:        old,
		NewStatus:        pr.Status,
		ProcessingError:  pr.ProcessingError,
		OccurredAt:       at,
	}
	if err := s.events.PublishStatusTransition(ctx, event); err != nil {
		s.logger.Error("Failed to publish status transition", "payment_request_id", pr.ID, "error", err)
	}
}

func currentStatus(pr *entities.PaymentRequest) entities.StatusInfo {
	return entities.StatusInfo{Status: pr.Status, ProcessingError: pr.ProcessingError}
}
