package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/internal/domain/services/markup"
	"github.com/settlepay/settlement_service/internal/domain/services/pricing"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// Quoter converts a settlement amount into the payment asset
type Quoter interface {
	GetAmount(ctx context.Context, baseAssetID, quotingAssetID string, amount decimal.Decimal, request entities.RequestMarkup, merchant *entities.Markup) (*pricing.Quote, error)
}

// MarkupResolver finds the markup that applies to a merchant and asset pair
type MarkupResolver interface {
	Resolve(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error)
}

// Config holds order lifetimes
type Config struct {
	// Primary is how long an order can be reused by checkout
	Primary time.Duration
	// Extended is how long payments against the order are still accepted
	Extended time.Duration
}

// DefaultConfig returns default order lifetimes
func DefaultConfig() Config {
	return Config{
		Primary:  10 * time.Minute,
		Extended: 20 * time.Minute,
	}
}

// Service issues rate-locked orders for payment requests
type Service struct {
	repo    repositories.OrderRepository
	quoter  Quoter
	markups MarkupResolver
	config  Config
	logger  *logger.Logger
	now     func() time.Time
}

// NewService creates an order service
func NewService(repo repositories.OrderRepository, quoter Quoter, markups MarkupResolver, config Config, logger *logger.Logger) *Service {
	if config.Extended < config.Primary {
		config.Extended = config.Primary
	}
	return &Service{
		repo:    repo,
		quoter:  quoter,
		markups: markups,
		config:  config,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns an order of the payment request
func (s *Service) Get(ctx context.Context, paymentRequestID, orderID uuid.UUID) (*entities.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.PaymentRequestID != paymentRequestID {
		return nil, domainerrors.TypedNotFound(domainerrors.CodeOrderNotFound, "order", orderID.String())
	}
	return order, nil
}

// GetLatest returns the newest order of the payment request, or nil
func (s *Service) GetLatest(ctx context.Context, paymentRequestID uuid.UUID) (*entities.Order, error) {
	order, err := s.repo.GetLatest(ctx, paymentRequestID)
	if err != nil {
		return nil, fmt.Errorf("get latest order: %w", err)
	}
	return order, nil
}

// GetActual returns the order that still accepts payments at date, or nil
func (s *Service) GetActual(ctx context.Context, paymentRequestID uuid.UUID, date time.Time) (*entities.Order, error) {
	order, err := s.GetLatest(ctx, paymentRequestID)
	if err != nil {
		return nil, err
	}
	if order == nil || date.After(order.ExtendedDueDate) {
		return nil, nil
	}
	return order, nil
}

// GetLatestOrCreate reuses the latest order while it is valid. A new order is
// priced when there is none, when it expired or when force is set.
func (s *Service) GetLatestOrCreate(ctx context.Context, pr *entities.PaymentRequest, force bool) (*entities.Order, error) {
	now := s.now()

	latest, err := s.GetLatest(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	if latest != nil && !force && latest.IsValidAt(now) {
		return latest, nil
	}

	pairID := markup.AssetPairID(pr.PaymentAssetID, pr.SettlementAssetID)
	merchantMarkup, err := s.markups.Resolve(ctx, pr.MerchantID, pairID)
	if err != nil {
		return nil, fmt.Errorf("resolve markup: %w", err)
	}

	quote, err := s.quoter.GetAmount(ctx, pr.PaymentAssetID, pr.SettlementAssetID, pr.Amount, pr.RequestMarkup(), merchantMarkup)
	if err != nil {
		return nil, fmt.Errorf("calculate payment amount: %w", err)
	}

	order := &entities.Order{
		ID:               uuid.New(),
		MerchantID:       pr.MerchantID,
		PaymentRequestID: pr.ID,
		AssetPairID:      quote.AssetPairID,
		SettlementAmount: pr.Amount,
		PaymentAmount:    quote.Amount,
		ExchangeRate:     quote.Rate,
		DueDate:          now.Add(s.config.Primary),
		ExtendedDueDate:  now.Add(s.config.Extended),
		CreatedDate:      now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("Order created",
		"order_id", order.ID,
		"payment_request_id", pr.ID,
		"payment_amount", order.PaymentAmount.String(),
		"exchange_rate", order.ExchangeRate.String(),
		"due_date", order.DueDate,
		"forced", force)

	return order, nil
}
