package markup

import (
	"context"
	"fmt"
	"time"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// AssetPairID builds the markup key for a payment/settlement asset combination
func AssetPairID(paymentAssetID, settlementAssetID string) string {
	return paymentAssetID + settlementAssetID
}

// Service resolves merchant markups, falling back to the default markup
type Service struct {
	repo   repositories.MarkupRepository
	logger *logger.Logger
}

// NewService creates a markup service
func NewService(repo repositories.MarkupRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Resolve returns the merchant markup for the pair, or the default one
func (s *Service) Resolve(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error) {
	markup, err := s.repo.Get(ctx, merchantID, assetPairID)
	if err != nil {
		return nil, fmt.Errorf("get merchant markup: %w", err)
	}
	if markup != nil {
		return markup, nil
	}

	markup, err = s.repo.Get(ctx, entities.DefaultMarkupIdentity, assetPairID)
	if err != nil {
		return nil, fmt.Errorf("get default markup: %w", err)
	}
	if markup == nil {
		return nil, domainerrors.MarkupNotFound(merchantID, assetPairID)
	}

	s.logger.Debug("Using default markup", "merchant_id", merchantID, "asset_pair_id", assetPairID)
	return markup, nil
}

// Set stores a merchant markup. An empty merchant id sets the default.
func (s *Service) Set(ctx context.Context, markup *entities.Markup) error {
	if markup.AssetPairID == "" {
		return domainerrors.ValidationError("asset_pair_id", "asset pair id is required")
	}
	if markup.DeltaSpread.IsNegative() {
		return domainerrors.NegativeValue("delta_spread", markup.DeltaSpread)
	}
	if markup.MerchantID == "" {
		markup.MerchantID = entities.DefaultMarkupIdentity
	}
	if markup.PriceMethod == "" {
		markup.PriceMethod = entities.PriceMethodNone
	}
	markup.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, markup); err != nil {
		return fmt.Errorf("upsert markup: %w", err)
	}

	s.logger.Info("Markup updated",
		"merchant_id", markup.MerchantID,
		"asset_pair_id", markup.AssetPairID)
	return nil
}
