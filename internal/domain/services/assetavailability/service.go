package assetavailability

import (
	"context"
	"fmt"
	"time"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/internal/domain/services/markup"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// MarkupResolver finds the markup that prices an asset pair for a merchant
type MarkupResolver interface {
	Resolve(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error)
}

// Defaults are the asset lists used for merchants without their own
type Defaults struct {
	PaymentAssets    string
	SettlementAssets string
}

// Service decides which assets a merchant may pay and settle in. A merchant
// list, or the defaults, is intersected with the service wide switches.
type Service struct {
	general  repositories.AssetAvailabilityRepository
	personal repositories.MerchantAssetAvailabilityRepository
	markups  MarkupResolver
	defaults Defaults
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates an asset availability service
func NewService(
	general repositories.AssetAvailabilityRepository,
	personal repositories.MerchantAssetAvailabilityRepository,
	markups MarkupResolver,
	defaults Defaults,
	logger *logger.Logger,
) *Service {
	return &Service{
		general:  general,
		personal: personal,
		markups:  markups,
		defaults: defaults,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResolveSettlement lists the assets the merchant may settle in
func (s *Service) ResolveSettlement(ctx context.Context, merchantID string) ([]string, error) {
	return s.resolve(ctx, merchantID, entities.AssetAvailabilitySettlement)
}

// ResolvePayment lists the assets the merchant may be paid in for the
// settlement asset. Assets without a markup for the pair are left out.
func (s *Service) ResolvePayment(ctx context.Context, merchantID, settlementAssetID string) ([]string, error) {
	assets, err := s.resolve(ctx, merchantID, entities.AssetAvailabilityPayment)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(assets))
	for _, assetID := range assets {
		_, err := s.markups.Resolve(ctx, merchantID, markup.AssetPairID(assetID, settlementAssetID))
		if domainerrors.HasCode(err, domainerrors.CodeMarkupNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, assetID)
	}
	return result, nil
}

// GetGeneral lists the assets switched on service wide for the type
func (s *Service) GetGeneral(ctx context.Context, t entities.AssetAvailabilityType) ([]*entities.AssetAvailability, error) {
	if !t.IsValid() {
		return nil, domainerrors.ValidationError("type", "unknown availability type")
	}
	list, err := s.general.GetByType(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("get general availability: %w", err)
	}
	return list, nil
}

// SetGeneral switches an asset on or off service wide
func (s *Service) SetGeneral(ctx context.Context, cmd *entities.SetGeneralAvailabilityCommand) (*entities.AssetAvailability, error) {
	if cmd.AssetID == "" {
		return nil, domainerrors.ValidationError("asset_id", "asset is required")
	}
	if !cmd.AvailabilityType.IsValid() {
		return nil, domainerrors.ValidationError("availability_type", "unknown availability type")
	}

	availability := &entities.AssetAvailability{
		AssetID:          cmd.AssetID,
		AvailabilityType: cmd.AvailabilityType,
		Available:        cmd.Value,
		UpdatedAt:        s.now(),
	}
	if err := s.general.Set(ctx, availability); err != nil {
		return nil, fmt.Errorf("set general availability: %w", err)
	}

	s.logger.Info("Asset availability updated",
		"asset_id", cmd.AssetID,
		"type", cmd.AvailabilityType,
		"available", cmd.Value)
	return availability, nil
}

// GetPersonal returns the merchant lists
func (s *Service) GetPersonal(ctx context.Context, merchantID string) (*entities.AssetAvailabilityByMerchant, error) {
	personal, err := s.personal.Get(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("get merchant availability: %w", err)
	}
	if personal == nil {
		return nil, domainerrors.NotFoundError("merchant asset availability")
	}
	return personal, nil
}

// SetPersonal replaces the merchant lists
func (s *Service) SetPersonal(ctx context.Context, merchantID string, cmd *entities.SetPersonalAvailabilityCommand) (*entities.AssetAvailabilityByMerchant, error) {
	if merchantID == "" {
		return nil, domainerrors.ValidationError("merchant_id", "merchant is required")
	}

	personal := &entities.AssetAvailabilityByMerchant{
		MerchantID:       merchantID,
		PaymentAssets:    cmd.PaymentAssets,
		SettlementAssets: cmd.SettlementAssets,
		UpdatedAt:        s.now(),
	}
	if err := s.personal.Set(ctx, personal); err != nil {
		return nil, fmt.Errorf("set merchant availability: %w", err)
	}

	s.logger.Info("Merchant asset availability updated",
		"merchant_id", merchantID,
		"payment_assets", cmd.PaymentAssets,
		"settlement_assets", cmd.SettlementAssets)
	return personal, nil
}

func (s *Service) resolve(ctx context.Context, merchantID string, t entities.AssetAvailabilityType) ([]string, error) {
	personal, err := s.personal.Get(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("get merchant availability: %w", err)
	}

	var allowed string
	if personal != nil {
		allowed = personal.Assets(t)
	}
	if allowed == "" {
		allowed = s.defaults.PaymentAssets
		if t == entities.AssetAvailabilitySettlement {
			allowed = s.defaults.SettlementAssets
		}
	}

	general, err := s.general.GetByType(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("get general availability: %w", err)
	}
	enabled := make(map[string]bool, len(general))
	for _, a := range general {
		enabled[a.AssetID] = a.Available
	}

	resolved := make([]string, 0)
	for _, id := range entities.SplitAssets(allowed) {
		if enabled[id] {
			resolved = append(resolved, id)
		}
	}
	return resolved, nil
}
