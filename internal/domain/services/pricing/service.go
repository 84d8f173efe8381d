package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/pkg/logger"
)

var one = decimal.NewFromInt(1)

// AssetCatalog supplies asset and asset pair metadata
type AssetCatalog interface {
	GetAsset(ctx context.Context, id string) (*entities.Asset, error)
	// GetAssetPair returns nil, nil when no pair is listed for base/quoting
	GetAssetPair(ctx context.Context, baseAssetID, quotingAssetID string) (*entities.AssetPair, error)
	GetAssetPairByID(ctx context.Context, id string) (*entities.AssetPair, error)
}

// RateProvider supplies current market quotes
type RateProvider interface {
	GetRate(ctx context.Context, assetPairID string) (*entities.AssetPairRate, error)
}

// Quote is an amount converted into the payment asset
type Quote struct {
	AssetPairID string
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// Service performs rate lookups and delegates the arithmetic to Calculator
type Service struct {
	calc   *Calculator
	assets AssetCatalog
	rates  RateProvider
	logger *logger.Logger
}

// NewService creates a pricing service
func NewService(calc *Calculator, assets AssetCatalog, rates RateProvider, logger *logger.Logger) *Service {
	return &Service{
		calc:   calc,
		assets: assets,
		rates:  rates,
		logger: logger,
	}
}

// GetRate returns the rounded bid rate of base in quoting units after markups
func (s *Service) GetRate(
	ctx context.Context,
	baseAssetID, quotingAssetID string,
	requestPercent decimal.Decimal,
	requestPips int32,
	merchant *entities.Markup,
) (decimal.Decimal, string, error) {
	var (
		ask, bid     decimal.Decimal
		pair         *entities.AssetPair
		pairAccuracy *int32
	)

	if merchant.PriceAssetPairID != "" {
		priceAssetPair, err := s.assets.GetAssetPairByID(ctx, merchant.PriceAssetPairID)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("get price asset pair: %w", err)
		}
		rate, err := s.rates.GetRate(ctx, priceAssetPair.ID)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("get market rate: %w", err)
		}

		switch merchant.PriceMethod {
		case entities.PriceMethodNone, entities.PriceMethodDirect, "":
			ask, bid = rate.AskPrice, rate.BidPrice
		case entities.PriceMethodReverse:
			if rate.AskPrice.IsZero() || rate.BidPrice.IsZero() {
				return decimal.Zero, "", domainerrors.MarketPriceZero(priceAssetPair.ID)
			}
			ask, bid = one.Div(rate.AskPrice), one.Div(rate.BidPrice)
		default:
			return decimal.Zero, "", domainerrors.UnexpectedCalculationMethod(string(merchant.PriceMethod))
		}
		pair, pairAccuracy = priceAssetPair, &priceAssetPair.Accuracy
	} else {
		var err error
		pair, err = s.assets.GetAssetPair(ctx, baseAssetID, quotingAssetID)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("get asset pair: %w", err)
		}
		if pair != nil {
			rate, err := s.rates.GetRate(ctx, pair.ID)
			if err != nil {
				return decimal.Zero, "", fmt.Errorf("get market rate: %w", err)
			}
			ask, bid = rate.AskPrice, rate.BidPrice
			pairAccuracy = &pair.Accuracy
		} else {
			ask, bid = one, one
		}
	}

	baseAsset, err := s.assets.GetAsset(ctx, baseAssetID)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("get base asset: %w", err)
	}
	accuracy := baseAsset.Accuracy
	if pairAccuracy != nil {
		accuracy = *pairAccuracy
	}

	s.logger.Debug("Market rate used for calculation",
		"base_asset_id", baseAssetID,
		"quoting_asset_id", quotingAssetID,
		"ask", ask.String(),
		"bid", bid.String(),
		"pair_accuracy", accuracy)

	price, err := s.calc.CalculatePrice(ask, bid, accuracy, baseAsset.Accuracy, requestPercent, requestPips,
		entities.PriceCalculationByBid, merchant)
	if err != nil {
		return decimal.Zero, "", err
	}

	pairID := ""
	if pair != nil {
		pairID = pair.ID
	}
	return price, pairID, nil
}

// GetAmount converts a settlement amount into payment asset units:
// (amount + request fixed fee + merchant fixed fee) / rate, rounded away from zero.
func (s *Service) GetAmount(
	ctx context.Context,
	baseAssetID, quotingAssetID string,
	amount decimal.Decimal,
	request entities.RequestMarkup,
	merchant *entities.Markup,
) (*Quote, error) {
	if amount.IsNegative() {
		return nil, domainerrors.NegativeValue("amount", amount)
	}

	rate, pairID, err := s.GetRate(ctx, baseAssetID, quotingAssetID, request.Percent, request.Pips, merchant)
	if err != nil {
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, domainerrors.MarketPriceZero(pairID)
	}

	baseAsset, err := s.assets.GetAsset(ctx, baseAssetID)
	if err != nil {
		return nil, fmt.Errorf("get base asset: %w", err)
	}

	total := amount.Add(request.FixedFee).Add(merchant.FixedFee)
	result := total.DivRound(rate, baseAsset.Accuracy)

	s.logger.Info("Rate calculation",
		"base_asset_id", baseAssetID,
		"quoting_asset_id", quotingAssetID,
		"amount", amount.String(),
		"rate", rate.String(),
		"result", result.String())

	return &Quote{AssetPairID: pairID, Rate: rate, Amount: result}, nil
}

// CalculateAmountFulfillment compares plan and fact at the accuracy of assetID
func (s *Service) CalculateAmountFulfillment(ctx context.Context, assetID string, plan, fact decimal.Decimal) (Fulfillment, error) {
	if plan.IsNegative() {
		return "", domainerrors.NegativeValue("plan", plan)
	}
	if fact.IsNegative() {
		return "", domainerrors.NegativeValue("fact", fact)
	}
	asset, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("get asset: %w", err)
	}
	return AmountFulfillment(plan, fact, asset.Accuracy)
}
