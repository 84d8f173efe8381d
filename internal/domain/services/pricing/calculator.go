package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
)

var (
	hundred       = decimal.NewFromInt(100)
	bidRoundShift = decimal.RequireFromString("0.5")
	askRoundShift = decimal.RequireFromString("0.49")
)

// Fulfillment is the outcome of comparing a planned amount with a received one
type Fulfillment string

const (
	FulfillmentExact Fulfillment = "Exact"
	FulfillmentBelow Fulfillment = "Below"
	FulfillmentAbove Fulfillment = "Above"
)

// MinUnit returns the smallest representable amount at accuracy, 10^-accuracy
func MinUnit(accuracy int32) decimal.Decimal {
	return decimal.New(1, -accuracy)
}

// Calculator holds the pure price arithmetic. It has no I/O.
type Calculator struct {
	lp entities.LpMarkup
}

// NewCalculator creates a calculator using lp as the fallback merchant fee
func NewCalculator(lp entities.LpMarkup) *Calculator {
	return &Calculator{lp: lp}
}

// GetOriginalPriceByMethod picks the book side for method
func (c *Calculator) GetOriginalPriceByMethod(bid, ask decimal.Decimal, method entities.PriceCalculationMethod) (decimal.Decimal, error) {
	switch method {
	case entities.PriceCalculationByBid:
		return bid, nil
	case entities.PriceCalculationByAsk:
		return ask, nil
	default:
		return decimal.Zero, domainerrors.UnexpectedCalculationMethod(string(method))
	}
}

// GetSpread returns price * deltaSpreadPercent / 100
func (c *Calculator) GetSpread(price, deltaSpreadPercent decimal.Decimal) (decimal.Decimal, error) {
	if deltaSpreadPercent.IsNegative() {
		return decimal.Zero, domainerrors.NegativeValue("delta_spread", deltaSpreadPercent)
	}
	return price.Mul(deltaSpreadPercent).Div(hundred), nil
}

// GetPriceWithSpread moves price against the payer by spread
func (c *Calculator) GetPriceWithSpread(price, spread decimal.Decimal, method entities.PriceCalculationMethod) (decimal.Decimal, error) {
	return shift(price, spread, method)
}

// GetMerchantFee returns the merchant percentage of price. A negative percent selects the LP default.
func (c *Calculator) GetMerchantFee(price, merchantPercent decimal.Decimal) decimal.Decimal {
	percent := merchantPercent
	if percent.IsNegative() {
		percent = c.lp.Percent
	}
	return price.Mul(percent).Div(hundred)
}

// GetMerchantPips returns merchant pips, or the LP default when negative
func (c *Calculator) GetMerchantPips(merchantPips int32) int32 {
	if merchantPips < 0 {
		return c.lp.Pips
	}
	return merchantPips
}

// GetMarkupFeePerRequest returns the per request percentage of price
func (c *Calculator) GetMarkupFeePerRequest(price, requestPercent decimal.Decimal) (decimal.Decimal, error) {
	if requestPercent.IsNegative() {
		return decimal.Zero, domainerrors.NegativeValue("markup_percent", requestPercent)
	}
	return price.Mul(requestPercent).Div(hundred), nil
}

// GetDelta combines spread, fees and pips into one price adjustment
func (c *Calculator) GetDelta(spread, lpFee, requestFee decimal.Decimal, lpPips, requestPips int32, accuracy int32) decimal.Decimal {
	totalPips := decimal.NewFromInt32(lpPips).Add(decimal.NewFromInt32(requestPips))
	return spread.Add(lpFee.Add(requestFee)).Add(totalPips.Mul(MinUnit(accuracy)))
}

// GetPriceWithDelta applies delta in the same direction as the spread
func (c *Calculator) GetPriceWithDelta(price, delta decimal.Decimal, method entities.PriceCalculationMethod) (decimal.Decimal, error) {
	return shift(price, delta, method)
}

// GetRoundedPrice biases price by about half a pair pip against the payer, rounds
// half away from zero at assetAccuracy, ceils, and floors the result at zero.
// Half to even would move an odd last digit when pair and asset accuracy match.
func (c *Calculator) GetRoundedPrice(price decimal.Decimal, pairAccuracy, assetAccuracy int32, method entities.PriceCalculationMethod) (decimal.Decimal, error) {
	var biased decimal.Decimal
	switch method {
	case entities.PriceCalculationByBid:
		biased = price.Sub(MinUnit(pairAccuracy).Mul(bidRoundShift))
	case entities.PriceCalculationByAsk:
		biased = price.Add(MinUnit(pairAccuracy).Mul(askRoundShift))
	default:
		return decimal.Zero, domainerrors.UnexpectedCalculationMethod(string(method))
	}

	ceiled := biased.Round(assetAccuracy).RoundCeil(assetAccuracy)
	if ceiled.IsNegative() {
		return decimal.Zero, nil
	}
	return ceiled, nil
}

// CalculatePrice turns a market quote into the final rounded rate for method
func (c *Calculator) CalculatePrice(
	ask, bid decimal.Decimal,
	pairAccuracy, assetAccuracy int32,
	requestPercent decimal.Decimal,
	requestPips int32,
	method entities.PriceCalculationMethod,
	merchant *entities.Markup,
) (decimal.Decimal, error) {
	original, err := c.GetOriginalPriceByMethod(bid, ask, method)
	if err != nil {
		return decimal.Zero, err
	}

	spread, err := c.GetSpread(original, merchant.DeltaSpread)
	if err != nil {
		return decimal.Zero, err
	}

	withSpread, err := c.GetPriceWithSpread(original, spread, method)
	if err != nil {
		return decimal.Zero, err
	}

	lpFee := c.GetMerchantFee(withSpread, merchant.Percent)
	lpPips := c.GetMerchantPips(merchant.Pips)

	fee, err := c.GetMarkupFeePerRequest(withSpread, requestPercent)
	if err != nil {
		return decimal.Zero, err
	}
	if requestPips < 0 {
		return decimal.Zero, domainerrors.NegativeValue("markup_pips", decimal.NewFromInt32(requestPips))
	}

	delta := c.GetDelta(spread, lpFee, fee, lpPips, requestPips, pairAccuracy)

	withDelta, err := c.GetPriceWithDelta(original, delta, method)
	if err != nil {
		return decimal.Zero, err
	}

	return c.GetRoundedPrice(withDelta, pairAccuracy, assetAccuracy, method)
}

// AmountFulfillment classifies fact against plan at accuracy
func AmountFulfillment(plan, fact decimal.Decimal, accuracy int32) (Fulfillment, error) {
	if plan.IsNegative() {
		return "", domainerrors.NegativeValue("plan", plan)
	}
	if fact.IsNegative() {
		return "", domainerrors.NegativeValue("fact", fact)
	}

	diff := plan.Sub(fact)
	if diff.Abs().LessThan(MinUnit(accuracy)) {
		return FulfillmentExact, nil
	}
	if diff.IsPositive() {
		return FulfillmentBelow, nil
	}
	return FulfillmentAbove, nil
}

func shift(price, by decimal.Decimal, method entities.PriceCalculationMethod) (decimal.Decimal, error) {
	switch method {
	case entities.PriceCalculationByBid:
		return price.Sub(by), nil
	case entities.PriceCalculationByAsk:
		return price.Add(by), nil
	default:
		return decimal.Zero, domainerrors.UnexpectedCalculationMethod(string(method))
	}
}
