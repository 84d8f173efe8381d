package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func zeroMarkup() *entities.Markup {
	return &entities.Markup{
		DeltaSpread: decimal.Zero,
		Percent:     decimal.Zero,
		Pips:        0,
		FixedFee:    decimal.Zero,
	}
}

func TestCalculatePrice_NoMarkupUsesBid(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{Percent: d("1"), Pips: 5})

	price, err := calc.CalculatePrice(d("0.011"), d("0.01"), 8, 8, decimal.Zero, 0,
		entities.PriceCalculationByBid, zeroMarkup())

	require.NoError(t, err)
	assert.True(t, price.Equal(d("0.01")), "got %s", price)
}

func TestCalculatePrice_Monotonic(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{})
	merchant := zeroMarkup()
	bid, ask := d("6543.21"), d("6550.5")

	t.Run("percent moves bid down and ask up", func(t *testing.T) {
		prevBid, prevAsk := decimal.Zero, decimal.Zero
		for i, pct := range []string{"0", "0.5", "1", "2.5"} {
			b, err := calc.CalculatePrice(ask, bid, 2, 2, d(pct), 0, entities.PriceCalculationByBid, merchant)
			require.NoError(t, err)
			a, err := calc.CalculatePrice(ask, bid, 2, 2, d(pct), 0, entities.PriceCalculationByAsk, merchant)
			require.NoError(t, err)
			if i > 0 {
				assert.True(t, b.LessThanOrEqual(prevBid), "bid %s should not exceed %s", b, prevBid)
				assert.True(t, a.GreaterThanOrEqual(prevAsk), "ask %s should not be below %s", a, prevAsk)
			}
			prevBid, prevAsk = b, a
		}
	})

	t.Run("pips move bid down and ask up", func(t *testing.T) {
		prevBid, prevAsk := decimal.Zero, decimal.Zero
		for i, pips := range []int32{0, 1, 10, 100} {
			b, err := calc.CalculatePrice(ask, bid, 2, 2, decimal.Zero, pips, entities.PriceCalculationByBid, merchant)
			require.NoError(t, err)
			a, err := calc.CalculatePrice(ask, bid, 2, 2, decimal.Zero, pips, entities.PriceCalculationByAsk, merchant)
			require.NoError(t, err)
			if i > 0 {
				assert.True(t, b.LessThan(prevBid))
				assert.True(t, a.GreaterThan(prevAsk))
			}
			prevBid, prevAsk = b, a
		}
	})
}

func TestGetRoundedPrice_Idempotent(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{})

	for _, method := range []entities.PriceCalculationMethod{entities.PriceCalculationByBid, entities.PriceCalculationByAsk} {
		for _, raw := range []string{"0.0123456789", "6543.219", "1", "0.00000001"} {
			once, err := calc.GetRoundedPrice(d(raw), 8, 8, method)
			require.NoError(t, err)
			twice, err := calc.GetRoundedPrice(once, 8, 8, method)
			require.NoError(t, err)
			assert.True(t, once.Equal(twice), "%s %s: %s != %s", method, raw, once, twice)
		}
	}
}

func TestGetRoundedPrice_MidpointRoundsAwayFromZero(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{})

	tests := []struct {
		price         string
		pairAccuracy  int32
		assetAccuracy int32
		want          string
	}{
		// biased to exactly 1.025 and 1.035
		{"1.02505", 4, 2, "1.03"},
		{"1.03505", 4, 2, "1.04"},
		// equal accuracies put every rounded bid on a midpoint
		{"0.01234567", 8, 8, "0.01234567"},
		{"0.01234566", 8, 8, "0.01234566"},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			price, err := calc.GetRoundedPrice(d(tt.price), tt.pairAccuracy, tt.assetAccuracy, entities.PriceCalculationByBid)
			require.NoError(t, err)
			assert.True(t, price.Equal(d(tt.want)), "got %s", price)
		})
	}
}

func TestGetRoundedPrice_FloorsAtZero(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{})

	price, err := calc.GetRoundedPrice(d("-0.5"), 2, 2, entities.PriceCalculationByBid)
	require.NoError(t, err)
	assert.True(t, price.IsZero())

	merchant := zeroMarkup()
	merchant.Pips = 1000
	price, err = calc.CalculatePrice(d("0.02"), d("0.01"), 2, 2, decimal.Zero, 0, entities.PriceCalculationByBid, merchant)
	require.NoError(t, err)
	assert.True(t, price.IsZero(), "got %s", price)
}

func TestCalculator_LpDefaults(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{Percent: d("2"), Pips: 3})

	assert.True(t, calc.GetMerchantFee(d("100"), d("-1")).Equal(d("2")))
	assert.True(t, calc.GetMerchantFee(d("100"), d("1")).Equal(d("1")))
	assert.Equal(t, int32(3), calc.GetMerchantPips(-1))
	assert.Equal(t, int32(7), calc.GetMerchantPips(7))
}

func TestCalculator_GetDelta(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{})

	delta := calc.GetDelta(d("0.1"), d("0.2"), d("0.3"), 2, 3, 2)
	assert.True(t, delta.Equal(d("0.65")), "got %s", delta)
}

func TestCalculator_NegativeInputs(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{})

	_, err := calc.GetSpread(d("100"), d("-0.1"))
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNegativeValue))

	_, err = calc.GetMarkupFeePerRequest(d("100"), d("-1"))
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNegativeValue))

	_, err = calc.CalculatePrice(d("2"), d("1"), 2, 2, decimal.Zero, -1, entities.PriceCalculationByBid, zeroMarkup())
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNegativeValue))
}

func TestCalculator_UnexpectedMethod(t *testing.T) {
	calc := NewCalculator(entities.LpMarkup{})

	_, err := calc.GetOriginalPriceByMethod(d("1"), d("2"), "Mid")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnexpectedCalculationMethod))

	_, err = calc.GetRoundedPrice(d("1"), 2, 2, "Mid")
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnexpectedCalculationMethod))
}

func TestAmountFulfillment(t *testing.T) {
	tests := []struct {
		name     string
		plan     string
		fact     string
		expected Fulfillment
	}{
		{"equal", "0.12345678", "0.12345678", FulfillmentExact},
		{"within min unit", "0.12345678", "0.123456785", FulfillmentExact},
		{"below", "0.12345678", "0.12345677", FulfillmentBelow},
		{"above", "0.12345678", "0.12345679", FulfillmentAbove},
		{"nothing paid", "1", "0", FulfillmentBelow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountFulfillment(d(tt.plan), d(tt.fact), 8)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := AmountFulfillment(d("-1"), d("1"), 8)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNegativeValue))
	_, err = AmountFulfillment(d("1"), d("-1"), 8)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNegativeValue))
}
