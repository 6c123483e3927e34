package works

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func fixed(amount, currency string) Pricing {
	return Pricing{
		Mode:     PricingFixed,
		Amount:   decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Currency: currency,
	}
}

func TestAmountMinor(t *testing.T) {
	tests := []struct {
		pricing Pricing
		want    int64
		ok      bool
	}{
		{fixed("1250.50", "EUR"), 125050, true},
		{fixed("1200", "usd"), 120000, true},
		{fixed("150000", "JPY"), 150000, true},
		{fixed("9000", "KRW"), 9000, true},
		{fixed("10", "KWD"), 0, false},
		{Pricing{Mode: PricingOnRequest}, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.pricing.AmountMinor()
		assert.Equal(t, tt.ok, ok, tt.pricing.Currency)
		assert.Equal(t, tt.want, got, tt.pricing.Currency)
	}
}

func TestFromMinor(t *testing.T) {
	eur, ok := FromMinor(125050, "eur")
	assert.True(t, ok)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(eur))

	jpy, ok := FromMinor(150000, "jpy")
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(150000).Equal(jpy))

	_, ok = FromMinor(100, "BHD")
	assert.False(t, ok)
}

func TestPricingCurrency(t *testing.T) {
	assert.NoError(t, fixed("1200.50", "EUR").Validate())
	assert.NoError(t, fixed("1200", "JPY").Validate())

	assert.True(t, IsValidation(fixed("1200.50", "JPY").Validate()))
	assert.True(t, IsValidation(fixed("12.345", "EUR").Validate()))
	assert.True(t, IsValidation(fixed("10", "KWD").Validate()))
	assert.True(t, IsValidation(fixed("10", "EURO").Validate()))
	assert.True(t, IsValidation(fixed("10", "").Validate()))

	negotiable := Pricing{
		Mode:     PricingNegotiable,
		Min:      decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Max:      decimal.NewNullDecimal(decimal.NewFromInt(200)),
		Currency: "1AB",
	}
	assert.True(t, IsValidation(negotiable.Validate()))
	negotiable.Currency = "GBP"
	assert.NoError(t, negotiable.Validate())
}
