package payments

import (
	"testing"

	"artmarket/internal/domain/works"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
)

func TestSaleFromSession(t *testing.T) {
	sale, ok, err := SaleFromSession(&stripe.CheckoutSession{
		ID:            "cs_test_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   125050,
		Currency:      stripe.CurrencyEUR,
		Metadata:      map[string]string{"artwork_id": "art-1", "edition": "2/10", "buyer_user_id": "42"},
	})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "art-1", sale.ArtworkID)
	assert.Equal(t, "2/10", sale.Edition)
	assert.Equal(t, "cs_test_1", sale.StripeSessionID)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(sale.Amount))
	assert.Equal(t, "EUR", sale.Currency)
	require.NotNil(t, sale.BuyerUserID)
	assert.Equal(t, uint(42), *sale.BuyerUserID)
}

func TestSaleFromSessionZeroDecimalCurrency(t *testing.T) {
	sale, ok, err := SaleFromSession(&stripe.CheckoutSession{
		ID:            "cs_test_2",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   150000,
		Currency:      stripe.CurrencyJPY,
		Metadata:      map[string]string{"artwork_id": "art-1"},
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(150000).Equal(sale.Amount))
	assert.Equal(t, "JPY", sale.Currency)

	_, _, err = SaleFromSession(&stripe.CheckoutSession{
		ID:            "cs_test_3",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   1000,
		Currency:      stripe.Currency("kwd"),
		Metadata:      map[string]string{"artwork_id": "art-1"},
	})
	assert.Error(t, err)
}

func TestSaleFromSessionUnpaidOrBroken(t *testing.T) {
	_, ok, err := SaleFromSession(&stripe.CheckoutSession{ID: "cs", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = SaleFromSession(&stripe.CheckoutSession{ID: "cs", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid})
	assert.Error(t, err)
}

func TestGatewayNotConfigured(t *testing.T) {
	g := NewGateway(Config{})
	_, err := g.CreateCheckout(CheckoutRequest{Artwork: &works.Artwork{}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = g.ParseEvent([]byte(`{}`), "sig")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
