// Package payments creates Stripe checkout sessions for artworks and turns
// signed webhook deliveries back into sales.
package payments

import (
	"strconv"
	"strings"

	"artmarket/internal/domain/works"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

var ErrNotConfigured = errors.New("payments are not configured")

type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type Gateway struct {
	cfg Config
	api *client.API
}

func NewGateway(cfg Config) *Gateway {
	g := &Gateway{cfg: cfg}
	if cfg.SecretKey != "" {
		g.api = client.New(cfg.SecretKey, nil)
	}
	return g
}

type CheckoutRequest struct {
	Artwork     *works.Artwork
	Edition     string
	BuyerUserID uint
	BuyerEmail  string
}

// CreateCheckout opens a one-off payment session for a fixed-price artwork
// and returns the hosted checkout URL.
func (g *Gateway) CreateCheckout(req CheckoutRequest) (string, error) {
	if g.api == nil {
		return "", ErrNotConfigured
	}
	a := req.Artwork
	amount, ok := a.Pricing.AmountMinor()
	if !ok {
		return "", works.Invalid("pricing", "artwork has no fixed price")
	}

	name := a.Title
	if req.Edition != "" {
		name += " (" + req.Edition + ")"
	}

	metadata := map[string]string{
		"artwork_id": a.ID,
		"edition":    req.Edition,
	}
	if req.BuyerUserID != 0 {
		metadata["buyer_user_id"] = strconv.FormatUint(uint64(req.BuyerUserID), 10)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.cfg.SuccessURL),
		CancelURL:  stripe.String(g.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(a.Pricing.Currency)),
				UnitAmount: stripe.Int64(amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
		}},
		Metadata: metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if req.BuyerEmail != "" {
		params.CustomerEmail = stripe.String(req.BuyerEmail)
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", errors.Wrap(err, "create checkout session")
	}
	return s.URL, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
func (g *Gateway) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	if g.cfg.WebhookSecret == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	return webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}

// SaleFromSession maps a completed checkout session onto a sale. Unpaid
// sessions return ok=false.
func SaleFromSession(s *stripe.CheckoutSession) (sale works.EditionSale, ok bool, err error) {
	if s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return works.EditionSale{}, false, nil
	}

	artworkID := s.Metadata["artwork_id"]
	if artworkID == "" {
		return works.EditionSale{}, false, errors.Errorf("session %s has no artwork_id", s.ID)
	}

	amount, ok := works.FromMinor(s.AmountTotal, string(s.Currency))
	if !ok {
		return works.EditionSale{}, false, errors.Errorf("session %s has unsupported currency %q", s.ID, s.Currency)
	}

	sale = works.EditionSale{
		ArtworkID:       artworkID,
		Edition:         s.Metadata["edition"],
		StripeSessionID: s.ID,
		Amount:          amount,
		Currency:        strings.ToUpper(string(s.Currency)),
	}
	if raw := s.Metadata["buyer_user_id"]; raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return works.EditionSale{}, false, errors.Wrapf(err, "buyer_user_id %q", raw)
		}
		buyer := uint(id)
		sale.BuyerUserID = &buyer
	}
	return sale, true, nil
}
