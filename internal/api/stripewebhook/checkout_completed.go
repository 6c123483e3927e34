package stripewebhooks

import (
	"context"
	"encoding/json"

	"artmarket/internal/domain/editions"
	"artmarket/internal/domain/works"
	"artmarket/internal/infra/payments"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v75"
)

var errMalformedSession = errors.New("malformed checkout session")

func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return errors.Wrap(errMalformedSession, err.Error())
	}

	sale, ok, err := payments.SaleFromSession(&session)
	if err != nil {
		return errors.Wrap(errMalformedSession, err.Error())
	}
	if !ok {
		log.WithFields(log.Fields{
			"session_id":     session.ID,
			"payment_status": session.PaymentStatus,
		}).Info("checkout session not paid yet")
		return nil
	}

	if err := h.sales.RecordCheckout(ctx, sale); err != nil {
		return errors.Wrapf(err, "record checkout %s", session.ID)
	}
	log.WithFields(log.Fields{
		"session_id": session.ID,
		"artwork_id": sale.ArtworkID,
		"edition":    sale.Edition,
	}).Info("checkout recorded")
	return nil
}

// retryable is false for errors a redelivery cannot fix.
func retryable(err error) bool {
	switch {
	case errors.Is(err, errMalformedSession),
		errors.Is(err, works.ErrNotFound),
		errors.Is(err, editions.ErrInvalidIdentifier),
		works.IsValidation(err):
		return false
	}
	return true
}
