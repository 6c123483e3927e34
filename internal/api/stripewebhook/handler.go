package stripewebhooks

import (
	"context"
	"io"
	"net/http"

	"artmarket/internal/domain/works"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v75"
)

const maxPayloadBytes = 65536

type EventParser interface {
	ParseEvent(payload []byte, signature string) (stripe.Event, error)
}

// SaleRecorder applies a paid checkout to the inventory.
type SaleRecorder interface {
	RecordCheckout(ctx context.Context, sale works.EditionSale) error
}

type Handler struct {
	parser EventParser
	sales  SaleRecorder
}

func NewHandler(parser EventParser, sales SaleRecorder) *Handler {
	return &Handler{parser: parser, sales: sales}
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, maxPayloadBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := h.parser.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.WithError(err).Warn("stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if err := h.handleCheckoutSessionCompleted(c.Request.Context(), event); err != nil {
			if retryable(err) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			// stripe would redeliver forever; log and acknowledge
			log.WithError(err).WithField("event_id", event.ID).Error("dropping checkout event")
		}
		c.JSON(http.StatusOK, gin.H{"status": "received"})

	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
