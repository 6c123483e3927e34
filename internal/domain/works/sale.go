package works

import (
	"time"

	"github.com/shopspring/decimal"
)

// EditionSale records a completed checkout. Edition is empty for unique works.
type EditionSale struct {
	ID        string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ArtworkID string `gorm:"type:uuid;not null;index" json:"artwork_id"`
	Edition   string `json:"edition,omitempty"`

	StripeSessionID string          `gorm:"not null;uniqueIndex" json:"-"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency        string          `gorm:"type:varchar(3)" json:"currency"`
	BuyerUserID     *uint           `gorm:"index" json:"-"`
	// NeedsRefund marks a payment for a print or work that another session
	// had already bought.
	NeedsRefund bool `gorm:"not null;default:false;index" json:"needs_refund"`

	CreatedAt time.Time `json:"created_at"`
}
