package works

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PricingMode string

const (
	PricingFixed      PricingMode = "fixed"
	PricingNegotiable PricingMode = "negotiable"
	PricingOnRequest  PricingMode = "on_request"
)

// Pricing holds exactly one active mode. Fields belonging to the other
// modes must stay empty.
type Pricing struct {
	Mode     PricingMode         `gorm:"type:text;not null;default:'on_request'" json:"mode"`
	Amount   decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"amount"`
	Min      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"min"`
	Max      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"max"`
	Currency string              `gorm:"type:varchar(3)" json:"currency,omitempty"`
}

func (p Pricing) Validate() error {
	switch p.Mode {
	case PricingFixed:
		if !p.Amount.Valid {
			return Invalid("pricing.amount", "fixed pricing requires an amount")
		}
		if p.Amount.Decimal.IsNegative() {
			return Invalid("pricing.amount", "amount cannot be negative")
		}
		if p.Min.Valid || p.Max.Valid {
			return Invalid("pricing", "fixed pricing cannot carry a min/max range")
		}
		if err := p.checkCurrency(); err != nil {
			return err
		}
		if exp, _ := MinorUnitExponent(p.Currency); !p.Amount.Decimal.Equal(p.Amount.Decimal.Truncate(exp)) {
			return Invalid("pricing.amount", fmt.Sprintf("%s amounts allow %d decimal places", p.Currency, exp))
		}

	case PricingNegotiable:
		if !p.Min.Valid || !p.Max.Valid {
			return Invalid("pricing", "negotiable pricing requires min and max")
		}
		if p.Amount.Valid {
			return Invalid("pricing.amount", "negotiable pricing cannot carry a fixed amount")
		}
		if p.Min.Decimal.IsNegative() {
			return Invalid("pricing.min", "min cannot be negative")
		}
		if p.Min.Decimal.GreaterThan(p.Max.Decimal) {
			return Invalid("pricing", "min must not exceed max")
		}
		if err := p.checkCurrency(); err != nil {
			return err
		}

	case PricingOnRequest:
		if p.Amount.Valid || p.Min.Valid || p.Max.Valid {
			return Invalid("pricing", "price on request cannot carry amounts")
		}

	default:
		return Invalid("pricing.mode", "unknown pricing mode")
	}
	return nil
}

func (p Pricing) checkCurrency() error {
	if p.Currency == "" {
		return Invalid("pricing.currency", "currency is required")
	}
	if _, ok := MinorUnitExponent(p.Currency); !ok {
		return Invalid("pricing.currency", fmt.Sprintf("currency %q is not supported", p.Currency))
	}
	return nil
}

// AmountMinor converts a fixed price into the currency's minor units for the
// payment provider (cents for EUR, whole yen for JPY).
func (p Pricing) AmountMinor() (int64, bool) {
	if p.Mode != PricingFixed || !p.Amount.Valid {
		return 0, false
	}
	exp, ok := MinorUnitExponent(p.Currency)
	if !ok {
		return 0, false
	}
	return p.Amount.Decimal.Shift(exp).Round(0).IntPart(), true
}

// FromMinor turns a provider amount in minor units back into a decimal price.
func FromMinor(amount int64, currency string) (decimal.Decimal, bool) {
	exp, ok := MinorUnitExponent(currency)
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.New(amount, -exp), true
}
