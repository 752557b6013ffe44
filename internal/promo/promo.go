// Package promo validates promotion codes and computes discounts.
// Validation is pure; the caller owns the usage-counter increment and
// performs it atomically with order acceptance.
package promo

import (
	"time"

	"github.com/mykaresto/engine/pkg/apperr"
)

type DiscountType string

const (
	Percentage DiscountType = "percentage"
	Fixed      DiscountType = "fixed"
)

// Code is a promo-code row. MaxUses and ValidUntil are nil when
// uncapped / open-ended.
type Code struct {
	Code           string
	Description    string
	DiscountType   DiscountType
	DiscountValue  int64
	MinOrderAmount int64
	MaxUses        *int64
	CurrentUses    int64
	ValidFrom      time.Time
	ValidUntil     *time.Time
	IsActive       bool
}

// Rejection reasons surfaced to the initiating UI verbatim.
const (
	ReasonUnknown     = "unknown code"
	ReasonInactive    = "code is not active"
	ReasonNotStarted  = "code is not valid yet"
	ReasonExpired     = "code has expired"
	ReasonBelowMin    = "order amount below minimum for this code"
	ReasonUsageCapped = "code usage limit reached"
)

// Validate checks c against an order subtotal at time now and returns
// the discount in the smallest currency unit. The discount never
// exceeds the subtotal.
func Validate(c Code, orderSubtotal int64, now time.Time) (int64, error) {
	if !c.IsActive {
		return 0, apperr.PromoRejected(ReasonInactive)
	}
	if now.Before(c.ValidFrom) {
		return 0, apperr.PromoRejected(ReasonNotStarted)
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return 0, apperr.PromoRejected(ReasonExpired)
	}
	if orderSubtotal < c.MinOrderAmount {
		return 0, apperr.PromoRejected(ReasonBelowMin)
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return 0, apperr.PromoRejected(ReasonUsageCapped)
	}
	return Discount(c.DiscountType, c.DiscountValue, orderSubtotal), nil
}

// Discount computes the discount for an already-validated code.
// Percentage discounts round half-up to the unit; fixed discounts cap
// at the subtotal so the total stays non-negative.
func Discount(t DiscountType, value, orderSubtotal int64) int64 {
	switch t {
	case Percentage:
		d := (orderSubtotal*value + 50) / 100
		if d > orderSubtotal {
			return orderSubtotal
		}
		return d
	case Fixed:
		if value > orderSubtotal {
			return orderSubtotal
		}
		return value
	default:
		return 0
	}
}
