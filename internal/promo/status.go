// Package promo evaluates coupons and discounts against an order. Everything here is
// pure: no I/O and no mutation of usage counters.
package promo

import (
	"time"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

// DeriveStatus computes a promotion's status at now. The end instant is exclusive and a
// past end date wins over every other field.
func DeriveStatus(start time.Time, end *time.Time, active bool, now time.Time) models.Status {
	switch {
	case end != nil && !now.Before(*end):
		return models.StatusExpired
	case now.Before(start):
		return models.StatusScheduled
	case !active:
		return models.StatusInactive
	default:
		return models.StatusActive
	}
}

func CouponStatus(c models.Coupon, now time.Time) models.Status {
	return DeriveStatus(c.StartDate, c.EndDate, c.IsActive, now)
}

func DiscountStatus(d models.Discount, now time.Time) models.Status {
	return DeriveStatus(d.StartDate, d.EndDate, d.IsActive, now)
}
