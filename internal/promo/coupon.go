package promo

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
)

// ErrorKind names why a coupon was rejected.
type ErrorKind string

const (
	KindCodeNotFound         ErrorKind = "CODE_NOT_FOUND"
	KindNotYetActive         ErrorKind = "NOT_YET_ACTIVE"
	KindExpired              ErrorKind = "EXPIRED"
	KindInactive             ErrorKind = "INACTIVE"
	KindBelowMinimumPurchase ErrorKind = "BELOW_MINIMUM_PURCHASE"
	KindUsageLimitReached    ErrorKind = "USAGE_LIMIT_REACHED"
)

// Sentinels for errors.Is; a *CouponError matches any sentinel of the same kind.
var (
	ErrCodeNotFound         = &CouponError{Kind: KindCodeNotFound}
	ErrNotYetActive         = &CouponError{Kind: KindNotYetActive}
	ErrExpired              = &CouponError{Kind: KindExpired}
	ErrInactive             = &CouponError{Kind: KindInactive}
	ErrBelowMinimumPurchase = &CouponError{Kind: KindBelowMinimumPurchase}
	ErrUsageLimitReached    = &CouponError{Kind: KindUsageLimitReached}
)

// CouponError carries enough context for a storefront to explain the rejection.
type CouponError struct {
	Kind                  ErrorKind
	Code                  string
	MinimumPurchaseAmount decimal.Decimal
	Subtotal              decimal.Decimal
	PriorUsage            int
	UsageLimit            *int
	StartDate             *time.Time
	EndDate               *time.Time
}

func (e *CouponError) Error() string {
	switch e.Kind {
	case KindCodeNotFound:
		return fmt.Sprintf("coupon %q not found", e.Code)
	case KindNotYetActive:
		return fmt.Sprintf("coupon %s is not active until %s", e.Code, formatTime(e.StartDate))
	case KindExpired:
		return fmt.Sprintf("coupon %s expired at %s", e.Code, formatTime(e.EndDate))
	case KindInactive:
		return fmt.Sprintf("coupon %s is disabled", e.Code)
	case KindBelowMinimumPurchase:
		return fmt.Sprintf("coupon %s requires a minimum purchase of %s (subtotal %s)",
			e.Code, pricing.FormatCurrency(e.MinimumPurchaseAmount), pricing.FormatCurrency(e.Subtotal))
	case KindUsageLimitReached:
		if e.UsageLimit != nil {
			return fmt.Sprintf("coupon %s already used %d of %d times", e.Code, e.PriorUsage, *e.UsageLimit)
		}
		return fmt.Sprintf("coupon %s can only be used once", e.Code)
	default:
		return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Kind)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func (e *CouponError) Is(target error) bool {
	t, ok := target.(*CouponError)
	return ok && t.Kind == e.Kind
}

// Reason is the snake_case code used in API responses.
func (e *CouponError) Reason() string {
	return strings.ToLower(string(e.Kind))
}

// Details flattens the context fields that are set for the given kind.
func (e *CouponError) Details() map[string]any {
	d := map[string]any{"code": e.Code, "kind": e.Kind}
	switch e.Kind {
	case KindNotYetActive:
		d["start_date"] = e.StartDate
	case KindExpired:
		d["end_date"] = e.EndDate
	case KindBelowMinimumPurchase:
		d["minimum_purchase_amount"] = e.MinimumPurchaseAmount
		d["subtotal"] = e.Subtotal
		d["shortfall"] = e.MinimumPurchaseAmount.Sub(e.Subtotal)
	case KindUsageLimitReached:
		d["prior_usage"] = e.PriorUsage
		if e.UsageLimit != nil {
			d["usage_limit"] = *e.UsageLimit
		}
	}
	return d
}

// NotFound builds the CODE_NOT_FOUND rejection for a code.
func NotFound(code string) *CouponError {
	return &CouponError{Kind: KindCodeNotFound, Code: code}
}

// OrderContext is the order a coupon is evaluated against.
type OrderContext struct {
	// Code is the code as the shopper entered it; it names a missing coupon.
	Code                    string
	Subtotal                decimal.Decimal
	Shipping                decimal.Decimal
	CustomerID              string
	CustomerPriorUsageCount int
	Now                     time.Time
}

// FindCoupon returns the coupon whose normalized code matches code, or nil.
func FindCoupon(coupons []models.Coupon, code string) *models.Coupon {
	want := models.NormalizeCode(code)
	for i := range coupons {
		if models.NormalizeCode(coupons[i].Code) == want {
			return &coupons[i]
		}
	}
	return nil
}

// ValidateCoupon runs the checks in order and stops at the first failure.
func ValidateCoupon(c *models.Coupon, oc OrderContext) (models.AppliedDiscount, error) {
	if c == nil {
		return models.AppliedDiscount{}, NotFound(models.NormalizeCode(oc.Code))
	}

	switch CouponStatus(*c, oc.Now) {
	case models.StatusScheduled:
		start := c.StartDate
		return models.AppliedDiscount{}, &CouponError{Kind: KindNotYetActive, Code: c.Code, StartDate: &start}
	case models.StatusExpired:
		return models.AppliedDiscount{}, &CouponError{Kind: KindExpired, Code: c.Code, EndDate: c.EndDate}
	case models.StatusInactive:
		return models.AppliedDiscount{}, &CouponError{Kind: KindInactive, Code: c.Code}
	}

	if oc.Subtotal.LessThan(c.MinimumPurchaseAmount) {
		return models.AppliedDiscount{}, &CouponError{
			Kind:                  KindBelowMinimumPurchase,
			Code:                  c.Code,
			MinimumPurchaseAmount: c.MinimumPurchaseAmount,
			Subtotal:              oc.Subtotal,
		}
	}

	prior := oc.CustomerPriorUsageCount
	if (c.IsOneTimeUse && prior >= 1) || (c.CustomerUsageLimit != nil && prior >= *c.CustomerUsageLimit) {
		return models.AppliedDiscount{}, &CouponError{
			Kind:       KindUsageLimitReached,
			Code:       c.Code,
			PriorUsage: prior,
			UsageLimit: c.CustomerUsageLimit,
		}
	}

	return models.AppliedDiscount{
		Source: models.SourceCoupon,
		Code:   c.Code,
		Type:   string(c.Type),
		Amount: couponAmount(c.Type, c.Value, oc.Subtotal, oc.Shipping),
	}, nil
}

func couponAmount(t models.CouponType, value, subtotal, shipping decimal.Decimal) decimal.Decimal {
	switch t {
	case models.CouponPercentage:
		return pricing.PercentOf(subtotal, value)
	case models.CouponFixedAmount:
		return decimal.Min(value, subtotal)
	case models.CouponFreeShipping:
		return shipping
	default:
		return decimal.Zero
	}
}
