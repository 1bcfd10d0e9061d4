package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValidationRequest asks whether a coupon code applies to an order.
// A nil Shipping means the store policy decides it from the subtotal.
type ValidationRequest struct {
	CustomerID string
	CouponCode string
	Subtotal   decimal.Decimal
	Shipping   *decimal.Decimal
	ItemCount  int
	Now        *time.Time
}

type ValidationResponse struct {
	IsValid  bool             `json:"is_valid"`
	Discount *AppliedDiscount `json:"discount,omitempty"`
	Message  string           `json:"message"`
	Details  map[string]any   `json:"details,omitempty"`
}
