package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage   DiscountType = "PERCENTAGE"
	DiscountFixedAmount  DiscountType = "FIXED_AMOUNT"
	DiscountBuyXGetY     DiscountType = "BUY_X_GET_Y"
	DiscountFreeShipping DiscountType = "FREE_SHIPPING"
)

// Discount is a catalog or order level promotion that needs no code.
// An empty ProductIDs list means the discount covers every line.
type Discount struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	BuyQuantity *int            `json:"buy_quantity,omitempty"`
	GetQuantity *int            `json:"get_quantity,omitempty"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	IsActive    bool            `json:"is_active"`
	UsageCount  int             `json:"usage_count"`
	ProductIDs  []string        `json:"product_ids,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type DiscountView struct {
	Discount
	Status Status `json:"status"`
}

// Covers reports whether the discount applies to the given product.
func (d Discount) Covers(productID string) bool {
	if len(d.ProductIDs) == 0 {
		return true
	}
	for _, id := range d.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

const (
	SourceCoupon   = "coupon"
	SourceDiscount = "discount"
)

// AppliedDiscount is the monetary reduction produced by evaluating a coupon or discount.
type AppliedDiscount struct {
	Source     string          `json:"source"`
	Code       string          `json:"code,omitempty"`
	DiscountID int64           `json:"discount_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	FreeUnits  int             `json:"free_units,omitempty"`
}
