package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a committed cart as written at checkout.
type Order struct {
	ID         string           `json:"id"`
	CartID     string           `json:"cart_id"`
	CustomerID string           `json:"customer_id"`
	Items      []LineItem       `json:"items"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
	Shipping   decimal.Decimal  `json:"shipping"`
	Tax        decimal.Decimal  `json:"tax"`
	Discount   decimal.Decimal  `json:"discount"`
	Total      decimal.Decimal  `json:"total"`
	Applied    *AppliedDiscount `json:"applied,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
