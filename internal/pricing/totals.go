package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Policy holds the store-wide shipping and tax settings applied to every cart.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPolicy returns free shipping above 500, a flat fee of 50 otherwise, and 10% tax.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(500),
		FlatShippingFee:       decimal.NewFromInt(50),
		TaxRate:               decimal.NewFromFloat(0.10),
	}
}

// NewPolicy parses the three settings from their configured string form.
func NewPolicy(threshold, fee, taxRate string) (Policy, error) {
	t, err := decimal.NewFromString(threshold)
	if err != nil {
		return Policy{}, fmt.Errorf("free shipping threshold: %w", err)
	}
	f, err := decimal.NewFromString(fee)
	if err != nil {
		return Policy{}, fmt.Errorf("flat shipping fee: %w", err)
	}
	r, err := decimal.NewFromString(taxRate)
	if err != nil {
		return Policy{}, fmt.Errorf("tax rate: %w", err)
	}
	if t.IsNegative() || f.IsNegative() {
		return Policy{}, fmt.Errorf("shipping settings must not be negative")
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return Policy{}, fmt.Errorf("tax rate must be within [0, 1], got %s", r)
	}
	return Policy{FreeShippingThreshold: t, FlatShippingFee: f, TaxRate: r}, nil
}

// Shipping is free above the threshold and for empty carts.
func (p Policy) Shipping(itemCount int, subtotal decimal.Decimal) decimal.Decimal {
	if itemCount == 0 || subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// Tax is subtotal × rate rounded to currency precision.
func (p Policy) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate).Round(2)
}

// Summary is the derived price breakdown of a cart.
type Summary struct {
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// Summarize computes shipping, tax and total. A negative discount counts as none
// and the total never drops below zero.
func (p Policy) Summarize(itemCount int, subtotal, discount decimal.Decimal) Summary {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	shipping := p.Shipping(itemCount, subtotal)
	tax := p.Tax(subtotal)
	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Summary{
		ItemCount: itemCount,
		Subtotal:  subtotal,
		Shipping:  shipping,
		Tax:       tax,
		Discount:  discount,
		Total:     total,
	}
}

// PercentOf returns base × pct/100 rounded to currency precision, capped at base.
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	amount := base.Mul(pct).Div(hundred).Round(2)
	return decimal.Min(amount, base)
}
