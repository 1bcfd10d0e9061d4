// Package cart owns a shopper's line items and derives their totals.
package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
)

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidItem     = errors.New("invalid line item")
)

// InvalidQuantityError rejects an add with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity for %s must be at least 1, got %d", e.ProductID, e.Quantity)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

// Cart is an explicit value owned by its caller. Subtotal and item count are always
// derived from Items.
type Cart struct {
	ID         string            `json:"id"`
	Items      []models.LineItem `json:"items"`
	CouponCode string            `json:"coupon_code,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func New(id string) *Cart {
	return &Cart{ID: id, Items: []models.LineItem{}, UpdatedAt: time.Now().UTC()}
}

// AddItem merges into an existing line with the same key or appends a new one.
func (c *Cart) AddItem(item models.LineItem) error {
	if item.Quantity <= 0 {
		return &InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	if item.ProductID == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidItem)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidItem)
	}

	if i := c.index(item.Key()); i >= 0 {
		c.Items[i].Quantity += item.Quantity
	} else {
		c.Items = append(c.Items, item)
	}
	c.touch()
	return nil
}

// RemoveItem drops the matching line; a missing line is not an error.
func (c *Cart) RemoveItem(key models.ItemKey) {
	i := c.index(key)
	if i < 0 {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.touch()
}

// UpdateQuantity sets the quantity directly; zero or less removes the line.
func (c *Cart) UpdateQuantity(key models.ItemKey, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(key)
		return
	}
	if i := c.index(key); i >= 0 {
		c.Items[i].Quantity = quantity
		c.touch()
	}
}

func (c *Cart) Clear() {
	c.Items = []models.LineItem{}
	c.touch()
}

func (c *Cart) Find(key models.ItemKey) (models.LineItem, bool) {
	if i := c.index(key); i >= 0 {
		return c.Items[i], true
	}
	return models.LineItem{}, false
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Shipping is what the policy charges for the cart's current contents.
func (c *Cart) Shipping(p pricing.Policy) decimal.Decimal {
	return p.Shipping(c.ItemCount(), c.Subtotal())
}

// Summary derives shipping, tax and total with the applied discount subtracted.
func (c *Cart) Summary(p pricing.Policy, applied decimal.Decimal) pricing.Summary {
	return p.Summarize(c.ItemCount(), c.Subtotal(), applied)
}

// Clone returns a deep copy so stores can hand out carts without sharing item slices.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]models.LineItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

func (c *Cart) index(key models.ItemKey) int {
	for i, it := range c.Items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
