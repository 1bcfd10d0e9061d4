package promo

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

// ErrInvalidDefinition is wrapped by every DefinitionError.
var ErrInvalidDefinition = errors.New("invalid promotion definition")

// DefinitionError rejects a coupon or discount an admin tried to create.
type DefinitionError struct {
	Field  string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }

var hundred = decimal.NewFromInt(100)

// ValidateCouponDefinition checks the invariants a coupon must satisfy when created.
func ValidateCouponDefinition(c models.Coupon) error {
	if models.NormalizeCode(c.Code) == "" {
		return &DefinitionError{Field: "code", Reason: "must not be empty"}
	}
	switch c.Type {
	case models.CouponPercentage, models.CouponFixedAmount, models.CouponFreeShipping:
	default:
		return &DefinitionError{Field: "type", Reason: fmt.Sprintf("unknown coupon type %q", c.Type)}
	}
	if err := validateValue(string(c.Type), c.Value); err != nil {
		return err
	}
	if c.MinimumPurchaseAmount.IsNegative() {
		return &DefinitionError{Field: "minimum_purchase_amount", Reason: "must not be negative"}
	}
	// A fixed coupon must leave something to pay: the minimum purchase has to exceed the
	// discount. This forbids a coupon worth exactly its minimum purchase.
	if c.Type == models.CouponFixedAmount && !c.MinimumPurchaseAmount.GreaterThan(c.Value) {
		return &DefinitionError{Field: "minimum_purchase_amount", Reason: "must be greater than the discount value"}
	}
	if c.CustomerUsageLimit != nil && *c.CustomerUsageLimit < 1 {
		return &DefinitionError{Field: "customer_usage_limit", Reason: "must be at least 1"}
	}
	return validateWindow(c.StartDate.IsZero(), c.EndDate != nil && !c.EndDate.After(c.StartDate))
}

// ValidateDiscountDefinition checks the invariants a discount must satisfy when created.
func ValidateDiscountDefinition(d models.Discount) error {
	if d.Name == "" {
		return &DefinitionError{Field: "name", Reason: "must not be empty"}
	}
	switch d.Type {
	case models.DiscountPercentage, models.DiscountFixedAmount, models.DiscountFreeShipping:
	case models.DiscountBuyXGetY:
		if d.BuyQuantity == nil || *d.BuyQuantity < 1 {
			return &DefinitionError{Field: "buy_quantity", Reason: "must be at least 1"}
		}
		if d.GetQuantity == nil || *d.GetQuantity < 1 {
			return &DefinitionError{Field: "get_quantity", Reason: "must be at least 1"}
		}
	default:
		return &DefinitionError{Field: "type", Reason: fmt.Sprintf("unknown discount type %q", d.Type)}
	}
	if err := validateValue(string(d.Type), d.Value); err != nil {
		return err
	}
	return validateWindow(d.StartDate.IsZero(), d.EndDate != nil && !d.EndDate.After(d.StartDate))
}

func validateValue(kind string, value decimal.Decimal) error {
	if !value.IsPositive() {
		return &DefinitionError{Field: "value", Reason: "must be greater than 0"}
	}
	if kind == string(models.CouponPercentage) && value.GreaterThan(hundred) {
		return &DefinitionError{Field: "value", Reason: "percentage must not exceed 100"}
	}
	return nil
}

func validateWindow(missingStart, endNotAfterStart bool) error {
	if missingStart {
		return &DefinitionError{Field: "start_date", Reason: "is required"}
	}
	if endNotAfterStart {
		return &DefinitionError{Field: "end_date", Reason: "must be after start_date"}
	}
	return nil
}
