package promo

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
)

// Target is what discounts are evaluated against: one catalog item or a whole order.
type Target struct {
	Items    []models.LineItem
	Shipping decimal.Decimal
}

// ItemTarget evaluates a single catalog line, e.g. for a product page price badge.
// shipping is what the line would ship for on its own.
func ItemTarget(item models.LineItem, shipping decimal.Decimal) Target {
	return Target{Items: []models.LineItem{item}, Shipping: shipping}
}

func OrderTarget(items []models.LineItem, shipping decimal.Decimal) Target {
	return Target{Items: items, Shipping: shipping}
}

// ApplicableDiscounts returns every ACTIVE discount that covers at least one line of the
// target, with its computed amount, sorted by amount descending. Ties keep input order.
// Discounts are never stacked here; results[0] is the best single candidate.
func ApplicableDiscounts(target Target, discounts []models.Discount, now time.Time) []models.AppliedDiscount {
	results := make([]models.AppliedDiscount, 0, len(discounts))
	for _, d := range discounts {
		if DiscountStatus(d, now) != models.StatusActive {
			continue
		}
		applied, ok := EvaluateDiscount(d, target)
		if !ok {
			continue
		}
		results = append(results, applied)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Amount.GreaterThan(results[j].Amount)
	})
	return results
}

// EvaluateDiscount computes d's amount against target without looking at its schedule.
// ok is false when no line is covered or a BUY_X_GET_Y rule is malformed.
func EvaluateDiscount(d models.Discount, target Target) (models.AppliedDiscount, bool) {
	eligible := make([]models.LineItem, 0, len(target.Items))
	base := decimal.Zero
	for _, it := range target.Items {
		if d.Covers(it.ProductID) {
			eligible = append(eligible, it)
			base = base.Add(it.LineTotal())
		}
	}
	if len(eligible) == 0 {
		return models.AppliedDiscount{}, false
	}

	applied := models.AppliedDiscount{
		Source:     models.SourceDiscount,
		DiscountID: d.ID,
		Name:       d.Name,
		Type:       string(d.Type),
	}

	switch d.Type {
	case models.DiscountPercentage:
		applied.Amount = pricing.PercentOf(base, d.Value)
	case models.DiscountFixedAmount:
		applied.Amount = decimal.Min(d.Value, base)
	case models.DiscountFreeShipping:
		applied.Amount = target.Shipping
	case models.DiscountBuyXGetY:
		if d.BuyQuantity == nil || d.GetQuantity == nil || *d.BuyQuantity < 1 || *d.GetQuantity < 1 {
			return models.AppliedDiscount{}, false
		}
		total := decimal.Zero
		for _, it := range eligible {
			free := FreeUnits(it.Quantity, *d.BuyQuantity, *d.GetQuantity)
			applied.FreeUnits += free
			total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(free))))
		}
		applied.Amount = total
	default:
		return models.AppliedDiscount{}, false
	}
	return applied, true
}

// FreeUnits is floor(q / (buy+get)) × get.
func FreeUnits(quantity, buy, get int) int {
	if quantity <= 0 || buy < 1 || get < 1 {
		return 0
	}
	return quantity / (buy + get) * get
}

// Best returns the first candidate of a sorted result set.
func Best(results []models.AppliedDiscount) (models.AppliedDiscount, bool) {
	if len(results) == 0 {
		return models.AppliedDiscount{}, false
	}
	return results[0], true
}
