package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

func line(id, price string, qty int) models.LineItem {
	return models.LineItem{ProductID: id, Name: "item " + id, UnitPrice: dec(price), Quantity: qty}
}

func discount(id int64, t models.DiscountType, value string) models.Discount {
	return models.Discount{
		ID:        id,
		Name:      string(t),
		Type:      t,
		Value:     dec(value),
		StartDate: now.Add(-time.Hour),
		IsActive:  true,
	}
}

func TestFreeUnits(t *testing.T) {
	assert.Equal(t, 3, FreeUnits(9, 2, 1))
	assert.Equal(t, 2, FreeUnits(8, 2, 1))
	assert.Equal(t, 0, FreeUnits(2, 2, 1))
	assert.Equal(t, 4, FreeUnits(8, 2, 2))
	assert.Equal(t, 0, FreeUnits(5, 0, 1))
}

func TestBuyXGetYScenario(t *testing.T) {
	d := discount(1, models.DiscountBuyXGetY, "1")
	d.BuyQuantity = intPtr(2)
	d.GetQuantity = intPtr(1)

	results := ApplicableDiscounts(ItemTarget(line("p1", "50", 9), decimal.Zero), []models.Discount{d}, now)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].FreeUnits)
	assert.True(t, results[0].Amount.Equal(dec("150")))
}

func TestApplicableDiscountsSortedAndFiltered(t *testing.T) {
	pct := discount(1, models.DiscountPercentage, "10")
	fixed := discount(2, models.DiscountFixedAmount, "250")
	ship := discount(3, models.DiscountFreeShipping, "1")

	expired := discount(4, models.DiscountPercentage, "90")
	expired.EndDate = timePtr(now.Add(-time.Minute))
	scheduled := discount(5, models.DiscountPercentage, "90")
	scheduled.StartDate = now.Add(time.Hour)
	disabled := discount(6, models.DiscountPercentage, "90")
	disabled.IsActive = false

	target := OrderTarget([]models.LineItem{line("a", "400", 2), line("b", "100", 2)}, dec("50"))
	results := ApplicableDiscounts(target, []models.Discount{pct, fixed, ship, expired, scheduled, disabled}, now)

	require.Len(t, results, 3)
	assert.Equal(t, int64(2), results[0].DiscountID)
	assert.True(t, results[0].Amount.Equal(dec("250")))
	assert.Equal(t, int64(1), results[1].DiscountID)
	assert.True(t, results[1].Amount.Equal(dec("100")))
	assert.Equal(t, int64(3), results[2].DiscountID)

	best, ok := Best(results)
	require.True(t, ok)
	assert.Equal(t, int64(2), best.DiscountID)
}

func TestApplicableDiscountsTiesKeepInputOrder(t *testing.T) {
	a := discount(1, models.DiscountFixedAmount, "20")
	b := discount(2, models.DiscountFixedAmount, "20")
	results := ApplicableDiscounts(ItemTarget(line("x", "100", 1), decimal.Zero), []models.Discount{a, b}, now)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].DiscountID)
	assert.Equal(t, int64(2), results[1].DiscountID)
}

func TestDiscountProductScope(t *testing.T) {
	d := discount(1, models.DiscountPercentage, "50")
	d.ProductIDs = []string{"b"}

	target := OrderTarget([]models.LineItem{line("a", "400", 1), line("b", "100", 1)}, decimal.Zero)
	results := ApplicableDiscounts(target, []models.Discount{d}, now)
	require.Len(t, results, 1)
	assert.True(t, results[0].Amount.Equal(dec("50")), "only the covered line counts")

	results = ApplicableDiscounts(ItemTarget(line("a", "400", 1), decimal.Zero), []models.Discount{d}, now)
	assert.Empty(t, results)
}

func TestMalformedBuyXGetYIsSkipped(t *testing.T) {
	d := discount(1, models.DiscountBuyXGetY, "1")
	d.BuyQuantity = intPtr(2)
	_, ok := EvaluateDiscount(d, ItemTarget(line("a", "10", 6), decimal.Zero))
	assert.False(t, ok)
}

func TestBestOfEmpty(t *testing.T) {
	_, ok := Best(nil)
	assert.False(t, ok)
}

func TestItemTargetCarriesShipping(t *testing.T) {
	ship := discount(1, models.DiscountFreeShipping, "1")

	applied, ok := EvaluateDiscount(ship, ItemTarget(line("a", "120", 1), dec("50")))
	require.True(t, ok)
	assert.True(t, applied.Amount.Equal(dec("50")))

	applied, ok = EvaluateDiscount(ship, ItemTarget(line("a", "900", 1), decimal.Zero))
	require.True(t, ok)
	assert.True(t, applied.Amount.IsZero())
}
