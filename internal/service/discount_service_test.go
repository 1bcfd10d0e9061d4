package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
)

func teeDeal() models.Discount {
	return models.Discount{
		Name:        "Tees 2+1",
		Type:        models.DiscountBuyXGetY,
		Value:       dec("1"),
		BuyQuantity: intp(2),
		GetQuantity: intp(1),
		StartDate:   testNow.Add(-time.Hour),
		IsActive:    true,
		ProductIDs:  []string{"TEE"},
	}
}

func TestDiscountService(t *testing.T) {
	ctx := context.Background()

	t.Run("create validates the definition", func(t *testing.T) {
		f := newFixture(nil, nil, nil)
		bad := teeDeal()
		bad.GetQuantity = nil

		err := f.discounts.Create(ctx, &bad)
		assert.ErrorIs(t, err, promo.ErrInvalidDefinition)

		good := teeDeal()
		require.NoError(t, f.discounts.Create(ctx, &good))
		assert.Equal(t, int64(1), good.ID)
	})

	t.Run("applicable evaluates buy x get y", func(t *testing.T) {
		deal := teeDeal()
		deal.ID = 1
		f := newFixture(nil, []models.Discount{deal, sitewide("5")}, nil)

		items := []models.LineItem{
			{ProductID: "TEE", UnitPrice: dec("50"), Quantity: 9},
			{ProductID: "MUG", UnitPrice: dec("100"), Quantity: 1},
		}
		got, err := f.discounts.Applicable(ctx, items, dec("50"))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(1), got[0].DiscountID)
		assert.True(t, got[0].Amount.Equal(dec("150")))
		assert.Equal(t, 3, got[0].FreeUnits)
		assert.True(t, got[1].Amount.Equal(dec("27.5")))
	})

	t.Run("list derives status", func(t *testing.T) {
		later := teeDeal()
		later.StartDate = testNow.Add(time.Hour)
		f := newFixture(nil, []models.Discount{teeDeal(), later}, nil)

		views, err := f.discounts.List(ctx)
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, models.StatusActive, views[0].Status)
		assert.Equal(t, models.StatusScheduled, views[1].Status)
	})

	t.Run("preview ignores the schedule", func(t *testing.T) {
		f := newFixture(nil, nil, nil)
		later := teeDeal()
		later.StartDate = testNow.Add(24 * time.Hour)

		p, err := f.discounts.Preview(later, []models.LineItem{{ProductID: "TEE", UnitPrice: dec("50"), Quantity: 3}}, dec("0"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusScheduled, p.Status)
		require.True(t, p.Applies)
		assert.True(t, p.Applied.Amount.Equal(dec("50")))

		p, err = f.discounts.Preview(later, []models.LineItem{{ProductID: "MUG", UnitPrice: dec("50"), Quantity: 3}}, dec("0"))
		require.NoError(t, err)
		assert.False(t, p.Applies)
		assert.Nil(t, p.Applied)
	})
}
