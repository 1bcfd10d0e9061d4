package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/storefront-pricing/internal/backend"
	"github.com/Cheertaboi/storefront-pricing/internal/cart"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
)

func tee(qty int) models.LineItem {
	return models.LineItem{ProductID: "TEE", Name: "Tee", UnitPrice: dec("500"), Quantity: qty, Size: "M"}
}

func sitewide(pct string) models.Discount {
	return models.Discount{
		ID:        9,
		Name:      "Sitewide " + pct,
		Type:      models.DiscountPercentage,
		Value:     dec(pct),
		StartDate: testNow.Add(-time.Hour),
		IsActive:  true,
	}
}

func newCart(t *testing.T, f *fixture) *cart.Cart {
	t.Helper()
	c, err := f.carts.Create(context.Background())
	require.NoError(t, err)
	return c
}

func TestCartServiceMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil, nil)
	c := newCart(t, f)

	got, err := f.carts.AddItem(ctx, c.ID, tee(1))
	require.NoError(t, err)
	got, err = f.carts.AddItem(ctx, c.ID, tee(2))
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)

	red := tee(1)
	red.Color = "red"
	got, err = f.carts.AddItem(ctx, c.ID, red)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.True(t, got.Subtotal().Equal(dec("2000")))

	got, err = f.carts.UpdateQuantity(ctx, c.ID, tee(0).Key(), 0)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	got, err = f.carts.RemoveItem(ctx, c.ID, red.Key())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	_, err = f.carts.AddItem(ctx, c.ID, tee(0))
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	stored, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())

	_, err = f.carts.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCartNotFound)
	_, err = f.carts.AddItem(ctx, "missing", tee(1))
	assert.ErrorIs(t, err, ErrCartNotFound)

	assert.Contains(t, scrape(t, f), `storefront_cart_mutations_total{op="add"} 3`)
}

func TestCartServiceCatalogPrices(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{products: map[string]*backend.Product{
		"TEE":  {ID: "TEE", Name: "Catalog Tee", Price: dec("450"), Image: "tee.png", InStock: true},
		"GONE": {ID: "GONE", Name: "Sold out", Price: dec("10"), InStock: false},
	}}
	f := newFixture(nil, nil, catalog)
	c := newCart(t, f)

	item := tee(2)
	item.UnitPrice = dec("1")
	got, err := f.carts.AddItem(ctx, c.ID, item)
	require.NoError(t, err)
	assert.Equal(t, "Catalog Tee", got.Items[0].Name)
	assert.True(t, got.Items[0].UnitPrice.Equal(dec("450")))
	assert.Equal(t, "tee.png", got.Items[0].Image)

	_, err = f.carts.AddItem(ctx, c.ID, models.LineItem{ProductID: "GONE", Quantity: 1})
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = f.carts.AddItem(ctx, c.ID, models.LineItem{ProductID: "UNKNOWN", Quantity: 1})
	assert.ErrorIs(t, err, backend.ErrProductNotFound)

	catalog.err = &backend.SchemaError{Endpoint: "/products/TEE", Reason: "unknown field"}
	_, err = f.carts.AddItem(ctx, c.ID, tee(1))
	var schemaErr *backend.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestCartServiceQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("coupon scenario totals 900", func(t *testing.T) {
		f := newFixture([]models.Coupon{save20()}, nil, nil)
		c := newCart(t, f)
		_, err := f.carts.AddItem(ctx, c.ID, tee(2))
		require.NoError(t, err)

		q, err := f.carts.ApplyCoupon(ctx, c.ID, "cust-1", "save20")
		require.NoError(t, err)
		require.NotNil(t, q.Applied)
		assert.Equal(t, models.SourceCoupon, q.Applied.Source)
		assert.True(t, q.Summary.Subtotal.Equal(dec("1000")))
		assert.True(t, q.Summary.Shipping.IsZero())
		assert.True(t, q.Summary.Tax.Equal(dec("100")))
		assert.True(t, q.Summary.Discount.Equal(dec("200")))
		assert.True(t, q.Summary.Total.Equal(dec("900")))
		assert.Equal(t, "₹900.00", q.Display["total"])
		assert.Equal(t, "SAVE20", q.Cart.CouponCode)
	})

	t.Run("rejected coupon is not stored", func(t *testing.T) {
		f := newFixture([]models.Coupon{fixed500()}, nil, nil)
		c := newCart(t, f)
		_, err := f.carts.AddItem(ctx, c.ID, tee(1))
		require.NoError(t, err)

		_, err = f.carts.ApplyCoupon(ctx, c.ID, "cust-1", "FLAT500")
		assert.ErrorIs(t, err, promo.ErrBelowMinimumPurchase)

		stored, err := f.carts.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.CouponCode)
	})

	t.Run("better discount beats the coupon", func(t *testing.T) {
		f := newFixture([]models.Coupon{save20()}, []models.Discount{sitewide("30")}, nil)
		c := newCart(t, f)
		_, err := f.carts.AddItem(ctx, c.ID, tee(2))
		require.NoError(t, err)

		q, err := f.carts.ApplyCoupon(ctx, c.ID, "cust-1", "SAVE20")
		require.NoError(t, err)
		require.NotNil(t, q.Applied)
		assert.Equal(t, models.SourceDiscount, q.Applied.Source)
		assert.True(t, q.Summary.Discount.Equal(dec("300")))
	})

	t.Run("coupon beats a smaller discount", func(t *testing.T) {
		f := newFixture([]models.Coupon{save20()}, []models.Discount{sitewide("10")}, nil)
		c := newCart(t, f)
		_, err := f.carts.AddItem(ctx, c.ID, tee(2))
		require.NoError(t, err)

		q, err := f.carts.ApplyCoupon(ctx, c.ID, "cust-1", "SAVE20")
		require.NoError(t, err)
		assert.Equal(t, models.SourceCoupon, q.Applied.Source)
	})

	t.Run("coupon that became invalid is reported", func(t *testing.T) {
		f := newFixture([]models.Coupon{save20()}, nil, nil)
		c := newCart(t, f)
		_, err := f.carts.AddItem(ctx, c.ID, tee(2))
		require.NoError(t, err)
		_, err = f.carts.ApplyCoupon(ctx, c.ID, "cust-1", "SAVE20")
		require.NoError(t, err)

		require.NoError(t, f.coupons.SetActive(ctx, "SAVE20", false))

		q, err := f.carts.Quote(ctx, c.ID, "cust-1")
		require.NoError(t, err)
		assert.Nil(t, q.Applied)
		assert.Contains(t, q.CouponMessage, "disabled")
		assert.True(t, q.Summary.Total.Equal(dec("1100")))
	})

	t.Run("remove coupon and clear", func(t *testing.T) {
		f := newFixture([]models.Coupon{save20()}, nil, nil)
		c := newCart(t, f)
		_, err := f.carts.AddItem(ctx, c.ID, tee(2))
		require.NoError(t, err)
		_, err = f.carts.ApplyCoupon(ctx, c.ID, "", "SAVE20")
		require.NoError(t, err)

		got, err := f.carts.RemoveCoupon(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, got.CouponCode)

		got, err = f.carts.Clear(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.IsEmpty())

		q, err := f.carts.Quote(ctx, c.ID, "")
		require.NoError(t, err)
		assert.True(t, q.Summary.Total.IsZero())
	})
}

func TestCartServiceConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, nil, nil)
	c := newCart(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.AddItem(ctx, c.ID, tee(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 50, got.Items[0].Quantity)
	assert.Equal(t, 0, f.carts.locks.size())
}
