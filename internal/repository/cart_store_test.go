package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/storefront-pricing/internal/cart"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

type cartStore interface {
	Get(ctx context.Context, id string) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, id string) error
}

func exerciseCartStore(t *testing.T, store cartStore) {
	ctx := context.Background()
	id := uuid.NewString()

	_, err := store.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	c := cart.New(id)
	require.NoError(t, c.AddItem(models.LineItem{ProductID: "TEE", UnitPrice: decimal.NewFromInt(300), Quantity: 2}))
	c.CouponCode = "SAVE20"
	require.NoError(t, store.Save(ctx, c))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", got.CouponCode)
	assert.Equal(t, 2, got.ItemCount())
	assert.True(t, got.Subtotal().Equal(decimal.NewFromInt(600)))

	got.Items[0].Quantity = 9
	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCartStore(t *testing.T) {
	exerciseCartStore(t, NewMemoryCartStore())
}

func TestRedisCartStore(t *testing.T) {
	addr := os.Getenv("STOREFRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREFRONT_TEST_REDIS_ADDR not set")
	}
	client, err := NewRedisClient(addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	exerciseCartStore(t, NewRedisCartStore(client, time.Minute, nil))
}

func TestCartKey(t *testing.T) {
	assert.Equal(t, "cart:abc", cartKey("abc"))
}
