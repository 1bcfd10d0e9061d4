package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPolicyShipping(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.Shipping(1, dec("100")).Equal(dec("50")))
	assert.True(t, p.Shipping(1, dec("500")).Equal(dec("50")), "threshold itself is not free")
	assert.True(t, p.Shipping(3, dec("500.01")).IsZero())
	assert.True(t, p.Shipping(0, decimal.Zero).IsZero(), "empty cart ships nothing")
}

func TestPolicySummarize(t *testing.T) {
	p := DefaultPolicy()

	t.Run("coupon scenario", func(t *testing.T) {
		s := p.Summarize(2, dec("1000"), dec("200"))
		assert.True(t, s.Tax.Equal(dec("100")))
		assert.True(t, s.Shipping.IsZero())
		assert.True(t, s.Total.Equal(dec("900")), "total %s", s.Total)
	})

	t.Run("below threshold adds flat fee", func(t *testing.T) {
		s := p.Summarize(1, dec("200"), decimal.Zero)
		assert.True(t, s.Total.Equal(dec("270")))
	})

	t.Run("total is clamped at zero", func(t *testing.T) {
		s := p.Summarize(1, dec("10"), dec("1000"))
		assert.True(t, s.Total.IsZero())
	})

	t.Run("negative discount is ignored", func(t *testing.T) {
		s := p.Summarize(1, dec("600"), dec("-5"))
		assert.True(t, s.Discount.IsZero())
		assert.True(t, s.Total.Equal(dec("660")))
	})
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("999", "40", "0.18")
	require.NoError(t, err)
	assert.True(t, p.FreeShippingThreshold.Equal(dec("999")))
	assert.True(t, p.TaxRate.Equal(dec("0.18")))

	_, err = NewPolicy("abc", "40", "0.18")
	assert.Error(t, err)
	_, err = NewPolicy("999", "-1", "0.18")
	assert.Error(t, err)
	_, err = NewPolicy("999", "40", "1.5")
	assert.Error(t, err)
}

func TestPercentOf(t *testing.T) {
	assert.True(t, PercentOf(dec("1000"), dec("20")).Equal(dec("200")))
	assert.True(t, PercentOf(dec("1000"), dec("100")).Equal(dec("1000")))
	assert.True(t, PercentOf(dec("33.33"), dec("10")).Equal(dec("3.33")))
}
