package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	t.Run("visits every index once", func(t *testing.T) {
		results := make([]int32, 50)
		err := ForEach(context.Background(), 4, len(results), func(_ context.Context, i int) error {
			atomic.AddInt32(&results[i], 1)
			return nil
		})
		require.NoError(t, err)
		for i, n := range results {
			assert.Equal(t, int32(1), n, "index %d", i)
		}
	})

	t.Run("bounds concurrency", func(t *testing.T) {
		var inFlight, peak int32
		err := ForEach(context.Background(), 3, 30, func(_ context.Context, _ int) error {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			atomic.AddInt32(&inFlight, -1)
			return nil
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	})

	t.Run("returns first error", func(t *testing.T) {
		boom := errors.New("boom")
		err := ForEach(context.Background(), 2, 10, func(_ context.Context, i int) error {
			if i == 3 {
				return boom
			}
			return nil
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("zero tasks is a no-op", func(t *testing.T) {
		called := false
		err := ForEach(context.Background(), 4, 0, func(context.Context, int) error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := ForEach(ctx, 2, 5, func(context.Context, int) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
