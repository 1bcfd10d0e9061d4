package cache

import (
	"sync"
	"time"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

type entry struct {
	coupon    models.Coupon
	expiresAt time.Time
}

// CouponCache keeps coupon definitions by normalized code for a short TTL.
// Usage counters are never served from here.
type CouponCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	store map[string]entry
}

func NewCouponCache(ttl time.Duration) *CouponCache {
	return &CouponCache{
		ttl:   ttl,
		now:   time.Now,
		store: make(map[string]entry),
	}
}

func (c *CouponCache) Get(code string) (*models.Coupon, bool) {
	key := models.NormalizeCode(code)
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.Invalidate(key)
		return nil, false
	}
	cp := clone(e.coupon)
	return &cp, true
}

func (c *CouponCache) Set(coupon models.Coupon) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[models.NormalizeCode(coupon.Code)] = entry{coupon: clone(coupon), expiresAt: c.now().Add(c.ttl)}
}

func (c *CouponCache) Invalidate(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, models.NormalizeCode(code))
}

func (c *CouponCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// clone copies c including the values behind its pointer fields.
func clone(c models.Coupon) models.Coupon {
	if c.EndDate != nil {
		end := *c.EndDate
		c.EndDate = &end
	}
	if c.CustomerUsageLimit != nil {
		limit := *c.CustomerUsageLimit
		c.CustomerUsageLimit = &limit
	}
	return c
}
