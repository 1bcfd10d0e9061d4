package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-pricing/internal/backend"
	"github.com/Cheertaboi/storefront-pricing/internal/cache"
	"github.com/Cheertaboi/storefront-pricing/internal/metrics"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
	"github.com/Cheertaboi/storefront-pricing/internal/repository"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intp(n int) *int { return &n }

type fakeCouponRepo struct {
	mu      sync.Mutex
	nextID  int64
	coupons map[string]*models.Coupon
	gets    int
	err     error
}

func newFakeCouponRepo(coupons ...models.Coupon) *fakeCouponRepo {
	r := &fakeCouponRepo{coupons: map[string]*models.Coupon{}}
	for _, c := range coupons {
		c := c
		r.nextID++
		if c.ID == 0 {
			c.ID = r.nextID
		}
		r.coupons[models.NormalizeCode(c.Code)] = &c
	}
	return r
}

func (r *fakeCouponRepo) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.coupons[models.NormalizeCode(code)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCouponRepo) List(_ context.Context) ([]models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := []models.Coupon{}
	for id := int64(1); id <= r.nextID; id++ {
		for _, c := range r.coupons {
			if c.ID == id {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (r *fakeCouponRepo) Create(_ context.Context, c *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[c.Code]; ok {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateCode, c.Code)
	}
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.coupons[c.Code] = &cp
	return nil
}

func (r *fakeCouponRepo) SetActive(_ context.Context, code string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[models.NormalizeCode(code)]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (r *fakeCouponRepo) IncrementUsage(_ context.Context, _ *sql.Tx, couponID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coupons {
		if c.ID == couponID {
			c.UsageCount++
		}
	}
	return nil
}

func (r *fakeCouponRepo) getCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

type usageKey struct {
	couponID   int64
	customerID string
}

type fakeUsageRepo struct {
	mu    sync.Mutex
	usage map[usageKey]int
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{usage: map[usageKey]int{}}
}

func (r *fakeUsageRepo) set(couponID int64, customerID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[usageKey{couponID, customerID}] = n
}

func (r *fakeUsageRepo) GetUsage(_ context.Context, couponID int64, customerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage[usageKey{couponID, customerID}], nil
}

func (r *fakeUsageRepo) GetAndLockUsage(ctx context.Context, _ *sql.Tx, couponID int64, customerID string) (int, error) {
	return r.GetUsage(ctx, couponID, customerID)
}

func (r *fakeUsageRepo) IncrementUsage(_ context.Context, _ *sql.Tx, couponID int64, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[usageKey{couponID, customerID}]++
	return nil
}

type fakeDiscountRepo struct {
	mu        sync.Mutex
	discounts []models.Discount
	used      map[int64]int
}

func newFakeDiscountRepo(discounts ...models.Discount) *fakeDiscountRepo {
	return &fakeDiscountRepo{discounts: discounts, used: map[int64]int{}}
}

func (r *fakeDiscountRepo) List(_ context.Context) ([]models.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Discount(nil), r.discounts...), nil
}

func (r *fakeDiscountRepo) Create(_ context.Context, d *models.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = int64(len(r.discounts) + 1)
	r.discounts = append(r.discounts, *d)
	return nil
}

func (r *fakeDiscountRepo) IncrementUsage(_ context.Context, _ *sql.Tx, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.used[id]++
	return nil
}

type fakeCatalog struct {
	products map[string]*backend.Product
	err      error
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*backend.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, backend.ErrProductNotFound
	}
	return p, nil
}

type fakeOrderRepo struct {
	orders []*models.Order
	err    error
}

func (r *fakeOrderRepo) Create(_ context.Context, _ *sql.Tx, o *models.Order) error {
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, o)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fixture bundles services over in-memory fakes with the clock pinned to testNow.
type fixture struct {
	couponRepo   *fakeCouponRepo
	usageRepo    *fakeUsageRepo
	discountRepo *fakeDiscountRepo
	store        *repository.MemoryCartStore
	metrics      *metrics.Metrics
	coupons      *CouponService
	discounts    *DiscountService
	carts        *CartService
}

func newFixture(coupons []models.Coupon, discounts []models.Discount, catalog ProductLookup) *fixture {
	f := &fixture{
		couponRepo:   newFakeCouponRepo(coupons...),
		usageRepo:    newFakeUsageRepo(),
		discountRepo: newFakeDiscountRepo(discounts...),
		store:        repository.NewMemoryCartStore(),
		metrics:      metrics.New(),
	}
	policy := pricing.DefaultPolicy()
	formatter, err := pricing.NewFormatter("en", "₹")
	if err != nil {
		panic(err)
	}

	f.coupons = NewCouponService(f.couponRepo, f.usageRepo, cache.NewCouponCache(time.Minute), policy, nil, f.metrics)
	f.coupons.now = fixedNow
	f.discounts = NewDiscountService(f.discountRepo, nil)
	f.discounts.now = fixedNow
	f.carts = NewCartService(f.store, catalog, f.coupons, f.discounts, policy, formatter, nil, f.metrics)
	f.carts.now = fixedNow
	return f
}

func save20() models.Coupon {
	return models.Coupon{
		Code:      "SAVE20",
		Type:      models.CouponPercentage,
		Value:     dec("20"),
		StartDate: testNow.Add(-24 * time.Hour),
		IsActive:  true,
	}
}

func fixed500() models.Coupon {
	return models.Coupon{
		Code:                  "FLAT500",
		Type:                  models.CouponFixedAmount,
		Value:                 dec("500"),
		StartDate:             testNow.Add(-24 * time.Hour),
		IsActive:              true,
		MinimumPurchaseAmount: dec("1000"),
	}
}

func welcomeOnce() models.Coupon {
	return models.Coupon{
		Code:                  "WELCOME",
		Type:                  models.CouponFixedAmount,
		Value:                 dec("100"),
		StartDate:             testNow.Add(-24 * time.Hour),
		IsActive:              true,
		IsOneTimeUse:          true,
		MinimumPurchaseAmount: dec("200"),
	}
}
