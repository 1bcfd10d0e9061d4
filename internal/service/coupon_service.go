package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/cache"
	"github.com/Cheertaboi/storefront-pricing/internal/concurrency"
	"github.com/Cheertaboi/storefront-pricing/internal/metrics"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
)

// requestTimeout bounds every service call that reaches the database.
const requestTimeout = 8 * time.Second

const usageLookupWorkers = 4

// Repos required by service (use interfaces to allow mocking)
type CouponRepo interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	SetActive(ctx context.Context, code string, active bool) error
	IncrementUsage(ctx context.Context, tx *sql.Tx, couponID int64) error
}

type UsageRepo interface {
	GetUsage(ctx context.Context, couponID int64, customerID string) (int, error)
	GetAndLockUsage(ctx context.Context, tx *sql.Tx, couponID int64, customerID string) (int, error)
	IncrementUsage(ctx context.Context, tx *sql.Tx, couponID int64, customerID string) error
}

type CouponService struct {
	couponRepo CouponRepo
	usageRepo  UsageRepo
	cache      *cache.CouponCache
	policy     pricing.Policy
	log        *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewCouponService(cRepo CouponRepo, uRepo UsageRepo, c *cache.CouponCache, policy pricing.Policy, log *zap.Logger, m *metrics.Metrics) *CouponService {
	if c == nil {
		c = cache.NewCouponCache(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CouponService{
		couponRepo: cRepo,
		usageRepo:  uRepo,
		cache:      c,
		policy:     policy,
		log:        log,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Validate answers whether req's coupon applies. Rejections are a normal response with
// IsValid false; the error return is reserved for infrastructure failures. Nothing is
// written.
func (s *CouponService) Validate(ctx context.Context, req models.ValidationRequest) (models.ValidationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	now := s.now()
	if req.Now != nil {
		now = *req.Now
	}
	shipping := s.policy.Shipping(req.ItemCount, req.Subtotal)
	if req.Shipping != nil {
		shipping = *req.Shipping
	}

	applied, err := s.Evaluate(ctx, req.CouponCode, req.CustomerID, req.Subtotal, shipping, now)
	if err != nil {
		var ce *promo.CouponError
		if errors.As(err, &ce) {
			s.metrics.CouponValidation(ce.Reason())
			return Rejection(ce), nil
		}
		s.metrics.CouponValidation("error")
		return models.ValidationResponse{IsValid: false, Message: "internal_error"}, err
	}

	s.metrics.CouponValidation("valid")
	return models.ValidationResponse{IsValid: true, Discount: &applied, Message: "coupon_applied"}, nil
}

// Rejection renders a coupon rejection as an API response.
func Rejection(ce *promo.CouponError) models.ValidationResponse {
	return models.ValidationResponse{
		IsValid: false,
		Message: ce.Reason(),
		Details: ce.Details(),
	}
}

// Evaluate looks the coupon up and validates it against the order. Rejections come back
// as *promo.CouponError.
func (s *CouponService) Evaluate(ctx context.Context, code, customerID string, subtotal, shipping decimal.Decimal, now time.Time) (models.AppliedDiscount, error) {
	c, err := s.lookup(ctx, code)
	if err != nil {
		return models.AppliedDiscount{}, err
	}
	if c == nil {
		return models.AppliedDiscount{}, promo.NotFound(models.NormalizeCode(code))
	}

	prior, err := s.priorUsage(ctx, c, customerID)
	if err != nil {
		return models.AppliedDiscount{}, err
	}

	return promo.ValidateCoupon(c, promo.OrderContext{
		Code:                    code,
		Subtotal:                subtotal,
		Shipping:                shipping,
		CustomerID:              customerID,
		CustomerPriorUsageCount: prior,
		Now:                     now,
	})
}

// ApplicableRequest describes a cart for the applicable-coupons listing.
type ApplicableRequest struct {
	CustomerID string
	Subtotal   decimal.Decimal
	Shipping   *decimal.Decimal
	ItemCount  int
	Now        *time.Time
}

// Applicable lists every coupon the customer could apply right now, best first.
func (s *CouponService) Applicable(ctx context.Context, req ApplicableRequest) ([]models.AppliedDiscount, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	now := s.now()
	if req.Now != nil {
		now = *req.Now
	}
	shipping := s.policy.Shipping(req.ItemCount, req.Subtotal)
	if req.Shipping != nil {
		shipping = *req.Shipping
	}

	all, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	// Cheap checks first so usage lookups only run for real candidates.
	candidates := make([]models.Coupon, 0, len(all))
	for _, c := range all {
		if promo.CouponStatus(c, now) != models.StatusActive || req.Subtotal.LessThan(c.MinimumPurchaseAmount) {
			continue
		}
		candidates = append(candidates, c)
	}

	results := make([]*models.AppliedDiscount, len(candidates))
	err = concurrency.ForEach(ctx, usageLookupWorkers, len(candidates), func(ctx context.Context, i int) error {
		c := &candidates[i]
		prior, err := s.priorUsage(ctx, c, req.CustomerID)
		if err != nil {
			return err
		}
		applied, err := promo.ValidateCoupon(c, promo.OrderContext{
			Code:                    c.Code,
			Subtotal:                req.Subtotal,
			Shipping:                shipping,
			CustomerID:              req.CustomerID,
			CustomerPriorUsageCount: prior,
			Now:                     now,
		})
		if err == nil {
			results[i] = &applied
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check coupon usage: %w", err)
	}

	applicable := []models.AppliedDiscount{}
	for _, r := range results {
		if r != nil {
			applicable = append(applicable, *r)
		}
	}
	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Amount.GreaterThan(applicable[j].Amount)
	})
	return applicable, nil
}

// Preview is the admin dry run: check the definition, then evaluate it against a sample
// order without touching storage.
func (s *CouponService) Preview(c models.Coupon, oc promo.OrderContext) (models.ValidationResponse, error) {
	c.Code = models.NormalizeCode(c.Code)
	if err := promo.ValidateCouponDefinition(c); err != nil {
		return models.ValidationResponse{}, err
	}
	if oc.Now.IsZero() {
		oc.Now = s.now()
	}

	applied, err := promo.ValidateCoupon(&c, oc)
	if err != nil {
		var ce *promo.CouponError
		if errors.As(err, &ce) {
			resp := Rejection(ce)
			resp.Details["status"] = promo.CouponStatus(c, oc.Now)
			return resp, nil
		}
		return models.ValidationResponse{}, err
	}
	return models.ValidationResponse{
		IsValid:  true,
		Discount: &applied,
		Message:  "coupon_applied",
		Details:  map[string]any{"status": promo.CouponStatus(c, oc.Now)},
	}, nil
}

func (s *CouponService) Create(ctx context.Context, c *models.Coupon) error {
	c.Code = models.NormalizeCode(c.Code)
	if err := promo.ValidateCouponDefinition(*c); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := s.couponRepo.Create(ctx, c); err != nil {
		return err
	}
	s.cache.Invalidate(c.Code)
	s.log.Info("coupon created", zap.String("code", c.Code), zap.String("type", string(c.Type)))
	return nil
}

// List returns every coupon with its status derived at the current time.
func (s *CouponService) List(ctx context.Context) ([]models.CouponView, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	coupons, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	now := s.now()
	views := make([]models.CouponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, models.CouponView{Coupon: c, Status: promo.CouponStatus(c, now)})
	}
	return views, nil
}

func (s *CouponService) SetActive(ctx context.Context, code string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := s.couponRepo.SetActive(ctx, code, active); err != nil {
		return err
	}
	s.cache.Invalidate(code)
	s.log.Info("coupon toggled", zap.String("code", models.NormalizeCode(code)), zap.Bool("active", active))
	return nil
}

// Redeem consumes one use of the coupon inside the checkout transaction. The usage row
// is locked (SELECT ... FOR UPDATE) before the limits are re-checked, so two concurrent
// checkouts cannot both take the last use.
func (s *CouponService) Redeem(ctx context.Context, tx *sql.Tx, code, customerID string, subtotal, shipping decimal.Decimal) (models.AppliedDiscount, error) {
	// Always read through to the database; the cached copy may predate a kill switch.
	c, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return models.AppliedDiscount{}, err
	}
	if c == nil {
		return models.AppliedDiscount{}, promo.NotFound(models.NormalizeCode(code))
	}

	prior, err := s.usageRepo.GetAndLockUsage(ctx, tx, c.ID, customerID)
	if err != nil {
		return models.AppliedDiscount{}, fmt.Errorf("get lock: %w", err)
	}

	applied, err := promo.ValidateCoupon(c, promo.OrderContext{
		Code:                    code,
		Subtotal:                subtotal,
		Shipping:                shipping,
		CustomerID:              customerID,
		CustomerPriorUsageCount: prior,
		Now:                     s.now(),
	})
	if err != nil {
		return models.AppliedDiscount{}, err
	}

	if err := s.usageRepo.IncrementUsage(ctx, tx, c.ID, customerID); err != nil {
		return models.AppliedDiscount{}, fmt.Errorf("increment usage: %w", err)
	}
	if err := s.couponRepo.IncrementUsage(ctx, tx, c.ID); err != nil {
		return models.AppliedDiscount{}, err
	}
	return applied, nil
}

func (s *CouponService) lookup(ctx context.Context, code string) (*models.Coupon, error) {
	if c, ok := s.cache.Get(code); ok {
		return c, nil
	}
	c, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load coupon: %w", err)
	}
	if c != nil {
		s.cache.Set(*c)
	}
	return c, nil
}

// priorUsage skips the lookup for coupons without per-customer limits and for anonymous
// shoppers.
func (s *CouponService) priorUsage(ctx context.Context, c *models.Coupon, customerID string) (int, error) {
	if customerID == "" || (!c.IsOneTimeUse && c.CustomerUsageLimit == nil) {
		return 0, nil
	}
	n, err := s.usageRepo.GetUsage(ctx, c.ID, customerID)
	if err != nil {
		return 0, fmt.Errorf("load usage: %w", err)
	}
	return n, nil
}
