package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/backend"
	"github.com/Cheertaboi/storefront-pricing/internal/cart"
	"github.com/Cheertaboi/storefront-pricing/internal/metrics"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
	"github.com/Cheertaboi/storefront-pricing/internal/repository"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrOutOfStock   = errors.New("product is out of stock")
)

type CartStore interface {
	Get(ctx context.Context, id string) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, id string) error
}

// ProductLookup resolves catalog data for items added to a cart.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*backend.Product, error)
}

// Quote is a priced cart: the best single promotion applied and the totals derived.
type Quote struct {
	Cart          *cart.Cart              `json:"cart"`
	Summary       pricing.Summary         `json:"summary"`
	Display       map[string]string       `json:"display"`
	Applied       *models.AppliedDiscount `json:"applied,omitempty"`
	CouponMessage string                  `json:"coupon_message,omitempty"`
}

type CartService struct {
	store     CartStore
	catalog   ProductLookup
	coupons   *CouponService
	discounts *DiscountService
	policy    pricing.Policy
	formatter *pricing.Formatter
	locks     *keyedMutex
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewCartService wires the cart operations. catalog may be nil, in which case item
// prices are taken from the request.
func NewCartService(store CartStore, catalog ProductLookup, coupons *CouponService, discounts *DiscountService,
	policy pricing.Policy, formatter *pricing.Formatter, log *zap.Logger, m *metrics.Metrics) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{
		store:     store,
		catalog:   catalog,
		coupons:   coupons,
		discounts: discounts,
		policy:    policy,
		formatter: formatter,
		locks:     newKeyedMutex(),
		log:       log,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *CartService) Create(ctx context.Context) (*cart.Cart, error) {
	c := cart.New(uuid.NewString())
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.CartMutation("create")
	return c, nil
}

func (s *CartService) Get(ctx context.Context, id string) (*cart.Cart, error) {
	return s.load(ctx, id)
}

// AddItem merges item into the cart. With a catalog configured the name, price and image
// come from the catalog, not the caller.
func (s *CartService) AddItem(ctx context.Context, id string, item models.LineItem) (*cart.Cart, error) {
	if s.catalog != nil && item.Quantity > 0 {
		p, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.InStock {
			return nil, fmt.Errorf("%w: %s", ErrOutOfStock, item.ProductID)
		}
		item.Name = p.Name
		item.UnitPrice = p.Price
		if item.Image == "" {
			item.Image = p.Image
		}
	}
	return s.mutate(ctx, id, "add", func(c *cart.Cart) error {
		return c.AddItem(item)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, id string, key models.ItemKey) (*cart.Cart, error) {
	return s.mutate(ctx, id, "remove", func(c *cart.Cart) error {
		c.RemoveItem(key)
		return nil
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, id string, key models.ItemKey, quantity int) (*cart.Cart, error) {
	return s.mutate(ctx, id, "update", func(c *cart.Cart) error {
		c.UpdateQuantity(key, quantity)
		return nil
	})
}

// Clear empties the cart and drops any coupon on it.
func (s *CartService) Clear(ctx context.Context, id string) (*cart.Cart, error) {
	return s.mutate(ctx, id, "clear", func(c *cart.Cart) error {
		c.Clear()
		c.CouponCode = ""
		return nil
	})
}

// ApplyCoupon stores code on the cart only if it is valid for the cart right now.
func (s *CartService) ApplyCoupon(ctx context.Context, id, customerID, code string) (*Quote, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.coupons.Evaluate(ctx, code, customerID, c.Subtotal(), c.Shipping(s.policy), s.now()); err != nil {
		return nil, err
	}
	c.CouponCode = models.NormalizeCode(code)
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.CartMutation("apply_coupon")
	return s.price(ctx, c, customerID)
}

func (s *CartService) RemoveCoupon(ctx context.Context, id string) (*cart.Cart, error) {
	return s.mutate(ctx, id, "remove_coupon", func(c *cart.Cart) error {
		c.CouponCode = ""
		return nil
	})
}

// Quote prices the cart for customerID.
func (s *CartService) Quote(ctx context.Context, id, customerID string) (*Quote, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, c, customerID)
}

// price picks the larger of the best discount and the cart's coupon; promotions never
// stack. A coupon that stopped being valid is reported in CouponMessage, not as an error.
func (s *CartService) price(ctx context.Context, c *cart.Cart, customerID string) (*Quote, error) {
	subtotal := c.Subtotal()
	shipping := c.Shipping(s.policy)
	q := &Quote{Cart: c}

	var best *models.AppliedDiscount
	if !c.IsEmpty() && s.discounts != nil {
		candidates, err := s.discounts.Applicable(ctx, c.Items, shipping)
		if err != nil {
			return nil, err
		}
		if d, ok := promo.Best(candidates); ok {
			best = &d
		}
	}

	if c.CouponCode != "" {
		applied, err := s.coupons.Evaluate(ctx, c.CouponCode, customerID, subtotal, shipping, s.now())
		var ce *promo.CouponError
		switch {
		case errors.As(err, &ce):
			q.CouponMessage = ce.Error()
		case err != nil:
			return nil, err
		case best == nil || !applied.Amount.LessThan(best.Amount):
			best = &applied
		}
	}

	discount := decimal.Zero
	if best != nil {
		discount = best.Amount
	}
	q.Applied = best
	q.Summary = c.Summary(s.policy, discount)
	q.Display = s.display(q.Summary)
	return q, nil
}

func (s *CartService) display(sum pricing.Summary) map[string]string {
	format := pricing.FormatCurrency
	if s.formatter != nil {
		format = s.formatter.Format
	}
	return map[string]string{
		"subtotal": format(sum.Subtotal),
		"shipping": format(sum.Shipping),
		"tax":      format(sum.Tax),
		"discount": format(sum.Discount),
		"total":    format(sum.Total),
	}
}

func (s *CartService) mutate(ctx context.Context, id, op string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.CartMutation(op)
	return c, nil
}

func (s *CartService) load(ctx context.Context, id string) (*cart.Cart, error) {
	c, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", id, err)
	}
	return c, nil
}
