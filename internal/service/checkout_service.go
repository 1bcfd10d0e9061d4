package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/events"
	"github.com/Cheertaboi/storefront-pricing/internal/metrics"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
)

var ErrEmptyCart = errors.New("cart is empty")

// TxBeginner is satisfied by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OrderRepo interface {
	Create(ctx context.Context, tx *sql.Tx, o *models.Order) error
}

// CheckoutService turns a cart into an order. It is the only place usage counters
// are written.
type CheckoutService struct {
	db        TxBeginner
	carts     *CartService
	coupons   *CouponService
	discounts *DiscountService
	orders    OrderRepo
	publisher events.Publisher
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewCheckoutService(db TxBeginner, carts *CartService, coupons *CouponService, discounts *DiscountService,
	orders OrderRepo, publisher events.Publisher, log *zap.Logger, m *metrics.Metrics) *CheckoutService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutService{
		db:        db,
		carts:     carts,
		coupons:   coupons,
		discounts: discounts,
		orders:    orders,
		publisher: publisher,
		log:       log,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Checkout prices the cart, redeems the chosen promotion and writes the order in one
// serializable transaction. The event and the cart reset happen after commit and only
// log on failure.
func (s *CheckoutService) Checkout(ctx context.Context, cartID, customerID string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	unlock := s.carts.locks.Lock(cartID)
	defer unlock()

	order, err := s.commit(ctx, cartID, customerID)
	if err != nil {
		var ce *promo.CouponError
		switch {
		case errors.As(err, &ce):
			s.metrics.Checkout("coupon_rejected")
		case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrCartNotFound):
			s.metrics.Checkout("rejected")
		default:
			s.metrics.Checkout("error")
		}
		return nil, err
	}
	s.metrics.Checkout("ok")

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, order.ID, events.NewOrderCommitted(order)); err != nil {
			s.log.Warn("publish order event failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	c, err := s.carts.load(ctx, cartID)
	if err == nil {
		c.Clear()
		c.CouponCode = ""
		err = s.carts.store.Save(ctx, c)
	}
	if err != nil {
		s.log.Warn("reset cart after checkout failed", zap.String("cart_id", cartID), zap.Error(err))
	}

	s.log.Info("order committed",
		zap.String("order_id", order.ID),
		zap.String("cart_id", cartID),
		zap.String("total", order.Total.String()),
	)
	return order, nil
}

func (s *CheckoutService) commit(ctx context.Context, cartID, customerID string) (*models.Order, error) {
	c, err := s.carts.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	quote, err := s.carts.price(ctx, c, customerID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	// ensure rollback on any exit
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	subtotal := c.Subtotal()
	shipping := c.Shipping(s.carts.policy)

	var applied *models.AppliedDiscount
	if quote.Applied != nil {
		a := *quote.Applied
		switch a.Source {
		case models.SourceCoupon:
			a, err = s.coupons.Redeem(ctx, tx, a.Code, customerID, subtotal, shipping)
			if err != nil {
				return nil, err
			}
		case models.SourceDiscount:
			if err := s.discounts.recordUsage(ctx, tx, a.DiscountID); err != nil {
				return nil, err
			}
		}
		applied = &a
	}

	discount := quote.Summary.Discount
	if applied != nil {
		discount = applied.Amount
	}
	summary := c.Summary(s.carts.policy, discount)

	order := &models.Order{
		ID:         uuid.NewString(),
		CartID:     c.ID,
		CustomerID: customerID,
		Items:      c.Clone().Items,
		Subtotal:   summary.Subtotal,
		Shipping:   summary.Shipping,
		Tax:        summary.Tax,
		Discount:   summary.Discount,
		Total:      summary.Total,
		Applied:    applied,
		CreatedAt:  s.now(),
	}
	if err := s.orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return order, nil
}
