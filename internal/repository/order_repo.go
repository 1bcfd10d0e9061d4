package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create writes the order header and its lines inside the caller's transaction.
func (r *OrderRepo) Create(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	var (
		couponCode sql.NullString
		discountID sql.NullInt64
	)
	if o.Applied != nil {
		switch o.Applied.Source {
		case models.SourceCoupon:
			couponCode = sql.NullString{String: o.Applied.Code, Valid: true}
		case models.SourceDiscount:
			discountID = sql.NullInt64{Int64: o.Applied.DiscountID, Valid: true}
		}
	}

	insert := `
		INSERT INTO orders
		(id, cart_id, customer_id, subtotal, shipping, tax, discount, total, coupon_code, discount_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	_, err := tx.ExecContext(ctx, insert,
		o.ID,
		o.CartID,
		o.CustomerID,
		o.Subtotal,
		o.Shipping,
		o.Tax,
		o.Discount,
		o.Total,
		couponCode,
		discountID,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	line := `
		INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, size, color)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	for _, it := range o.Items {
		if _, err := tx.ExecContext(ctx, line, o.ID, it.ProductID, it.Name, it.UnitPrice, it.Quantity, it.Size, it.Color); err != nil {
			return fmt.Errorf("create order item %s: %w", it.ProductID, err)
		}
	}
	return nil
}
