package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS coupons (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		value NUMERIC(12,2) NOT NULL CHECK (value > 0),
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		usage_count INTEGER NOT NULL DEFAULT 0,
		customer_usage_limit INTEGER,
		is_one_time_use BOOLEAN NOT NULL DEFAULT FALSE,
		minimum_purchase_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS coupon_usage (
		coupon_id BIGINT NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
		customer_id TEXT NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (coupon_id, customer_id)
	)`,
	`CREATE TABLE IF NOT EXISTS discounts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		value NUMERIC(12,2) NOT NULL CHECK (value > 0),
		buy_quantity INTEGER,
		get_quantity INTEGER,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS discount_products (
		discount_id BIGINT NOT NULL REFERENCES discounts(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		PRIMARY KEY (discount_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		cart_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		subtotal NUMERIC(12,2) NOT NULL,
		shipping NUMERIC(12,2) NOT NULL,
		tax NUMERIC(12,2) NOT NULL,
		discount NUMERIC(12,2) NOT NULL,
		total NUMERIC(12,2) NOT NULL,
		coupon_code TEXT,
		discount_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		unit_price NUMERIC(12,2) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		size TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema creates the service's tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
