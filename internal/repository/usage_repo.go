package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UsageRepo tracks how many times each customer redeemed each coupon.
type UsageRepo struct {
	db *sql.DB
}

func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// GetUsage is a non-locking read for previews; a missing row means zero.
func (r *UsageRepo) GetUsage(ctx context.Context, couponID int64, customerID string) (int, error) {
	query := `SELECT usage_count FROM coupon_usage WHERE coupon_id = $1 AND customer_id = $2`

	var usageCount int
	err := r.db.QueryRowContext(ctx, query, couponID, customerID).Scan(&usageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get usage: %w", err)
	}
	return usageCount, nil
}

// Get or create usage row AND lock it for update
func (r *UsageRepo) GetAndLockUsage(ctx context.Context, tx *sql.Tx, couponID int64, customerID string) (int, error) {
	var usageCount int

	query := `
		SELECT usage_count
		FROM coupon_usage
		WHERE coupon_id = $1 AND customer_id = $2
		FOR UPDATE
	`

	err := tx.QueryRowContext(ctx, query, couponID, customerID).Scan(&usageCount)
	if err == nil {
		return usageCount, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lock usage: %w", err)
	}

	insert := `
		INSERT INTO coupon_usage (coupon_id, customer_id, usage_count, last_used)
		VALUES ($1, $2, 0, NOW())
		RETURNING usage_count
	`
	if err := tx.QueryRowContext(ctx, insert, couponID, customerID).Scan(&usageCount); err != nil {
		return 0, fmt.Errorf("create usage: %w", err)
	}
	return usageCount, nil
}

// Increment usage safely inside transaction
func (r *UsageRepo) IncrementUsage(ctx context.Context, tx *sql.Tx, couponID int64, customerID string) error {
	query := `
		UPDATE coupon_usage
		SET usage_count = usage_count + 1,
		    last_used = $3
		WHERE coupon_id = $1 AND customer_id = $2
	`

	if _, err := tx.ExecContext(ctx, query, couponID, customerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}
