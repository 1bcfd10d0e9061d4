package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

const couponColumns = `id, code, type, value, start_date, end_date, is_active, usage_count,
	customer_usage_limit, is_one_time_use, minimum_purchase_amount, created_at, updated_at`

type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var (
		c     models.Coupon
		typ   string
		end   sql.NullTime
		limit sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&typ,
		&c.Value,
		&c.StartDate,
		&end,
		&c.IsActive,
		&c.UsageCount,
		&limit,
		&c.IsOneTimeUse,
		&c.MinimumPurchaseAmount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Type = models.CouponType(typ)
	if end.Valid {
		t := end.Time
		c.EndDate = &t
	}
	c.CustomerUsageLimit = intPtr(limit)
	return &c, nil
}

// GetByCode returns (nil, nil) when no coupon has the code.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, models.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon %s: %w", code, err)
	}
	return c, nil
}

func (r *CouponRepo) List(ctx context.Context) ([]models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// Create inserts c and fills in its id and timestamps.
func (r *CouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	query := `
		INSERT INTO coupons
		(code, type, value, start_date, end_date, is_active, usage_count,
		 customer_usage_limit, is_one_time_use, minimum_purchase_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,$7,$8,$9,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`
	var end sql.NullTime
	if c.EndDate != nil {
		end = sql.NullTime{Time: *c.EndDate, Valid: true}
	}

	c.Code = models.NormalizeCode(c.Code)
	err := r.db.QueryRowContext(ctx, query,
		c.Code,
		string(c.Type),
		c.Value,
		c.StartDate,
		end,
		c.IsActive,
		nullInt(c.CustomerUsageLimit),
		c.IsOneTimeUse,
		c.MinimumPurchaseAmount,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, c.Code)
		}
		return fmt.Errorf("create coupon: %w", err)
	}
	c.UsageCount = 0
	return nil
}

// SetActive flips the manual kill switch.
func (r *CouponRepo) SetActive(ctx context.Context, code string, active bool) error {
	query := `UPDATE coupons SET is_active = $2, updated_at = NOW() WHERE code = $1`

	res, err := r.db.ExecContext(ctx, query, models.NormalizeCode(code), active)
	if err != nil {
		return fmt.Errorf("set coupon active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set coupon active: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUsage bumps the global redemption counter inside the checkout transaction.
func (r *CouponRepo) IncrementUsage(ctx context.Context, tx *sql.Tx, couponID int64) error {
	query := `UPDATE coupons SET usage_count = usage_count + 1, updated_at = NOW() WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, couponID); err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return nil
}
