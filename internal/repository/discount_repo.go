package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

// DiscountRepo stores code-less promotions and the products they are scoped to.
type DiscountRepo struct {
	db *sql.DB
}

func NewDiscountRepo(db *sql.DB) *DiscountRepo {
	return &DiscountRepo{db: db}
}

func (r *DiscountRepo) List(ctx context.Context) ([]models.Discount, error) {
	query := `
		SELECT d.id, d.name, d.type, d.value, d.buy_quantity, d.get_quantity,
		       d.start_date, d.end_date, d.is_active, d.usage_count,
		       COALESCE(array_agg(dp.product_id) FILTER (WHERE dp.product_id IS NOT NULL), '{}'),
		       d.created_at, d.updated_at
		FROM discounts d
		LEFT JOIN discount_products dp ON dp.discount_id = d.id
		GROUP BY d.id
		ORDER BY d.id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	discounts := []models.Discount{}
	for rows.Next() {
		var (
			d        models.Discount
			typ      string
			buy, get sql.NullInt64
			end      sql.NullTime
			products pq.StringArray
		)
		if err := rows.Scan(
			&d.ID,
			&d.Name,
			&typ,
			&d.Value,
			&buy,
			&get,
			&d.StartDate,
			&end,
			&d.IsActive,
			&d.UsageCount,
			&products,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		d.Type = models.DiscountType(typ)
		d.BuyQuantity = intPtr(buy)
		d.GetQuantity = intPtr(get)
		if end.Valid {
			t := end.Time
			d.EndDate = &t
		}
		if len(products) > 0 {
			d.ProductIDs = []string(products)
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

// Create inserts the discount and its product scope in one transaction.
func (r *DiscountRepo) Create(ctx context.Context, d *models.Discount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	insert := `
		INSERT INTO discounts
		(name, type, value, buy_quantity, get_quantity, start_date, end_date, is_active, usage_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`
	var end sql.NullTime
	if d.EndDate != nil {
		end = sql.NullTime{Time: *d.EndDate, Valid: true}
	}
	err = tx.QueryRowContext(ctx, insert,
		d.Name,
		string(d.Type),
		d.Value,
		nullInt(d.BuyQuantity),
		nullInt(d.GetQuantity),
		d.StartDate,
		end,
		d.IsActive,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create discount: %w", err)
	}

	if len(d.ProductIDs) > 0 {
		stmt := `INSERT INTO discount_products (discount_id, product_id) VALUES ($1, $2)`
		for _, pid := range d.ProductIDs {
			if _, err := tx.ExecContext(ctx, stmt, d.ID, pid); err != nil {
				return fmt.Errorf("create discount product %s: %w", pid, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit discount: %w", err)
	}
	committed = true
	d.UsageCount = 0
	return nil
}

// IncrementUsage records one checkout that used the discount.
func (r *DiscountRepo) IncrementUsage(ctx context.Context, tx *sql.Tx, discountID int64) error {
	query := `UPDATE discounts SET usage_count = usage_count + 1, updated_at = NOW() WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, discountID); err != nil {
		return fmt.Errorf("increment discount usage: %w", err)
	}
	return nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
