package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
)

func TestOrderRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	o := &models.Order{
		ID:         "ord-1",
		CartID:     "cart-1",
		CustomerID: "cust-1",
		Items: []models.LineItem{
			{ProductID: "TEE", Name: "Tee", UnitPrice: decimal.NewFromInt(500), Quantity: 2, Size: "M"},
		},
		Subtotal:  decimal.NewFromInt(1000),
		Tax:       decimal.NewFromInt(100),
		Discount:  decimal.NewFromInt(200),
		Total:     decimal.NewFromInt(900),
		Applied:   &models.AppliedDiscount{Source: models.SourceCoupon, Code: "SAVE20"},
		CreatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs("ord-1", "cart-1", "cust-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), "SAVE20", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs("ord-1", "TEE", "Tee", sqlmock.AnyArg(), 2, "M", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, NewOrderRepo(db).Create(context.Background(), tx, o))
	require.NoError(t, tx.Commit())
}
