package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
)

type DiscountRepo interface {
	List(ctx context.Context) ([]models.Discount, error)
	Create(ctx context.Context, d *models.Discount) error
	IncrementUsage(ctx context.Context, tx *sql.Tx, discountID int64) error
}

type DiscountService struct {
	repo DiscountRepo
	log  *zap.Logger
	now  func() time.Time
}

func NewDiscountService(repo DiscountRepo, log *zap.Logger) *DiscountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DiscountService{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *DiscountService) Create(ctx context.Context, d *models.Discount) error {
	if err := promo.ValidateDiscountDefinition(*d); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}
	s.log.Info("discount created", zap.Int64("id", d.ID), zap.String("type", string(d.Type)))
	return nil
}

func (s *DiscountService) List(ctx context.Context) ([]models.DiscountView, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	discounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	now := s.now()
	views := make([]models.DiscountView, 0, len(discounts))
	for _, d := range discounts {
		views = append(views, models.DiscountView{Discount: d, Status: promo.DiscountStatus(d, now)})
	}
	return views, nil
}

// Applicable evaluates every active discount against the items, best first.
func (s *DiscountService) Applicable(ctx context.Context, items []models.LineItem, shipping decimal.Decimal) ([]models.AppliedDiscount, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	discounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	return promo.ApplicableDiscounts(promo.OrderTarget(items, shipping), discounts, s.now()), nil
}

// DiscountPreview is the admin dry-run result for a discount that is not saved yet.
type DiscountPreview struct {
	Status  models.Status           `json:"status"`
	Applies bool                    `json:"applies"`
	Applied *models.AppliedDiscount `json:"applied,omitempty"`
}

// Preview evaluates d against the sample items regardless of its schedule, and reports
// the status it would have now.
func (s *DiscountService) Preview(d models.Discount, items []models.LineItem, shipping decimal.Decimal) (DiscountPreview, error) {
	if err := promo.ValidateDiscountDefinition(d); err != nil {
		return DiscountPreview{}, err
	}
	preview := DiscountPreview{Status: promo.DiscountStatus(d, s.now())}
	if applied, ok := promo.EvaluateDiscount(d, promo.OrderTarget(items, shipping)); ok {
		preview.Applies = true
		preview.Applied = &applied
	}
	return preview, nil
}

func (s *DiscountService) recordUsage(ctx context.Context, tx *sql.Tx, discountID int64) error {
	return s.repo.IncrementUsage(ctx, tx, discountID)
}
