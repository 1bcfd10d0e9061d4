package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
	"github.com/Cheertaboi/storefront-pricing/internal/service"
)

type DiscountService interface {
	Create(ctx context.Context, d *models.Discount) error
	List(ctx context.Context) ([]models.DiscountView, error)
	Applicable(ctx context.Context, items []models.LineItem, shipping decimal.Decimal) ([]models.AppliedDiscount, error)
	Preview(d models.Discount, items []models.LineItem, shipping decimal.Decimal) (service.DiscountPreview, error)
}

type CreateDiscountRequest struct {
	Name        string          `json:"name" validate:"required,max=128"`
	Type        string          `json:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT BUY_X_GET_Y FREE_SHIPPING"`
	Value       decimal.Decimal `json:"value"`
	BuyQuantity *int            `json:"buy_quantity"`
	GetQuantity *int            `json:"get_quantity"`
	StartDate   time.Time       `json:"start_date" validate:"required"`
	EndDate     *time.Time      `json:"end_date"`
	IsActive    *bool           `json:"is_active"`
	ProductIDs  []string        `json:"product_ids" validate:"dive,required"`
}

func (b CreateDiscountRequest) discount() models.Discount {
	active := true
	if b.IsActive != nil {
		active = *b.IsActive
	}
	return models.Discount{
		Name:        b.Name,
		Type:        models.DiscountType(b.Type),
		Value:       b.Value,
		BuyQuantity: b.BuyQuantity,
		GetQuantity: b.GetQuantity,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		IsActive:    active,
		ProductIDs:  b.ProductIDs,
	}
}

type PreviewDiscountRequest struct {
	Discount CreateDiscountRequest `json:"discount"`
	Order    orderBody             `json:"order"`
}

type DiscountHandler struct {
	service DiscountService
	policy  pricing.Policy
	log     *zap.Logger
}

func NewDiscountHandler(svc DiscountService, policy pricing.Policy, log *zap.Logger) *DiscountHandler {
	return &DiscountHandler{service: svc, policy: policy, log: log}
}

// GetApplicableDiscounts handles POST /discounts/applicable
func (h *DiscountHandler) GetApplicableDiscounts(w http.ResponseWriter, r *http.Request) {
	var req orderBody
	if !decode(w, r, &req) {
		return
	}
	o, err := req.resolve()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	applicable, err := h.service.Applicable(r.Context(), o.items, h.shipping(req, o))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applicable_discounts": applicable})
}

// CreateDiscount handles POST /admin/discounts
func (h *DiscountHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscountRequest
	if !decode(w, r, &req) {
		return
	}
	d := req.discount()
	if err := h.service.Create(r.Context(), &d); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "discount_created",
		"discount": d,
	})
}

// ListDiscounts handles GET /admin/discounts
func (h *DiscountHandler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"discounts": views})
}

// PreviewDiscount handles POST /admin/discounts/preview
func (h *DiscountHandler) PreviewDiscount(w http.ResponseWriter, r *http.Request) {
	var req PreviewDiscountRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := req.Order.resolve()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	preview, err := h.service.Preview(req.Discount.discount(), o.items, h.shipping(req.Order, o))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *DiscountHandler) shipping(b orderBody, o order) decimal.Decimal {
	if b.Shipping != nil {
		return *b.Shipping
	}
	return h.policy.Shipping(o.itemCount, o.subtotal)
}
