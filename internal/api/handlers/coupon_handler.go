package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
	"github.com/Cheertaboi/storefront-pricing/internal/service"
)

type CouponService interface {
	Validate(ctx context.Context, req models.ValidationRequest) (models.ValidationResponse, error)
	Applicable(ctx context.Context, req service.ApplicableRequest) ([]models.AppliedDiscount, error)
	Preview(c models.Coupon, oc promo.OrderContext) (models.ValidationResponse, error)
	Create(ctx context.Context, c *models.Coupon) error
	List(ctx context.Context) ([]models.CouponView, error)
	SetActive(ctx context.Context, code string, active bool) error
}

// --- Request / Response DTOs ---

type ValidateRequestBody struct {
	orderBody
	CouponCode string `json:"coupon_code" validate:"required"`
}

type ApplicableResponse struct {
	ApplicableCoupons []models.AppliedDiscount `json:"applicable_coupons"`
}

type CreateCouponRequest struct {
	Code                  string          `json:"code" validate:"required,max=64"`
	Type                  string          `json:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	Value                 decimal.Decimal `json:"value"`
	StartDate             time.Time       `json:"start_date" validate:"required"`
	EndDate               *time.Time      `json:"end_date"`
	IsActive              *bool           `json:"is_active"`
	CustomerUsageLimit    *int            `json:"customer_usage_limit" validate:"omitempty,gte=1"`
	IsOneTimeUse          bool            `json:"is_one_time_use"`
	MinimumPurchaseAmount decimal.Decimal `json:"minimum_purchase_amount"`
}

func (b CreateCouponRequest) coupon() models.Coupon {
	active := true
	if b.IsActive != nil {
		active = *b.IsActive
	}
	return models.Coupon{
		Code:                  b.Code,
		Type:                  models.CouponType(b.Type),
		Value:                 b.Value,
		StartDate:             b.StartDate,
		EndDate:               b.EndDate,
		IsActive:              active,
		CustomerUsageLimit:    b.CustomerUsageLimit,
		IsOneTimeUse:          b.IsOneTimeUse,
		MinimumPurchaseAmount: b.MinimumPurchaseAmount,
	}
}

type PreviewCouponRequest struct {
	Coupon CreateCouponRequest `json:"coupon"`
	Order  orderBody           `json:"order"`
	// PriorUsage simulates the customer's earlier redemptions.
	PriorUsage int `json:"prior_usage" validate:"gte=0"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// --- Handler struct & constructor ---

type CouponHandler struct {
	service CouponService
	policy  pricing.Policy
	log     *zap.Logger
}

func NewCouponHandler(svc CouponService, policy pricing.Policy, log *zap.Logger) *CouponHandler {
	return &CouponHandler{service: svc, policy: policy, log: log}
}

// --- Handlers ---

// ValidateCoupon handles POST /coupons/validate
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequestBody
	if !decode(w, r, &req) {
		return
	}
	o, err := req.resolve()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	resp, err := h.service.Validate(r.Context(), models.ValidationRequest{
		CustomerID: req.CustomerID,
		CouponCode: req.CouponCode,
		Subtotal:   o.subtotal,
		Shipping:   req.Shipping,
		ItemCount:  o.itemCount,
		Now:        req.Timestamp,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	// Rejections are an answer, not a failure.
	writeJSON(w, http.StatusOK, resp)
}

// GetApplicableCoupons handles POST /coupons/applicable
func (h *CouponHandler) GetApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	var req orderBody
	if !decode(w, r, &req) {
		return
	}
	o, err := req.resolve()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	applicable, err := h.service.Applicable(r.Context(), service.ApplicableRequest{
		CustomerID: req.CustomerID,
		Subtotal:   o.subtotal,
		Shipping:   req.Shipping,
		ItemCount:  o.itemCount,
		Now:        req.Timestamp,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplicableResponse{ApplicableCoupons: applicable})
}

// CreateCoupon handles POST /admin/coupons
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if !decode(w, r, &req) {
		return
	}
	c := req.coupon()
	if err := h.service.Create(r.Context(), &c); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "coupon_created",
		"coupon":  c,
	})
}

// ListCoupons handles GET /admin/coupons
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupons": views})
}

// SetActive handles PATCH /admin/coupons/{code}
func (h *CouponHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if !decode(w, r, &req) {
		return
	}
	code := models.NormalizeCode(chi.URLParam(r, "code"))
	if err := h.service.SetActive(r.Context(), code, *req.IsActive); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code, "is_active": *req.IsActive})
}

// PreviewCoupon handles POST /admin/coupons/preview. Nothing is stored.
func (h *CouponHandler) PreviewCoupon(w http.ResponseWriter, r *http.Request) {
	var req PreviewCouponRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := req.Order.resolve()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	oc := promo.OrderContext{
		Subtotal:                o.subtotal,
		Shipping:                h.policy.Shipping(o.itemCount, o.subtotal),
		CustomerID:              req.Order.CustomerID,
		CustomerPriorUsageCount: req.PriorUsage,
	}
	if req.Order.Shipping != nil {
		oc.Shipping = *req.Order.Shipping
	}
	if req.Order.Timestamp != nil {
		oc.Now = *req.Order.Timestamp
	}

	resp, err := h.service.Preview(req.Coupon.coupon(), oc)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
