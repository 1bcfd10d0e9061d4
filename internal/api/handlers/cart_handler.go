package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/cart"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/service"
)

type CartService interface {
	Create(ctx context.Context) (*cart.Cart, error)
	AddItem(ctx context.Context, id string, item models.LineItem) (*cart.Cart, error)
	RemoveItem(ctx context.Context, id string, key models.ItemKey) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, id string, key models.ItemKey, quantity int) (*cart.Cart, error)
	Clear(ctx context.Context, id string) (*cart.Cart, error)
	ApplyCoupon(ctx context.Context, id, customerID, code string) (*service.Quote, error)
	RemoveCoupon(ctx context.Context, id string) (*cart.Cart, error)
	Quote(ctx context.Context, id, customerID string) (*service.Quote, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, cartID, customerID string) (*models.Order, error)
}

type UpdateQuantityRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type ApplyCouponRequest struct {
	Code       string `json:"code" validate:"required"`
	CustomerID string `json:"customer_id"`
}

type CheckoutRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

type CartHandler struct {
	carts    CartService
	checkout CheckoutService
	log      *zap.Logger

	// catalogPriced is set when a catalog client resolves item prices on add.
	catalogPriced bool
}

func NewCartHandler(carts CartService, checkout CheckoutService, catalogPriced bool, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, checkout: checkout, catalogPriced: catalogPriced, log: log}
}

// CreateCart handles POST /carts
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Create(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondQuote(w, r, http.StatusCreated, c.ID)
}

// GetCart handles GET /carts/{id}?customer_id=
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondQuote(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

// AddItem handles POST /carts/{id}/items. Without a catalog the price is required.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemBody
	if !decode(w, r, &req) {
		return
	}
	item, err := req.lineItem(h.catalogPriced)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*cart.Cart, error) {
		return h.carts.AddItem(ctx, id, item)
	})
}

// UpdateItem handles PUT /carts/{id}/items. A quantity of zero or less removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !decode(w, r, &req) {
		return
	}
	key := models.ItemKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	h.mutate(w, r, func(ctx context.Context, id string) (*cart.Cart, error) {
		return h.carts.UpdateQuantity(ctx, id, key, req.Quantity)
	})
}

// RemoveItem handles DELETE /carts/{id}/items?product_id=&size=&color=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := models.ItemKey{ProductID: q.Get("product_id"), Size: q.Get("size"), Color: q.Get("color")}
	if key.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation_failed", "fields": map[string]string{"product_id": "required"}})
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*cart.Cart, error) {
		return h.carts.RemoveItem(ctx, id, key)
	})
}

// ClearCart handles DELETE /carts/{id}
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.carts.Clear)
}

// ApplyCoupon handles PUT /carts/{id}/coupon. An invalid code leaves the cart unchanged
// and answers 422 with the rejection reason.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponRequest
	if !decode(w, r, &req) {
		return
	}
	quote, err := h.carts.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), req.CustomerID, req.Code)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// RemoveCoupon handles DELETE /carts/{id}/coupon
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.carts.RemoveCoupon)
}

// Checkout handles POST /carts/{id}/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.checkout.Checkout(r.Context(), chi.URLParam(r, "id"), req.CustomerID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// mutate runs fn against the cart in the URL and answers with the re-priced cart.
func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*cart.Cart, error)) {
	id := chi.URLParam(r, "id")
	if _, err := fn(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondQuote(w, r, http.StatusOK, id)
}

func (h *CartHandler) respondQuote(w http.ResponseWriter, r *http.Request, code int, id string) {
	quote, err := h.carts.Quote(r.Context(), id, r.URL.Query().Get("customer_id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, code, quote)
}
