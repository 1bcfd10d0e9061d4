package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/backend"
	"github.com/Cheertaboi/storefront-pricing/internal/cart"
	"github.com/Cheertaboi/storefront-pricing/internal/models"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
	"github.com/Cheertaboi/storefront-pricing/internal/promo"
	"github.com/Cheertaboi/storefront-pricing/internal/repository"
	"github.com/Cheertaboi/storefront-pricing/internal/service"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports field errors by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst and runs its validate tags. It writes the 400
// itself and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body", "detail": err.Error()})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation_failed", "fields": fieldErrors(err)})
		return false
	}
	return true
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		out[key] = fe.Tag()
	}
	return out
}

// writeError maps domain errors to status codes; anything unknown is a logged 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		couponErr *promo.CouponError
		defErr    *promo.DefinitionError
		parseErr  *pricing.ParseError
		schemaErr *backend.SchemaError
	)
	switch {
	case errors.As(err, &couponErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   couponErr.Reason(),
			"message": couponErr.Error(),
			"details": couponErr.Details(),
		})
	case errors.As(err, &defErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid_definition", "field": defErr.Field, "reason": defErr.Reason,
		})
	case errors.As(err, &parseErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_amount", "input": parseErr.Input})
	case errors.Is(err, pricing.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_amount", "detail": err.Error()})
	case errors.As(err, &schemaErr):
		log.Warn("catalog schema mismatch", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "catalog_schema_mismatch"})
	case errors.Is(err, service.ErrCartNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart_not_found"})
	case errors.Is(err, backend.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product_not_found"})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_quantity", "detail": err.Error()})
	case errors.Is(err, cart.ErrInvalidItem):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_item", "detail": err.Error()})
	case errors.Is(err, service.ErrEmptyCart):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "empty_cart"})
	case errors.Is(err, service.ErrOutOfStock):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "out_of_stock"})
	case errors.Is(err, repository.ErrDuplicateCode):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "duplicate_code"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "timeout"})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}

// itemBody is a line item as sent by a storefront. Price is a display string such as
// "₹30,000" or "499.00".
type itemBody struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Image     string `json:"image"`
}

// lineItem parses the price. A blank price is allowed only when catalogPriced is set,
// since the catalog then overwrites it; otherwise it fails like any bad amount.
func (b itemBody) lineItem(catalogPriced bool) (models.LineItem, error) {
	price := decimal.Zero
	if !catalogPriced || strings.TrimSpace(b.Price) != "" {
		p, err := pricing.ParseAmount(b.Price)
		if err != nil {
			return models.LineItem{}, err
		}
		price = p
	}
	return models.LineItem{
		ProductID: b.ProductID,
		Name:      b.Name,
		UnitPrice: price,
		Quantity:  b.Quantity,
		Size:      b.Size,
		Color:     b.Color,
		Image:     b.Image,
	}, nil
}

// orderBody describes an order either by its items or by a bare subtotal.
type orderBody struct {
	CustomerID string           `json:"customer_id"`
	Items      []itemBody       `json:"items" validate:"dive"`
	Subtotal   *decimal.Decimal `json:"subtotal"`
	ItemCount  *int             `json:"item_count" validate:"omitempty,gte=0"`
	Shipping   *decimal.Decimal `json:"shipping"`
	Timestamp  *time.Time       `json:"timestamp"`
}

type order struct {
	items     []models.LineItem
	subtotal  decimal.Decimal
	itemCount int
}

func (b orderBody) resolve() (order, error) {
	var o order
	for _, ib := range b.Items {
		li, err := ib.lineItem(false)
		if err != nil {
			return order{}, err
		}
		o.items = append(o.items, li)
		o.subtotal = o.subtotal.Add(li.LineTotal())
		o.itemCount += li.Quantity
	}
	if b.Subtotal != nil {
		if b.Subtotal.IsNegative() {
			return order{}, fmt.Errorf("%w: subtotal must not be negative", pricing.ErrInvalidAmount)
		}
		o.subtotal = *b.Subtotal
		// A bare positive subtotal still has something to ship.
		if len(b.Items) == 0 && o.subtotal.IsPositive() {
			o.itemCount = 1
		}
	}
	if b.ItemCount != nil {
		o.itemCount = *b.ItemCount
	}
	if b.Shipping != nil && b.Shipping.IsNegative() {
		return order{}, fmt.Errorf("%w: shipping must not be negative", pricing.ErrInvalidAmount)
	}
	return o, nil
}
