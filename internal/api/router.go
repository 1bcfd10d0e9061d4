package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/api/handlers"
	"github.com/Cheertaboi/storefront-pricing/internal/api/middleware"
	"github.com/Cheertaboi/storefront-pricing/internal/metrics"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Coupons   handlers.CouponService
	Discounts handlers.DiscountService
	Carts     handlers.CartService
	Checkout  handlers.CheckoutService
	Policy    pricing.Policy
	Log       *zap.Logger
	Metrics   *metrics.Metrics

	// CatalogPriced lets cart items omit prices the catalog will resolve.
	CatalogPriced bool

	JWTSecret      []byte
	JWTIssuer      string
	RateLimitRPS   float64 // 0 disables
	RateLimitBurst int
}

// NewRouter builds the HTTP router for the pricing service
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log, d.Metrics))
	r.Use(chimw.Recoverer)

	couponHandler := handlers.NewCouponHandler(d.Coupons, d.Policy, log)
	discountHandler := handlers.NewDiscountHandler(d.Discounts, d.Policy, log)
	cartHandler := handlers.NewCartHandler(d.Carts, d.Checkout, d.CatalogPriced, log)

	// Public coupon endpoints
	r.Route("/coupons", func(r chi.Router) {
		if d.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(d.RateLimitRPS, d.RateLimitBurst))
		}
		r.Post("/applicable", couponHandler.GetApplicableCoupons)
		r.Post("/validate", couponHandler.ValidateCoupon)
	})

	r.Post("/discounts/applicable", discountHandler.GetApplicableDiscounts)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", cartHandler.CreateCart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items", cartHandler.UpdateItem)
			r.Delete("/items", cartHandler.RemoveItem)
			r.Put("/coupon", cartHandler.ApplyCoupon)
			r.Delete("/coupon", cartHandler.RemoveCoupon)
			r.Post("/checkout", cartHandler.Checkout)
		})
	})

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(d.JWTSecret, d.JWTIssuer, middleware.RoleAdmin))

		r.Get("/coupons", couponHandler.ListCoupons)
		r.Post("/coupons", couponHandler.CreateCoupon)
		r.Post("/coupons/preview", couponHandler.PreviewCoupon)
		r.Patch("/coupons/{code}", couponHandler.SetActive)

		r.Get("/discounts", discountHandler.ListDiscounts)
		r.Post("/discounts", discountHandler.CreateDiscount)
		r.Post("/discounts/preview", discountHandler.PreviewDiscount)
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
