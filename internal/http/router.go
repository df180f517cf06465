package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Cart     CartServicer
	Checkout OrdersServicer
	Loyalty  LoyaltyServicer
	Catalog  CatalogServicer
	DB       Pinger
	Metrics  http.Handler
	Log      *slog.Logger

	// RequestTimeout bounds every handler's call into the services.
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	log := cfg.Log.With("component", "http")

	cartHandler := NewCartHandler(cfg.Cart, log, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.Checkout, log, cfg.RequestTimeout)
	couponsHandler := NewCouponsHandler(cfg.Loyalty, log, cfg.RequestTimeout)
	productHandler := NewProductHandler(cfg.Catalog, log, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(AuthMiddleware)

	r.Get("/health", healthHandler(cfg.DB))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{product_id}", productHandler.GetProduct)
		r.Get("/coupons/options", couponsHandler.Options)
		r.Post("/orders/{order_id}/confirm", ordersHandler.ConfirmPayment)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})

			r.Post("/orders", ordersHandler.CreateOrder)
			r.Get("/orders", ordersHandler.ListOrders)
			r.Get("/orders/{order_id}", ordersHandler.GetOrder)

			r.Get("/coupons", couponsHandler.List)
			r.Post("/coupons/redeem", couponsHandler.Redeem)
			r.Get("/coupons/validate", couponsHandler.Validate)
			r.Get("/account", couponsHandler.Account)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Patch("/orders/{order_id}/status", ordersHandler.AdvanceStatus)
			r.Patch("/products/{product_id}", productHandler.UpdateProduct)
		})
	})

	return otelhttp.NewHandler(r, "lootkingdom-http")
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				respondError(w, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
