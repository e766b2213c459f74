package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mittag-dabbas/checkout-service/internal/service"
	"golang.org/x/time/rate"
)

// NewRouter wires the full HTTP surface. The webhook route skips the
// identity middleware: the provider authenticates with its signature,
// not a user header.
func NewRouter(store CartStore, svc service.CheckoutService, requestTimeout time.Duration) http.Handler {
	cartHandler := NewCartHandler(store, requestTimeout)
	checkoutHandler := NewCheckoutHandler(svc, requestTimeout)
	webhookHandler := NewWebhookHandler(svc, requestTimeout)
	limiter := NewRateLimiter(rate.Limit(10), 30, 3*time.Minute)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(limiter.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhooks/payment", webhookHandler.HandleEvent)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Put("/days/{day}", cartHandler.SetDay)
			r.Delete("/", cartHandler.ClearCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.InitiateCheckout)
			r.Get("/quote", checkoutHandler.Quote)
		})
	})

	return r
}
