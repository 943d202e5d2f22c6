package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-cart/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-cart/api/controllers/cart"
	"github.com/angelmondragon/storefront-cart/api/middleware"
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps collects the collaborators the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Cart        cart.Service
	RateLimiter rateLimiter
	Gatherer    prometheus.Gatherer
	Readiness   map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	discountPolicy := middleware.NewRateLimitPolicy(
		"discount",
		cfg.RateLimit.DiscountWindow,
		cfg.RateLimit.DiscountLimit,
		cfg.RateLimit.DiscountIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.CartSession(logg))

		r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
		r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
		r.Get("/checkout", cartcontrollers.CartCheckout(deps.Cart, logg))

		r.Route("/items", func(r chi.Router) {
			r.Post("/", cartcontrollers.CartAddItem(deps.Cart, logg))
			r.Patch("/{productId}/{variantId}", cartcontrollers.CartUpdateQuantity(deps.Cart, logg))
			r.Delete("/{productId}/{variantId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
			r.Get("/{productId}/{variantId}/quantity", cartcontrollers.CartItemQuantity(deps.Cart, logg))
		})

		r.Route("/discounts", func(r chi.Router) {
			r.With(middleware.DiscountRateLimit(discountPolicy, deps.RateLimiter, logg)).
				Post("/", cartcontrollers.CartApplyDiscount(deps.Cart, logg))
			r.Delete("/{discountId}", cartcontrollers.CartRemoveDiscount(deps.Cart, logg))
		})
	})

	return r
}
