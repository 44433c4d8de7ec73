package http

import (
	"net/http"
	"time"

	"github.com/SN7k/Flexova/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

type RouterConfig struct {
	Cart           *CartHandler
	Products       *ProductHandler
	JWTSecret      []byte
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// NewRouter wires the storefront API. The returned handler is instrumented
// with OpenTelemetry.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			cfg.Products.Routes(r)
			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(cfg.JWTSecret), RequireAdmin)
				cfg.Products.AdminRoutes(r)
			})
		})
		r.Route("/cart", func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret))
			cfg.Cart.Routes(r)
		})
	})

	return otelhttp.NewHandler(r, "flexova-api")
}
