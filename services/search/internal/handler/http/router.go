package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anitha-22/myecommerce/pkg/health"
	"github.com/Anitha-22/myecommerce/pkg/middleware"
)

const serviceName = "search"

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	AllowedOrigins []string
	// AdminCIDRs may call the reindex and profiling endpoints.
	AdminCIDRs     []string
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchHandler *SearchHandler,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.MountProfiler(r, cfg.AdminCIDRs, logger)

	r.Route("/api/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)

		r.Group(func(r chi.Router) {
			r.Use(middleware.IPAllowlist(cfg.AdminCIDRs, logger))
			r.Post("/reindex", searchHandler.Reindex)
			r.Get("/reindex", searchHandler.ReindexStatus)
		})
	})

	return r
}
