package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/service"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/health"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/middleware"
)

// RouterConfig holds the optional parts of the HTTP surface.
type RouterConfig struct {
	ServiceName  string
	CORS         middleware.CORSConfig
	PprofEnabled bool
	PprofCIDRs   []string

	// CreateRPS and CreateBurst limit session creation per client IP.
	// Zero disables the limit.
	CreateRPS   float64
	CreateBurst int
}

// NewRouter creates a chi router with all storefront session routes registered.
func NewRouter(
	registry *service.Registry,
	catalog *service.Catalog,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	h := NewSessionHandler(registry, catalog, logger)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore)

		if cfg.CreateRPS > 0 {
			r.With(middleware.RateLimit(cfg.CreateRPS, cfg.CreateBurst, logger)).Post("/", h.CreateSession)
		} else {
			r.Post("/", h.CreateSession)
		}

		r.Route("/{sid}", func(r chi.Router) {
			r.Use(SessionResolver(registry, logger))

			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)

			r.Put("/identity", h.SignIn)
			r.Delete("/identity", h.SignOut)

			r.Get("/wishlist", h.ListWishlist)
			r.Get("/wishlist/{productId}", h.WishlistMembership)
			r.Post("/wishlist/{productId}", h.ToggleWishlist)

			r.Get("/compare", h.GetCompare)
			r.Post("/compare", h.AddCompareSnapshot)
			r.Delete("/compare", h.ClearCompare)
			r.Put("/compare/panel", h.SetComparePanel)
			r.Post("/compare/{productId}", h.AddCompare)
			r.Delete("/compare/{productId}", h.RemoveCompare)

			r.Post("/history/{productId}", h.RecordView)
			r.Get("/history/recent", h.RecentlyViewed)
			r.Get("/history/most-viewed", h.MostViewed)
			r.Get("/history/categories", h.PreferredCategories)

			r.Get("/notices", h.DrainNotices)
		})
	})

	return r
}
