package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wishlistToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_wishlist_toggles_total",
			Help: "Wishlist toggles by outcome",
		},
		[]string{"action", "status"},
	)

	viewsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_views_recorded_total",
			Help: "Product views recorded by write mode and outcome",
		},
		[]string{"mode", "status"},
	)

	compareRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_compare_rejections_total",
			Help: "Compare additions rejected by reason",
		},
		[]string{"reason"},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_sessions_active",
			Help: "Number of live storefront sessions",
		},
	)

	sessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_sessions_evicted_total",
			Help: "Sessions closed by the idle sweeper",
		},
	)
)
