package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumiere",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lumiere",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	TMDBRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumiere",
		Name:      "tmdb_requests_total",
		Help:      "Total requests to the TMDB API by endpoint and result status.",
	}, []string{"endpoint", "status"})

	TMDBRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lumiere",
		Name:      "tmdb_request_duration_seconds",
		Help:      "TMDB API request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lumiere",
		Name:      "cache_hits_total",
		Help:      "Total number of metadata cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lumiere",
		Name:      "cache_misses_total",
		Help:      "Total number of metadata cache misses.",
	})

	SuggestLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumiere",
		Name:      "suggest_lookups_total",
		Help:      "Debounced search box lookups by outcome (applied, discarded, failed, cleared).",
	}, []string{"outcome"})

	TrendingFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumiere",
		Name:      "trending_fetches_total",
		Help:      "Trending fetches issued by search boxes by status.",
	}, []string{"status"})

	ChatResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumiere",
		Name:      "chat_title_resolutions_total",
		Help:      "Chat movie title resolutions by outcome (resolved, not_found, failed).",
	}, []string{"outcome"})

	ActiveSessions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lumiere",
		Name:      "active_sessions",
		Help:      "Open websocket sessions by kind.",
	}, []string{"kind"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TMDBRequestsTotal,
		TMDBRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		SuggestLookupsTotal,
		TrendingFetchesTotal,
		ChatResolutionsTotal,
		ActiveSessions,
	)
}
