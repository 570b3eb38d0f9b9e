// Package metrics provides Prometheus metrics for road scoring and crawling.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roadcrawl"

var (
	// PlacesRequestsTotal tracks Places API requests by tier and outcome.
	PlacesRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "places",
			Name:      "requests_total",
			Help:      "Total number of Places API requests by tier and status",
		},
		[]string{"tier", "status"},
	)

	// PlacesRequestDuration tracks Places API latency.
	PlacesRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "places",
			Name:      "request_duration_seconds",
			Help:      "Duration of Places API requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tier"},
	)

	// DailyCapRejections counts requests refused by the daily cap.
	DailyCapRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "daily_cap_rejections_total",
			Help:      "Total number of Places requests refused by the daily cap",
		},
	)

	// RateLimitWaitTime tracks time spent waiting on the token bucket.
	RateLimitWaitTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the Places rate limiter in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
	)

	// PlacesSpendUSD is the estimated Places spend over the monitoring
	// lookback window.
	PlacesSpendUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "places",
			Name:      "spend_usd",
			Help:      "Estimated Places spend in USD over the monitoring lookback window",
		},
	)

	// PlacesBudgetUsage is the fraction of today's daily cap consumed.
	PlacesBudgetUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "places",
			Name:      "daily_budget_usage_ratio",
			Help:      "Fraction of the Places daily cap used today",
		},
	)

	// CrawlSessionsTotal tracks finished crawl sessions by status.
	CrawlSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "sessions_total",
			Help:      "Total number of crawl sessions by terminal status",
		},
		[]string{"mode", "status"},
	)

	// BusinessesReconciled tracks reconciliation outcomes.
	BusinessesReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "businesses_reconciled_total",
			Help:      "Total number of crawled businesses by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	// StatsRoadsTotal tracks roads processed by the stats rebuild.
	StatsRoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "roads_total",
			Help:      "Total number of roads processed by the stats rebuild",
		},
		[]string{"status"},
	)

	// StatsRebuildDuration tracks per-county rebuild time.
	StatsRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "county_duration_seconds",
			Help:      "Duration of a county stats rebuild in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	// ScoreCacheLookups tracks road score cache hits and misses.
	ScoreCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "score_lookups_total",
			Help:      "Total number of road score cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal tracks inbound API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
)

// RecordPlacesRequest records one Places API call.
func RecordPlacesRequest(tier, status string, d time.Duration) {
	PlacesRequestsTotal.WithLabelValues(tier, status).Inc()
	PlacesRequestDuration.WithLabelValues(tier).Observe(d.Seconds())
}

// RecordSession records a crawl session reaching a terminal status.
func RecordSession(mode, status string) {
	CrawlSessionsTotal.WithLabelValues(mode, status).Inc()
}

// RecordHTTPRequest records an inbound API request.
func RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
