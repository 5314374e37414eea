// Package middleware contains the Gin middleware shared by the HTTP layer.
//
// This file holds the Prometheus instrumentation. Metrics() covers generic
// HTTP traffic (counts, latency, in-flight, response sizes) with the route
// template as the path label to keep cardinality bounded. On top of that
// sit the business counters the dashboards actually page on: payment
// outcomes, entitlement writes, and download resolutions.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is omitted here to keep histogram cardinality low.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
			},
		},
		[]string{"method", "path"},
	)

	// paymentOutcomes counts terminal checkout results by provider status
	// (succeeded, failed, canceled) plus "declined" for card declines.
	paymentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsstand_payment_outcomes_total",
			Help: "Terminal payment confirmation outcomes.",
		},
		[]string{"outcome"},
	)

	// entitlementWrites distinguishes fresh records from idempotent replays.
	entitlementWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsstand_entitlement_writes_total",
			Help: "Entitlement record attempts by result.",
		},
		[]string{"result"},
	)

	// downloadResolutions counts asset resolution attempts by result
	// (ok, forbidden, not_found, error).
	downloadResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsstand_download_resolutions_total",
			Help: "Download resolution attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpReqs, httpLat, httpInflight, httpRespSize,
		paymentOutcomes, entitlementWrites, downloadResolutions,
	)
}

// ObservePaymentOutcome records a terminal payment confirmation outcome.
func ObservePaymentOutcome(outcome string) {
	paymentOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveEntitlementWrite records an entitlement write attempt; created is
// false for the idempotent replay path.
func ObserveEntitlementWrite(created bool) {
	result := "replayed"
	if created {
		result = "created"
	}
	entitlementWrites.WithLabelValues(result).Inc()
}

// ObserveDownloadResolution records the result of one download resolution.
func ObserveDownloadResolution(result string) {
	downloadResolutions.WithLabelValues(result).Inc()
}

// Metrics instruments every request with the HTTP-level collectors.
//
// The path label uses the registered route template (c.FullPath()); raw URLs
// are used only when no route matched, which keeps 404 noise visible without
// letting arbitrary client paths explode the label space.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())
		size := c.Writer.Size() // -1 when unknown

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(dur)
		if size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
