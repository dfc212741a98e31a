package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dochub_http_requests_total",
			Help: "HTTP requests by route template and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dochub_http_request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dochub_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by pipeline stage.",
		},
		[]string{"stage"},
	)

	authFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dochub_auth_failures_total",
			Help: "Rejected authentications by reason.",
		},
		[]string{"reason"},
	)

	documentsUploadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dochub_documents_uploaded_total",
			Help: "Documents stored from uploads.",
		},
	)

	uploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dochub_upload_bytes",
			Help:    "Size of accepted uploads in bytes.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	extractionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dochub_extraction_failures_total",
			Help: "Uploads stored with empty text because extraction failed, by format.",
		},
		[]string{"format"},
	)
)

// ObserveHTTPRequest records one completed request.
func ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// IncRateLimited counts a 429 issued at stage ("address" or "principal").
func IncRateLimited(stage string) {
	rateLimitedTotal.WithLabelValues(stage).Inc()
}

// IncAuthFailure counts a rejected authentication.
func IncAuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveUpload counts a stored upload of size bytes.
func ObserveUpload(size int64) {
	documentsUploadedTotal.Inc()
	uploadBytes.Observe(float64(size))
}

// IncExtractionFailure counts an extraction that degraded to empty text.
func IncExtractionFailure(format string) {
	extractionFailuresTotal.WithLabelValues(format).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
