package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sales API Metrics
var (
	// SalesAPICalls tracks outbound calls to the sales API
	SalesAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_api_calls_total",
			Help: "Total sales API calls by method, endpoint, and status code",
		},
		[]string{"method", "endpoint", "status"},
	)

	// SalesAPIDuration tracks sales API latency
	SalesAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "salesdash_api_duration_ms",
			Help:                            "Sales API call duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "endpoint"},
	)

	// SalesAPIErrors tracks sales API errors by type
	SalesAPIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_api_errors_total",
			Help: "Total sales API errors by endpoint and error type",
		},
		[]string{"endpoint", "error_type"},
	)
)

// Client Metrics
var (
	// PageFetches tracks FetchSalesPage outcomes (success, session_expired, request_failed, invalid_filter, auth_failed)
	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_page_fetches_total",
			Help: "Total sales page fetches by outcome",
		},
		[]string{"outcome"},
	)

	// PageSize tracks the number of sales returned per page
	PageSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesdash_page_sales",
			Help:    "Number of sales returned per page",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	// TokenRefreshes tracks authorization token refreshes
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_token_refreshes_total",
			Help: "Total authorization token refreshes by status",
		},
		[]string{"status"},
	)

	// FetchRetries tracks retried sales requests
	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesdash_fetch_retries_total",
			Help: "Total retried sales requests after transient failures",
		},
	)
)

// HTTP/Web Handler Metrics
var (
	// HTTPRequests tracks HTTP requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks HTTP request duration
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "salesdash_http_request_duration_ms",
			Help:                            "HTTP request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "path"},
	)

	// HTTPRateLimited tracks requests rejected by the rate limiter
	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_http_rate_limited_total",
			Help: "Total HTTP requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
)
