package metrics

import (
	"strconv"
	"time"
)

// RecordHTTPRequest records web handler metrics consistently
// path should be the route template, not the raw URL, to keep cardinality bounded
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(float64(duration.Milliseconds()))
}

// RecordPageFetch records the outcome of a single page fetch
// salesCount is ignored unless the outcome is "success"
func RecordPageFetch(outcome string, salesCount int) {
	PageFetches.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		PageSize.Observe(float64(salesCount))
	}
}

// RecordTokenRefresh records a token refresh attempt
func RecordTokenRefresh(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	TokenRefreshes.WithLabelValues(status).Inc()
}
