package metrics

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

// apiMetricsTransport wraps an http.RoundTripper to collect metrics on sales API calls
type apiMetricsTransport struct {
	base http.RoundTripper
}

// NewAPIMetricsTransport creates a new transport wrapper that collects metrics
// for every sales API call. It should be installed on the sales client's http.Client.
func NewAPIMetricsTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &apiMetricsTransport{base: base}
}

// RoundTrip implements http.RoundTripper, wrapping the base transport with metrics collection
func (t *apiMetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	endpoint := normalizeEndpoint(req.URL.Path)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}

	SalesAPICalls.WithLabelValues(req.Method, endpoint, strconv.Itoa(statusCode)).Inc()
	SalesAPIDuration.WithLabelValues(req.Method, endpoint).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		SalesAPIErrors.WithLabelValues(endpoint, classifyAPIError(statusCode, err)).Inc()
	}

	return resp, err
}

// normalizeEndpoint reduces a request path to its final segment so that a base URL
// with a path prefix does not leak into metric labels
func normalizeEndpoint(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + path.Base(p)
}

// classifyAPIError categorizes sales API errors for metrics
func classifyAPIError(statusCode int, err error) string {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "timeout"
		}
		if errors.Is(err, context.Canceled) {
			return "canceled"
		}
		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "timeout"):
			return "timeout"
		case strings.Contains(errStr, "connection"):
			return "connection"
		case strings.Contains(errStr, "tls"), strings.Contains(errStr, "TLS"), strings.Contains(errStr, "x509"):
			return "tls"
		default:
			return "network"
		}
	}

	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
