package cli

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/logger"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

// loggingTransport logs every API round trip at debug level
type loggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

// newLoggingTransport wraps base so that requests show up with --log-level=debug
func newLoggingTransport(base http.RoundTripper, l *slog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, logger: logger.WithComponent(l, "cli-http")}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	attrs := []any{
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	}
	if tok := req.Header.Get(salesapi.TokenHeader); tok != "" {
		attrs = append(attrs, slog.String("token", logger.TokenPreview(tok)))
	}

	resp, err := t.base.RoundTrip(req)

	attrs = append(attrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		t.logger.Debug("API request failed", append(attrs, slog.String("error", err.Error()))...)
		return resp, err
	}
	t.logger.Debug("API request", append(attrs, slog.Int("status", resp.StatusCode))...)
	return resp, nil
}
