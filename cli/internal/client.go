package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/metrics"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

// NewSalesClient builds a sales client for the current context. The returned
// store should be closed when the command finishes.
func NewSalesClient(ctx context.Context, config *Config, l *slog.Logger) (*salesapi.Client, tokenstore.Store, error) {
	current, err := config.GetCurrentContext()
	if err != nil {
		return nil, nil, err
	}

	store, err := tokenstore.Open(ctx, current.StoreConfig(config.CurrentContext))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open token store: %w", err)
	}

	opts := current.ClientOptions()
	opts.Logger = l
	opts.HTTPClient = &http.Client{
		Transport: newLoggingTransport(metrics.NewAPIMetricsTransport(nil), l),
	}

	client, err := salesapi.NewClient(store, opts)
	if err != nil {
		closeStore(store)
		return nil, nil, fmt.Errorf("failed to create sales client: %w", err)
	}

	return client, store, nil
}

// closeStore releases stores that hold connections, such as Redis
func closeStore(store tokenstore.Store) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Debug("failed to close token store", slog.String("error", err.Error()))
		}
	}
}
