// Package salesapi is a client for the sales dashboard API. It obtains and
// caches an authorization token and fetches filtered, cursor-paginated pages
// of sales, classifying failures into session expiry and general failure.
package salesapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/logger"
	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/metrics"
	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

// DefaultBaseURL is the production sales API
const DefaultBaseURL = "https://autobizz-425913.uc.r.appspot.com"

// TokenHeader carries the authorization token on sales requests
const TokenHeader = "X-AUTOBIZZ-TOKEN"

const (
	DefaultPageSize       = 50
	DefaultRequestTimeout = 30 * time.Second
	defaultRetryInterval  = 500 * time.Millisecond
	salesPath             = "/sales"
)

// Options configures a Client. Zero values take defaults.
type Options struct {
	BaseURL   string
	TokenType string
	PageSize  int

	// RequestTimeout bounds each sales request, not the authorize call
	RequestTimeout time.Duration

	// MaxRetries re-sends a sales request after a transient failure
	// (network error, timeout, 5xx, 429). Zero disables retries.
	MaxRetries    int
	RetryInterval time.Duration

	HTTPClient *http.Client
	Now        func() time.Time
	Logger     *slog.Logger
}

// Client fetches sales pages using a TokenManager for authorization
type Client struct {
	http          *http.Client
	tokens        *TokenManager
	baseURL       string
	pageSize      int
	timeout       time.Duration
	maxRetries    int
	retryInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewClient creates a Client whose token is cached in store
func NewClient(store tokenstore.Store, opts Options) (*Client, error) {
	if store == nil {
		return nil, errors.New("salesapi: token store is required")
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("salesapi: max retries must not be negative, got %d", opts.MaxRetries)
	}

	c := &Client{
		http:          opts.HTTPClient,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		pageSize:      opts.PageSize,
		timeout:       opts.RequestTimeout,
		maxRetries:    opts.MaxRetries,
		retryInterval: opts.RetryInterval,
		now:           opts.Now,
		logger:        opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Transport: metrics.NewAPIMetricsTransport(nil)}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	if c.retryInterval <= 0 {
		c.retryInterval = defaultRetryInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.tokens = NewTokenManager(store, TokenManagerOptions{
		BaseURL:    c.baseURL,
		TokenType:  opts.TokenType,
		HTTPClient: c.http,
		Now:        c.now,
		Logger:     c.logger,
	})
	c.logger = logger.WithComponent(c.logger, "sales-client")
	return c, nil
}

// Tokens exposes the client's token manager
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// BaseURL returns the API base URL in use
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchSalesPage fetches one page of sales. An empty cursor requests the first
// page; otherwise pass a BeforeToken or AfterToken from a previous page.
//
// Invalid filters fail with ErrInvalidFilter before any I/O. Token errors are
// returned as the TokenManager reported them. Sales request failures are
// *RequestError values of kind ErrSessionExpired (HTTP 401, after clearing the
// cached token) or ErrRequestFailed.
func (c *Client) FetchSalesPage(ctx context.Context, cursor string, filters FilterSet) (*SalesPage, error) {
	if err := filters.Validate(); err != nil {
		metrics.RecordPageFetch("invalid_filter", 0)
		return nil, err
	}

	token, err := c.tokens.EnsureValidToken(ctx)
	if err != nil {
		metrics.RecordPageFetch("auth_failed", 0)
		return nil, err
	}

	query := buildQuery(filters, cursor, c.pageSize, c.now())
	url := c.baseURL + salesPath + "?" + query.Encode()

	start := time.Now()
	page, err := c.fetchWithRetry(ctx, url, token)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			if clearErr := c.tokens.Invalidate(context.WithoutCancel(ctx)); clearErr != nil {
				c.logger.Warn("Failed to clear rejected token", "error", clearErr)
			}
			c.logger.Warn("Sales request unauthorized, session expired")
			metrics.RecordPageFetch("session_expired", 0)
			return nil, &RequestError{Kind: ErrSessionExpired, Err: err}
		}

		c.logger.Error("Sales request failed", "error", err, "cursor", cursor != "")
		metrics.RecordPageFetch("request_failed", 0)
		return nil, &RequestError{Kind: ErrRequestFailed, Err: err}
	}

	c.logger.Debug("Fetched sales page",
		"count", len(page.Sales),
		"total", page.Total,
		"has_next", page.HasNext(),
		"has_previous", page.HasPrevious(),
		"duration_ms", time.Since(start).Milliseconds())
	metrics.RecordPageFetch("success", len(page.Sales))
	return page, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url, token string) (*SalesPage, error) {
	if c.maxRetries == 0 {
		return c.doSalesRequest(ctx, url, token)
	}

	var page *SalesPage
	op := func() error {
		p, err := c.doSalesRequest(ctx, url, token)
		if err != nil {
			if !isTransient(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		page = p
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.MaxInterval = 10 * c.retryInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		metrics.FetchRetries.Inc()
		c.logger.Warn("Retrying sales request", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) doSalesRequest(ctx context.Context, url, token string) (*SalesPage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sales request: %w", err)
	}
	req.Header.Set(TokenHeader, token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError("sales", resp)
	}

	var body salesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return body.normalize(), nil
}

type salesResponse struct {
	Results *salesResults `json:"results"`
}

type salesResults struct {
	Sales       []SaleRecord    `json:"Sales"`
	BeforeToken json.RawMessage `json:"beforeToken"`
	AfterToken  json.RawMessage `json:"afterToken"`
	TotalCount  json.RawMessage `json:"totalCount"`
}

// normalize fills the defaults for a missing results object or missing fields
func (r salesResponse) normalize() *SalesPage {
	res := r.Results
	if res == nil {
		res = &salesResults{}
	}

	page := &SalesPage{
		Sales:       res.Sales,
		BeforeToken: looseText(res.BeforeToken),
		AfterToken:  looseText(res.AfterToken),
	}
	if page.Sales == nil {
		page.Sales = []SaleRecord{}
	}
	if n, ok := parseCount(res.TotalCount); ok {
		page.Total = n
	} else {
		page.Total = len(page.Sales)
	}
	return page
}

// parseCount reads a count sent as a JSON number or numeric string. Fractional,
// negative and non-numeric values are rejected.
func parseCount(raw json.RawMessage) (int, bool) {
	text := strings.TrimSpace(looseText(raw))
	if text == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// isTransient reports whether a failed sales request may succeed if re-sent
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
