package salesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/logger"
	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/metrics"
	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

// Store keys holding the cached token and its expiry in epoch milliseconds
const (
	KeyToken       = "token"
	KeyTokenExpire = "tokenExpire"
)

// DefaultTokenType is the token type requested from the authorize endpoint
const DefaultTokenType = "frontEndTest"

const authorizePath = "/getAuthorize"

// TokenManager keeps a valid authorization token in a Store, refreshing it
// from the authorize endpoint when missing or expired
type TokenManager struct {
	store     tokenstore.Store
	http      *http.Client
	baseURL   string
	tokenType string
	now       func() time.Time
	logger    *slog.Logger

	// serializes refreshes within this process
	mu sync.Mutex
}

// TokenManagerOptions configures a TokenManager. Zero values take defaults.
type TokenManagerOptions struct {
	BaseURL    string
	TokenType  string
	HTTPClient *http.Client
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewTokenManager builds a TokenManager over store
func NewTokenManager(store tokenstore.Store, opts TokenManagerOptions) *TokenManager {
	m := &TokenManager{
		store:     store,
		http:      opts.HTTPClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		tokenType: opts.TokenType,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if m.http == nil {
		m.http = &http.Client{Transport: metrics.NewAPIMetricsTransport(nil)}
	}
	if m.tokenType == "" {
		m.tokenType = DefaultTokenType
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = logger.WithComponent(m.logger, "token-manager")
	return m
}

// Cached returns the stored token without contacting the server. It returns
// nil when either key is missing or the expiry is not a valid timestamp.
func (m *TokenManager) Cached(ctx context.Context) (*Token, error) {
	value, ok, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("read cached token: %w", err)
	}
	if !ok || value == "" {
		return nil, nil
	}

	rawExpire, ok, err := m.store.Get(ctx, KeyTokenExpire)
	if err != nil {
		return nil, fmt.Errorf("read cached token expiry: %w", err)
	}
	if !ok {
		return nil, nil
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(rawExpire), 10, 64)
	if err != nil {
		m.logger.Debug("Ignoring unparseable token expiry", "value", rawExpire)
		return nil, nil
	}

	return &Token{Value: value, ExpiresAt: time.UnixMilli(ms)}, nil
}

// EnsureValidToken returns the cached token if it has not expired, otherwise
// requests a new one, persists it, and returns it
func (m *TokenManager) EnsureValidToken(ctx context.Context) (string, error) {
	if tok := m.validCached(ctx); tok != "" {
		return tok, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another goroutine may have refreshed while we waited
	if tok := m.validCached(ctx); tok != "" {
		return tok, nil
	}

	tok, err := m.refresh(ctx)
	metrics.RecordTokenRefresh(err)
	if err != nil {
		m.logger.Error("Token refresh failed", "error", err)
		return "", err
	}
	return tok.Value, nil
}

func (m *TokenManager) validCached(ctx context.Context) string {
	tok, err := m.Cached(ctx)
	if err != nil {
		m.logger.Warn("Token store read failed, refreshing", "error", err)
		return ""
	}
	if tok == nil || !tok.ValidAt(m.now()) {
		return ""
	}
	return tok.Value
}

// Invalidate removes the cached token and expiry
func (m *TokenManager) Invalidate(ctx context.Context) error {
	if err := m.store.Delete(ctx, KeyToken, KeyTokenExpire); err != nil {
		return fmt.Errorf("clear cached token: %w", err)
	}
	m.logger.Info("Cleared cached token")
	return nil
}

type authorizeRequest struct {
	TokenType string `json:"tokenType"`
}

type authorizeResponse struct {
	Token  string  `json:"token"`
	Expire float64 `json:"expire"`
}

func (m *TokenManager) refresh(ctx context.Context) (*Token, error) {
	body, err := json.Marshal(authorizeRequest{TokenType: m.tokenType})
	if err != nil {
		return nil, fmt.Errorf("encode authorize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+authorizePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build authorize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("authorize: %w", newHTTPError("getAuthorize", resp))
	}

	var out authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("authorize: %w: %v", ErrMalformedResponse, err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("authorize: %w: empty token", ErrMalformedResponse)
	}

	now := m.now()
	tok := &Token{Value: out.Token, ExpiresAt: m.expiryFor(out, now)}

	if err := m.store.Set(ctx, KeyToken, tok.Value); err != nil {
		m.logger.Warn("Failed to persist token", "error", err)
	} else if err := m.store.Set(ctx, KeyTokenExpire, strconv.FormatInt(tok.ExpiresAt.UnixMilli(), 10)); err != nil {
		m.logger.Warn("Failed to persist token expiry", "error", err)
	}

	m.logger.Info("Obtained new token",
		"token", logger.TokenPreview(tok.Value),
		"expires_at", tok.ExpiresAt.Format(time.RFC3339))
	return tok, nil
}

// expiryFor uses the server's lifetime in seconds. A non-positive lifetime
// falls back to the JWT exp claim and then to immediate expiry.
func (m *TokenManager) expiryFor(out authorizeResponse, now time.Time) time.Time {
	if out.Expire > 0 {
		lifetime := time.Duration(math.MaxInt64)
		if out.Expire < lifetime.Seconds() {
			lifetime = time.Duration(out.Expire * float64(time.Second))
		}
		return now.Add(lifetime)
	}
	if exp, ok := jwtExpiry(out.Token); ok {
		return exp
	}
	m.logger.Warn("Authorize response has no usable expiry", "expire", out.Expire)
	return now
}

// jwtExpiry reads the exp claim without verifying the signature; the server
// is the authority on validity
func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

const maxErrorBody = 512

func newHTTPError(endpoint string, resp *http.Response) *HTTPError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
	}
}
