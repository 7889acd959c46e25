package salesapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeAPI serves /getAuthorize and /sales with configurable behavior
type fakeAPI struct {
	server *httptest.Server

	authCalls  atomic.Int32
	salesCalls atomic.Int32

	mu          sync.Mutex
	issued      int
	authStatus  int
	authExpire  float64
	authToken   string
	lastAuthReq authorizeRequest
	lastQuery   url.Values
	lastToken   string
	sales       func(w http.ResponseWriter, r *http.Request, call int)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{authStatus: http.StatusOK, authExpire: 3600}
	api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, `{"results":{"Sales":[],"beforeToken":null,"afterToken":null,"totalCount":0}}`)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/getAuthorize", func(w http.ResponseWriter, r *http.Request) {
		api.authCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		api.mu.Lock()
		defer api.mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&api.lastAuthReq)
		if api.authStatus != http.StatusOK {
			writeJSON(w, api.authStatus, `{"message":"denied"}`)
			return
		}
		api.issued++
		token := api.authToken
		if token == "" {
			token = "token-" + strconv.Itoa(api.issued)
		}
		resp, _ := json.Marshal(map[string]any{"token": token, "expire": api.authExpire})
		writeJSON(w, http.StatusOK, string(resp))
	})
	mux.HandleFunc("/sales", func(w http.ResponseWriter, r *http.Request) {
		call := int(api.salesCalls.Add(1))
		api.mu.Lock()
		api.lastQuery = r.URL.Query()
		api.lastToken = r.Header.Get(TokenHeader)
		handler := api.sales
		api.mu.Unlock()
		handler(w, r, call)
	})

	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func (api *fakeAPI) query() url.Values {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.lastQuery
}

func (api *fakeAPI) token() string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.lastToken
}

func (api *fakeAPI) tokenType() string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.lastAuthReq.TokenType
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, api *fakeAPI, store tokenstore.Store, clock *testClock, opts Options) *Client {
	t.Helper()
	opts.BaseURL = api.server.URL
	opts.Now = clock.Now
	if opts.RetryInterval == 0 {
		opts.RetryInterval = time.Millisecond
	}
	c, err := NewClient(store, opts)
	require.NoError(t, err)
	return c
}

func TestFetchSalesPageDefaultQuery(t *testing.T) {
	api := newFakeAPI(t)
	clock := newTestClock()
	c := newTestClient(t, api, tokenstore.NewMemory(), clock, Options{})

	page, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.Equal(t, "token-1", api.token())
	assert.Equal(t, "2024-02-14", api.query().Get("startDate"))
	assert.Equal(t, "2024-03-16", api.query().Get("endDate"))
	assert.Equal(t, "50", api.query().Get("limit"))
	for _, absent := range []string{"minPrice", "email", "phone", "page"} {
		assert.False(t, api.query().Has(absent), "%s should not be sent", absent)
	}
	assert.Equal(t, DefaultTokenType, api.tokenType())
}

func TestFetchSalesPageWithFiltersAndCursor(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{PageSize: 25})

	filters := FilterSet{
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-31",
		MinPrice:      "100.0",
		CustomerEmail: "a@b.com",
		PhoneNumber:   " 555-1234 ",
	}
	_, err := c.FetchSalesPage(context.Background(), "abc", filters)
	require.NoError(t, err)

	q := api.query()
	assert.Equal(t, "2024-01-01", q.Get("startDate"))
	assert.Equal(t, "2024-01-31", q.Get("endDate"))
	assert.Equal(t, "100", q.Get("minPrice"))
	assert.Equal(t, "a@b.com", q.Get("email"))
	assert.Equal(t, "555-1234", q.Get("phone"))
	assert.Equal(t, "abc", q.Get("page"))
	assert.Equal(t, "25", q.Get("limit"))
}

func TestFetchSalesPageOmitsBlankFilters(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{})

	_, err := c.FetchSalesPage(context.Background(), "", FilterSet{CustomerEmail: "   ", PhoneNumber: ""})
	require.NoError(t, err)
	assert.False(t, api.query().Has("email"))
	assert.False(t, api.query().Has("phone"))
}

func TestFetchSalesPageInvalidFilterDoesNoIO(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{})

	for _, f := range []FilterSet{
		{MinPrice: "abc"},
		{MinPrice: "NaN"},
		{StartDate: "15/03/2024"},
		{EndDate: "2024-13-01"},
	} {
		_, err := c.FetchSalesPage(context.Background(), "", f)
		assert.ErrorIs(t, err, ErrInvalidFilter, "filters %+v", f)
	}
	assert.Zero(t, api.authCalls.Load())
	assert.Zero(t, api.salesCalls.Load())
}

func TestFetchSalesPageNormalizesResponse(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantSales    int
		wantBefore   string
		wantAfter    string
		wantTotal    int
		wantHasNext  bool
		wantHasPrior bool
	}{
		{
			name: "missing results",
			body: `{}`,
		},
		{
			name: "null results",
			body: `{"results":null}`,
		},
		{
			name:      "missing total uses sales length",
			body:      `{"results":{"Sales":[{"date":"2024-03-01T10:00:00Z","price":10},{"date":"2024-03-02T10:00:00Z","price":"5.5"}]}}`,
			wantSales: 2,
			wantTotal: 2,
		},
		{
			name:      "total as string",
			body:      `{"results":{"Sales":[{"price":1}],"totalCount":"12"}}`,
			wantSales: 1,
			wantTotal: 12,
		},
		{
			name:      "total as integral float",
			body:      `{"results":{"Sales":[{"price":1}],"totalCount":12.0}}`,
			wantSales: 1,
			wantTotal: 12,
		},
		{
			name:      "unparseable total uses sales length",
			body:      `{"results":{"Sales":[{"price":1},{"price":2}],"totalCount":"many"}}`,
			wantSales: 2,
			wantTotal: 2,
		},
		{
			name:         "cursors and total",
			body:         `{"results":{"Sales":[{"date":"2024-03-01T10:00:00Z","price":10}],"beforeToken":"b1","afterToken":"a1","totalCount":120}}`,
			wantSales:    1,
			wantBefore:   "b1",
			wantAfter:    "a1",
			wantTotal:    120,
			wantHasNext:  true,
			wantHasPrior: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
				writeJSON(w, http.StatusOK, tt.body)
			}
			c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{})

			page, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
			require.NoError(t, err)
			require.NotNil(t, page.Sales)
			assert.Len(t, page.Sales, tt.wantSales)
			assert.Equal(t, tt.wantBefore, page.BeforeToken)
			assert.Equal(t, tt.wantAfter, page.AfterToken)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, tt.wantHasNext, page.HasNext())
			assert.Equal(t, tt.wantHasPrior, page.HasPrevious())
		})
	}
}

func TestFetchSalesPageSessionExpired(t *testing.T) {
	api := newFakeAPI(t)
	store := tokenstore.NewMemory()
	c := newTestClient(t, api, store, newTestClock(), Options{MaxRetries: 3})

	api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
		if call == 1 {
			writeJSON(w, http.StatusUnauthorized, `{"message":"bad token"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"results":{"Sales":[]}}`)
	}

	_, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.NotErrorIs(t, err, ErrRequestFailed)
	assert.True(t, IsSessionExpired(err))
	assert.Equal(t, SessionExpiredMessage, err.Error())
	assert.Equal(t, int32(1), api.salesCalls.Load(), "401 must not be retried")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)

	_, ok, _ := store.Get(context.Background(), KeyToken)
	assert.False(t, ok, "token should be cleared")
	_, ok, _ = store.Get(context.Background(), KeyTokenExpire)
	assert.False(t, ok, "expiry should be cleared")

	_, err = c.FetchSalesPage(context.Background(), "", FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.authCalls.Load())
	assert.Equal(t, "token-2", api.token())
}

func TestFetchSalesPageRequestFailed(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request, call int)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request, call int) {
				writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
			},
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request, call int) {
				writeJSON(w, http.StatusForbidden, `{}`)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request, call int) {
				writeJSON(w, http.StatusOK, `{"results":`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.sales = tt.handler
			store := tokenstore.NewMemory()
			c := newTestClient(t, api, store, newTestClock(), Options{})

			_, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRequestFailed)
			assert.False(t, IsSessionExpired(err))

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, ErrRequestFailed, reqErr.Kind)

			v, ok, _ := store.Get(context.Background(), KeyToken)
			assert.True(t, ok, "token should be kept")
			assert.Equal(t, "token-1", v)
		})
	}
}

func TestFetchSalesPageTimeout(t *testing.T) {
	api := newFakeAPI(t)
	api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{RequestTimeout: 50 * time.Millisecond})

	_, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchSalesPagePassesRecordsThrough(t *testing.T) {
	const record = `{"_id":42,"date":"2024-03-01T10:00:00Z","price":10,"customerEmail":"a@b.com","customerPhone":5551234,"region":{"code":"EU"}}`

	api := newFakeAPI(t)
	api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, `{"results":{"Sales":[`+record+`]}}`)
	}
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{})

	page, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	require.NoError(t, err)
	require.Len(t, page.Sales, 1)

	sale := page.Sales[0]
	assert.Equal(t, "42", sale.ID)
	assert.Equal(t, "5551234", sale.CustomerPhone)
	assert.Equal(t, "a@b.com", sale.CustomerEmail)
	assert.InDelta(t, 10, sale.Price.Float(), 1e-9)

	b, err := json.Marshal(sale)
	require.NoError(t, err)
	assert.JSONEq(t, record, string(b))
}

func TestFetchSalesPageRetriesTransientFailures(t *testing.T) {
	api := newFakeAPI(t)
	api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
		if call < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"results":{"Sales":[{"date":"2024-03-01T10:00:00Z","price":1}]}}`)
	}
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{MaxRetries: 2})

	page, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	require.NoError(t, err)
	assert.Len(t, page.Sales, 1)
	assert.Equal(t, int32(3), api.salesCalls.Load())
}

func TestFetchSalesPageRetriesExhausted(t *testing.T) {
	api := newFakeAPI(t)
	api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusTooManyRequests, `{}`)
	}
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{MaxRetries: 2})

	_, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, int32(3), api.salesCalls.Load())
}

func TestFetchSalesPageDoesNotRetryClientErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.sales = func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusBadRequest, `{}`)
	}
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{MaxRetries: 3})

	_, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, int32(1), api.salesCalls.Load())
}

func TestFetchSalesPageAuthFailurePropagates(t *testing.T) {
	api := newFakeAPI(t)
	api.authStatus = http.StatusInternalServerError
	c := newTestClient(t, api, tokenstore.NewMemory(), newTestClock(), Options{})

	_, err := c.FetchSalesPage(context.Background(), "", FilterSet{})
	require.Error(t, err)

	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr), "auth failures are not classified")
	assert.False(t, IsSessionExpired(err))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "getAuthorize", httpErr.Endpoint)
	assert.Zero(t, api.salesCalls.Load())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil, Options{})
	assert.Error(t, err)

	_, err = NewClient(tokenstore.NewMemory(), Options{MaxRetries: -1})
	assert.Error(t, err)

	c, err := NewClient(tokenstore.NewMemory(), Options{BaseURL: "http://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", c.BaseURL())
}

// signedToken builds an HS256 JWT with the given exp claim
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "dashboard",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}
