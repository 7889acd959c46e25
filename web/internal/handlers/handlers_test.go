package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/render"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/session"
)

// stubFetcher serves canned pages keyed by cursor and records the last call
type stubFetcher struct {
	mu          sync.Mutex
	pages       map[string]*salesapi.SalesPage
	err         error
	calls       int
	lastCursor  string
	lastFilters salesapi.FilterSet
}

func (s *stubFetcher) FetchSalesPage(_ context.Context, cursor string, filters salesapi.FilterSet) (*salesapi.SalesPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastCursor, s.lastFilters = cursor, filters

	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.pages[cursor]; ok {
		return p, nil
	}
	return &salesapi.SalesPage{Sales: []salesapi.SaleRecord{}}, nil
}

func twoPages() *stubFetcher {
	return &stubFetcher{pages: map[string]*salesapi.SalesPage{
		"": {
			Sales: []salesapi.SaleRecord{
				{Date: "2024-03-01T10:00:00Z", Price: "120", CustomerName: "Alice", CustomerEmail: "alice@example.com"},
				{Date: "2024-03-02T10:00:00Z", Price: "30.5", CustomerName: "Bob", CustomerEmail: "bob@example.com"},
			},
			AfterToken: "page-2",
			Total:      3,
		},
		"page-2": {
			Sales: []salesapi.SaleRecord{
				{Date: "2024-03-02T12:00:00Z", Price: "9.5", CustomerName: "Carol", CustomerEmail: "carol@example.com"},
			},
			BeforeToken: "page-1",
			Total:       3,
		},
	}}
}

func newTestRouter(t *testing.T, f dashboard.Fetcher, opts Options) *mux.Router {
	t.Helper()

	templates, err := render.LoadTemplates()
	require.NoError(t, err)

	sessions := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), session.Options{})
	h := New(f, sessions, templates, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := mux.NewRouter()
	router.HandleFunc("/", h.Dashboard).Methods(http.MethodGet)
	router.HandleFunc("/api/sales", h.SalesPage).Methods(http.MethodGet)
	router.HandleFunc("/api/chart", h.ChartData).Methods(http.MethodGet)
	router.HandleFunc("/filters/reset", h.ResetFilters).Methods(http.MethodPost)
	return router
}

func get(router http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDashboardDefaultsToChart(t *testing.T) {
	router := newTestRouter(t, twoPages(), Options{Notice: "**Heads up**"})

	rec := get(router, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Sales Chart")
	assert.Contains(t, body, "2024-03-01")
	assert.Contains(t, body, "$160.00", "total across both pages")
	assert.Contains(t, body, "<strong>Heads up</strong>")
	assert.NotContains(t, body, "panel-error")
}

func TestDashboardTable(t *testing.T) {
	f := twoPages()
	router := newTestRouter(t, f, Options{})

	rec := get(router, "/?tab=table")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "$120.00")
	assert.Contains(t, body, "Page 1 · showing 2 of 3 sales")
	assert.Contains(t, body, "cursor=page-2")
	assert.Contains(t, body, "Date ↓")

	// newest first by default
	assert.Less(t, strings.Index(body, "Bob"), strings.Index(body, "Alice"))

	rec = get(router, "/?tab=table&cursor=page-2&n=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Carol")
	assert.Contains(t, body, "Page 2")
	assert.Contains(t, body, "cursor=page-1")
	assert.Equal(t, "page-2", f.lastCursor)
}

func TestDashboardSortToggle(t *testing.T) {
	router := newTestRouter(t, twoPages(), Options{})

	rec := get(router, "/?tab=table&sort=price&dir=asc")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Less(t, strings.Index(body, "Bob"), strings.Index(body, "Alice"))
	assert.Contains(t, body, "Price ↑")
	// choosing price again while ascending flips to descending
	assert.Contains(t, body, "dir=desc&amp;sort=price")
}

func TestDashboardRemembersFilters(t *testing.T) {
	f := twoPages()
	router := newTestRouter(t, f, Options{})

	rec := get(router, "/?tab=table&minPrice=10&customerEmail=&startDate=&endDate=&phoneNumber=")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	get(router, "/?tab=table", cookies...)
	assert.Equal(t, "10", f.lastFilters.MinPrice)

	// reset keeps the sort but drops the filters
	req := httptest.NewRequest(http.MethodPost, "/filters/reset", strings.NewReader(url.Values{"tab": {"table"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	reset := httptest.NewRecorder()
	router.ServeHTTP(reset, req)
	assert.Equal(t, http.StatusSeeOther, reset.Code)
	assert.Equal(t, "/?tab=table", reset.Header().Get("Location"))

	get(router, "/?tab=table", reset.Result().Cookies()...)
	assert.True(t, f.lastFilters.IsEmpty())
}

func TestDashboardErrorPanels(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantText   string
	}{
		{
			name:       "session expired",
			target:     "/?tab=table",
			err:        &salesapi.RequestError{Kind: salesapi.ErrSessionExpired, Err: errors.New("401")},
			wantStatus: http.StatusUnauthorized,
			wantText:   "Your session has expired. Please reload to sign in again.",
		},
		{
			name:       "request failed",
			target:     "/",
			err:        &salesapi.RequestError{Kind: salesapi.ErrRequestFailed, Err: errors.New("500")},
			wantStatus: http.StatusBadGateway,
			wantText:   "Failed to load sales data",
		},
		{
			name:       "invalid filter",
			target:     "/?tab=table&minPrice=abc",
			wantStatus: http.StatusBadRequest,
			wantText:   "is not a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubFetcher{err: tt.err}, Options{})

			rec := get(router, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "panel-error")
			assert.Contains(t, body, tt.wantText)
			assert.NotContains(t, body, "No sales found")
		})
	}
}

func TestDashboardEmptyStates(t *testing.T) {
	router := newTestRouter(t, &stubFetcher{}, Options{})

	rec := get(router, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No sales data available for the selected period.")

	rec = get(router, "/?tab=table")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No sales found for these filters.")
	assert.NotContains(t, rec.Body.String(), "panel-error")
}

func TestAPISales(t *testing.T) {
	f := twoPages()
	router := newTestRouter(t, f, Options{})

	rec := get(router, "/api/sales?cursor=page-2&minPrice=5&sort=price&dir=asc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var page salesapi.SalesPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Sales, 1)
	assert.Equal(t, "page-1", page.BeforeToken)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "page-2", f.lastCursor)
	assert.Equal(t, "5", f.lastFilters.MinPrice)
}

func TestAPISalesSortsCopy(t *testing.T) {
	f := twoPages()
	router := newTestRouter(t, f, Options{})

	rec := get(router, "/api/sales?sort=price&dir=asc")
	require.Equal(t, http.StatusOK, rec.Code)

	var page salesapi.SalesPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Sales, 2)
	assert.Equal(t, "Bob", page.Sales[0].CustomerName)
	assert.Equal(t, "Alice", f.pages[""].Sales[0].CustomerName, "canned page is untouched")
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"session expired", "/api/sales", &salesapi.RequestError{Kind: salesapi.ErrSessionExpired, Err: errors.New("401")}, http.StatusUnauthorized, "session_expired"},
		{"request failed", "/api/sales", &salesapi.RequestError{Kind: salesapi.ErrRequestFailed, Err: errors.New("boom")}, http.StatusBadGateway, "request_failed"},
		{"invalid filter", "/api/sales?startDate=03/01/2024", nil, http.StatusBadRequest, "invalid_filter"},
		{"authorization failed", "/api/chart", errors.New("authorize: connection refused"), http.StatusBadGateway, "authorization_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubFetcher{err: tt.err}, Options{})

			rec := get(router, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body apiError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestAPISessionExpiredMessage(t *testing.T) {
	router := newTestRouter(t, &stubFetcher{err: &salesapi.RequestError{Kind: salesapi.ErrSessionExpired, Err: errors.New("401")}}, Options{})

	rec := get(router, "/api/sales")
	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, salesapi.SessionExpiredMessage, body.Error)
}

func TestAPIChart(t *testing.T) {
	router := newTestRouter(t, twoPages(), Options{})

	rec := get(router, "/api/chart")
	require.Equal(t, http.StatusOK, rec.Code)

	var chart dashboard.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chart))
	require.Len(t, chart.Days, 2)
	assert.Equal(t, dashboard.DailyTotal{Date: "2024-03-02", Total: 40, Count: 2}, chart.Days[1])
	assert.Equal(t, 3, chart.Summary.SaleCount)
	assert.InDelta(t, 160, chart.Summary.Total, 0.001)
}

func TestAPIChartLimit(t *testing.T) {
	f := twoPages()
	router := newTestRouter(t, f, Options{ChartLimit: 500})

	rec := get(router, "/api/chart?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var chart dashboard.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chart))
	assert.Equal(t, 2, chart.Summary.SaleCount)
	assert.Equal(t, 1, f.calls, "limit reached on the first page")
}
