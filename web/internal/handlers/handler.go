package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/logger"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/middleware"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/render"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/session"
)

// Options tunes what the handlers render
type Options struct {
	// ChartLimit caps the sales aggregated by the chart; 0 means dashboard.DefaultChartLimit
	ChartLimit int

	// Notice is operator markdown shown above the dashboard
	Notice string
}

// Handler holds dependencies for all web handlers
type Handler struct {
	fetcher        dashboard.Fetcher
	sessionManager *session.Manager
	templates      *render.TemplateSet
	chartLimit     int
	notice         string
	log            *slog.Logger
}

// New creates a new handler with dependencies
func New(fetcher dashboard.Fetcher, sessionManager *session.Manager, templates *render.TemplateSet, opts Options, l *slog.Logger) *Handler {
	limit := opts.ChartLimit
	if limit <= 0 {
		limit = dashboard.DefaultChartLimit
	}

	return &Handler{
		fetcher:        fetcher,
		sessionManager: sessionManager,
		templates:      templates,
		chartLimit:     limit,
		notice:         opts.Notice,
		log:            logger.WithComponent(l, "web_handler"),
	}
}

// requestLog scopes the handler logger to the current request
func (h *Handler) requestLog(r *http.Request) *slog.Logger {
	return logger.WithRequest(h.log, middleware.RequestID(r.Context()))
}

// renderTemplate renders a page template with data
func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	if h.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}
	h.requestLog(r).Debug("rendering template", slog.String("template", name))

	// Render into a buffer so a failing template still yields a clean 500
	var buf bytes.Buffer
	if err := h.templates.Execute(&buf, name, data); err != nil {
		h.requestLog(r).Error("template rendering failed",
			slog.String("template", name),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// writeJSON writes v with the given status
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.requestLog(r).Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// apiError is the JSON body of a failed /api request
type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps a client error onto a status code and a JSON body
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	h.requestLog(r).Warn("sales request failed",
		slog.String("kind", kind),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	h.writeJSON(w, r, status, apiError{Error: salesapi.UserMessage(err), Kind: kind})
}

// classify returns the HTTP status and a short error kind for err
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, salesapi.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid_filter"
	case errors.Is(err, salesapi.ErrSessionExpired):
		return http.StatusUnauthorized, "session_expired"
	case errors.Is(err, salesapi.ErrRequestFailed):
		return http.StatusBadGateway, "request_failed"
	default:
		return http.StatusBadGateway, "authorization_failed"
	}
}

// filterParams are the query parameter names of the filter form
var filterParams = []string{"startDate", "endDate", "minPrice", "customerEmail", "phoneNumber"}

// filtersFromQuery reads the filter form fields. submitted is false when the
// query carries none of them.
func filtersFromQuery(q url.Values) (filters salesapi.FilterSet, submitted bool) {
	for _, name := range filterParams {
		if q.Has(name) {
			submitted = true
		}
	}
	return salesapi.FilterSet{
		StartDate:     q.Get("startDate"),
		EndDate:       q.Get("endDate"),
		MinPrice:      q.Get("minPrice"),
		CustomerEmail: q.Get("customerEmail"),
		PhoneNumber:   q.Get("phoneNumber"),
	}, submitted
}

// sortFromQuery reads sort=date|price and dir=asc|desc. ok is false when no
// valid sort was requested.
func sortFromQuery(q url.Values) (cfg dashboard.SortConfig, ok bool) {
	if !q.Has("sort") {
		return dashboard.SortConfig{}, false
	}
	cfg, err := dashboard.ParseSort(q.Get("sort"), q.Get("dir") == string(dashboard.Ascending))
	if err != nil {
		return dashboard.SortConfig{}, false
	}
	return cfg, true
}

// pageNumber reads the 1-based page counter, defaulting to 1
func pageNumber(q url.Values) int {
	n, err := strconv.Atoi(q.Get("n"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
