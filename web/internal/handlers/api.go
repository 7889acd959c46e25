package handlers

import (
	"net/http"
	"strconv"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
)

// SalesPage returns one page of sales as JSON. The query carries the cursor
// and the filters; sort and dir optionally order the page.
func (h *Handler) SalesPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, _ := filtersFromQuery(q)

	page, err := h.fetcher.FetchSalesPage(r.Context(), q.Get("cursor"), filters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if sort, ok := sortFromQuery(q); ok {
		sorted := *page
		sorted.Sales = dashboard.SortSales(page.Sales, sort)
		page = &sorted
	}

	h.writeJSON(w, r, http.StatusOK, page)
}

// ChartData returns the daily totals and summary as JSON. limit caps the
// collected sales at no more than the configured chart limit.
func (h *Handler) ChartData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, _ := filtersFromQuery(q)

	limit := h.chartLimit
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n < limit {
		limit = n
	}

	chart, err := dashboard.BuildChart(r.Context(), h.fetcher, filters, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, chart)
}
