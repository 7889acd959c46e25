package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/render"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/session"
)

const (
	tabChart = "chart"
	tabTable = "table"
)

// dashboardPage is the template data for dashboard.html
type dashboardPage struct {
	Version string
	Notice  string
	Tab     string

	Filters       salesapi.FilterSet
	ActiveFilters []salesapi.FilterField
	Sort          dashboard.SortConfig

	ChartTabURL string
	TableTabURL string
	ReloadURL   string

	// table tab
	Page         *salesapi.SalesPage
	Sales        []salesapi.SaleRecord
	PageNumber   int
	PrevURL      string
	NextURL      string
	DateSortURL  string
	PriceSortURL string

	// chart tab
	Chart *dashboard.Chart

	Error          string
	SessionExpired bool
}

// dashboardState is what a dashboard URL encodes
type dashboardState struct {
	tab     string
	filters salesapi.FilterSet
	sort    dashboard.SortConfig
	cursor  string
	number  int
}

// url builds the link that reproduces s
func (s dashboardState) url() string {
	q := url.Values{}
	q.Set("tab", s.tab)
	for _, f := range s.filters.Active() {
		q.Set(f.Name, f.Value)
	}
	q.Set("sort", string(s.sort.Key))
	q.Set("dir", string(s.sort.Direction))
	if s.cursor != "" {
		q.Set("cursor", s.cursor)
		q.Set("n", strconv.Itoa(s.number))
	}
	return "/?" + q.Encode()
}

// Dashboard renders the chart or table tab. Filters and sort given in the
// query are remembered in the session; otherwise the remembered ones apply.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefs := h.sessionManager.Preferences(r)

	state := dashboardState{
		tab:     tabChart,
		filters: prefs.Filters,
		sort:    prefs.Sort,
		cursor:  q.Get("cursor"),
		number:  pageNumber(q),
	}
	if q.Get("tab") == tabTable {
		state.tab = tabTable
	}

	changed := false
	if filters, ok := filtersFromQuery(q); ok {
		state.filters, changed = filters, true
	}
	if sort, ok := sortFromQuery(q); ok {
		state.sort, changed = sort, true
	}
	if changed {
		err := h.sessionManager.SavePreferences(r, w, session.Preferences{Filters: state.filters, Sort: state.sort})
		if err != nil {
			h.requestLog(r).Warn("failed to save preferences", slog.String("error", err.Error()))
		}
	}

	data := h.newDashboardPage(r, state)
	status := http.StatusOK

	var err error
	if state.tab == tabTable {
		err = h.loadTable(r, state, data)
	} else {
		data.Chart, err = dashboard.BuildChart(r.Context(), h.fetcher, state.filters, h.chartLimit)
	}
	if err != nil {
		status, _ = classify(err)
		data.Error = salesapi.UserMessage(err)
		data.SessionExpired = salesapi.IsSessionExpired(err)
		h.requestLog(r).Warn("dashboard load failed",
			slog.String("tab", state.tab),
			slog.String("error", err.Error()))
	}

	h.renderTemplate(w, r, status, "dashboard.html", data)
}

func (h *Handler) newDashboardPage(r *http.Request, state dashboardState) *dashboardPage {
	chart, table := state, state
	chart.tab, table.tab = tabChart, tabTable
	chart.cursor = ""

	return &dashboardPage{
		Version:       render.Version,
		Notice:        h.notice,
		Tab:           state.tab,
		Filters:       state.filters,
		ActiveFilters: state.filters.Active(),
		Sort:          state.sort,
		ChartTabURL:   chart.url(),
		TableTabURL:   table.url(),
		ReloadURL:     state.url(),
		PageNumber:    state.number,
	}
}

// loadTable fetches the page named by the cursor and fills the table fields
func (h *Handler) loadTable(r *http.Request, state dashboardState, data *dashboardPage) error {
	pager := dashboard.NewPager(h.fetcher)
	if err := pager.LoadAt(r.Context(), state.filters, state.cursor, state.number); err != nil {
		return err
	}

	page := pager.Page()
	data.Page = page
	data.PageNumber = pager.PageNumber()
	data.Sales = dashboard.SortSales(page.Sales, state.sort)

	current := state
	current.number = data.PageNumber

	byDate, byPrice := current, current
	byDate.sort = state.sort.Toggle(dashboard.SortByDate)
	byPrice.sort = state.sort.Toggle(dashboard.SortByPrice)
	data.DateSortURL = byDate.url()
	data.PriceSortURL = byPrice.url()

	if page.HasPrevious() {
		prev := current
		prev.cursor, prev.number = page.BeforeToken, max(1, current.number-1)
		data.PrevURL = prev.url()
	}
	if page.HasNext() {
		next := current
		next.cursor, next.number = page.AfterToken, current.number+1
		data.NextURL = next.url()
	}
	return nil
}

// ResetFilters forgets the remembered filters and returns to the dashboard
func (h *Handler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.ClearFilters(r, w); err != nil {
		h.requestLog(r).Error("failed to clear filters", slog.String("error", err.Error()))
		http.Error(w, "Failed to reset filters", http.StatusInternalServerError)
		return
	}

	target := "/"
	if r.FormValue("tab") == tabTable {
		target = "/?tab=" + tabTable
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
