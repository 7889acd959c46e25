package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("SALES DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if line := m.renderFilters(); line != "" {
		s.WriteString(line)
		s.WriteString("\n\n")
	}

	switch m.viewMode {
	case ViewChart:
		s.WriteString(m.renderChartView())
	case ViewTable:
		s.WriteString(m.renderTableView())
	}

	if m.status != "" {
		s.WriteString("\n")
		s.WriteString(emptyStyle.Render(m.status))
	}
	s.WriteString("\n")
	s.WriteString(m.renderHelp())
	return s.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Sales Chart", "Sales Table"}
	rendered := make([]string, len(tabs))
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			rendered[i] = tabActiveStyle.Render(tab)
		} else {
			rendered[i] = tabInactiveStyle.Render(tab)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderFilters() string {
	active := m.filters.Active()
	if len(active) == 0 {
		return ""
	}
	parts := make([]string, len(active))
	for i, f := range active {
		parts[i] = f.Name + "=" + f.Value
	}
	return emptyStyle.Render("Filters: " + strings.Join(parts, "  "))
}

func (m Model) renderChartView() string {
	if m.loadingChart {
		return m.spinner.View() + " Loading chart data..."
	}
	if m.chartErr != nil {
		return errorStyle.Render(salesapi.UserMessage(m.chartErr) + "\nPress r to retry.")
	}
	if m.chart == nil || len(m.chart.Days) == 0 {
		return emptyStyle.Render("No sales data available for the selected period.")
	}

	sum := m.chart.Summary
	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		statStyle.Render("Total Sales\n"+dashboard.FormatMoney(sum.Total)),
		statStyle.Render("Average Sale\n"+dashboard.FormatMoney(sum.Average)),
		statStyle.Render(fmt.Sprintf("Peak Day\n%s %s", sum.Peak.Date, dashboard.FormatMoney(sum.Peak.Total))),
		statStyle.Render(fmt.Sprintf("Days\n%d", sum.Days)),
	)

	// leave room for the date and amount columns
	width := max(10, m.width-40)

	var b strings.Builder
	b.WriteString(stats)
	b.WriteString("\n\n")
	for _, d := range m.visibleDays() {
		fmt.Fprintf(&b, "%s  %s %s (%d)\n",
			d.Date,
			barStyle.Render(dashboard.Bar(d.Total, sum.Peak.Total, width)),
			dashboard.FormatMoney(d.Total),
			d.Count)
	}
	return b.String()
}

// visibleDays keeps the most recent days that fit on screen
func (m Model) visibleDays() []dashboard.DailyTotal {
	days := m.chart.Days
	rows := max(5, m.height-14)
	if len(days) > rows {
		days = days[len(days)-rows:]
	}
	return days
}

func (m Model) renderTableView() string {
	page := m.pager.Page()

	var b strings.Builder
	if m.loadingPage {
		b.WriteString(m.spinner.View() + " Loading sales...\n\n")
	}

	if err := m.pager.Err(); err != nil {
		b.WriteString(errorStyle.Render(salesapi.UserMessage(err) + "\nPress r to retry."))
		b.WriteString("\n\n")
	}

	if page == nil {
		return b.String()
	}
	if len(page.Sales) == 0 {
		b.WriteString(emptyStyle.Render("No sales found for these filters."))
		return b.String()
	}

	columns := []table.Column{
		{Title: "Date " + m.sort.Indicator(dashboard.SortByDate), Width: 18},
		{Title: "Customer", Width: 20},
		{Title: "Email", Width: 28},
		{Title: "Phone", Width: 16},
		{Title: "Price " + m.sort.Indicator(dashboard.SortByPrice), Width: 14},
	}

	sales := dashboard.SortSales(page.Sales, m.sort)
	rows := make([]table.Row, len(sales))
	for i, s := range sales {
		rows[i] = table.Row{
			dashboard.FormatSaleDate(s),
			s.CustomerName,
			s.CustomerEmail,
			s.CustomerPhone,
			dashboard.FormatPrice(s),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(min(len(rows)+3, max(5, m.height-12))),
	)

	b.WriteString(t.View())
	fmt.Fprintf(&b, "\n\nPage %d  ·  showing %d of %d sales", m.pager.PageNumber(), len(page.Sales), page.Total)
	return b.String()
}

func (m Model) renderHelp() string {
	if m.viewMode == ViewTable {
		return helpStyle.Render("tab: chart  n/p: next/prev page  d: sort by date  $: sort by price  r: reload  q: quit")
	}
	return helpStyle.Render("tab: table  r: reload  q: quit")
}
