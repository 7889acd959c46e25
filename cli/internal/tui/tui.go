// Package tui is the interactive terminal dashboard: a chart tab with daily
// totals and a table tab with one page of sales at a time.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

// ViewMode is the active tab
type ViewMode int

const (
	ViewChart ViewMode = iota
	ViewTable
)

// Model is the main bubbletea model
type Model struct {
	ctx     context.Context
	fetcher dashboard.Fetcher
	filters salesapi.FilterSet

	viewMode ViewMode

	// table tab
	pager       *dashboard.Pager
	sort        dashboard.SortConfig
	loadingPage bool

	// chart tab
	chart        *dashboard.Chart
	chartErr     error
	loadingChart bool

	spinner spinner.Model
	status  string
	width   int
	height  int
}

type pageLoadedMsg struct{ err error }

type chartLoadedMsg struct {
	chart *dashboard.Chart
	err   error
}

// NewModel creates a model that loads its data on Init
func NewModel(ctx context.Context, f dashboard.Fetcher, filters salesapi.FilterSet) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		ctx:          ctx,
		fetcher:      f,
		filters:      filters,
		viewMode:     ViewChart,
		pager:        dashboard.NewPager(f),
		sort:         dashboard.DefaultSort(),
		loadingPage:  true,
		loadingChart: true,
		spinner:      s,
		width:        100,
		height:       30,
	}
}

// Run starts the full-screen dashboard and blocks until the user quits
func Run(ctx context.Context, f dashboard.Fetcher, filters salesapi.FilterSet) error {
	p := tea.NewProgram(NewModel(ctx, f, filters), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadFirstPage(), m.loadChart())
}

func (m Model) loadFirstPage() tea.Cmd {
	return m.pageCmd(func(ctx context.Context) error {
		return m.pager.Load(ctx, m.filters)
	})
}

func (m Model) pageCmd(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return pageLoadedMsg{err: fn(ctx)}
	}
}

func (m Model) loadChart() tea.Cmd {
	ctx, f, filters := m.ctx, m.fetcher, m.filters
	return func() tea.Msg {
		chart, err := dashboard.BuildChart(ctx, f, filters, dashboard.DefaultChartLimit)
		return chartLoadedMsg{chart: chart, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case pageLoadedMsg:
		m.loadingPage = false
		return m, nil
	case chartLoadedMsg:
		m.loadingChart = false
		m.chartErr = msg.err
		if msg.err == nil {
			m.chart = msg.chart
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.viewMode == ViewChart {
			m.viewMode = ViewTable
		} else {
			m.viewMode = ViewChart
		}
		return m, nil
	case "r":
		m.loadingPage, m.loadingChart = true, true
		return m, tea.Batch(m.pageCmd(m.pager.Reload), m.loadChart())
	}

	if m.viewMode == ViewTable {
		return m.handleTableKeys(msg)
	}
	return m, nil
}

func (m Model) handleTableKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n", "right":
		if m.loadingPage {
			return m, nil
		}
		if !m.pager.Page().HasNext() {
			m.status = "Already on the last page"
			return m, nil
		}
		m.loadingPage = true
		return m, m.pageCmd(m.pager.Next)
	case "p", "left":
		if m.loadingPage {
			return m, nil
		}
		if !m.pager.Page().HasPrevious() {
			m.status = "Already on the first page"
			return m, nil
		}
		m.loadingPage = true
		return m, m.pageCmd(m.pager.Previous)
	case "d":
		m.sort = m.sort.Toggle(dashboard.SortByDate)
	case "$":
		m.sort = m.sort.Toggle(dashboard.SortByPrice)
	}
	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("45")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("45")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("203")).
			Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	barStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))

	statStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
