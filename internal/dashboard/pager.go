// Package dashboard holds the presentation logic shared by the CLI, TUI and
// web front ends: the table pager, client-side sorting and chart aggregation.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

// ErrNoPage is returned when navigating past the first or last page
var ErrNoPage = errors.New("no page in that direction")

// Fetcher fetches one page of sales. *salesapi.Client satisfies it.
type Fetcher interface {
	FetchSalesPage(ctx context.Context, cursor string, filters salesapi.FilterSet) (*salesapi.SalesPage, error)
}

// Pager tracks the table view: the active filters, the current page and its
// cursor, and a one-based page counter. It is safe for concurrent use, though
// navigation calls are expected to come from a single UI.
type Pager struct {
	fetcher Fetcher

	mu      sync.Mutex
	filters salesapi.FilterSet
	cursor  string
	page    *salesapi.SalesPage
	number  int
	err     error
}

// NewPager creates a pager with no page loaded
func NewPager(f Fetcher) *Pager {
	return &Pager{fetcher: f}
}

// Load applies filters and fetches the first page
func (p *Pager) Load(ctx context.Context, filters salesapi.FilterSet) error {
	return p.LoadAt(ctx, filters, "", 1)
}

// LoadAt applies filters and fetches the page at cursor, labelling it with the
// given page number. Stateless front ends use it to restore a position.
func (p *Pager) LoadAt(ctx context.Context, filters salesapi.FilterSet, cursor string, number int) error {
	if number < 1 || cursor == "" {
		number = 1
	}
	p.mu.Lock()
	changed := p.filters != filters
	p.filters = filters
	p.mu.Unlock()
	return p.fetch(ctx, cursor, number, changed)
}

// Next moves to the following page
func (p *Pager) Next(ctx context.Context) error {
	p.mu.Lock()
	if !p.page.HasNext() {
		p.mu.Unlock()
		return ErrNoPage
	}
	cursor, number := p.page.AfterToken, p.number+1
	p.mu.Unlock()
	return p.fetch(ctx, cursor, number, false)
}

// Previous moves to the preceding page
func (p *Pager) Previous(ctx context.Context) error {
	p.mu.Lock()
	if !p.page.HasPrevious() {
		p.mu.Unlock()
		return ErrNoPage
	}
	cursor, number := p.page.BeforeToken, max(1, p.number-1)
	p.mu.Unlock()
	return p.fetch(ctx, cursor, number, false)
}

// Reload fetches the current page again
func (p *Pager) Reload(ctx context.Context) error {
	p.mu.Lock()
	cursor, number := p.cursor, max(1, p.number)
	p.mu.Unlock()
	return p.fetch(ctx, cursor, number, false)
}

// fetch loads a page. On failure the error is recorded and the previous page
// stays visible, unless the filters changed: its cursors belong to the old
// result set, so the pager drops back to an unloaded first page.
func (p *Pager) fetch(ctx context.Context, cursor string, number int, filtersChanged bool) error {
	p.mu.Lock()
	filters := p.filters
	p.mu.Unlock()

	page, err := p.fetcher.FetchSalesPage(ctx, cursor, filters)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.err = err
		if filtersChanged {
			p.page = nil
			p.cursor = ""
			p.number = 0
		}
		return err
	}
	p.page = page
	p.cursor = cursor
	p.number = number
	p.err = nil
	return nil
}

// Page returns the last successfully loaded page, or nil
func (p *Pager) Page() *salesapi.SalesPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// PageNumber is the one-based counter of the current page, 0 before any load
func (p *Pager) PageNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.number
}

// Cursor is the cursor the current page was fetched with
func (p *Pager) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Filters returns the filters in effect
func (p *Pager) Filters() salesapi.FilterSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filters
}

// Err returns the error of the most recent fetch, or nil if it succeeded
func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
