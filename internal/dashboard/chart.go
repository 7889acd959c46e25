package dashboard

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

// DefaultChartLimit caps how many sales the chart collects
const DefaultChartLimit = 500

// DailyTotal is the sum of sale prices on one UTC calendar day
type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// ChartSummary holds the headline figures shown above the chart
type ChartSummary struct {
	Days      int        `json:"days"`
	SaleCount int        `json:"saleCount"`
	Total     float64    `json:"total"`
	Average   float64    `json:"average"`
	Peak      DailyTotal `json:"peak"`
	Lowest    DailyTotal `json:"lowest"`
}

// Chart is the aggregated view of the collected sales
type Chart struct {
	Days    []DailyTotal `json:"days"`
	Summary ChartSummary `json:"summary"`
}

// CollectSales follows AfterToken from the first page, accumulating sales
// until a page is empty, there is no next page, or limit sales are held.
// A limit <= 0 means DefaultChartLimit.
func CollectSales(ctx context.Context, f Fetcher, filters salesapi.FilterSet, limit int) ([]salesapi.SaleRecord, error) {
	if limit <= 0 {
		limit = DefaultChartLimit
	}

	var all []salesapi.SaleRecord
	cursor := ""
	for len(all) < limit {
		page, err := f.FetchSalesPage(ctx, cursor, filters)
		if err != nil {
			return nil, err
		}
		if len(page.Sales) == 0 {
			break
		}
		all = append(all, page.Sales...)
		if !page.HasNext() {
			break
		}
		cursor = page.AfterToken
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// AggregateDaily groups sales by UTC day and sums their prices. Days are
// sorted ascending; sales with unparseable dates are skipped.
func AggregateDaily(sales []salesapi.SaleRecord) []DailyTotal {
	byDay := make(map[string]*DailyTotal)
	for _, s := range sales {
		t, ok := s.Time()
		if !ok {
			continue
		}
		day := t.UTC().Format(salesapi.DateLayout)
		dt, ok := byDay[day]
		if !ok {
			dt = &DailyTotal{Date: day}
			byDay[day] = dt
		}
		dt.Total += s.Price.Float()
		dt.Count++
	}

	days := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		dt.Total = round2(dt.Total)
		days = append(days, *dt)
	}
	slices.SortFunc(days, func(a, b DailyTotal) int {
		return strings.Compare(a.Date, b.Date)
	})
	return days
}

// Summarize computes totals over the aggregated days. The average is per
// sale, not per day.
func Summarize(days []DailyTotal, saleCount int) ChartSummary {
	sum := ChartSummary{Days: len(days), SaleCount: saleCount}
	if len(days) == 0 {
		return sum
	}

	sum.Peak, sum.Lowest = days[0], days[0]
	for _, d := range days {
		sum.Total += d.Total
		if d.Total > sum.Peak.Total {
			sum.Peak = d
		}
		if d.Total < sum.Lowest.Total {
			sum.Lowest = d
		}
	}
	sum.Total = round2(sum.Total)
	if saleCount > 0 {
		sum.Average = sum.Total / float64(saleCount)
	}
	return sum
}

// BuildChart collects, aggregates and summarizes sales for filters
func BuildChart(ctx context.Context, f Fetcher, filters salesapi.FilterSet, limit int) (*Chart, error) {
	sales, err := CollectSales(ctx, f, filters, limit)
	if err != nil {
		return nil, err
	}
	days := AggregateDaily(sales)
	return &Chart{Days: days, Summary: Summarize(days, len(sales))}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
