package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afrinbhuiyan/sales-dashboard/cli/internal/tui"
	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

// filterFlags binds the filter set to command flags
type filterFlags struct {
	startDate string
	endDate   string
	minPrice  string
	email     string
	phone     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.startDate, "start-date", "", "Earliest sale date, YYYY-MM-DD (default 30 days ago)")
	cmd.Flags().StringVar(&f.endDate, "end-date", "", "Latest sale date, YYYY-MM-DD (default tomorrow)")
	cmd.Flags().StringVar(&f.minPrice, "min-price", "", "Minimum sale price")
	cmd.Flags().StringVar(&f.email, "email", "", "Customer email")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Customer phone number")
}

func (f *filterFlags) filters() salesapi.FilterSet {
	return salesapi.FilterSet{
		StartDate:     f.startDate,
		EndDate:       f.endDate,
		MinPrice:      f.minPrice,
		CustomerEmail: f.email,
		PhoneNumber:   f.phone,
	}
}

func newSalesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "List, chart and browse sales",
	}

	cmd.AddCommand(newSalesListCommand())
	cmd.AddCommand(newSalesChartCommand())
	cmd.AddCommand(newSalesTUICommand())

	return cmd
}

func newSalesListCommand() *cobra.Command {
	var (
		ff        filterFlags
		cursor    string
		sortKey   string
		ascending bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of sales",
		Long: `Show one page of sales as a table.

Pass the before or after cursor printed under the table to --page to move between pages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			sortCfg, err := dashboard.ParseSort(sortKey, ascending)
			if err != nil {
				return err
			}

			page, err := cliCtx.Client.FetchSalesPage(cmd.Context(), cursor, ff.filters())
			if err != nil {
				return userError(err)
			}

			printMarkdown(cmd.OutOrStdout(), cliCtx.Config, salesMarkdown(page, ff.filters(), sortCfg))
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVar(&cursor, "page", "", "Page cursor from a previous listing")
	cmd.Flags().StringVar(&sortKey, "sort", "date", "Sort rows by date or price")
	cmd.Flags().BoolVar(&ascending, "asc", false, "Sort ascending instead of descending")

	return cmd
}

func newSalesChartCommand() *cobra.Command {
	var (
		ff    filterFlags
		limit int
		width int
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show daily sales totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			if err := ff.filters().Validate(); err != nil {
				return err
			}

			chart, err := dashboard.BuildChart(cmd.Context(), cliCtx.Client, ff.filters(), limit)
			if err != nil {
				return userError(err)
			}

			writeChart(cmd.OutOrStdout(), chart, width)
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", dashboard.DefaultChartLimit, "Maximum number of sales to collect")
	cmd.Flags().IntVar(&width, "width", 40, "Width of the longest bar")

	return cmd
}

func newSalesTUICommand() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse sales interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			if err := ff.filters().Validate(); err != nil {
				return err
			}

			return tui.Run(cmd.Context(), cliCtx.Client, ff.filters())
		},
	}

	ff.register(cmd)
	return cmd
}

// userError replaces classified client errors with their user-facing text
func userError(err error) error {
	if salesapi.IsSessionExpired(err) {
		return fmt.Errorf("%s\nRun the command again to sign in with a fresh token", salesapi.SessionExpiredMessage)
	}
	return err
}

// salesMarkdown renders a page as a markdown table followed by pager hints
func salesMarkdown(page *salesapi.SalesPage, filters salesapi.FilterSet, sortCfg dashboard.SortConfig) string {
	var b strings.Builder

	b.WriteString("# Sales\n\n")
	if active := filters.Active(); len(active) > 0 {
		parts := make([]string, len(active))
		for i, f := range active {
			parts[i] = fmt.Sprintf("%s=`%s`", f.Name, f.Value)
		}
		b.WriteString("Filters: " + strings.Join(parts, ", ") + "\n\n")
	}

	if len(page.Sales) == 0 {
		b.WriteString("_No sales found for these filters._\n")
		return b.String()
	}

	fmt.Fprintf(&b, "| Date %s | Customer | Email | Phone | Country | Price %s |\n",
		sortCfg.Indicator(dashboard.SortByDate), sortCfg.Indicator(dashboard.SortByPrice))
	b.WriteString("|---|---|---|---|---|---:|\n")
	for _, s := range dashboard.SortSales(page.Sales, sortCfg) {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			escapeCell(dashboard.FormatSaleDate(s)),
			escapeCell(s.CustomerName),
			escapeCell(s.CustomerEmail),
			escapeCell(s.CustomerPhone),
			escapeCell(s.CustomerCountry),
			escapeCell(dashboard.FormatPrice(s)),
		)
	}

	fmt.Fprintf(&b, "\nShowing %d of %d sales\n", len(page.Sales), page.Total)
	if page.HasPrevious() {
		fmt.Fprintf(&b, "\nPrevious page: `--page %s`\n", page.BeforeToken)
	}
	if page.HasNext() {
		fmt.Fprintf(&b, "\nNext page: `--page %s`\n", page.AfterToken)
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// writeChart prints one bar per day followed by the summary
func writeChart(w io.Writer, chart *dashboard.Chart, width int) {
	if len(chart.Days) == 0 {
		fmt.Fprintln(w, "No sales data available for the selected period.")
		return
	}

	peak := chart.Summary.Peak.Total
	for _, d := range chart.Days {
		fmt.Fprintf(w, "%s  %-*s  %s (%d)\n",
			d.Date, width, dashboard.Bar(d.Total, peak, width), dashboard.FormatMoney(d.Total), d.Count)
	}

	s := chart.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total sales:   %s across %d sales\n", dashboard.FormatMoney(s.Total), s.SaleCount)
	fmt.Fprintf(w, "Average sale:  %s\n", dashboard.FormatMoney(s.Average))
	fmt.Fprintf(w, "Peak day:      %s (%s)\n", s.Peak.Date, dashboard.FormatMoney(s.Peak.Total))
	fmt.Fprintf(w, "Lowest day:    %s (%s)\n", s.Lowest.Date, dashboard.FormatMoney(s.Lowest.Total))
}
