package dashboard

import (
	"math"
	"strconv"
	"strings"

	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

// FormatMoney renders v as US dollars with thousands separators, e.g. $1,234.50
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// FormatSaleDate renders the sale date for tables, falling back to the raw
// value when it cannot be parsed
func FormatSaleDate(s salesapi.SaleRecord) string {
	t, ok := s.Time()
	if !ok {
		return s.Date
	}
	return t.Format("Jan 2, 2006 15:04")
}

// FormatPrice renders a sale's price with its currency when present
func FormatPrice(s salesapi.SaleRecord) string {
	money := FormatMoney(s.Price.Float())
	if c := strings.TrimSpace(s.Currency); c != "" && !strings.EqualFold(c, "USD") {
		return strings.TrimPrefix(money, "$") + " " + strings.ToUpper(c)
	}
	return money
}

// Bar returns a bar of width proportional to v/peak, at least one cell for
// any positive value
func Bar(v, peak float64, width int) string {
	if peak <= 0 || v <= 0 || width <= 0 {
		return ""
	}
	n := int(math.Round(v / peak * float64(width)))
	n = max(1, min(n, width))
	return strings.Repeat("█", n)
}
