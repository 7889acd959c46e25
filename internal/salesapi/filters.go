package salesapi

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for date filters
const DateLayout = "2006-01-02"

// Default rolling window applied when a date filter is unset
const (
	DefaultLookbackDays  = 30
	DefaultLookaheadDays = 1
)

// FilterSet narrows a sales query. Every field is optional; an empty field is
// not sent, except the dates, which fall back to the rolling window.
type FilterSet struct {
	StartDate     string `json:"startDate,omitempty"`
	EndDate       string `json:"endDate,omitempty"`
	MinPrice      string `json:"minPrice,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
}

// FilterField is a named, non-empty filter value
type FilterField struct {
	Name  string
	Value string
}

// Active lists the filters that constrain the query, in form order
func (f FilterSet) Active() []FilterField {
	var out []FilterField
	for _, field := range []FilterField{
		{"startDate", f.StartDate},
		{"endDate", f.EndDate},
		{"minPrice", f.MinPrice},
		{"customerEmail", f.CustomerEmail},
		{"phoneNumber", f.PhoneNumber},
	} {
		if strings.TrimSpace(field.Value) != "" {
			out = append(out, field)
		}
	}
	return out
}

// IsEmpty reports whether no filter is set
func (f FilterSet) IsEmpty() bool {
	return len(f.Active()) == 0
}

// Validate checks the fields that are parsed before sending
func (f FilterSet) Validate() error {
	if s := strings.TrimSpace(f.MinPrice); s != "" {
		if _, err := parseMinPrice(s); err != nil {
			return fmt.Errorf("%w: minPrice %q is not a number", ErrInvalidFilter, f.MinPrice)
		}
	}
	for _, d := range []struct{ name, value string }{
		{"startDate", f.StartDate},
		{"endDate", f.EndDate},
	} {
		if s := strings.TrimSpace(d.value); s != "" {
			if _, err := time.Parse(DateLayout, s); err != nil {
				return fmt.Errorf("%w: %s %q is not a YYYY-MM-DD date", ErrInvalidFilter, d.name, d.value)
			}
		}
	}
	return nil
}

// EffectiveDates resolves the date range sent for f at the given instant
func (f FilterSet) EffectiveDates(now time.Time) (start, end string) {
	start = strings.TrimSpace(f.StartDate)
	if start == "" {
		start = now.AddDate(0, 0, -DefaultLookbackDays).Format(DateLayout)
	}
	end = strings.TrimSpace(f.EndDate)
	if end == "" {
		end = now.AddDate(0, 0, DefaultLookaheadDays).Format(DateLayout)
	}
	return start, end
}

func parseMinPrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// buildQuery maps a validated filter set and cursor to sales query parameters
func buildQuery(filters FilterSet, cursor string, pageSize int, now time.Time) url.Values {
	start, end := filters.EffectiveDates(now)

	q := url.Values{}
	q.Set("startDate", start)
	q.Set("endDate", end)
	q.Set("limit", strconv.Itoa(pageSize))

	if s := strings.TrimSpace(filters.MinPrice); s != "" {
		if v, err := parseMinPrice(s); err == nil {
			q.Set("minPrice", strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	if s := strings.TrimSpace(filters.CustomerEmail); s != "" {
		q.Set("email", s)
	}
	if s := strings.TrimSpace(filters.PhoneNumber); s != "" {
		q.Set("phone", s)
	}
	if cursor != "" {
		q.Set("page", cursor)
	}
	return q
}
