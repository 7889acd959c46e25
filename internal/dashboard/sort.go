package dashboard

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

type SortKey string

const (
	SortByDate  SortKey = "date"
	SortByPrice SortKey = "price"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortConfig orders the rows of the current page
type SortConfig struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort shows the newest sales first
func DefaultSort() SortConfig {
	return SortConfig{Key: SortByDate, Direction: Descending}
}

// ParseSort builds a SortConfig from user input. An empty key means date.
func ParseSort(key string, ascending bool) (SortConfig, error) {
	cfg := SortConfig{Key: SortKey(strings.ToLower(strings.TrimSpace(key))), Direction: Descending}
	if cfg.Key == "" {
		cfg.Key = SortByDate
	}
	if cfg.Key != SortByDate && cfg.Key != SortByPrice {
		return SortConfig{}, fmt.Errorf("unknown sort key %q (want date or price)", key)
	}
	if ascending {
		cfg.Direction = Ascending
	}
	return cfg, nil
}

// Toggle returns the config after the user picks key: choosing the active key
// while ascending flips to descending, anything else sorts ascending by key
func (s SortConfig) Toggle(key SortKey) SortConfig {
	if s.Key == key && s.Direction == Ascending {
		return SortConfig{Key: key, Direction: Descending}
	}
	return SortConfig{Key: key, Direction: Ascending}
}

// Indicator is the arrow shown next to the active column
func (s SortConfig) Indicator(key SortKey) string {
	if s.Key != key {
		return ""
	}
	if s.Direction == Ascending {
		return "↑"
	}
	return "↓"
}

// SortSales returns a sorted copy of sales. Equal elements keep their order.
// Unparseable dates sort as the zero time.
func SortSales(sales []salesapi.SaleRecord, cfg SortConfig) []salesapi.SaleRecord {
	out := slices.Clone(sales)

	var cmp func(a, b salesapi.SaleRecord) int
	switch cfg.Key {
	case SortByPrice:
		cmp = func(a, b salesapi.SaleRecord) int {
			return compareFloat(a.Price.Float(), b.Price.Float())
		}
	default:
		cmp = func(a, b salesapi.SaleRecord) int {
			return saleTime(a).Compare(saleTime(b))
		}
	}

	if cfg.Direction == Ascending {
		slices.SortStableFunc(out, cmp)
	} else {
		slices.SortStableFunc(out, func(a, b salesapi.SaleRecord) int { return cmp(b, a) })
	}
	return out
}

func saleTime(s salesapi.SaleRecord) time.Time {
	t, _ := s.Time()
	return t
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
