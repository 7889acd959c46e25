package salesapi

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Token is a cached authorization token
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token may still be used at t
func (t Token) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// SalesPage is one normalized page of sales. Empty tokens mean there is no
// adjacent page in that direction.
type SalesPage struct {
	Sales       []SaleRecord `json:"sales"`
	BeforeToken string       `json:"beforeToken,omitempty"`
	AfterToken  string       `json:"afterToken,omitempty"`
	Total       int          `json:"total"`
}

// HasPrevious reports whether a previous page can be requested
func (p *SalesPage) HasPrevious() bool {
	return p != nil && p.BeforeToken != ""
}

// HasNext reports whether a next page can be requested
func (p *SalesPage) HasNext() bool {
	return p != nil && p.AfterToken != ""
}

// SaleRecord is passed through from the API as-is. The known fields are read
// leniently and the original JSON is re-emitted unchanged on marshal.
type SaleRecord struct {
	ID              string `json:"_id,omitempty"`
	Date            string `json:"date"`
	Price           Price  `json:"price"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	CustomerName    string `json:"customerName,omitempty"`
	CustomerCountry string `json:"customerCountry,omitempty"`
	Currency        string `json:"currency,omitempty"`

	raw json.RawMessage
}

func (s *SaleRecord) UnmarshalJSON(b []byte) error {
	*s = SaleRecord{raw: append(json.RawMessage(nil), b...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		// not an object; kept only as raw JSON
		return nil
	}

	s.ID = looseText(fields["_id"])
	s.Date = looseText(fields["date"])
	s.CustomerEmail = looseText(fields["customerEmail"])
	s.CustomerPhone = looseText(fields["customerPhone"])
	s.CustomerName = looseText(fields["customerName"])
	s.CustomerCountry = looseText(fields["customerCountry"])
	s.Currency = looseText(fields["currency"])
	if v, ok := fields["price"]; ok {
		_ = s.Price.UnmarshalJSON(v)
	}
	return nil
}

func (s SaleRecord) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain SaleRecord
	return json.Marshal(plain(s))
}

// looseText returns a JSON string's value, or the literal text of any other
// JSON value. null and absent values give "".
func looseText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

var saleDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// Time parses the sale date. ok is false when the date is not recognized.
func (s SaleRecord) Time() (t time.Time, ok bool) {
	raw := strings.TrimSpace(s.Date)
	for _, layout := range saleDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Price keeps the raw price text whether the API sent a JSON number or string
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*p = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(s)
	default:
		*p = Price(b)
	}
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(p), 64); err == nil && json.Valid([]byte(p)) {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

// Float returns the numeric price, or 0 when it cannot be parsed
func (p Price) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
