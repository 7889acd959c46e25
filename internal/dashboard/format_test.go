package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
)

func TestFormatMoney(t *testing.T) {
	tests := map[float64]string{
		0:          "$0.00",
		5.5:        "$5.50",
		999.999:    "$1,000.00",
		1234.5:     "$1,234.50",
		1234567.89: "$1,234,567.89",
		-42:        "-$42.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatMoney(in), "input %v", in)
	}
}

func TestFormatSaleDate(t *testing.T) {
	assert.Equal(t, "Mar 1, 2024 10:30", FormatSaleDate(salesapi.SaleRecord{Date: "2024-03-01T10:30:00Z"}))
	assert.Equal(t, "whenever", FormatSaleDate(salesapi.SaleRecord{Date: "whenever"}))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$12.50", FormatPrice(salesapi.SaleRecord{Price: "12.5"}))
	assert.Equal(t, "$12.50", FormatPrice(salesapi.SaleRecord{Price: "12.5", Currency: "usd"}))
	assert.Equal(t, "12.50 EUR", FormatPrice(salesapi.SaleRecord{Price: "12.5", Currency: "eur"}))
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(0, 100, 10))
	assert.Equal(t, "", Bar(10, 0, 10))
	assert.Equal(t, "█", Bar(1, 1000, 10))
	assert.Equal(t, "█████", Bar(50, 100, 10))
	assert.Equal(t, "██████████", Bar(100, 100, 10))
}
