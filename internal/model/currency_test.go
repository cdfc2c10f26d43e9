package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"usd small", "12.5", "USD", "$12.50"},
		{"usd thousands", "1234567.891", "USD", "$1,234,567.89"},
		{"exactly three digits", "999", "USD", "$999.00"},
		{"negative", "-2500", "USD", "-$2,500.00"},
		{"euro lowercase code", "1000", "eur", "€1,000.00"},
		{"unknown code", "42", "CHF", "42.00 CHF"},
		{"empty defaults to usd", "7", "", "$7.00"},
		{"zero", "0", "GBP", "£0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMoney(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrencySymbol(t *testing.T) {
	sym, ok := CurrencySymbol("usd")
	assert.True(t, ok)
	assert.Equal(t, "$", sym)

	_, ok = CurrencySymbol("XYZ")
	assert.False(t, ok)
}
