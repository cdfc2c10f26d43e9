package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency has been configured.
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// CurrencySymbol returns the display symbol for an ISO currency code.
// Unknown codes return an empty string and false.
func CurrencySymbol(code string) (string, bool) {
	sym, ok := currencySymbols[strings.ToUpper(code)]
	return sym, ok
}

// FormatMoney renders an amount with two decimals and thousands separators,
// prefixed by the currency symbol or suffixed by the code when no symbol is known.
func FormatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	grouped := groupThousands(whole) + "." + frac

	if sym, ok := CurrencySymbol(currency); ok {
		return sign + sym + grouped
	}
	return sign + grouped + " " + strings.ToUpper(currency)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
