// Package cashflow computes monthly income, burn, runway and forward
// projections from a point-in-time snapshot of contracts and expenses.
//
// Every function here is pure: callers pass the snapshot and the reference
// date explicitly, nothing is cached between calls, and results are safe to
// compute concurrently.
package cashflow

import (
	"fmt"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
)

var (
	three  = decimal.NewFromInt(3)
	twelve = decimal.NewFromInt(12)
	// hundred is used for probability weighting.
	hundred = decimal.NewFromInt(100)
)

// MonthlyEquivalent normalizes an amount billed at the given cadence to its
// per-month value. One-time amounts never contribute to the recurring figure.
// No rounding is applied.
//
// It panics on an unknown frequency; obligations are validated on construction
// so reaching that branch is a programming error.
func MonthlyEquivalent(amount decimal.Decimal, freq model.Frequency) decimal.Decimal {
	switch freq {
	case model.FrequencyMonthly:
		return amount
	case model.FrequencyQuarterly:
		return amount.Div(three)
	case model.FrequencyAnnual:
		return amount.Div(twelve)
	case model.FrequencyOneTime:
		return decimal.Zero
	default:
		panic(fmt.Sprintf("cashflow: unknown frequency %q", string(freq)))
	}
}
