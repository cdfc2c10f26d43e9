package cashflow

import (
	"math"

	"github.com/shopspring/decimal"
)

// Runway is the number of months the business can sustain its burn.
//
// A sustainable business has infinite runway. That case is a distinct
// sentinel rather than a large number: check IsInfinite before doing any
// arithmetic with Months.
type Runway struct {
	months   decimal.Decimal
	infinite bool
}

// Sustainable returns the infinite runway sentinel.
func Sustainable() Runway {
	return Runway{infinite: true}
}

// RunwayMonths returns a finite runway.
func RunwayMonths(months decimal.Decimal) Runway {
	return Runway{months: months}
}

// ComputeRunway derives runway from monthly income and burn.
//
// With no cash balance threaded into this calculation the result is a
// sustainability signal: infinite when burn is zero or net is non-negative,
// zero months otherwise.
func ComputeRunway(income, burn decimal.Decimal) Runway {
	net := income.Sub(burn)
	if !burn.IsPositive() || !net.IsNegative() {
		return Sustainable()
	}
	return RunwayMonths(decimal.Zero)
}

// IsInfinite reports whether the runway is the sustainable sentinel.
func (r Runway) IsInfinite() bool {
	return r.infinite
}

// Months returns the finite month count. It is zero for infinite runways.
func (r Runway) Months() decimal.Decimal {
	if r.infinite {
		return decimal.Zero
	}
	return r.months
}

// Float64 returns the runway as a float, +Inf when sustainable.
func (r Runway) Float64() float64 {
	if r.infinite {
		return math.Inf(1)
	}
	return r.months.InexactFloat64()
}

// AtOrBelow reports whether a finite runway is at or below threshold months.
// Infinite runways are never below any threshold.
func (r Runway) AtOrBelow(thresholdMonths int) bool {
	if r.infinite {
		return false
	}
	return r.months.LessThanOrEqual(decimal.NewFromInt(int64(thresholdMonths)))
}

// String formats the runway for display.
func (r Runway) String() string {
	if r.infinite {
		return "∞"
	}
	return r.months.StringFixed(1)
}
