package cashflow

import (
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
)

// MonthLayout is the label format used for projected months.
const MonthLayout = "2006-01"

// MonthProjection is one calendar month of a forward projection.
type MonthProjection struct {
	Start      time.Time
	Month      string
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Net        decimal.Decimal
	Cumulative decimal.Decimal
}

// Project walks `months` consecutive calendar months starting at the month
// containing referenceMonthStart and returns income, expenses, net and the
// running cumulative balance for each.
//
// Confirmed one-time contracts count only in the month containing their start
// date; one-time expenses are left out, mirroring MonthlyBurn.
func Project(contracts, expenses []model.Obligation, referenceMonthStart time.Time, months int) []MonthProjection {
	if months <= 0 {
		return []MonthProjection{}
	}

	start := MonthStart(referenceMonthStart)
	result := make([]MonthProjection, 0, months)
	cumulative := decimal.Zero

	for i := 0; i < months; i++ {
		from := start.AddDate(0, i, 0)
		to := from.AddDate(0, 1, -1)

		income := projectedIncome(contracts, from, to)
		outgoing := projectedExpenses(expenses, from, to)
		net := income.Sub(outgoing)
		cumulative = cumulative.Add(net)

		result = append(result, MonthProjection{
			Start:      from,
			Month:      from.Format(MonthLayout),
			Income:     income,
			Expenses:   outgoing,
			Net:        net,
			Cumulative: cumulative,
		})
	}

	return result
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func projectedIncome(contracts []model.Obligation, from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range contracts {
		c := &contracts[i]
		if !c.Active || c.Status != model.StatusConfirmed {
			continue
		}
		if !c.Frequency.IsRecurring() {
			if inMonth(c.StartDate, from) {
				total = total.Add(c.Amount)
			}
			continue
		}
		if c.Overlaps(from, to) {
			total = total.Add(MonthlyEquivalent(c.Amount, c.Frequency))
		}
	}
	return total
}

func projectedExpenses(expenses []model.Obligation, from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range expenses {
		e := &expenses[i]
		if !e.Active || !e.Frequency.IsRecurring() || !e.Overlaps(from, to) {
			continue
		}
		total = total.Add(MonthlyEquivalent(e.Amount, e.Frequency))
	}
	return total
}

func inMonth(t, monthStart time.Time) bool {
	return t.Year() == monthStart.Year() && t.Month() == monthStart.Month()
}
