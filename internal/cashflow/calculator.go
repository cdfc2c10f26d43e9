package cashflow

import (
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
)

// Summary is the monthly cashflow position at a reference date.
type Summary struct {
	AsOf            time.Time
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
	MonthlyPipeline decimal.Decimal
	MonthlyNet      decimal.Decimal
	Runway          Runway
}

// MonthlyBurn sums the monthly-equivalent of every active, recurring expense
// whose window contains asOf.
func MonthlyBurn(expenses []model.Obligation, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range expenses {
		e := &expenses[i]
		if !countsAsRecurring(e, asOf) {
			continue
		}
		total = total.Add(MonthlyEquivalent(e.Amount, e.Frequency))
	}
	return total
}

// MonthlyConfirmedIncome sums confirmed recurring contracts in effect at asOf.
func MonthlyConfirmedIncome(contracts []model.Obligation, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range contracts {
		c := &contracts[i]
		if c.Status != model.StatusConfirmed || !countsAsRecurring(c, asOf) {
			continue
		}
		total = total.Add(MonthlyEquivalent(c.Amount, c.Frequency))
	}
	return total
}

// MonthlyPipelineIncome sums pipeline contracts in effect at asOf, each
// weighted by its win probability.
func MonthlyPipelineIncome(contracts []model.Obligation, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range contracts {
		c := &contracts[i]
		if c.Status != model.StatusPipeline || !countsAsRecurring(c, asOf) {
			continue
		}
		weight := decimal.NewFromInt(int64(c.Probability)).Div(hundred)
		total = total.Add(MonthlyEquivalent(c.Amount, c.Frequency).Mul(weight))
	}
	return total
}

// Summarize composes income, burn, pipeline, net and runway at asOf.
func Summarize(contracts, expenses []model.Obligation, asOf time.Time) Summary {
	income := MonthlyConfirmedIncome(contracts, asOf)
	burn := MonthlyBurn(expenses, asOf)

	return Summary{
		AsOf:            asOf,
		MonthlyIncome:   income,
		MonthlyExpenses: burn,
		MonthlyPipeline: MonthlyPipelineIncome(contracts, asOf),
		MonthlyNet:      income.Sub(burn),
		Runway:          ComputeRunway(income, burn),
	}
}

// SplitByKind separates a mixed obligation list into contracts and expenses.
func SplitByKind(obligations []model.Obligation) (contracts, expenses []model.Obligation) {
	for _, o := range obligations {
		switch o.Kind {
		case model.KindContract:
			contracts = append(contracts, o)
		case model.KindExpense:
			expenses = append(expenses, o)
		}
	}
	return contracts, expenses
}

func countsAsRecurring(o *model.Obligation, asOf time.Time) bool {
	return o.Active && o.Frequency.IsRecurring() && o.Covers(asOf)
}
