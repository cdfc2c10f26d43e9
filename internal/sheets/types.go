package sheets

import (
	"sort"
	"time"

	"github.com/Veraticus/spice-ops/internal/cashflow"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
)

// MonthlyFlowRow represents a single row of the projection table.
type MonthlyFlowRow struct {
	Month          string // e.g., "January 2024"
	TotalIncome    decimal.Decimal
	TotalExpenses  decimal.Decimal
	NetFlow        decimal.Decimal // Income - Expenses
	RunningBalance decimal.Decimal
}

// ObligationRow represents a single contract or expense in the detail table.
type ObligationRow struct {
	StartDate     time.Time
	EndDate       *time.Time
	Amount        decimal.Decimal
	MonthlyAmount decimal.Decimal
	Kind          string
	Name          string
	Status        string
	Frequency     string
}

// Report holds everything written to the cashflow tab.
type Report struct {
	AsOf            time.Time
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
	MonthlyPipeline decimal.Decimal
	MonthlyNet      decimal.Decimal
	Currency        string
	Runway          string
	MonthlyFlow     []MonthlyFlowRow
	Obligations     []ObligationRow
}

// NewReport assembles a report from a computed summary, its projection and
// the obligations behind them. Contracts are listed before expenses, each
// sorted by name.
func NewReport(summary cashflow.Summary, projection []cashflow.MonthProjection, obligations []model.Obligation, currency string) *Report {
	if currency == "" {
		currency = model.DefaultCurrency
	}

	r := &Report{
		AsOf:            summary.AsOf,
		MonthlyIncome:   summary.MonthlyIncome,
		MonthlyExpenses: summary.MonthlyExpenses,
		MonthlyPipeline: summary.MonthlyPipeline,
		MonthlyNet:      summary.MonthlyNet,
		Currency:        currency,
		Runway:          summary.Runway.String(),
		MonthlyFlow:     make([]MonthlyFlowRow, 0, len(projection)),
		Obligations:     make([]ObligationRow, 0, len(obligations)),
	}

	for _, p := range projection {
		r.MonthlyFlow = append(r.MonthlyFlow, MonthlyFlowRow{
			Month:          p.Start.Format("January 2006"),
			TotalIncome:    p.Income,
			TotalExpenses:  p.Expenses,
			NetFlow:        p.Net,
			RunningBalance: p.Cumulative,
		})
	}

	for i := range obligations {
		o := &obligations[i]
		r.Obligations = append(r.Obligations, ObligationRow{
			Kind:          string(o.Kind),
			Name:          o.Name,
			Status:        string(o.Status),
			Frequency:     string(o.Frequency),
			Amount:        o.Amount,
			MonthlyAmount: cashflow.MonthlyEquivalent(o.Amount, o.Frequency),
			StartDate:     o.StartDate,
			EndDate:       o.EndDate,
		})
	}

	sort.SliceStable(r.Obligations, func(i, j int) bool {
		a, b := r.Obligations[i], r.Obligations[j]
		if a.Kind != b.Kind {
			return a.Kind == string(model.KindContract)
		}
		return a.Name < b.Name
	})

	return r
}
