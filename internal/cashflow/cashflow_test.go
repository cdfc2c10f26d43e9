package cashflow

import (
	"math"
	"testing"
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertDecimal(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, want.Equal(got), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func expense(amount int64, freq model.Frequency, start time.Time, end *time.Time) model.Obligation {
	return model.Obligation{
		UserID: 1, Kind: model.KindExpense, Name: "expense",
		Amount: dec(amount), Frequency: freq, StartDate: start, EndDate: end,
		Probability: 100, Active: true,
	}
}

func contract(amount int64, freq model.Frequency, status model.ContractStatus, start time.Time, end *time.Time) model.Obligation {
	return model.Obligation{
		UserID: 1, Kind: model.KindContract, Name: "contract",
		Amount: dec(amount), Frequency: freq, Status: status, StartDate: start, EndDate: end,
		Probability: 100, Active: true,
	}
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		freq   model.Frequency
		amount decimal.Decimal
		want   decimal.Decimal
	}{
		{freq: model.FrequencyMonthly, amount: dec(1000), want: dec(1000)},
		{freq: model.FrequencyQuarterly, amount: dec(600), want: dec(200)},
		{freq: model.FrequencyAnnual, amount: dec(12000), want: dec(1000)},
		{freq: model.FrequencyOneTime, amount: dec(50000), want: decimal.Zero},
		{freq: model.FrequencyOneTime, amount: decimal.Zero, want: decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			assertDecimal(t, tt.want, MonthlyEquivalent(tt.amount, tt.freq))
		})
	}
}

func TestMonthlyEquivalent_Properties(t *testing.T) {
	for _, raw := range []string{"0", "1", "99.99", "1000", "7777.77", "123456.789"} {
		amount := decimal.RequireFromString(raw)
		assertDecimal(t, amount.Div(decimal.NewFromInt(3)), MonthlyEquivalent(amount, model.FrequencyQuarterly), raw)
		assertDecimal(t, amount.Div(decimal.NewFromInt(12)), MonthlyEquivalent(amount, model.FrequencyAnnual), raw)
		assertDecimal(t, decimal.Zero, MonthlyEquivalent(amount, model.FrequencyOneTime), raw)
	}
}

func TestMonthlyEquivalent_UnknownFrequencyPanics(t *testing.T) {
	assert.Panics(t, func() {
		MonthlyEquivalent(dec(10), model.Frequency("weekly"))
	})
}

func TestMonthlyBurn(t *testing.T) {
	asOf := day(2024, 6, 15)
	ended := day(2024, 5, 31)

	inactive := expense(5000, model.FrequencyMonthly, day(2024, 1, 1), nil)
	inactive.Active = false

	expenses := []model.Obligation{
		expense(1000, model.FrequencyMonthly, day(2024, 1, 1), nil),
		expense(600, model.FrequencyQuarterly, day(2024, 1, 1), nil),
		inactive,
		expense(700, model.FrequencyMonthly, day(2024, 7, 1), nil),
		expense(800, model.FrequencyMonthly, day(2024, 1, 1), &ended),
		expense(9000, model.FrequencyOneTime, day(2024, 6, 1), nil),
	}

	assertDecimal(t, dec(1200), MonthlyBurn(expenses, asOf))
}

func TestMonthlyBurn_EndDateIsInclusive(t *testing.T) {
	end := day(2024, 6, 15)
	expenses := []model.Obligation{expense(100, model.FrequencyMonthly, day(2024, 6, 15), &end)}

	assertDecimal(t, dec(100), MonthlyBurn(expenses, time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)))
	assertDecimal(t, decimal.Zero, MonthlyBurn(expenses, day(2024, 6, 16)))
}

func TestMonthlyConfirmedIncome(t *testing.T) {
	asOf := day(2024, 6, 15)
	contracts := []model.Obligation{
		contract(5000, model.FrequencyMonthly, model.StatusConfirmed, day(2024, 1, 1), nil),
		contract(12000, model.FrequencyAnnual, model.StatusConfirmed, day(2024, 1, 1), nil),
		contract(3000, model.FrequencyMonthly, model.StatusPipeline, day(2024, 1, 1), nil),
		contract(4000, model.FrequencyMonthly, model.StatusCompleted, day(2024, 1, 1), nil),
		contract(20000, model.FrequencyOneTime, model.StatusConfirmed, day(2024, 6, 1), nil),
	}

	assertDecimal(t, dec(6000), MonthlyConfirmedIncome(contracts, asOf))
}

func TestMonthlyPipelineIncome(t *testing.T) {
	asOf := day(2024, 6, 15)
	half := contract(4000, model.FrequencyMonthly, model.StatusPipeline, day(2024, 1, 1), nil)
	half.Probability = 50
	quarter := contract(3000, model.FrequencyQuarterly, model.StatusPipeline, day(2024, 1, 1), nil)
	quarter.Probability = 25
	zero := contract(9000, model.FrequencyMonthly, model.StatusPipeline, day(2024, 1, 1), nil)
	zero.Probability = 0

	contracts := []model.Obligation{
		half,
		quarter,
		zero,
		contract(5000, model.FrequencyMonthly, model.StatusConfirmed, day(2024, 1, 1), nil),
	}

	// 4000*0.5 + 1000*0.25
	assertDecimal(t, dec(2250), MonthlyPipelineIncome(contracts, asOf))
}

func TestComputeRunway(t *testing.T) {
	tests := []struct {
		name         string
		income       decimal.Decimal
		burn         decimal.Decimal
		wantInfinite bool
	}{
		{name: "income covers burn", income: dec(10000), burn: dec(2000), wantInfinite: true},
		{name: "burn exceeds income", income: dec(1000), burn: dec(2000), wantInfinite: false},
		{name: "no burn", income: dec(0), burn: dec(0), wantInfinite: true},
		{name: "no burn with income", income: dec(500), burn: dec(0), wantInfinite: true},
		{name: "break even", income: dec(2000), burn: dec(2000), wantInfinite: true},
		{name: "no income", income: dec(0), burn: dec(1), wantInfinite: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeRunway(tt.income, tt.burn)
			assert.Equal(t, tt.wantInfinite, r.IsInfinite())
			if tt.wantInfinite {
				assert.True(t, math.IsInf(r.Float64(), 1))
				assert.Equal(t, "∞", r.String())
				return
			}
			assertDecimal(t, decimal.Zero, r.Months())
			assert.Equal(t, 0.0, r.Float64())
		})
	}
}

func TestRunway_AtOrBelow(t *testing.T) {
	assert.False(t, Sustainable().AtOrBelow(1000))
	assert.True(t, RunwayMonths(dec(3)).AtOrBelow(3))
	assert.True(t, RunwayMonths(dec(0)).AtOrBelow(0))
	assert.False(t, RunwayMonths(dec(4)).AtOrBelow(3))
	assert.Equal(t, "2.5", RunwayMonths(decimal.RequireFromString("2.5")).String())
}

func TestProject_SteadyState(t *testing.T) {
	contracts := []model.Obligation{contract(5000, model.FrequencyMonthly, model.StatusConfirmed, day(2024, 1, 1), nil)}
	expenses := []model.Obligation{expense(2000, model.FrequencyMonthly, day(2024, 1, 1), nil)}

	got := Project(contracts, expenses, day(2024, 3, 1), 3)
	require.Len(t, got, 3)

	wantMonths := []string{"2024-03", "2024-04", "2024-05"}
	for i, m := range got {
		assert.Equal(t, wantMonths[i], m.Month)
		assertDecimal(t, dec(5000), m.Income)
		assertDecimal(t, dec(2000), m.Expenses)
		assertDecimal(t, dec(3000), m.Net)
		assertDecimal(t, dec(int64(3000*(i+1))), m.Cumulative)
	}
	assertDecimal(t, dec(9000), got[2].Cumulative)
}

func TestProject_OneTimeContract(t *testing.T) {
	contracts := []model.Obligation{contract(10000, model.FrequencyOneTime, model.StatusConfirmed, day(2024, 3, 20), nil)}

	got := Project(contracts, nil, day(2024, 3, 1), 3)
	require.Len(t, got, 3)

	assertDecimal(t, dec(10000), got[0].Income)
	assertDecimal(t, decimal.Zero, got[1].Income)
	assertDecimal(t, decimal.Zero, got[2].Income)
	assertDecimal(t, dec(10000), got[2].Cumulative)
}

func TestProject_Windows(t *testing.T) {
	end := day(2024, 4, 10)
	contracts := []model.Obligation{
		// Ends mid-April: counts in March and April only.
		contract(1000, model.FrequencyMonthly, model.StatusConfirmed, day(2024, 1, 1), &end),
		// Starts in May.
		contract(3000, model.FrequencyQuarterly, model.StatusConfirmed, day(2024, 5, 31), nil),
		// Pipeline never projects.
		contract(8000, model.FrequencyMonthly, model.StatusPipeline, day(2024, 1, 1), nil),
	}
	expenses := []model.Obligation{
		expense(500, model.FrequencyMonthly, day(2024, 4, 1), nil),
		// One-time expenses are excluded from the projection.
		expense(7000, model.FrequencyOneTime, day(2024, 3, 5), nil),
	}

	got := Project(contracts, expenses, day(2024, 3, 17), 3)
	require.Len(t, got, 3)

	assertDecimal(t, dec(1000), got[0].Income)
	assertDecimal(t, decimal.Zero, got[0].Expenses)
	assertDecimal(t, dec(1000), got[1].Income)
	assertDecimal(t, dec(500), got[1].Expenses)
	assertDecimal(t, dec(1000), got[2].Income)
	assertDecimal(t, dec(500), got[2].Expenses)
	assertDecimal(t, dec(2000), got[2].Cumulative)
}

func TestProject_Restartable(t *testing.T) {
	contracts := []model.Obligation{contract(100, model.FrequencyMonthly, model.StatusConfirmed, day(2024, 1, 1), nil)}

	first := Project(contracts, nil, day(2024, 1, 1), 2)
	second := Project(contracts, nil, day(2024, 1, 1), 2)
	assert.Equal(t, first, second)

	assert.Empty(t, Project(contracts, nil, day(2024, 1, 1), 0))
	assert.Empty(t, Project(contracts, nil, day(2024, 1, 1), -1))
}

func TestProject_CrossesYearBoundary(t *testing.T) {
	got := Project(nil, nil, day(2024, 11, 30), 3)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-11", got[0].Month)
	assert.Equal(t, "2024-12", got[1].Month)
	assert.Equal(t, "2025-01", got[2].Month)
}

func TestSummarize(t *testing.T) {
	asOf := day(2024, 6, 15)
	pipeline := contract(2000, model.FrequencyMonthly, model.StatusPipeline, day(2024, 1, 1), nil)
	pipeline.Probability = 50

	obligations := []model.Obligation{
		contract(1000, model.FrequencyMonthly, model.StatusConfirmed, day(2024, 1, 1), nil),
		pipeline,
		expense(2000, model.FrequencyMonthly, day(2024, 1, 1), nil),
	}
	contracts, expenses := SplitByKind(obligations)
	require.Len(t, contracts, 2)
	require.Len(t, expenses, 1)

	s := Summarize(contracts, expenses, asOf)
	assertDecimal(t, dec(1000), s.MonthlyIncome)
	assertDecimal(t, dec(2000), s.MonthlyExpenses)
	assertDecimal(t, dec(1000), s.MonthlyPipeline)
	assertDecimal(t, dec(-1000), s.MonthlyNet)
	assert.False(t, s.Runway.IsInfinite())
	assert.Equal(t, asOf, s.AsOf)
}

func TestClassifyCrossing(t *testing.T) {
	breach := &CrossingState{CrossedBelow: true, When: day(2024, 6, 1)}
	recovered := &CrossingState{CrossedBelow: false, When: day(2024, 6, 2)}

	tests := []struct {
		last    *CrossingState
		name    string
		want    CrossingAction
		runway  Runway
		history CrossingHistory
	}{
		{name: "sustainable never raises", runway: Sustainable(), last: breach, want: ActionNone},
		{name: "below threshold raises breach", runway: RunwayMonths(dec(0)), want: ActionRaiseBreach},
		{name: "below threshold already raised today", runway: RunwayMonths(dec(0)), history: CrossingHistory{BreachRaisedToday: true}, want: ActionNone},
		{name: "at threshold is below", runway: RunwayMonths(dec(3)), want: ActionRaiseBreach},
		{name: "above threshold after breach recovers", runway: RunwayMonths(dec(6)), last: breach, want: ActionRaiseRecovery},
		{name: "above threshold recovery already raised", runway: RunwayMonths(dec(6)), last: breach, history: CrossingHistory{RecoveryRaisedSinceBreach: true}, want: ActionNone},
		{name: "above threshold after recovery", runway: RunwayMonths(dec(6)), last: recovered, want: ActionNone},
		{name: "above threshold no history", runway: RunwayMonths(dec(6)), want: ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCrossing(tt.runway, 3, tt.last, tt.history))
		})
	}
}
