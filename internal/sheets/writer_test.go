package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spice-ops/internal/cashflow"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testReport(t *testing.T) *Report {
	t.Helper()

	end := date(2024, 12, 31)
	obligations := []model.Obligation{
		{Kind: model.KindExpense, Name: "Rent", Amount: decimal.NewFromInt(2000),
			Frequency: model.FrequencyMonthly, StartDate: date(2024, 1, 1)},
		{Kind: model.KindContract, Name: "Initech", Amount: decimal.NewFromInt(3000),
			Frequency: model.FrequencyQuarterly, Status: model.StatusPipeline, StartDate: date(2024, 2, 1)},
		{Kind: model.KindContract, Name: "Acme", Amount: decimal.NewFromInt(5000),
			Frequency: model.FrequencyMonthly, Status: model.StatusConfirmed, StartDate: date(2024, 1, 1), EndDate: &end},
	}

	summary := cashflow.Summary{
		AsOf:            date(2024, 1, 15),
		MonthlyIncome:   decimal.NewFromInt(5000),
		MonthlyExpenses: decimal.NewFromInt(2000),
		MonthlyPipeline: decimal.NewFromInt(1000),
		MonthlyNet:      decimal.NewFromInt(3000),
		Runway:          cashflow.Sustainable(),
	}
	projection := []cashflow.MonthProjection{
		{Start: date(2024, 1, 1), Month: "2024-01", Income: decimal.NewFromInt(5000), Expenses: decimal.NewFromInt(2000),
			Net: decimal.NewFromInt(3000), Cumulative: decimal.NewFromInt(3000)},
		{Start: date(2024, 2, 1), Month: "2024-02", Income: decimal.NewFromInt(5000), Expenses: decimal.NewFromInt(2500),
			Net: decimal.NewFromInt(2500), Cumulative: decimal.NewFromInt(5500)},
	}

	return NewReport(summary, projection, obligations, "USD")
}

func TestNewReport(t *testing.T) {
	report := testReport(t)

	assert.Equal(t, "USD", report.Currency)
	assert.Equal(t, "∞", report.Runway)

	require.Len(t, report.MonthlyFlow, 2)
	assert.Equal(t, "January 2024", report.MonthlyFlow[0].Month)
	assert.True(t, decimal.NewFromInt(5500).Equal(report.MonthlyFlow[1].RunningBalance))

	require.Len(t, report.Obligations, 3)
	assert.Equal(t, "Acme", report.Obligations[0].Name)
	assert.Equal(t, "Initech", report.Obligations[1].Name)
	assert.Equal(t, "Rent", report.Obligations[2].Name)
	assert.True(t, decimal.NewFromInt(1000).Equal(report.Obligations[1].MonthlyAmount))
}

func TestNewReport_DefaultsCurrency(t *testing.T) {
	report := NewReport(cashflow.Summary{Runway: cashflow.RunwayMonths(decimal.Zero)}, nil, nil, "")
	assert.Equal(t, model.DefaultCurrency, report.Currency)
	assert.Equal(t, "0.0", report.Runway)
	assert.Empty(t, report.MonthlyFlow)
	assert.Empty(t, report.Obligations)
}

func findRow(values [][]any, title string) int {
	for i, row := range values {
		if len(row) > 0 && row[0] == title {
			return i
		}
	}
	return -1
}

func TestPrepareReportData(t *testing.T) {
	values := prepareReportData(testReport(t))

	assert.Equal(t, titleReport, values[0][0])
	assert.Equal(t, "As of Jan 15, 2024", values[0][1])

	summary := findRow(values, titleSummary)
	require.NotEqual(t, -1, summary)
	assert.Equal(t, []any{"Monthly Income", "5000.00"}, values[summary+1])
	assert.Equal(t, []any{"Monthly Expenses", "2000.00"}, values[summary+2])
	assert.Equal(t, []any{"Pipeline Income", "1000.00"}, values[summary+3])
	assert.Equal(t, []any{"Net Monthly", "3000.00"}, values[summary+4])
	assert.Equal(t, []any{"Runway (months)", "∞"}, values[summary+5])

	projection := findRow(values, titleProjection)
	require.NotEqual(t, -1, projection)
	assert.Equal(t, []any{"Month", "Income", "Expenses", "Net", "Cumulative"}, values[projection+1])
	assert.Equal(t, []any{"February 2024", "5000.00", "2500.00", "2500.00", "5500.00"}, values[projection+3])

	obligations := findRow(values, titleObligations)
	require.NotEqual(t, -1, obligations)
	assert.Greater(t, obligations, projection)
	first := values[obligations+2]
	assert.Equal(t, []any{"contract", "Acme", "confirmed", "monthly", "5000.00", "5000.00", "2024-01-01", "2024-12-31"}, first)
	last := values[obligations+4]
	assert.Equal(t, "Rent", last[1])
	assert.Equal(t, "", last[7])

	assert.Len(t, values, obligations+5)
}

func TestCurrencyPattern(t *testing.T) {
	assert.Equal(t, `"$"#,##0.00`, currencyPattern("USD"))
	assert.Equal(t, `"€"#,##0.00`, currencyPattern("eur"))
	assert.Equal(t, `#,##0.00 "CHF"`, currencyPattern("chf"))
	assert.Equal(t, `"$"#,##0.00`, currencyPattern(""))
}

func TestTabRange(t *testing.T) {
	assert.Equal(t, "'Cashflow'!A1", tabRange("Cashflow", "A1"))
	assert.Equal(t, "'Bob''s Plan'!A:Z", tabRange("Bob's Plan", "A:Z"))
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	var writer ReportWriter = mock
	report := testReport(t)

	require.NoError(t, writer.Write(context.Background(), report))
	assert.Equal(t, 1, mock.WriteCallCount)
	assert.Same(t, report, mock.LastReport)

	boom := errors.New("quota exceeded")
	mock.SetWriteError(boom)
	assert.ErrorIs(t, writer.Write(context.Background(), report), boom)

	calls := mock.GetWriteCalls()
	require.Len(t, calls, 2)
	assert.ErrorIs(t, calls[1].Error, boom)

	mock.Reset()
	assert.Zero(t, mock.WriteCallCount)
	assert.Nil(t, mock.LastReport)
}
