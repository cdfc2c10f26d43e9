package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/sheets"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliEnv runs commands against a throwaway home directory and database.
type cliEnv struct {
	t      *testing.T
	dbPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return &cliEnv{t: t, dbPath: filepath.Join(home, "data", "spiceops.db")}
}

// run executes one command line and returns its stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	viper.Reset()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--db", e.dbPath, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "spiceops %v", args)
	return out
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun("version")
	assert.Equal(t, "spiceops dev\n", out)
}

func TestContractsAddAndList(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("contracts", "add", "--name", "Acme retainer", "--amount", "$10,000", "--start", "2024-01-01")
	assert.Contains(t, out, "Added contract #1 Acme retainer ($10,000.00 monthly)")

	env.mustRun("contracts", "add", "--name", "Globex audit", "--amount", "24000",
		"--frequency", "one_time", "--status", "pipeline", "--probability", "40", "--start", "2024-03-01")

	out = env.mustRun("contracts", "list")
	assert.Contains(t, out, "Acme retainer")
	assert.Contains(t, out, "Globex audit")
	assert.Contains(t, out, "pipeline")
	assert.Contains(t, out, "open")

	out = env.mustRun("expenses", "list")
	assert.Contains(t, out, "No expenses found")
}

func TestContractsAddRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative amount", []string{"--name", "X", "--amount", "-5"}},
		{"bad frequency", []string{"--name", "X", "--amount", "5", "--frequency", "weekly"}},
		{"bad status", []string{"--name", "X", "--amount", "5", "--status", "maybe"}},
		{"end before start", []string{"--name", "X", "--amount", "5", "--start", "2024-06-01", "--end", "2024-01-01"}},
		{"probability out of range", []string{"--name", "X", "--amount", "5", "--probability", "150"}},
		{"bad date", []string{"--name", "X", "--amount", "5", "--start", "01/02/2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCLIEnv(t)
			_, err := env.run(append([]string{"contracts", "add"}, tt.args...)...)
			require.Error(t, err)
			var userErr *common.UserError
			assert.ErrorAs(t, err, &userErr)
		})
	}
}

func TestContractStatusRecordsSignedEvent(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("contracts", "add", "--name", "Initech", "--amount", "5000", "--status", "pipeline", "--start", "2024-01-01")
	out := env.mustRun("events", "list")
	assert.Contains(t, out, "No events found")

	out = env.mustRun("contracts", "status", "1", "confirmed")
	assert.Contains(t, out, "pipeline → confirmed")

	out = env.mustRun("events", "list")
	assert.Contains(t, out, "contract_signed")
	assert.Contains(t, out, "Signed Initech")

	_, err := env.run("contracts", "status", "99", "confirmed")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestContractsRenew(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("contracts", "add", "--name", "Hooli", "--amount", "3000", "--start", "2024-01-01", "--end", "2024-06-30")
	out := env.mustRun("contracts", "renew", "1", "--end", "2024-12-31")
	assert.Contains(t, out, "renewed until Dec 31, 2024")

	out = env.mustRun("events", "list", "--limit", "0")
	assert.Contains(t, out, "contract_renewed")

	_, err := env.run("contracts", "renew", "1")
	require.Error(t, err)
}

func TestExpensesLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("expenses", "add", "--name", "Office rent", "--amount", "3500", "--start", "2024-01-01")
	assert.Contains(t, out, "Added expense #1 Office rent ($3,500.00 monthly)")

	out = env.mustRun("expenses", "update", "1", "--amount", "4200")
	assert.Contains(t, out, "Updated expense #1 Office rent")

	out = env.mustRun("expenses", "list")
	assert.Contains(t, out, "$4,200.00")

	env.mustRun("expenses", "update", "1", "--active=false")
	out = env.mustRun("expenses", "list")
	assert.Contains(t, out, "No expenses found")
	out = env.mustRun("expenses", "list", "--all")
	assert.Contains(t, out, "(inactive)")

	out = env.mustRun("expenses", "delete", "1")
	assert.Contains(t, out, "Deleted expense #1")

	out = env.mustRun("events", "list", "--limit", "0")
	assert.Contains(t, out, "expense_created")
	assert.Contains(t, out, "expense_deleted")
}

func TestExpenseCommandsRejectContracts(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("contracts", "add", "--name", "Acme", "--amount", "1000", "--start", "2024-01-01")
	_, err := env.run("expenses", "delete", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCashflowSummary(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("contracts", "add", "--name", "Acme", "--amount", "10000", "--start", "2024-01-01")
	env.mustRun("contracts", "add", "--name", "Pipeline deal", "--amount", "2000", "--status", "pipeline", "--start", "2024-01-01")
	env.mustRun("expenses", "add", "--name", "Payroll", "--amount", "4000", "--start", "2024-01-01")
	env.mustRun("expenses", "add", "--name", "Insurance", "--amount", "1200", "--frequency", "quarterly", "--start", "2024-01-01")

	out := env.mustRun("cashflow", "summary")
	assert.Contains(t, out, "$10,000.00")
	assert.Contains(t, out, "$4,400.00")
	assert.Contains(t, out, "$5,600.00")
	assert.Contains(t, out, "$2,000.00")
	assert.Contains(t, out, "∞ sustainable")
}

func TestCashflowSummaryUsesCurrencySetting(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("expenses", "add", "--name", "Rent", "--amount", "1500", "--start", "2024-01-01")
	env.mustRun("settings", "set", "cashflow.currency", "eur")

	out := env.mustRun("cashflow", "summary")
	assert.Contains(t, out, "-€1,500.00")
	assert.Contains(t, out, "0.0 months")
}

func TestCashflowProject(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("contracts", "add", "--name", "Acme", "--amount", "5000", "--start", "2024-01-01")
	env.mustRun("expenses", "add", "--name", "Payroll", "--amount", "2000", "--start", "2024-01-01")

	out := env.mustRun("cashflow", "project", "--months", "3")
	assert.Contains(t, out, "3-month projection")
	assert.Contains(t, out, "$3,000.00")
	assert.Contains(t, out, "$9,000.00")

	month := time.Now().UTC().Format("2006-01")
	assert.Contains(t, out, month)

	_, err := env.run("cashflow", "project", "--months", "500")
	require.Error(t, err)
}

func TestCashflowProjectExport(t *testing.T) {
	env := newCLIEnv(t)

	mock := sheets.NewMockWriter()
	original := newReportWriter
	newReportWriter = func(context.Context) (sheets.ReportWriter, error) { return mock, nil }
	t.Cleanup(func() { newReportWriter = original })

	env.mustRun("contracts", "add", "--name", "Acme", "--amount", "5000", "--start", "2024-01-01")
	env.mustRun("expenses", "add", "--name", "Payroll", "--amount", "2000", "--start", "2024-01-01")

	out := env.mustRun("cashflow", "project", "--months", "2", "--export")
	assert.Contains(t, out, "Exported report to Google Sheets")

	require.Equal(t, 1, mock.WriteCallCount)
	report := mock.LastReport
	require.NotNil(t, report)
	assert.Equal(t, "USD", report.Currency)
	assert.Equal(t, "∞", report.Runway)
	assert.Len(t, report.MonthlyFlow, 2)
	require.Len(t, report.Obligations, 2)
	assert.Equal(t, "contract", report.Obligations[0].Kind)
	assert.True(t, decimal.NewFromInt(3000).Equal(report.MonthlyNet))
}

func TestCheckRaisesRunwayBreachOnce(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("expenses", "add", "--name", "Payroll", "--amount", "4000", "--start", "2024-01-01")

	out := env.mustRun("check")
	assert.Contains(t, out, "1 alert(s) raised, 0 suppressed")

	out = env.mustRun("check")
	assert.Contains(t, out, "0 alert(s) raised, 1 suppressed")

	out = env.mustRun("events", "list", "--tier", "high")
	assert.Contains(t, out, "runway_breach")
}

func TestCheckAllWithNoUsers(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("check", "--all")
	assert.Contains(t, out, "No users with obligations")
}

func TestEventsLog(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("events", "log", "--type", "milestone", "--title", "First hire", "--key", "first-hire")
	assert.Contains(t, out, "Logged milestone event")

	out = env.mustRun("events", "log", "--type", "milestone", "--title", "First hire", "--key", "first-hire")
	assert.Contains(t, out, "Already logged")

	_, err := env.run("events", "log", "--type", "ai_insight", "--title", "Churn risk")
	require.Error(t, err, "insights need a priority")

	_, err = env.run("events", "log", "--type", "runway_breach", "--title", "Fake")
	require.Error(t, err)

	_, err = env.run("events", "list", "--tier", "severe")
	require.Error(t, err)
}

func TestSettings(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("settings", "get")
	assert.Contains(t, out, "alerts.runway_threshold_months")
	assert.Contains(t, out, "cashflow.currency")

	env.mustRun("settings", "set", "alerts.runway_threshold_months", "6")
	out = env.mustRun("settings", "get", "alerts.runway_threshold_months")
	assert.Equal(t, "6\n", out)

	_, err := env.run("settings", "set", "alerts.runway_threshold_months", "soon")
	require.Error(t, err)

	_, err = env.run("settings", "set", "cashflow.currency", "dollars")
	require.Error(t, err)

	_, err = env.run("settings", "get", "no.such_key")
	require.Error(t, err)
}

func TestMigrateStatus(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("migrate", "--status")
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "pending")

	env.mustRun("migrate")
	out = env.mustRun("migrate", "--status")
	assert.Contains(t, out, "up to date")
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "1500", want: "1500"},
		{input: "$1,500.50", want: "1500.5"},
		{input: " €20 ", want: "20"},
		{input: "0", want: "0"},
		{input: "-1", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDate("2023-02-29")
	require.Error(t, err)

	none, err := parseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "x"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
