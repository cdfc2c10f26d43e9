package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ops/internal/cashflow"
	"github.com/Veraticus/spice-ops/internal/cli"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/config"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/Veraticus/spice-ops/internal/settings"
	"github.com/Veraticus/spice-ops/internal/sheets"
	"github.com/spf13/cobra"
)

// maxProjectionMonths bounds --months so a typo can't ask for centuries.
const maxProjectionMonths = 120

func cashflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cashflow",
		Aliases: []string{"flow"},
		Short:   "Show monthly cashflow, runway and projections",
	}

	cmd.AddCommand(cashflowSummaryCmd())
	cmd.AddCommand(cashflowProjectCmd())

	return cmd
}

func cashflowSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show monthly income, expenses, net and runway",
		RunE:  runCashflowSummary,
	}
}

// position is the current user's obligations and the summary they produce.
type position struct {
	summary     cashflow.Summary
	obligations []model.Obligation
	contracts   []model.Obligation
	expenses    []model.Obligation
}

func loadPosition(ctx context.Context, a *app, asOf time.Time) (*position, error) {
	obligations, err := a.store.ListObligations(ctx, service.ObligationFilter{
		UserID:     currentUser(),
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list obligations: %w", err)
	}

	contracts, expenses := cashflow.SplitByKind(obligations)
	return &position{
		summary:     cashflow.Summarize(contracts, expenses, asOf),
		obligations: obligations,
		contracts:   contracts,
		expenses:    expenses,
	}, nil
}

func runCashflowSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pos, err := loadPosition(ctx, a, time.Now().UTC())
	if err != nil {
		return err
	}

	threshold, err := a.settings.Int(ctx, settings.KeyRunwayThreshold)
	if err != nil {
		return fmt.Errorf("failed to read runway threshold: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(pos.summary, a.currency(ctx), threshold))
	return err
}

func cashflowProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project cashflow month by month",
		Long: `Walk forward from the current month and show projected income, expenses,
net and cumulative balance for each month.

With --export the projection, summary and obligation list are also written
to Google Sheets.`,
		RunE: runCashflowProject,
	}

	cmd.Flags().Int("months", 0, "Months to project (default: cashflow.projection_months setting)")
	cmd.Flags().Bool("export", false, "Export the report to Google Sheets")

	return cmd
}

func runCashflowProject(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	months, _ := cmd.Flags().GetInt("months")
	export, _ := cmd.Flags().GetBool("export")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if months == 0 {
		if months, err = a.settings.Int(ctx, settings.KeyProjectionMonths); err != nil {
			return fmt.Errorf("failed to read projection months: %w", err)
		}
	}
	if months < 1 || months > maxProjectionMonths {
		return common.NewUserError(fmt.Sprintf("months must be between 1 and %d, got %d", maxProjectionMonths, months), nil)
	}

	now := time.Now().UTC()
	pos, err := loadPosition(ctx, a, now)
	if err != nil {
		return err
	}
	projection := cashflow.Project(pos.contracts, pos.expenses, cashflow.MonthStart(now), months)
	currency := a.currency(ctx)

	if _, err := fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s %d-month projection", cli.CalendarIcon, months))); err != nil {
		return err
	}
	if err := cli.WriteProjectionTable(out, projection, currency); err != nil {
		return err
	}

	if !export {
		return nil
	}

	report := sheets.NewReport(pos.summary, projection, pos.obligations, currency)
	if err := exportReport(ctx, report); err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess("Exported report to Google Sheets"))
	return err
}

// newReportWriter is swapped out in tests.
var newReportWriter = func(ctx context.Context) (sheets.ReportWriter, error) {
	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return nil, common.NewUserError("Google Sheets is not configured; run 'spiceops auth sheets' first", err)
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets writer: %w", err)
	}
	return writer, nil
}

func exportReport(ctx context.Context, report *sheets.Report) error {
	writer, err := newReportWriter(ctx)
	if err != nil {
		return err
	}

	if err := writer.Write(ctx, report); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	return nil
}
