package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/spice-ops/internal/cashflow"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// FormatRunway renders a runway for humans. Infinite runways read as
// sustainable rather than a number of months.
func FormatRunway(r cashflow.Runway) string {
	if r.IsInfinite() {
		return "∞ sustainable"
	}
	return r.String() + " months"
}

// StyleRunway colors a runway against the alert threshold.
func StyleRunway(r cashflow.Runway, thresholdMonths int) string {
	text := FormatRunway(r)
	switch {
	case r.IsInfinite():
		return SuccessStyle.Render(text)
	case r.AtOrBelow(thresholdMonths):
		return ErrorStyle.Render(text)
	default:
		return WarningStyle.Render(text)
	}
}

// StyleTier colors a significance tier.
func StyleTier(t model.Tier) string {
	switch t {
	case model.TierCritical:
		return ErrorStyle.Bold(true).Render(string(t))
	case model.TierHigh:
		return WarningStyle.Render(string(t))
	case model.TierMedium:
		return InfoStyle.Render(string(t))
	default:
		return SubtleStyle.Render(string(t))
	}
}

// RenderSummary renders the monthly cashflow position in a box.
func RenderSummary(summary cashflow.Summary, currency string, thresholdMonths int) string {
	lines := []string{
		fmt.Sprintf("Monthly income:    %s", model.FormatMoney(summary.MonthlyIncome, currency)),
		fmt.Sprintf("Monthly expenses:  %s", model.FormatMoney(summary.MonthlyExpenses, currency)),
		fmt.Sprintf("Net per month:     %s", model.FormatMoney(summary.MonthlyNet, currency)),
		fmt.Sprintf("Pipeline income:   %s", SubtleStyle.Render(model.FormatMoney(summary.MonthlyPipeline, currency))),
		fmt.Sprintf("Runway:            %s", StyleRunway(summary.Runway, thresholdMonths)),
	}
	title := fmt.Sprintf("%s Cashflow as of %s", ChartIcon, summary.AsOf.Format("Jan 2, 2006"))
	return RenderBox(title, strings.Join(lines, "\n"))
}

// WriteProjectionTable writes a month-by-month projection as an aligned table.
func WriteProjectionTable(w io.Writer, rows []cashflow.MonthProjection, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
		headerStyle.Render("Month"),
		headerStyle.Render("Income"),
		headerStyle.Render("Expenses"),
		headerStyle.Render("Net"),
		headerStyle.Render("Cumulative")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range rows {
		cumulative := model.FormatMoney(r.Cumulative, currency)
		if r.Cumulative.IsNegative() {
			cumulative = ErrorStyle.Render(cumulative)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			r.Month,
			model.FormatMoney(r.Income, currency),
			model.FormatMoney(r.Expenses, currency),
			model.FormatMoney(r.Net, currency),
			cumulative); err != nil {
			return fmt.Errorf("failed to write projection row: %w", err)
		}
	}

	return tw.Flush()
}

// WriteObligationTable writes contracts or expenses as an aligned table.
func WriteObligationTable(w io.Writer, obligations []model.Obligation, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Name"),
		headerStyle.Render("Amount"),
		headerStyle.Render("Frequency"),
		headerStyle.Render("Status"),
		headerStyle.Render("Start"),
		headerStyle.Render("End")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range obligations {
		o := &obligations[i]
		status := string(o.Status)
		if status == "" {
			status = "-"
		}
		if !o.Active {
			status += " (inactive)"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID,
			o.Name,
			model.FormatMoney(o.Amount, currency),
			o.Frequency,
			status,
			o.StartDate.Format(time.DateOnly),
			formatOptionalDate(o.EndDate)); err != nil {
			return fmt.Errorf("failed to write obligation row: %w", err)
		}
	}

	return tw.Flush()
}

// WriteEventTable writes business events newest first, as stored.
func WriteEventTable(w io.Writer, events []model.BusinessEvent, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("When"),
		headerStyle.Render("Tier"),
		headerStyle.Render("Type"),
		headerStyle.Render("Amount"),
		headerStyle.Render("Title")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range events {
		e := &events[i]
		amount := "-"
		if e.Amount != nil {
			amount = model.FormatMoney(*e.Amount, currency)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.OccurredAt.Local().Format("2006-01-02 15:04"),
			StyleTier(e.Tier),
			e.Type,
			amount,
			e.Title); err != nil {
			return fmt.Errorf("failed to write event row: %w", err)
		}
	}

	return tw.Flush()
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format(time.DateOnly)
}
