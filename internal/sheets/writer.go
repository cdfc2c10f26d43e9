package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ReportWriter publishes a cashflow report somewhere outside the process.
type ReportWriter interface {
	Write(ctx context.Context, report *Report) error
}

// Section titles written in column A. They are bolded by applyFormatting.
const (
	titleReport      = "Cashflow Report"
	titleSummary     = "Summary"
	titleProjection  = "Projection"
	titleObligations = "Obligations"
)

// Writer implements the ReportWriter interface for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// Write replaces the contents of the cashflow tab with report.
func (w *Writer) Write(ctx context.Context, report *Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}

	w.logger.Info("starting report export",
		"as_of", report.AsOf.Format(time.DateOnly),
		"months", len(report.MonthlyFlow),
		"obligations", len(report.Obligations))

	retryOpts := service.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Backoff:      service.BackoffExponential,
	}

	var spreadsheetID string
	var sheetID int64
	err := common.WithRetry(ctx, func() error {
		var getErr error
		spreadsheetID, sheetID, getErr = w.getOrCreateSpreadsheet(ctx)
		return getErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := prepareReportData(report)

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetID, len(values), report.Currency)
		}, retryOpts)
		if err != nil {
			// The data is already written; formatting is cosmetic.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet returns the spreadsheet and the numeric ID of the
// report tab, creating either when missing.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, int64, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", 0, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		for _, s := range existing.Sheets {
			if s.Properties != nil && s.Properties.Title == w.config.TabName {
				return existing.SpreadsheetId, s.Properties.SheetId, nil
			}
		}
		sheetID, err := w.addTab(ctx, existing.SpreadsheetId)
		if err != nil {
			return "", 0, err
		}
		return existing.SpreadsheetId, sheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: w.config.TabName,
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	// Remember it so a retry does not create a second spreadsheet.
	w.config.SpreadsheetID = created.SpreadsheetId

	var sheetID int64
	if len(created.Sheets) > 0 && created.Sheets[0].Properties != nil {
		sheetID = created.Sheets[0].Properties.SheetId
	}
	return created.SpreadsheetId, sheetID, nil
}

// addTab appends the report tab to an existing spreadsheet.
func (w *Writer) addTab(ctx context.Context, spreadsheetID string) (int64, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: w.config.TabName},
			},
		}},
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to add tab %q: %w", w.config.TabName, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("unable to add tab %q: empty reply", w.config.TabName)
	}

	w.logger.Info("added report tab", "tab", w.config.TabName)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// clearSheet clears all data from the report tab.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, tabRange(w.config.TabName, "A:Z"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays the report out as rows: a title line, the summary
// block, the month-by-month projection and the obligation detail table.
// Amounts are written as plain decimal strings and parsed by Sheets.
func prepareReportData(report *Report) [][]any {
	// Title(2) + Summary(8) + Projection(3) + empty(2) + Obligations(2)
	estimatedRows := 17 + len(report.MonthlyFlow) + len(report.Obligations)
	values := make([][]any, 0, estimatedRows)

	values = append(values,
		[]any{titleReport, "As of " + report.AsOf.Format("Jan 2, 2006")},
		[]any{},
		[]any{titleSummary},
		[]any{"Monthly Income", amountCell(report.MonthlyIncome)},
		[]any{"Monthly Expenses", amountCell(report.MonthlyExpenses)},
		[]any{"Pipeline Income", amountCell(report.MonthlyPipeline)},
		[]any{"Net Monthly", amountCell(report.MonthlyNet)},
		[]any{"Runway (months)", report.Runway},
		[]any{"Currency", report.Currency},
		[]any{},
		[]any{titleProjection},
		[]any{"Month", "Income", "Expenses", "Net", "Cumulative"},
	)

	for _, row := range report.MonthlyFlow {
		values = append(values, []any{
			row.Month,
			amountCell(row.TotalIncome),
			amountCell(row.TotalExpenses),
			amountCell(row.NetFlow),
			amountCell(row.RunningBalance),
		})
	}

	values = append(values,
		[]any{},
		[]any{},
		[]any{titleObligations},
		[]any{"Kind", "Name", "Status", "Frequency", "Amount", "Monthly", "Start", "End"},
	)

	for _, o := range report.Obligations {
		end := ""
		if o.EndDate != nil {
			end = o.EndDate.Format(time.DateOnly)
		}
		values = append(values, []any{
			o.Kind,
			o.Name,
			o.Status,
			o.Frequency,
			amountCell(o.Amount),
			amountCell(o.MonthlyAmount),
			o.StartDate.Format(time.DateOnly),
			end,
		})
	}

	return values
}

// writeData writes the data to the spreadsheet.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	// Write in batches to avoid API limits
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := tabRange(w.config.TabName, fmt.Sprintf("A%d", i+1))
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds titles, formats money columns and freezes the title row.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetID int64, totalRows int, currency string) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold:     true,
							FontSize: 16,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    2,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    2,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 1,
					EndColumnIndex:   6,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: currencyPattern(currency),
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   8,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}

// amountCell renders a money value for USER_ENTERED input.
func amountCell(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// currencyPattern returns a Sheets number pattern for the currency code.
func currencyPattern(currency string) string {
	if sym, ok := model.CurrencySymbol(currency); ok {
		return `"` + sym + `"#,##0.00`
	}
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return `#,##0.00 "` + strings.ToUpper(currency) + `"`
}

// tabRange qualifies an A1 range with the tab name.
func tabRange(tab, a1 string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + a1
}
