// Package sheets exports refreshed period overviews to a Google Sheets
// report, one row per account and period.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
)

type ReportExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewReportExporterFromEnv creates an exporter using service account
// credentials. Required: SHEETS_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: SHEETS_REPORT_SHEET_NAME
// (default "Overview").
func NewReportExporterFromEnv(ctx context.Context) (*ReportExporter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("SHEETS_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing SHEETS_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("SHEETS_REPORT_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Overview"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &ReportExporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inlineJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inlineJSON == "" && credFile == "" {
		credFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		credentialsJSON = []byte(inlineJSON)
	case credFile != "":
		b, err := os.ReadFile(credFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendOverview appends one row per period entry to the report sheet:
// account id, account name, period label, period key, earned, spent.
// Amounts are written as plain decimal strings so the spreadsheet keeps
// the exact values.
func (e *ReportExporter) AppendOverview(ctx context.Context, account core.Account, entries []core.PeriodEntry) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	values := make([][]any, len(entries))
	for i, entry := range entries {
		values[i] = []any{
			account.ID,
			account.Name,
			entry.Label,
			entry.Key,
			entry.Earned.String(),
			entry.Spent.String(),
		}
	}

	rng := fmt.Sprintf("%s!A:F", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append overview rows to %s: %w", e.sheetName, err)
	}
	return nil
}
