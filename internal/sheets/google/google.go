// Package google writes expense ledgers to Google Sheets, one tab per owner.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlens/internal/core"
	"spendlens/internal/googleapi"
	ports "spendlens/internal/sheets"
)

// TabPrefix starts the name of every ledger tab.
const TabPrefix = "ledger-"

// Sheet titles are limited to 100 characters.
const maxTitleLen = 100

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ ports.LedgerWriter = (*Exporter)(nil)

// New creates an exporter for spreadsheetID authenticated with the service
// account in src. Extra options are applied after the credentials.
func New(ctx context.Context, spreadsheetID string, src googleapi.Source, extra ...goption.ClientOption) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := src.ClientOptions(ctx, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	return NewWithOptions(ctx, spreadsheetID, append(opts, extra...)...)
}

// NewWithOptions creates an exporter from explicit client options.
func NewWithOptions(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Exporter, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// TabName returns the tab holding owner's ledger.
func TabName(owner string) string {
	name := TabPrefix + owner
	if len(name) > maxTitleLen {
		name = name[:maxTitleLen]
	}
	return name
}

// a1Range quotes a tab name for use in A1 notation.
func a1Range(tab, cells string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}

func (e *Exporter) ExportLedger(ctx context.Context, owner string, expenses []core.Expense) error {
	tab := TabName(owner)
	if err := e.ensureTab(ctx, tab); err != nil {
		return err
	}

	_, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, a1Range(tab, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: ports.LedgerRows(expenses)}
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, a1Range(tab, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Ledger exported to Google Sheets", "owner_id", owner, "tab", tab, "rows", len(expenses))
	return nil
}

func (e *Exporter) ensureTab(ctx context.Context, tab string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created ledger tab", "tab", tab)
	return nil
}
