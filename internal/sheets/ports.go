package sheets

import (
	"context"

	"spendlens/internal/core"
)

// LedgerWriter publishes an owner's expense ledger to a spreadsheet.
type LedgerWriter interface {
	// ExportLedger replaces the owner's ledger with expenses, in the given order.
	ExportLedger(ctx context.Context, owner string, expenses []core.Expense) error
}

// LedgerHeader is the first row of every exported ledger.
var LedgerHeader = []string{"Date", "Title", "Category", "Amount", "Receipt"}

// LedgerRows renders expenses as spreadsheet rows, header first. Amounts are
// written as exact decimal strings.
func LedgerRows(expenses []core.Expense) [][]any {
	rows := make([][]any, 0, len(expenses)+1)
	header := make([]any, len(LedgerHeader))
	for i, h := range LedgerHeader {
		header[i] = h
	}
	rows = append(rows, header)
	for _, e := range expenses {
		rows = append(rows, []any{
			e.Date.String(),
			e.Title,
			e.Category,
			core.RoundCurrency(e.Amount).StringFixed(core.CurrencyPlaces),
			e.Receipt.URL(),
		})
	}
	return rows
}
