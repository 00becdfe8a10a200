// Package memory keeps exported ledgers in process. It stands in for Google
// Sheets when no spreadsheet is configured.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"spendlens/internal/core"
	"spendlens/internal/sheets"
)

type Ledgers struct {
	mu      sync.Mutex
	ledgers map[string][][]any
	exports int
}

var _ sheets.LedgerWriter = (*Ledgers)(nil)

func New() *Ledgers {
	return &Ledgers{ledgers: make(map[string][][]any)}
}

func (l *Ledgers) ExportLedger(ctx context.Context, owner string, expenses []core.Expense) error {
	rows := sheets.LedgerRows(expenses)
	l.mu.Lock()
	l.ledgers[owner] = rows
	l.exports++
	l.mu.Unlock()

	slog.DebugContext(ctx, "Ledger stored in memory", "owner_id", owner, "rows", len(expenses))
	return nil
}

// Rows returns the last ledger exported for owner, header included.
func (l *Ledgers) Rows(owner string) ([][]any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows, ok := l.ledgers[owner]
	return slices.Clone(rows), ok
}

// Exports counts ExportLedger calls.
func (l *Ledgers) Exports() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exports
}
