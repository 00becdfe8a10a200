package memory

import (
	"context"
	"testing"

	"spendlens/internal/core"
)

func TestLedgersKeepLastExport(t *testing.T) {
	l := New()
	ctx := context.Background()

	snap := core.Normalize("u1", []core.RawExpense{{ID: "1", Title: "A", Amount: "1", Date: "2025-01-01"}})
	if err := l.ExportLedger(ctx, "u1", snap.Expenses); err != nil {
		t.Fatal(err)
	}
	if err := l.ExportLedger(ctx, "u1", nil); err != nil {
		t.Fatal(err)
	}

	rows, ok := l.Rows("u1")
	if !ok || len(rows) != 1 {
		t.Fatalf("expected header-only ledger, got %v", rows)
	}
	if l.Exports() != 2 {
		t.Fatalf("expected 2 exports, got %d", l.Exports())
	}
	if _, ok := l.Rows("u2"); ok {
		t.Fatal("unexpected ledger for u2")
	}
}
