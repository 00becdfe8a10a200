package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	raws := []RawExpense{
		{ID: "1", OwnerID: "u1", Title: "Lunch", Amount: "100.005", Category: "Food", Date: "2025-03-01", ReceiptURL: NoReceipt},
		{ID: "2", OwnerID: "u1", Title: "Broken", Amount: "abc", Category: "Food", Date: "2025-03-02"},
		{ID: "3", OwnerID: "u1", Title: "", Amount: "50", Category: " Food ", Date: "2025-03-15", ReceiptURL: "https://r/3"},
		{ID: "4", OwnerID: "u1", Title: "Both bad", Amount: "", Category: "Food", Date: "03/04/2025"},
	}

	snap := Normalize("u1", raws)

	if len(snap.Expenses) != 2 {
		t.Fatalf("expected 2 valid expenses, got %d", len(snap.Expenses))
	}
	if snap.Expenses[0].ID != "1" || snap.Expenses[1].ID != "3" {
		t.Fatalf("input order not preserved: %+v", snap.Expenses)
	}
	if snap.Expenses[0].Receipt.Present() {
		t.Fatal("sentinel should normalize to absent receipt")
	}
	if !snap.Expenses[1].Receipt.Present() {
		t.Fatal("stored url should be kept")
	}
	if snap.Expenses[1].Title != DefaultTitle || snap.Expenses[1].Category != "Food" {
		t.Fatalf("defaults not applied: %+v", snap.Expenses[1])
	}

	if len(snap.Issues) != 3 {
		t.Fatalf("expected 3 issues (1 for record 2, 2 for record 4), got %+v", snap.Issues)
	}
	if snap.Issues[0].ID != "2" || snap.Issues[0].Field != "amount" || !errors.Is(snap.Issues[0], ErrInvalidAmount) {
		t.Fatalf("unexpected first issue %+v", snap.Issues[0])
	}
	if !snap.Invalid("4") || snap.Invalid("1") {
		t.Fatal("Invalid() disagrees with issues")
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	snap := Normalize("u1", []RawExpense{{ID: "1", Amount: "1", Date: "2025-01-01"}})
	c := snap.Clone()
	c.Expenses[0].Title = "changed"
	if snap.Expenses[0].Title == "changed" {
		t.Fatal("clone shares backing array")
	}
}

func TestIssueJSONCarriesReason(t *testing.T) {
	snap := Normalize("u1", []RawExpense{{ID: "7", Amount: "abc", Date: "2025-01-01"}})
	if len(snap.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %+v", snap.Issues)
	}
	b, err := json.Marshal(snap.Issues[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["id"] != "7" || got["field"] != "amount" || got["value"] != "abc" {
		t.Fatalf("unexpected issue json %s", b)
	}
	if got["reason"] != ErrInvalidAmount.Error() {
		t.Fatalf("reason = %v, want %q", got["reason"], ErrInvalidAmount.Error())
	}
}
