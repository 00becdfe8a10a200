package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultTitle replaces a missing title on a stored record.
const DefaultTitle = "Untitled"

// Issue reports a stored record that failed normalization. The record is
// left out of the snapshot's expenses.
type Issue struct {
	Index int
	ID    string
	Field string
	Value string
	Err   error
}

func (i Issue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index  int    `json:"index"`
		ID     string `json:"id"`
		Field  string `json:"field"`
		Value  string `json:"value"`
		Reason string `json:"reason"`
	}{i.Index, i.ID, i.Field, i.Value, i.Reason()})
}

func (i Issue) Error() string {
	return fmt.Sprintf("record %s: field %s (%q): %v", i.ID, i.Field, i.Value, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// Reason is the JSON-friendly form of Err.
func (i Issue) Reason() string {
	if i.Err == nil {
		return ""
	}
	return i.Err.Error()
}

// Snapshot is an immutable, normalized view of an owner's stored records.
type Snapshot struct {
	OwnerID  string
	Expenses []Expense
	Issues   []Issue
}

// Clone returns a snapshot whose slices can be modified freely.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		OwnerID:  s.OwnerID,
		Expenses: append([]Expense(nil), s.Expenses...),
		Issues:   append([]Issue(nil), s.Issues...),
	}
}

// Invalid reports whether the record with the given ID was excluded.
func (s Snapshot) Invalid(id string) bool {
	for _, is := range s.Issues {
		if is.ID == id {
			return true
		}
	}
	return false
}

// NormalizeRecord converts one stored record. It returns every problem found
// so that callers can report them all at once; ok is false if any exist.
func NormalizeRecord(index int, raw RawExpense) (e Expense, issues []Issue, ok bool) {
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		issues = append(issues, Issue{Index: index, ID: raw.ID, Field: "amount", Value: raw.Amount, Err: err})
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		issues = append(issues, Issue{Index: index, ID: raw.ID, Field: "date", Value: raw.Date, Err: err})
	}
	if len(issues) > 0 {
		return Expense{}, issues, false
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = DefaultTitle
	}
	return Expense{
		ID:        raw.ID,
		OwnerID:   raw.OwnerID,
		Title:     title,
		Amount:    amount,
		Category:  strings.TrimSpace(raw.Category),
		Date:      date,
		Receipt:   ReceiptFromStored(raw.ReceiptURL),
		CreatedAt: raw.CreatedAt,
	}, nil, true
}

// Normalize converts a fetched record set, preserving input order for the
// records that pass. Records that fail are reported in Issues, never coerced.
func Normalize(ownerID string, raws []RawExpense) Snapshot {
	snap := Snapshot{
		OwnerID:  ownerID,
		Expenses: make([]Expense, 0, len(raws)),
	}
	for i, raw := range raws {
		e, issues, ok := NormalizeRecord(i, raw)
		if !ok {
			snap.Issues = append(snap.Issues, issues...)
			continue
		}
		snap.Expenses = append(snap.Expenses, e)
	}
	return snap
}
