package query

import (
	"math/rand/v2"
	"net/url"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
)

func mustNormalize(t *testing.T, raws ...core.RawExpense) []core.Expense {
	t.Helper()
	snap := core.Normalize("u1", raws)
	require.Empty(t, snap.Issues)
	return snap.Expenses
}

func foodRecords(t *testing.T) []core.Expense {
	return mustNormalize(t,
		core.RawExpense{ID: "1", Title: "Market", Amount: "100.005", Category: "Food", Date: "2025-03-01"},
		core.RawExpense{ID: "2", Title: "Dinner", Amount: "50", Category: "Food", Date: "2025-03-15"},
	)
}

func TestFilterCategoryAndDateFrom(t *testing.T) {
	got := Filter(foodRecords(t), Spec{Category: "Food", DateFrom: core.NewDate(2025, 3, 10)})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestFilterBoundariesInclusive(t *testing.T) {
	records := foodRecords(t)

	got := Filter(records, Spec{DateFrom: core.NewDate(2025, 3, 1), DateTo: core.NewDate(2025, 3, 15)})
	assert.Len(t, got, 2)

	got = Filter(records, Spec{DateTo: core.NewDate(2025, 3, 1)})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	got = Filter(records, Spec{
		MinAmount: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(50)),
	})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestFilterSearchIsCaseInsensitive(t *testing.T) {
	records := mustNormalize(t,
		core.RawExpense{ID: "1", Title: "Coffee at STRASSE café", Amount: "3", Category: "Food", Date: "2025-01-02"},
		core.RawExpense{ID: "2", Title: "Fuel", Amount: "40", Category: "Fuel", Date: "2025-01-03"},
	)
	for _, term := range []string{"coffee", "COFFEE", "Straße", "CAFÉ"} {
		got := Filter(records, Spec{Search: term})
		require.Len(t, got, 1, term)
		assert.Equal(t, "1", got[0].ID)
	}
}

func TestFilterCategoryIsExact(t *testing.T) {
	got := Filter(foodRecords(t), Spec{Category: "food"})
	assert.Empty(t, got)
}

func TestFilterEmptySpecReturnsCopy(t *testing.T) {
	records := foodRecords(t)
	got := Filter(records, Spec{})
	assert.Equal(t, records, got)

	got[0].Title = "changed"
	assert.NotEqual(t, "changed", records[0].Title)
}

func TestParseSpec(t *testing.T) {
	s, err := ParseSpec(url.Values{
		"category": {"Food"},
		"from":     {"2025-03-10"},
		"to":       {"2025-03-31"},
		"q":        {" din "},
		"min":      {"10,5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Food", s.Category)
	assert.Equal(t, "din", s.Search)
	assert.Equal(t, core.NewDate(2025, 3, 10).String(), s.DateFrom.String())
	assert.True(t, s.MinAmount.Valid)
	assert.True(t, s.MinAmount.Decimal.Equal(decimal.RequireFromString("10.5")))
	assert.False(t, s.MaxAmount.Valid)

	bad := []url.Values{
		{"from": {"yesterday"}},
		{"min": {"abc"}},
		{"max": {"-3"}},
		{"from": {"2025-04-01"}, "to": {"2025-03-01"}},
		{"min": {"10"}, "max": {"5"}},
	}
	for _, v := range bad {
		_, err := ParseSpec(v)
		assert.ErrorIs(t, err, ErrInvalidSpec, v.Encode())
	}
}

func randomExpenses(r *rand.Rand, n int) []core.Expense {
	titles := []string{"Lunch", "lunch box", "Taxi", "Rent", "Gym", "Books", "coffee"}
	categories := []string{"Food", "Commute", "Rent", "Fitness", ""}
	out := make([]core.Expense, n)
	for i := range out {
		out[i] = core.Expense{
			ID:       string(rune('a' + i%26)),
			Title:    titles[r.IntN(len(titles))],
			Amount:   decimal.New(r.Int64N(100000), -int32(r.IntN(4))),
			Category: categories[r.IntN(len(categories))],
			Date:     core.NewDate(2024+r.IntN(2), 1+r.IntN(12), 1+r.IntN(28)),
		}
	}
	return out
}

func randomSpec(r *rand.Rand) Spec {
	var s Spec
	if r.IntN(2) == 0 {
		s.Category = []string{"Food", "Commute", "Rent"}[r.IntN(3)]
	}
	if r.IntN(2) == 0 {
		s.DateFrom = core.NewDate(2024, 1+r.IntN(12), 1+r.IntN(28))
	}
	if r.IntN(2) == 0 {
		s.DateTo = core.NewDate(2025, 1+r.IntN(12), 1+r.IntN(28))
	}
	if r.IntN(3) == 0 {
		s.Search = []string{"LUNCH", "a", "x"}[r.IntN(3)]
	}
	if r.IntN(3) == 0 {
		s.MinAmount = decimal.NewNullDecimal(decimal.NewFromInt(r.Int64N(500)))
	}
	if r.IntN(3) == 0 {
		s.MaxAmount = decimal.NewNullDecimal(decimal.NewFromInt(500 + r.Int64N(50000)))
	}
	return s
}

func TestFilterProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		records := randomExpenses(r, r.IntN(40))
		spec := randomSpec(r)

		got := Filter(records, spec)

		// Subset, in input order, every element matching.
		j := 0
		for _, e := range got {
			for j < len(records) && records[j] != e {
				j++
			}
			if j == len(records) {
				t.Fatalf("iteration %d: result is not an ordered subset", i)
			}
			j++
			if !Match(e, spec) {
				t.Fatalf("iteration %d: %+v does not satisfy %+v", i, e, spec)
			}
		}
		// Nothing matching was dropped.
		want := 0
		for _, e := range records {
			if Match(e, spec) {
				want++
			}
		}
		if want != len(got) {
			t.Fatalf("iteration %d: expected %d matches, got %d", i, want, len(got))
		}
		if !slices.Equal(Filter(records, Spec{}), records) {
			t.Fatalf("iteration %d: empty spec changed the records", i)
		}
	}
}
