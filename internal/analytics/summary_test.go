package analytics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
)

func TestSummarize(t *testing.T) {
	snap := core.Normalize("u1", []core.RawExpense{
		{ID: "1", Amount: "30", Category: "Food", Date: "2025-02-10"},
		{ID: "2", Amount: "10", Category: "Food", Date: "2025-01-05"},
		{ID: "3", Amount: "20", Category: "Rent", Date: "2025-01-05"},
		{ID: "4", Amount: "1000", Category: "Rent", Date: "2024-12-31"},
		{ID: "5", Amount: "0.005", Category: "Fuel", Date: "2025-07-01"},
	})
	s := Summarize(snap.Expenses, 2025)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, "60.005", s.Total.String())
	require.NotNil(t, s.HighestDay)
	// 2025-01-05 and 2025-02-10 both total 30; the earlier day wins.
	assert.Equal(t, "2025-01-05", s.HighestDay.Date.String())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"year": 2025,
		"total": 60.01,
		"average_monthly": 5,
		"highest_day": {"date": "2025-01-05", "total": 30},
		"count": 4
	}`, string(b))
}

func TestSummarizeEmptyYear(t *testing.T) {
	s := Summarize(nil, 2030)
	assert.Nil(t, s.HighestDay)
	assert.True(t, s.Total.IsZero())
	assert.True(t, s.AverageMonthly().IsZero())
}

func TestSummarizeAverageRoundsOnce(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		// exact average 0.004999999996 stays below the half cent
		{"0.059999999952", "0"},
		{"0.06", "0.01"},
		{"100.005", "8.33"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			snap := core.Normalize("u1", []core.RawExpense{
				{ID: "1", Amount: tt.amount, Category: "Food", Date: "2025-03-01"},
			})
			require.Len(t, snap.Expenses, 1)
			s := Summarize(snap.Expenses, 2025)
			assert.Equal(t, tt.want, s.AverageMonthly().String())

			b, err := json.Marshal(s)
			require.NoError(t, err)
			var out map[string]any
			require.NoError(t, json.Unmarshal(b, &out))
			want, _ := s.AverageMonthly().Float64()
			assert.Equal(t, want, out["average_monthly"])
		})
	}
}
