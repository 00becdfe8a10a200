package analytics

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// DaySpend is the total spent on one calendar day.
type DaySpend struct {
	Date  core.Date
	Total decimal.Decimal
}

func (d DaySpend) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  core.Date `json:"date"`
		Total float64   `json:"total"`
	}{d.Date, core.CurrencyFloat(d.Total)})
}

// Summary describes one year of spending.
type Summary struct {
	Year       int
	Total      decimal.Decimal
	HighestDay *DaySpend
	Count      int
}

// AverageMonthly is the exact total over twelve months, rounded once to
// currency precision.
func (s Summary) AverageMonthly() decimal.Decimal {
	return s.Total.DivRound(twelve, core.CurrencyPlaces)
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year           int       `json:"year"`
		Total          float64   `json:"total"`
		AverageMonthly float64   `json:"average_monthly"`
		HighestDay     *DaySpend `json:"highest_day"`
		Count          int       `json:"count"`
	}{s.Year, core.CurrencyFloat(s.Total), s.AverageMonthly().InexactFloat64(), s.HighestDay, s.Count})
}

var twelve = decimal.NewFromInt(12)

// Summarize computes the year total, the average over twelve months and the
// day with the highest total. Ties go to the earliest day.
func Summarize(expenses []core.Expense, year int) Summary {
	s := Summary{Year: year, Total: decimal.Zero}
	perDay := make(map[string]*DaySpend)
	for _, e := range expenses {
		if e.Date.Year() != year {
			continue
		}
		s.Total = s.Total.Add(e.Amount)
		s.Count++
		d, ok := perDay[e.Date.String()]
		if !ok {
			d = &DaySpend{Date: e.Date}
			perDay[e.Date.String()] = d
		}
		d.Total = d.Total.Add(e.Amount)
	}
	for _, d := range perDay {
		h := s.HighestDay
		if h == nil || d.Total.GreaterThan(h.Total) || (d.Total.Equal(h.Total) && d.Date.Compare(h.Date) < 0) {
			s.HighestDay = d
		}
	}
	return s
}
