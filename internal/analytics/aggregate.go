// Package analytics buckets expenses by category, month and day and shapes
// the buckets into chart series.
//
// Totals are exact decimals; rounding to currency precision happens only
// when a bucket is turned into a chart point.
package analytics

import (
	"strings"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// Uncategorized labels expenses with an empty category.
const Uncategorized = "Uncategorized"

type CategoryBucket struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

type MonthBucket struct {
	Year  int
	Month int
	Total decimal.Decimal
	Count int
}

type DayBucket struct {
	Year  int
	Month int
	Day   int
	Total decimal.Decimal
	Count int
}

// ByCategory sums amounts per category. Buckets appear in the order each
// category is first seen in expenses.
func ByCategory(expenses []core.Expense) []CategoryBucket {
	var buckets []CategoryBucket
	index := make(map[string]int)
	for _, e := range expenses {
		name := strings.TrimSpace(e.Category)
		if name == "" {
			name = Uncategorized
		}
		i, ok := index[name]
		if !ok {
			i = len(buckets)
			index[name] = i
			buckets = append(buckets, CategoryBucket{Category: name})
		}
		buckets[i].Total = buckets[i].Total.Add(e.Amount)
		buckets[i].Count++
	}
	return buckets
}

// ByMonth returns twelve buckets, January first, for the given year.
// Expenses from other years are ignored.
func ByMonth(expenses []core.Expense, year int) []MonthBucket {
	buckets := make([]MonthBucket, 12)
	for i := range buckets {
		buckets[i] = MonthBucket{Year: year, Month: i + 1}
	}
	for _, e := range expenses {
		if e.Date.Year() != year {
			continue
		}
		b := &buckets[e.Date.Month()-1]
		b.Total = b.Total.Add(e.Amount)
		b.Count++
	}
	return buckets
}

// ByDay returns one bucket per day of the given month.
func ByDay(expenses []core.Expense, year, month int) []DayBucket {
	if month < 1 || month > 12 {
		return nil
	}
	buckets := make([]DayBucket, core.DaysIn(year, month))
	for i := range buckets {
		buckets[i] = DayBucket{Year: year, Month: month, Day: i + 1}
	}
	for _, e := range expenses {
		if e.Date.Year() != year || e.Date.Month() != month {
			continue
		}
		b := &buckets[e.Date.Day()-1]
		b.Total = b.Total.Add(e.Amount)
		b.Count++
	}
	return buckets
}

// CategoryTrend is ByMonth restricted to one category. An empty or
// "Uncategorized" category selects expenses with no category.
func CategoryTrend(expenses []core.Expense, year int, category string) []MonthBucket {
	category = strings.TrimSpace(category)
	if category == Uncategorized {
		category = ""
	}
	matching := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if strings.TrimSpace(e.Category) == category {
			matching = append(matching, e)
		}
	}
	return ByMonth(matching, year)
}

// Total sums every amount, unrounded.
func Total(expenses []core.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}
