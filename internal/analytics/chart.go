package analytics

import (
	"fmt"
	"time"

	"spendlens/internal/core"
)

// Point is one labeled value of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// MonthLabel formats a month as "Mar 2025".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String()[:3], year)
}

// DayLabel formats a day as "05 Mar".
func DayLabel(month, day int) string {
	return fmt.Sprintf("%02d %s", day, time.Month(month).String()[:3])
}

func CategorySeries(buckets []CategoryBucket) []Point {
	out := make([]Point, len(buckets))
	for i, b := range buckets {
		out[i] = Point{Label: b.Category, Value: core.CurrencyFloat(b.Total)}
	}
	return out
}

func MonthSeries(buckets []MonthBucket) []Point {
	out := make([]Point, len(buckets))
	for i, b := range buckets {
		out[i] = Point{Label: MonthLabel(b.Year, b.Month), Value: core.CurrencyFloat(b.Total)}
	}
	return out
}

func DaySeries(buckets []DayBucket) []Point {
	out := make([]Point, len(buckets))
	for i, b := range buckets {
		out[i] = Point{Label: DayLabel(b.Month, b.Day), Value: core.CurrencyFloat(b.Total)}
	}
	return out
}
