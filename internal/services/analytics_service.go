package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/query"
)

// CategoryLister returns category name suggestions for an owner.
type CategoryLister interface {
	Suggestions(ctx context.Context, owner string) ([]string, error)
}

// AnalyticsService aggregates an owner's valid expenses into chart series.
// Filters are applied before aggregation.
type AnalyticsService struct {
	expenses   SnapshotLoader
	categories CategoryLister
}

// Dashboard is everything the analytics screen shows for one year.
type Dashboard struct {
	Summary    analytics.Summary `json:"summary"`
	Months     []analytics.Point `json:"months"`
	Categories []analytics.Point `json:"categories"`
	Names      []string          `json:"category_names"`
	Excluded   int               `json:"excluded"`
}

func NewAnalyticsService(expenses SnapshotLoader, categories CategoryLister) *AnalyticsService {
	return &AnalyticsService{expenses: expenses, categories: categories}
}

func (s *AnalyticsService) filtered(ctx context.Context, owner string, spec query.Spec) ([]core.Expense, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.expenses.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return query.Filter(snap.Expenses, spec), nil
}

func (s *AnalyticsService) ByCategory(ctx context.Context, owner string, spec query.Spec) ([]analytics.Point, error) {
	expenses, err := s.filtered(ctx, owner, spec)
	if err != nil {
		return nil, err
	}
	return analytics.CategorySeries(analytics.ByCategory(expenses)), nil
}

func (s *AnalyticsService) ByMonth(ctx context.Context, owner string, year int, spec query.Spec) ([]analytics.Point, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	expenses, err := s.filtered(ctx, owner, spec)
	if err != nil {
		return nil, err
	}
	return analytics.MonthSeries(analytics.ByMonth(expenses, year)), nil
}

func (s *AnalyticsService) ByDay(ctx context.Context, owner string, year, month int, spec query.Spec) ([]analytics.Point, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	expenses, err := s.filtered(ctx, owner, spec)
	if err != nil {
		return nil, err
	}
	return analytics.DaySeries(analytics.ByDay(expenses, year, month)), nil
}

func (s *AnalyticsService) CategoryTrend(ctx context.Context, owner string, year int, category string) ([]analytics.Point, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	snap, err := s.expenses.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return analytics.MonthSeries(analytics.CategoryTrend(snap.Expenses, year, category)), nil
}

func (s *AnalyticsService) Summary(ctx context.Context, owner string, year int) (analytics.Summary, error) {
	if err := validateYear(year); err != nil {
		return analytics.Summary{}, err
	}
	snap, err := s.expenses.Snapshot(ctx, owner)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(snap.Expenses, year), nil
}

// Dashboard loads the snapshot and category names concurrently and
// derives every series from the one snapshot.
func (s *AnalyticsService) Dashboard(ctx context.Context, owner string, year int) (Dashboard, error) {
	if err := validateYear(year); err != nil {
		return Dashboard{}, err
	}

	var (
		snap  core.Snapshot
		names []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.expenses.Snapshot(gctx, owner)
		return err
	})
	if s.categories != nil {
		g.Go(func() error {
			var err error
			names, err = s.categories.Suggestions(gctx, owner)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	var inYear []core.Expense
	for _, e := range snap.Expenses {
		if e.Date.Year() == year {
			inYear = append(inYear, e)
		}
	}

	return Dashboard{
		Summary:    analytics.Summarize(snap.Expenses, year),
		Months:     analytics.MonthSeries(analytics.ByMonth(snap.Expenses, year)),
		Categories: analytics.CategorySeries(analytics.ByCategory(inYear)),
		Names:      names,
		Excluded:   len(snap.Issues),
	}, nil
}

func validateYear(year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	return nil
}
