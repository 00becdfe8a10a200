// Package query filters and orders normalized expenses for list views.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"spendlens/internal/core"
)

var ErrInvalidSpec = errors.New("invalid filter")

// Spec selects expenses. Zero-valued fields impose no constraint; all set
// fields must match.
type Spec struct {
	Category  string              `json:"category,omitempty"`
	DateFrom  core.Date           `json:"date_from,omitzero"`
	DateTo    core.Date           `json:"date_to,omitzero"`
	Search    string              `json:"search,omitempty"`
	MinAmount decimal.NullDecimal `json:"min_amount,omitzero"`
	MaxAmount decimal.NullDecimal `json:"max_amount,omitzero"`
}

// IsEmpty reports whether s has no predicates.
func (s Spec) IsEmpty() bool {
	return s.Category == "" && s.DateFrom.IsEmpty() && s.DateTo.IsEmpty() &&
		s.Search == "" && !s.MinAmount.Valid && !s.MaxAmount.Valid
}

// Validate rejects ranges whose bounds are inverted.
func (s Spec) Validate() error {
	if !s.DateFrom.IsEmpty() && !s.DateTo.IsEmpty() && s.DateFrom.Compare(s.DateTo) > 0 {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidSpec, s.DateFrom, s.DateTo)
	}
	if s.MinAmount.Valid && s.MaxAmount.Valid && s.MinAmount.Decimal.GreaterThan(s.MaxAmount.Decimal) {
		return fmt.Errorf("%w: min %s is greater than max %s", ErrInvalidSpec, s.MinAmount.Decimal, s.MaxAmount.Decimal)
	}
	return nil
}

// ParseSpec reads a Spec from URL query parameters: category, from, to, q,
// min and max. Malformed values are errors, never ignored.
func ParseSpec(v url.Values) (Spec, error) {
	var (
		s    Spec
		errs []error
	)
	s.Category = strings.TrimSpace(v.Get("category"))
	s.Search = strings.TrimSpace(v.Get("q"))

	if raw := v.Get("from"); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("from: %w", err))
		}
		s.DateFrom = d
	}
	if raw := v.Get("to"); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("to: %w", err))
		}
		s.DateTo = d
	}
	if raw := v.Get("min"); raw != "" {
		d, err := core.ParseAmount(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("min: %w", err))
		}
		s.MinAmount = decimal.NewNullDecimal(d)
	}
	if raw := v.Get("max"); raw != "" {
		d, err := core.ParseAmount(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("max: %w", err))
		}
		s.MaxAmount = decimal.NewNullDecimal(d)
	}
	if len(errs) > 0 {
		return Spec{}, fmt.Errorf("%w: %w", ErrInvalidSpec, errors.Join(errs...))
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Filter returns the expenses matching every predicate in s, in input order.
// The input is never modified and the result never aliases it.
func Filter(expenses []core.Expense, s Spec) []core.Expense {
	if s.IsEmpty() {
		return slices.Clone(expenses)
	}
	m := newMatcher(s)
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if m.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Match reports whether e satisfies s.
func Match(e core.Expense, s Spec) bool {
	return newMatcher(s).match(e)
}

type matcher struct {
	spec   Spec
	caser  cases.Caser
	needle string
}

func newMatcher(s Spec) *matcher {
	m := &matcher{spec: s, caser: cases.Fold()}
	if s.Search != "" {
		m.needle = m.caser.String(s.Search)
	}
	return m
}

// Dates carry no time of day, so comparing calendar days gives start-of-day
// and end-of-day inclusion at the bounds.
func (m *matcher) match(e core.Expense) bool {
	s := m.spec
	if s.Category != "" && e.Category != s.Category {
		return false
	}
	if !s.DateFrom.IsEmpty() && e.Date.Compare(s.DateFrom) < 0 {
		return false
	}
	if !s.DateTo.IsEmpty() && e.Date.Compare(s.DateTo) > 0 {
		return false
	}
	if s.MinAmount.Valid && e.Amount.LessThan(s.MinAmount.Decimal) {
		return false
	}
	if s.MaxAmount.Valid && e.Amount.GreaterThan(s.MaxAmount.Decimal) {
		return false
	}
	if m.needle != "" && !strings.Contains(m.caser.String(e.Title), m.needle) {
		return false
	}
	return true
}
