package http

import (
	"fmt"
	"net/http"
	"strings"

	"spendlens/internal/analytics"
	"spendlens/internal/query"
)

type series struct {
	Points []analytics.Point `json:"points"`
}

func writeSeries(w http.ResponseWriter, points []analytics.Point) {
	if points == nil {
		points = []analytics.Point{}
	}
	NewResponse().JSON(series{Points: points}).Write(w)
}

// analyticsParams reads the period and, unless the route has its own
// category parameter, the filter.
func (s *Server) analyticsParams(r *http.Request, withSpec bool) (PeriodParams, query.Spec, error) {
	q := r.URL.Query()
	p, err := ParsePeriodParams(q, s.opts.Now())
	if err != nil {
		return PeriodParams{}, query.Spec{}, err
	}
	if !withSpec {
		return p, query.Spec{}, nil
	}
	spec, err := query.ParseSpec(q)
	if err != nil {
		return PeriodParams{}, query.Spec{}, err
	}
	return p, spec, nil
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	_, spec, err := s.analyticsParams(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	points, err := s.opts.Analytics.ByCategory(r.Context(), OwnerFromContext(r.Context()), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSeries(w, points)
}

func (s *Server) handleMonthlySeries(w http.ResponseWriter, r *http.Request) {
	p, spec, err := s.analyticsParams(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	points, err := s.opts.Analytics.ByMonth(r.Context(), OwnerFromContext(r.Context()), p.Year, spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSeries(w, points)
}

func (s *Server) handleDailySeries(w http.ResponseWriter, r *http.Request) {
	p, spec, err := s.analyticsParams(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	points, err := s.opts.Analytics.ByDay(r.Context(), OwnerFromContext(r.Context()), p.Year, p.Month, spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSeries(w, points)
}

func (s *Server) handleCategoryTrend(w http.ResponseWriter, r *http.Request) {
	p, _, err := s.analyticsParams(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		writeError(w, r, fmt.Errorf("%w: category is required", errBadParam))
		return
	}
	points, err := s.opts.Analytics.CategoryTrend(r.Context(), OwnerFromContext(r.Context()), p.Year, category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSeries(w, points)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, _, err := s.analyticsParams(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.opts.Analytics.Summary(r.Context(), OwnerFromContext(r.Context()), p.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(sum).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, _, err := s.analyticsParams(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.opts.Analytics.Dashboard(r.Context(), OwnerFromContext(r.Context()), p.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(d).Write(w)
}
