// Package http serves the JSON API.
//
// This file implements utilities for parsing and validating HTTP request data.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendlens/internal/core"
	"spendlens/internal/query"
)

// errBadParam marks a malformed query parameter or request body.
var errBadParam = errors.New("bad request")

const maxJSONBody = 64 << 10

// PeriodParams holds year and month read from query parameters.
type PeriodParams struct {
	Year  int
	Month int
}

// ParsePeriodParams reads year and month, defaulting each to now. Values
// that are present but not integers are errors; range checks are left to
// the services.
func ParsePeriodParams(q url.Values, now time.Time) (PeriodParams, error) {
	p := PeriodParams{Year: now.Year(), Month: int(now.Month())}
	var err error
	if p.Year, err = intParam(q, "year", p.Year); err != nil {
		return PeriodParams{}, err
	}
	if p.Month, err = intParam(q, "month", p.Month); err != nil {
		return PeriodParams{}, err
	}
	return p, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadParam, key, v)
	}
	return n, nil
}

// ParseListParams reads the filter and sort order of a list request.
func ParseListParams(q url.Values) (query.Spec, query.Order, error) {
	spec, err := query.ParseSpec(q)
	if err != nil {
		return query.Spec{}, query.Order{}, err
	}
	order, err := query.ParseOrder(q.Get("sort"), q.Get("order"))
	if err != nil {
		return query.Spec{}, query.Order{}, err
	}
	return spec, order, nil
}

// RequestBodyParser reads a JSON or form-encoded body once and serves its
// fields as strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads up to maxJSONBody bytes of r's body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if p.err == nil && len(p.body) > maxJSONBody {
		p.err = fmt.Errorf("%w: body too large", errBadParam)
	}
	return p
}

// Parse decodes the body as JSON when it looks like an object and as form
// values otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON: %v", errBadParam, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form: %v", errBadParam, p.err)
	}
	return p.err
}

// Get returns a field value, sanitized and trimmed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// ExpenseInput collects the editable expense fields from the body. JSON
// numbers are accepted for amount and kept exact.
func (p *RequestBodyParser) ExpenseInput() (core.ExpenseInput, error) {
	if err := p.Parse(); err != nil {
		return core.ExpenseInput{}, err
	}
	return core.ExpenseInput{
		Title:    p.Get("title"),
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
	}, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// isMultipart reports whether r carries a multipart/form-data body.
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// sanitizeInput trims s and strips control characters, keeping tabs and
// line breaks for multi-line titles.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
