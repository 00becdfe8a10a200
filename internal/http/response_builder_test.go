package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendlens/internal/core"
	"spendlens/internal/identity"
	"spendlens/internal/query"
	"spendlens/internal/services"
	"spendlens/internal/store"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/1").
		JSON(map[string]string{"id": "1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if loc := w.Header().Get("Location"); loc != "/api/expenses/1" {
		t.Errorf("Location = %q", loc)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"id":"1"}` {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestResponseBuilder_UnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	UnauthorizedError("authentication required").Write(w)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("WWW-Authenticate not set")
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"authentication required"}` {
		t.Errorf("Body = %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid filter", fmt.Errorf("%w: from after to", query.ErrInvalidSpec), http.StatusBadRequest},
		{"bad parameter", fmt.Errorf("%w: year", errBadParam), http.StatusBadRequest},
		{"invalid token", identity.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", identity.ErrExpiredToken, http.StatusUnauthorized},
		{"not found", fmt.Errorf("get expense: %w", store.ErrNotFound), http.StatusNotFound},
		{"other owner", fmt.Errorf("delete expense: %w", store.ErrForbidden), http.StatusNotFound},
		{"duplicate category", services.ErrDuplicateCategory, http.StatusConflict},
		{"store conflict", store.ErrConflict, http.StatusConflict},
		{"receipt too large", services.ErrReceiptTooLarge, http.StatusRequestEntityTooLarge},
		{"receipts disabled", services.ErrReceiptsDisabled, http.StatusNotImplemented},
		{"invalid amount", fmt.Errorf("amount: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{"invalid period", services.ErrInvalidPeriod, http.StatusUnprocessableEntity},
		{"store unavailable", store.Wrap("list expenses", errors.New("timeout")), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := statusFor(tt.err)
			if got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
			if msg == "" {
				t.Error("empty message")
			}
		})
	}
}
