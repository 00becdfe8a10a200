package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

// multipartOverhead leaves room for boundaries and part headers around the
// receipt file itself.
const multipartOverhead = 1 << 20

type expenseList struct {
	Expenses []core.Expense  `json:"expenses"`
	Issues   []core.Issue    `json:"issues"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	spec, order, err := ParseListParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.opts.Expenses.List(r.Context(), OwnerFromContext(r.Context()), spec, order)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := expenseList{
		Expenses: res.Expenses,
		Issues:   res.Issues,
		Total:    res.Total,
		Count:    len(res.Expenses),
	}
	if body.Expenses == nil {
		body.Expenses = []core.Expense{}
	}
	if body.Issues == nil {
		body.Issues = []core.Issue{}
	}
	NewResponse().JSON(body).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := NewRequestBodyParser(r).ExpenseInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.opts.Expenses.Create(r.Context(), OwnerFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		JSON(e).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := NewRequestBodyParser(r).ExpenseInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.opts.Expenses.Update(r.Context(), OwnerFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(e).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Expenses.Delete(r.Context(), OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleAttachReceipt accepts a multipart upload with the receipt in the
// "file" field.
func (s *Server) handleAttachReceipt(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		writeError(w, r, fmt.Errorf("%w: expected multipart/form-data", errBadParam))
		return
	}

	limit := s.opts.MaxReceiptBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "receipt file too large").Write(w)
			return
		}
		writeError(w, r, fmt.Errorf("%w: malformed multipart body: %v", errBadParam, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: missing file field", errBadParam))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: read receipt: %v", errBadParam, err))
		return
	}

	id := chi.URLParam(r, "id")
	e, err := s.opts.Expenses.AttachReceipt(r.Context(), OwnerFromContext(r.Context()), id,
		header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Receipt attached",
		log.FieldExpenseID, id, "size", len(data))
	NewResponse().JSON(e).Write(w)
}
