package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NoReceipt is the literal persisted in the receipt column when an expense
// has no attachment. Stores keep writing it; nothing outside this file
// compares against it.
const NoReceipt = "No receipt"

const (
	maxTitleLen    = 200
	maxCategoryLen = 64
	dateLayout     = "2006-01-02"
)

type (
	// Date is a calendar day anchored at UTC midnight.
	Date struct {
		time.Time
	}

	// Receipt is an optional reference to an externally stored file.
	Receipt struct {
		url string
	}

	// Expense is a normalized expense record.
	Expense struct {
		ID        string          `json:"id"`
		OwnerID   string          `json:"owner_id"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Category  string          `json:"category"`
		Date      Date            `json:"date"`
		Receipt   Receipt         `json:"receipt_url"`
		CreatedAt time.Time       `json:"created_at,omitzero"`
	}

	// RawExpense is an expense as persisted by a document store: amount and
	// date are text and may be malformed.
	RawExpense struct {
		ID         string
		OwnerID    string
		Title      string
		Amount     string
		Category   string
		Date       string
		ReceiptURL string
		CreatedAt  time.Time
	}

	// Category is a user-scoped category name.
	Category struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at,omitzero"`
	}

	// ExpenseInput carries the user-editable fields of an expense as submitted.
	ExpenseInput struct {
		Title    string `json:"title"`
		Amount   string `json:"amount"`
		Category string `json:"category"`
		Date     string `json:"date"`
	}

	// Draft is a validated ExpenseInput.
	Draft struct {
		Title    string
		Amount   decimal.Decimal
		Category string
		Date     Date
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyTitle      = errors.New("empty title")
	ErrTitleTooLong    = fmt.Errorf("title too long (max %d characters)", maxTitleLen)
	ErrEmptyCategory   = errors.New("empty category")
	ErrCategoryTooLong = fmt.Errorf("category too long (max %d characters)", maxCategoryLen)
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate reads "YYYY-MM-DD" or an RFC 3339 timestamp. For timestamps the
// calendar date is taken as written; the offset never moves the day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(dateLayout) {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	if rest := s[len(dateLayout):]; rest != "" {
		if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
			return Date{}, ErrInvalidDate
		}
	}
	return Date{Time: t}, nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Compare returns -1, 0 or +1 ordering d against o chronologically.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewReceipt references an uploaded file. An empty url means no receipt.
func NewReceipt(url string) Receipt {
	return Receipt{url: strings.TrimSpace(url)}
}

// ReceiptFromStored decodes the persisted receipt column.
func ReceiptFromStored(s string) Receipt {
	if s = strings.TrimSpace(s); s == NoReceipt {
		return Receipt{}
	}
	return NewReceipt(s)
}

func (r Receipt) Present() bool { return r.url != "" }

func (r Receipt) URL() string { return r.url }

// Stored returns the value persisted for this receipt.
func (r Receipt) Stored() string {
	if !r.Present() {
		return NoReceipt
	}
	return r.url
}

func (r Receipt) MarshalJSON() ([]byte, error) {
	if !r.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(r.url)
}

// Raw converts a normalized expense back to its persisted form.
func (e Expense) Raw() RawExpense {
	return RawExpense{
		ID:         e.ID,
		OwnerID:    e.OwnerID,
		Title:      e.Title,
		Amount:     e.Amount.String(),
		Category:   e.Category,
		Date:       e.Date.String(),
		ReceiptURL: e.Receipt.Stored(),
		CreatedAt:  e.CreatedAt,
	}
}

// Draft validates the input and returns typed values.
func (in ExpenseInput) Draft() (Draft, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Draft{}, err
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Draft{}, err
	}
	d := Draft{
		Title:    strings.TrimSpace(in.Title),
		Amount:   amount,
		Category: strings.TrimSpace(in.Category),
		Date:     date,
	}
	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (d Draft) Validate() error {
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if d.Title == "" {
		return ErrEmptyTitle
	}
	if len(d.Title) > maxTitleLen {
		return ErrTitleTooLong
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.Category == "" {
		return ErrEmptyCategory
	}
	if len(d.Category) > maxCategoryLen {
		return ErrCategoryTooLong
	}
	return nil
}

// NormalizeCategoryName trims a category name and checks its length.
func NormalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyCategory
	}
	if len(name) > maxCategoryLen {
		return "", ErrCategoryTooLong
	}
	return name, nil
}

// DefaultCategories are offered to owners alongside their own categories.
var DefaultCategories = []string{
	"Food & Drinks",
	"Fuel",
	"Groceries",
	"Commute",
	"Utility Bills",
	"Fitness",
	"Medical",
	"Money Transfers",
	"Rent",
	"ATM Withdrawal",
	"Shopping",
	"Others",
}
