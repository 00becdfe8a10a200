package query

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"spendlens/internal/core"
)

type Field string

const (
	FieldTitle    Field = "title"
	FieldAmount   Field = "amount"
	FieldCategory Field = "category"
	FieldDate     Field = "date"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is a sort key and direction.
type Order struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultOrder lists the newest expenses first.
var DefaultOrder = Order{Field: FieldDate, Direction: Desc}

// ParseOrder reads a field and direction. Empty values take the defaults
// (date, desc); anything else unknown is an error.
func ParseOrder(field, direction string) (Order, error) {
	o := DefaultOrder
	if f := strings.ToLower(strings.TrimSpace(field)); f != "" {
		switch Field(f) {
		case FieldTitle, FieldAmount, FieldCategory, FieldDate:
			o.Field = Field(f)
		default:
			return Order{}, fmt.Errorf("%w: unknown sort field %q", ErrInvalidSpec, field)
		}
	}
	if d := strings.ToLower(strings.TrimSpace(direction)); d != "" {
		switch Direction(d) {
		case Asc, Desc:
			o.Direction = Direction(d)
		default:
			return Order{}, fmt.Errorf("%w: unknown sort order %q", ErrInvalidSpec, direction)
		}
	}
	return o, nil
}

// Sort returns a new slice ordered by o. Equal keys keep their input order
// in both directions, so sorting a sorted slice again changes nothing.
func Sort(expenses []core.Expense, o Order) []core.Expense {
	type keyed struct {
		e    core.Expense
		text string
	}
	items := make([]keyed, len(expenses))
	caser := cases.Fold()
	for i, e := range expenses {
		items[i].e = e
		switch o.Field {
		case FieldTitle:
			items[i].text = caser.String(e.Title)
		case FieldCategory:
			items[i].text = caser.String(e.Category)
		}
	}

	cmp := func(a, b keyed) int {
		switch o.Field {
		case FieldTitle, FieldCategory:
			return strings.Compare(a.text, b.text)
		case FieldAmount:
			return a.e.Amount.Cmp(b.e.Amount)
		default:
			return a.e.Date.Compare(b.e.Date)
		}
	}
	if o.Direction == Desc {
		asc := cmp
		cmp = func(a, b keyed) int { return -asc(a, b) }
	}
	slices.SortStableFunc(items, cmp)

	out := make([]core.Expense, len(items))
	for i, it := range items {
		out[i] = it.e
	}
	return out
}
