// Package store defines the document store used for expenses and categories.
//
// Every read is scoped by owner: a record of another owner reads as
// ErrNotFound. Mutations name the acting owner and fail with ErrForbidden,
// without applying anything, when the record belongs to someone else.
package store

import (
	"context"

	"spendlens/internal/core"
)

type (
	ExpenseStore interface {
		// ListExpenses returns every stored record of owner. An owner with
		// no records gets an empty slice and a nil error.
		ListExpenses(ctx context.Context, owner string) ([]core.RawExpense, error)
		GetExpense(ctx context.Context, owner, id string) (core.RawExpense, error)
		// CreateExpense stores rec and returns the assigned ID. rec.ID is ignored.
		CreateExpense(ctx context.Context, rec core.RawExpense) (string, error)
		// UpdateExpense replaces every field of rec.ID except ID and owner.
		UpdateExpense(ctx context.Context, owner string, rec core.RawExpense) error
		DeleteExpense(ctx context.Context, owner, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, owner string) ([]core.Category, error)
		// CreateCategory fails with ErrConflict when owner already has a
		// category with the same name, compared case-insensitively.
		CreateCategory(ctx context.Context, c core.Category) (string, error)
		RenameCategory(ctx context.Context, owner, id, name string) error
		DeleteCategory(ctx context.Context, owner, id string) error
	}

	// Store is a full document store backend.
	Store interface {
		ExpenseStore
		CategoryStore
		Ping(ctx context.Context) error
		Close() error
	}
)
