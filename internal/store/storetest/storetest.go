// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
	"spendlens/internal/store"
)

// Run exercises s. It expects an empty store.
func Run(t *testing.T, s store.Store) {
	t.Run("Expenses", func(t *testing.T) { testExpenses(t, s) })
	t.Run("Ownership", func(t *testing.T) { testOwnership(t, s) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, s) })
}

func testExpenses(t *testing.T, s store.Store) {
	ctx := context.Background()

	empty, err := s.ListExpenses(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	id, err := s.CreateExpense(ctx, core.RawExpense{
		OwnerID:    "alice",
		Title:      "Lunch",
		Amount:     "100.005",
		Category:   "Food",
		Date:       "2025-03-01",
		ReceiptURL: core.NoReceipt,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetExpense(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, "100.005", got.Amount)
	assert.Equal(t, "2025-03-01", got.Date)
	assert.Equal(t, core.NoReceipt, got.ReceiptURL)

	got.Title = "Team lunch"
	got.Amount = "120"
	got.Category = "Work"
	got.Date = "2025-03-02"
	got.ReceiptURL = "https://files.example/r.pdf"
	got.OwnerID = "mallory"
	require.NoError(t, s.UpdateExpense(ctx, "alice", got))

	list, err := s.ListExpenses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Team lunch", list[0].Title)
	assert.Equal(t, "120", list[0].Amount)
	assert.Equal(t, "Work", list[0].Category)
	assert.Equal(t, "2025-03-02", list[0].Date)
	assert.Equal(t, "https://files.example/r.pdf", list[0].ReceiptURL)
	assert.Equal(t, "alice", list[0].OwnerID, "owner must not be replaceable")

	require.NoError(t, s.DeleteExpense(ctx, "alice", id))
	_, err = s.GetExpense(ctx, "alice", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteExpense(ctx, "alice", id), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateExpense(ctx, "alice", got), store.ErrNotFound)
}

func testOwnership(t *testing.T, s store.Store) {
	ctx := context.Background()

	id, err := s.CreateExpense(ctx, core.RawExpense{OwnerID: "bob", Title: "Rent", Amount: "900", Category: "Rent", Date: "2025-01-01", ReceiptURL: core.NoReceipt})
	require.NoError(t, err)

	list, err := s.ListExpenses(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.GetExpense(ctx, "carol", id)
	assert.ErrorIs(t, err, store.ErrNotFound, "reads do not reveal other owners' records")

	err = s.UpdateExpense(ctx, "carol", core.RawExpense{ID: id, Title: "hijacked", Amount: "1", Date: "2025-01-01"})
	assert.ErrorIs(t, err, store.ErrForbidden)
	assert.ErrorIs(t, s.DeleteExpense(ctx, "carol", id), store.ErrForbidden)

	got, err := s.GetExpense(ctx, "bob", id)
	require.NoError(t, err)
	assert.Equal(t, "Rent", got.Title, "rejected update must not be applied")

	cid, err := s.CreateCategory(ctx, core.Category{OwnerID: "bob", Name: "Rent"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.RenameCategory(ctx, "carol", cid, "Mine"), store.ErrForbidden)
	assert.ErrorIs(t, s.DeleteCategory(ctx, "carol", cid), store.ErrForbidden)
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()

	food, err := s.CreateCategory(ctx, core.Category{OwnerID: "dave", Name: "Food"})
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, core.Category{OwnerID: "dave", Name: "FOOD"})
	assert.ErrorIs(t, err, store.ErrConflict)

	// Another owner may reuse the name.
	_, err = s.CreateCategory(ctx, core.Category{OwnerID: "erin", Name: "Food"})
	require.NoError(t, err)

	travel, err := s.CreateCategory(ctx, core.Category{OwnerID: "dave", Name: "Travel"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.RenameCategory(ctx, "dave", travel, "food"), store.ErrConflict)
	require.NoError(t, s.RenameCategory(ctx, "dave", food, "Groceries"))
	require.NoError(t, s.RenameCategory(ctx, "dave", food, "groceries"), "changing case of its own name is allowed")

	cats, err := s.ListCategories(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	names := []string{cats[0].Name, cats[1].Name}
	assert.ElementsMatch(t, []string{"groceries", "Travel"}, names)

	require.NoError(t, s.DeleteCategory(ctx, "dave", travel))
	assert.ErrorIs(t, s.DeleteCategory(ctx, "dave", travel), store.ErrNotFound)
	assert.ErrorIs(t, s.RenameCategory(ctx, "dave", "missing", "x"), store.ErrNotFound)
}
