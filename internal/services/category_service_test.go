package services

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/store"
)

func newCategoryService(f *fixture) *CategoryService {
	return NewCategoryService(f.store, f.expenses, log.New(log.Config{Output: io.Discard}))
}

func TestCategoryService_CreateAndList(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(f)
	ctx := context.Background()

	c, err := svc.Create(ctx, "alice", "  Travel ")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Travel", c.Name)

	_, err = svc.Create(ctx, "alice", "travel")
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	_, err = svc.Create(ctx, "bob", "TRAVEL")
	assert.NoError(t, err, "names are unique per owner only")

	_, err = svc.Create(ctx, "alice", "   ")
	assert.ErrorIs(t, err, core.ErrEmptyCategory)
	assert.True(t, IsValidation(err))

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.Create(ctx, "alice", string(long))
	assert.ErrorIs(t, err, core.ErrCategoryTooLong)

	cats, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Travel", cats[0].Name)
}

func TestCategoryService_Rename(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(f)
	ctx := context.Background()

	travel, err := svc.Create(ctx, "alice", "Travel")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "Food")
	require.NoError(t, err)

	_, err = svc.Rename(ctx, "alice", travel.ID, "FOOD")
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	renamed, err := svc.Rename(ctx, "alice", travel.ID, "TRAVEL")
	require.NoError(t, err, "changing only the case of its own name is allowed")
	assert.Equal(t, "TRAVEL", renamed.Name)

	_, err = svc.Rename(ctx, "mallory", travel.ID, "Mine")
	assert.ErrorIs(t, err, store.ErrForbidden)

	_, err = svc.Rename(ctx, "alice", "missing", "Other")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCategoryService_Delete(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(f)
	ctx := context.Background()

	c, err := svc.Create(ctx, "alice", "Travel")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "mallory", c.ID), store.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "alice", c.ID))

	cats, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cats)

	_, err = svc.Create(ctx, "alice", "travel")
	assert.NoError(t, err, "deleted names can be reused")
}

func TestCategoryService_Suggestions(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(f)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", "Travel")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "groceries")
	require.NoError(t, err)
	_, err = f.expenses.Create(ctx, "alice", input("Gym", "30", "Fitness Club", "2025-03-01"))
	require.NoError(t, err)
	_, err = f.expenses.Create(ctx, "alice", input("Train", "30", "TRAVEL", "2025-03-02"))
	require.NoError(t, err)
	f.store.Seed(core.RawExpense{ID: "bad", OwnerID: "alice", Title: "x", Amount: "abc", Category: "Broken", Date: "2025-03-01"})

	got, err := svc.Suggestions(ctx, "alice")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, []string{"Travel", "groceries", "Fitness Club"}, got[:3])
	assert.NotContains(t, got, "Groceries", "default collides with the owner's spelling")
	assert.NotContains(t, got, "TRAVEL")
	assert.NotContains(t, got, "Broken", "invalid records contribute nothing")
	assert.Contains(t, got, "Others")
	assert.Len(t, got, 3+len(core.DefaultCategories)-1)
}

func TestCategoryService_NoOwner(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(f)
	ctx := context.Background()

	_, err := svc.List(ctx, "")
	assert.ErrorIs(t, err, ErrNoOwner)
	_, err = svc.Suggestions(ctx, "")
	assert.ErrorIs(t, err, ErrNoOwner)
}
