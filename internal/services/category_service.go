package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/store"
)

// SnapshotLoader loads an owner's normalized records.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, owner string) (core.Snapshot, error)
}

// CategoryService manages owner-scoped category names. Names are trimmed,
// non-empty, at most 64 characters and unique per owner ignoring case.
type CategoryService struct {
	store    store.CategoryStore
	expenses SnapshotLoader
	logger   *log.Logger
}

func NewCategoryService(s store.CategoryStore, expenses SnapshotLoader, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &CategoryService{
		store:    s,
		expenses: expenses,
		logger:   logger.WithComponent(log.ComponentCategory),
	}
}

func (s *CategoryService) List(ctx context.Context, owner string) ([]core.Category, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	cats, err := s.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Create(ctx context.Context, owner, name string) (core.Category, error) {
	if owner == "" {
		return core.Category{}, ErrNoOwner
	}
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.checkUnique(ctx, owner, "", name); err != nil {
		return core.Category{}, err
	}

	c := core.Category{OwnerID: owner, Name: name}
	id, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, conflictAsDuplicate("create category", name, err)
	}
	c.ID = id

	s.logger.InfoContext(ctx, "Category created",
		log.FieldOwnerID, owner,
		log.FieldCategoryID, id,
		log.FieldCategory, name)
	return c, nil
}

// Rename changes a category's name. Expenses keep the category text they
// were saved with.
func (s *CategoryService) Rename(ctx context.Context, owner, id, name string) (core.Category, error) {
	if owner == "" {
		return core.Category{}, ErrNoOwner
	}
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.checkUnique(ctx, owner, id, name); err != nil {
		return core.Category{}, err
	}
	if err := s.store.RenameCategory(ctx, owner, id, name); err != nil {
		return core.Category{}, conflictAsDuplicate("rename category", name, err)
	}

	s.logger.InfoContext(ctx, "Category renamed",
		log.FieldOwnerID, owner,
		log.FieldCategoryID, id,
		log.FieldCategory, name)
	return core.Category{ID: id, OwnerID: owner, Name: name}, nil
}

func (s *CategoryService) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return ErrNoOwner
	}
	if err := s.store.DeleteCategory(ctx, owner, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category deleted", log.FieldOwnerID, owner, log.FieldCategoryID, id)
	return nil
}

// Suggestions lists the owner's stored categories, then categories used on
// the owner's valid expenses, then the defaults. Duplicates are dropped
// ignoring case; the first spelling wins.
func (s *CategoryService) Suggestions(ctx context.Context, owner string) ([]string, error) {
	cats, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	var used []string
	if s.expenses != nil {
		snap, err := s.expenses.Snapshot(ctx, owner)
		if err != nil {
			return nil, err
		}
		for _, e := range snap.Expenses {
			used = append(used, e.Category)
		}
	}

	fold := cases.Fold()
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := fold.String(name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, name)
	}

	for _, c := range cats {
		add(c.Name)
	}
	for _, name := range used {
		add(name)
	}
	for _, name := range core.DefaultCategories {
		add(name)
	}
	return out, nil
}

// checkUnique fails with ErrDuplicateCategory when another category of
// owner already uses name. The store's unique index backs this up.
func (s *CategoryService) checkUnique(ctx context.Context, owner, selfID, name string) error {
	cats, err := s.List(ctx, owner)
	if err != nil {
		return err
	}
	fold := cases.Fold()
	key := fold.String(name)
	for _, c := range cats {
		if c.ID != selfID && fold.String(c.Name) == key {
			return fmt.Errorf("%w: %q", ErrDuplicateCategory, c.Name)
		}
	}
	return nil
}

func conflictAsDuplicate(op, name string, err error) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %q", ErrDuplicateCategory, name)
	}
	return fmt.Errorf("%s: %w", op, err)
}
