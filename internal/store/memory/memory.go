// Package memory is an in-process document store. Records live only as long
// as the process.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendlens/internal/core"
	"spendlens/internal/store"
)

type Store struct {
	mu         sync.Mutex
	expenses   []core.RawExpense
	categories []core.Category
	now        func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// Seed stores records as-is, keeping their IDs. It is meant for fixtures that
// need malformed records, which the regular write path would never produce.
func (s *Store) Seed(recs ...core.RawExpense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.expenses = append(s.expenses, r)
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListExpenses(_ context.Context, owner string) ([]core.RawExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.RawExpense{}
	for _, r := range s.expenses {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, owner, id string) (core.RawExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.expenseIndex(owner, id)
	if errors.Is(err, store.ErrForbidden) {
		return core.RawExpense{}, store.ErrNotFound
	}
	if err != nil {
		return core.RawExpense{}, err
	}
	return s.expenses[i], nil
}

func (s *Store) CreateExpense(_ context.Context, rec core.RawExpense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	s.expenses = append(s.expenses, rec)
	return rec.ID, nil
}

func (s *Store) UpdateExpense(_ context.Context, owner string, rec core.RawExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.expenseIndex(owner, rec.ID)
	if err != nil {
		return err
	}
	cur := &s.expenses[i]
	cur.Title = rec.Title
	cur.Amount = rec.Amount
	cur.Category = rec.Category
	cur.Date = rec.Date
	cur.ReceiptURL = rec.ReceiptURL
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.expenseIndex(owner, id)
	if err != nil {
		return err
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

// expenseIndex must be called with s.mu held.
func (s *Store) expenseIndex(owner, id string) (int, error) {
	for i, r := range s.expenses {
		if r.ID != id {
			continue
		}
		if r.OwnerID != owner {
			return -1, store.ErrForbidden
		}
		return i, nil
	}
	return -1, store.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context, owner string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Category{}
	for _, c := range s.categories {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(c.OwnerID, "", c.Name) {
		return "", store.ErrConflict
	}
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.categories = append(s.categories, c)
	return c.ID, nil
}

func (s *Store) RenameCategory(_ context.Context, owner, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.categoryIndex(owner, id)
	if err != nil {
		return err
	}
	if s.nameTaken(owner, id, name) {
		return store.ErrConflict
	}
	s.categories[i].Name = name
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.categoryIndex(owner, id)
	if err != nil {
		return err
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return nil
}

func (s *Store) categoryIndex(owner, id string) (int, error) {
	for i, c := range s.categories {
		if c.ID != id {
			continue
		}
		if c.OwnerID != owner {
			return -1, store.ErrForbidden
		}
		return i, nil
	}
	return -1, store.ErrNotFound
}

func (s *Store) nameTaken(owner, exceptID, name string) bool {
	for _, c := range s.categories {
		if c.OwnerID == owner && c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
