// Package postgres is a document store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"spendlens/internal/core"
	"spendlens/internal/store"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

// Open connects to databaseURL and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return store.Wrap("ping", r.pool.Ping(ctx))
}

const expenseColumns = `id, owner_id, title, amount, category, date, receipt_url, created_at`

func (r *Repository) ListExpenses(ctx context.Context, owner string) ([]core.RawExpense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = $1 ORDER BY seq`, owner)
	if err != nil {
		return nil, store.Wrap("list expenses", err)
	}
	out, err := pgx.CollectRows(rows, scanExpense)
	if err != nil {
		return nil, store.Wrap("list expenses", err)
	}
	if out == nil {
		out = []core.RawExpense{}
	}
	return out, nil
}

func scanExpense(row pgx.CollectableRow) (core.RawExpense, error) {
	var e core.RawExpense
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.ReceiptURL, &e.CreatedAt)
	return e, err
}

func (r *Repository) GetExpense(ctx context.Context, owner, id string) (core.RawExpense, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	if err != nil {
		return core.RawExpense{}, store.Wrap("get expense", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanExpense)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.RawExpense{}, store.ErrNotFound
	}
	if err != nil {
		return core.RawExpense{}, store.Wrap("get expense", err)
	}
	if e.OwnerID != owner {
		return core.RawExpense{}, store.ErrNotFound
	}
	return e, nil
}

func (r *Repository) CreateExpense(ctx context.Context, rec core.RawExpense) (string, error) {
	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.OwnerID, rec.Title, rec.Amount, rec.Category, rec.Date, rec.ReceiptURL, rec.CreatedAt)
	if err != nil {
		return "", store.Wrap("create expense", err)
	}
	return rec.ID, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, owner string, rec core.RawExpense) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses SET title = $1, amount = $2, category = $3, date = $4, receipt_url = $5
		 WHERE id = $6 AND owner_id = $7`,
		rec.Title, rec.Amount, rec.Category, rec.Date, rec.ReceiptURL, rec.ID, owner)
	if err != nil {
		return store.Wrap("update expense", err)
	}
	return r.checkAffected(ctx, "update expense", "expenses", rec.ID, tag)
}

func (r *Repository) DeleteExpense(ctx context.Context, owner, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return store.Wrap("delete expense", err)
	}
	return r.checkAffected(ctx, "delete expense", "expenses", id, tag)
}

func (r *Repository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, name, created_at FROM categories WHERE owner_id = $1 ORDER BY seq`, owner)
	if err != nil {
		return nil, store.Wrap("list categories", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		var c core.Category
		err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, store.Wrap("list categories", err)
	}
	if out == nil {
		out = []core.Category{}
	}
	return out, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (string, error) {
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, owner_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.OwnerID, c.Name, c.CreatedAt)
	if isUniqueViolation(err) {
		return "", store.ErrConflict
	}
	if err != nil {
		return "", store.Wrap("create category", err)
	}
	return c.ID, nil
}

func (r *Repository) RenameCategory(ctx context.Context, owner, id, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $1 WHERE id = $2 AND owner_id = $3`, name, id, owner)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return store.Wrap("rename category", err)
	}
	return r.checkAffected(ctx, "rename category", "categories", id, tag)
}

func (r *Repository) DeleteCategory(ctx context.Context, owner, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return store.Wrap("delete category", err)
	}
	return r.checkAffected(ctx, "delete category", "categories", id, tag)
}

func (r *Repository) checkAffected(ctx context.Context, op, table, id string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
	switch {
	case err != nil:
		return store.Wrap(op, err)
	case exists:
		return store.ErrForbidden
	default:
		return store.ErrNotFound
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
