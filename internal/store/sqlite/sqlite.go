// Package sqlite is a document store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"spendlens/internal/core"
	"spendlens/internal/store"
)

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

// Open creates the database file if needed and applies migrations.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return store.Wrap("ping", r.db.PingContext(ctx))
}

const expenseColumns = `id, owner_id, title, amount, category, date, receipt_url, created_at`

func scanExpense(row interface{ Scan(...any) error }) (core.RawExpense, error) {
	var e core.RawExpense
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.ReceiptURL, &e.CreatedAt)
	return e, err
}

func (r *Repository) ListExpenses(ctx context.Context, owner string) ([]core.RawExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, store.Wrap("list expenses", err)
	}
	defer rows.Close()

	out := []core.RawExpense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, store.Wrap("list expenses", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list expenses", err)
	}
	return out, nil
}

func (r *Repository) GetExpense(ctx context.Context, owner, id string) (core.RawExpense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
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
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Title, rec.Amount, rec.Category, rec.Date, rec.ReceiptURL, rec.CreatedAt)
	if err != nil {
		return "", store.Wrap("create expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite", "expense_id", rec.ID, "owner_id", rec.OwnerID)
	return rec.ID, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, owner string, rec core.RawExpense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET title = ?, amount = ?, category = ?, date = ?, receipt_url = ?
		 WHERE id = ? AND owner_id = ?`,
		rec.Title, rec.Amount, rec.Category, rec.Date, rec.ReceiptURL, rec.ID, owner)
	if err != nil {
		return store.Wrap("update expense", err)
	}
	return r.checkAffected(ctx, "update expense", "expenses", rec.ID, res)
}

func (r *Repository) DeleteExpense(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return store.Wrap("delete expense", err)
	}
	return r.checkAffected(ctx, "delete expense", "expenses", id, res)
}

func (r *Repository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at FROM categories WHERE owner_id = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, store.Wrap("list categories", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, store.Wrap("list categories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list categories", err)
	}
	return out, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (string, error) {
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
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
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? AND owner_id = ?`, name, id, owner)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return store.Wrap("rename category", err)
	}
	return r.checkAffected(ctx, "rename category", "categories", id, res)
}

func (r *Repository) DeleteCategory(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return store.Wrap("delete category", err)
	}
	return r.checkAffected(ctx, "delete category", "categories", id, res)
}

// checkAffected tells a missing row from a row owned by someone else when an
// owner-scoped statement touched nothing.
func (r *Repository) checkAffected(ctx context.Context, op, table, id string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return store.Wrap(op, err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case err != nil:
		return store.Wrap(op, err)
	default:
		return store.ErrForbidden
	}
}

func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
