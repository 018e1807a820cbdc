// Package catalog provides the repository interface and PostgreSQL implementation
// for categories and menu items. Order creation reads *current* prices from here;
// it never writes back.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
)

type Query struct {
	CategoryID  string
	SortByPrice bool // price ascending
	Limit       int
	Offset      int
}

type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) (bool, error)

	CreateItem(ctx context.Context, m *MenuItem) error
	GetItem(ctx context.Context, id string) (*MenuItem, error)
	ListItems(ctx context.Context, q Query) ([]MenuItem, error)
	UpdateItem(ctx context.Context, m *MenuItem, updatePrice bool) error
	DeleteItem(ctx context.Context, id string) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) CreateCategory(ctx context.Context, c *Category) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO categories (id, title) VALUES ($1,$2)
	`, c.ID, c.Title)
	return insertErr(err, "category already exists")
}

func (r *PGRepo) GetCategory(ctx context.Context, id string) (*Category, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Category
	err := r.db.QueryRow(ctx, `SELECT id, title FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Title)
	if err != nil {
		return nil, scanErr(err, "category not found")
	}
	return &c, nil
}

func (r *PGRepo) UpdateCategory(ctx context.Context, c *Category) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `UPDATE categories SET title=$2 WHERE id=$1`, c.ID, c.Title)
	if err != nil {
		return insertErr(err, "category already exists")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "category not found")
	}
	return nil
}

func (r *PGRepo) ListCategories(ctx context.Context) ([]Category, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT id, title FROM categories ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) DeleteCategory(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGRepo) CreateItem(ctx context.Context, m *MenuItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO menu_items (id, title, price, category_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,NOW(),NOW())
	`, m.ID, m.Title, m.Price.String(), m.CategoryID)
	return err
}

func (r *PGRepo) GetItem(ctx context.Context, id string) (*MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var m MenuItem
	var price string
	err := r.db.QueryRow(ctx, `
		SELECT id, title, price::text, category_id, created_at, updated_at
		FROM menu_items WHERE id=$1
	`, id).Scan(&m.ID, &m.Title, &price, &m.CategoryID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, scanErr(err, "menu item not found")
	}
	if m.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PGRepo) ListItems(ctx context.Context, q Query) ([]MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	order := `created_at DESC`
	if q.SortByPrice {
		order = `price ASC`
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, title, price::text, category_id, created_at, updated_at
		FROM menu_items
		WHERE ($1 = '' OR category_id::text = $1)
		ORDER BY `+order+`
		LIMIT $2 OFFSET $3
	`, q.CategoryID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		var price string
		if err := rows.Scan(&m.ID, &m.Title, &price, &m.CategoryID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		if m.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateItem(ctx context.Context, m *MenuItem, updatePrice bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if updatePrice {
		_, err := r.db.Exec(ctx, `
			UPDATE menu_items
			SET title = COALESCE(NULLIF($2,''), title),
			    price = $3,
			    category_id = COALESCE(NULLIF($4,'')::uuid, category_id),
			    updated_at = NOW()
			WHERE id = $1
		`, m.ID, m.Title, m.Price.String(), m.CategoryID)
		return err
	}

	_, err := r.db.Exec(ctx, `
		UPDATE menu_items
		SET title = COALESCE(NULLIF($2,''), title),
		    category_id = COALESCE(NULLIF($3,'')::uuid, category_id),
		    updated_at = NOW()
		WHERE id = $1
	`, m.ID, m.Title, m.CategoryID)
	return err
}

func (r *PGRepo) DeleteItem(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// insertErr classifies a write failure: a unique violation is a Conflict with
// msg, anything else passes through unclassified.
func insertErr(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return apperr.New(apperr.Conflict, msg)
	}
	return err
}

// scanErr maps a missing row to NotFound; other failures pass through.
func scanErr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.NotFound, msg)
	}
	return err
}
