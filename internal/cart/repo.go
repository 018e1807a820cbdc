package cart

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Upsert(ctx context.Context, userID, menuItemID string, qty int) (*Line, error)
	List(ctx context.Context, userID string) ([]Line, error)
	Remove(ctx context.Context, userID, menuItemID string) error
	Clear(ctx context.Context, userID string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// Upsert inserts a line or merges quantity into the existing one. The
// (user_id, menu_item_id) primary key makes the merge atomic.
func (r *PGRepo) Upsert(ctx context.Context, userID, menuItemID string, qty int) (*Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l Line
	err := r.db.QueryRow(ctx, `
		INSERT INTO cart_items (user_id, menu_item_id, quantity, created_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT (user_id, menu_item_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING user_id, menu_item_id, quantity, created_at
	`, userID, menuItemID, qty).Scan(&l.UserID, &l.MenuItemID, &l.Quantity, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PGRepo) List(ctx context.Context, userID string) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT user_id, menu_item_id, quantity, created_at
		FROM cart_items WHERE user_id=$1
		ORDER BY created_at, menu_item_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.UserID, &l.MenuItemID, &l.Quantity, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Remove deletes the line if present; a missing line is a no-op.
func (r *PGRepo) Remove(ctx context.Context, userID, menuItemID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		DELETE FROM cart_items WHERE user_id=$1 AND menu_item_id=$2
	`, userID, menuItemID)
	return err
}

func (r *PGRepo) Clear(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}
