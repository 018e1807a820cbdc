package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
)

type Repository interface {
	CreateFromCart(ctx context.Context, userID string) (*Order, []Line, error)
	GetByID(ctx context.Context, id string) (*Order, []Line, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListByOwner(ctx context.Context, userID string) ([]Order, error)
	ListByCrew(ctx context.Context, crewID string) ([]Order, error)
	Assign(ctx context.Context, orderID, crewID string) (*Order, error)
	MarkDelivered(ctx context.Context, orderID string) (*Order, error)
	Delete(ctx context.Context, orderID string) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// CreateFromCart converts the user's cart into an order in one transaction:
// the cart rows are locked, current menu prices are copied into the new lines,
// and exactly the locked rows are removed from the cart. A line committed by a
// concurrent add after the lock stays in the cart for the next conversion. The
// row locks serialize concurrent conversions for the same user; the loser
// re-reads an empty cart and gets EmptyCart.
func (r *PGRepo) CreateFromCart(ctx context.Context, userID string) (*Order, []Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
    SELECT c.menu_item_id, c.quantity, m.price::text
    FROM cart_items c
    JOIN menu_items m ON m.id = c.menu_item_id
    WHERE c.user_id = $1
    ORDER BY c.created_at, c.menu_item_id
    FOR UPDATE OF c
  `, userID)
	if err != nil {
		return nil, nil, err
	}

	o := &Order{ID: uuid.NewString(), UserID: userID, Status: StatusCreated}
	total := decimal.Zero
	var lines []Line
	var itemIDs []string
	for rows.Next() {
		var l Line
		var price string
		if err := rows.Scan(&l.MenuItemID, &l.Quantity, &price); err != nil {
			rows.Close()
			return nil, nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			rows.Close()
			return nil, nil, err
		}
		l.ID = uuid.NewString()
		l.OrderID = o.ID
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		lines = append(lines, l)
		itemIDs = append(itemIDs, l.MenuItemID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, apperr.New(apperr.EmptyCart, "cart is empty")
	}
	o.Total = total

	if err := tx.QueryRow(ctx, `
    INSERT INTO orders (id, user_id, status, total, created_at, updated_at)
    VALUES ($1,$2,$3,$4,NOW(),NOW())
    RETURNING created_at, updated_at
  `, o.ID, o.UserID, string(o.Status), o.Total.String()).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, nil, err
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price)
      VALUES ($1,$2,$3,$4,$5)
    `, l.ID, l.OrderID, l.MenuItemID, l.Quantity, l.UnitPrice.String()); err != nil {
			return nil, nil, err
		}
	}

	// only the snapshotted lines; a blanket delete would swallow rows
	// committed after the lock was taken
	if _, err := tx.Exec(ctx, `
    DELETE FROM cart_items WHERE user_id=$1 AND menu_item_id = ANY($2::uuid[])
  `, userID, itemIDs); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return o, lines, nil
}

const orderCols = `id, user_id, delivery_crew_id, status, total::text, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var total string
	if err := row.Scan(&o.ID, &o.UserID, &o.DeliveryCrewID, &o.Status, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.NotFound, "order not found")
		}
		return nil, err
	}
	var err error
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(ctx, `
    SELECT id, order_id, menu_item_id, quantity, unit_price::text
    FROM order_items WHERE order_id=$1
  `, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		var price string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Quantity, &price); err != nil {
			return nil, nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, nil, err
		}
		lines = append(lines, l)
	}
	return o, lines, rows.Err()
}

func (r *PGRepo) list(ctx context.Context, where string, args ...any) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+orderCols+` FROM orders `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var total string
		if err := rows.Scan(&o.ID, &o.UserID, &o.DeliveryCrewID, &o.Status, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, ``)
}

func (r *PGRepo) ListByOwner(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `WHERE user_id=$1`, userID)
}

func (r *PGRepo) ListByCrew(ctx context.Context, crewID string) ([]Order, error) {
	return r.list(ctx, `WHERE delivery_crew_id=$1`, crewID)
}

// transition loads the order under a row lock, applies fn, and persists the
// result, so concurrent transitions on one order serialize.
func (r *PGRepo) transition(ctx context.Context, orderID string, fn func(*Order) error) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
    UPDATE orders SET delivery_crew_id=$2, status=$3, updated_at=NOW() WHERE id=$1
  `, o.ID, o.DeliveryCrewID, string(o.Status)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PGRepo) Assign(ctx context.Context, orderID, crewID string) (*Order, error) {
	return r.transition(ctx, orderID, func(o *Order) error { return o.Assign(crewID) })
}

func (r *PGRepo) MarkDelivered(ctx context.Context, orderID string) (*Order, error) {
	return r.transition(ctx, orderID, func(o *Order) error { return o.Deliver() })
}

// Delete removes the aggregate; order_items cascade.
func (r *PGRepo) Delete(ctx context.Context, orderID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
