// Package user is the identity directory: accounts, credentials, and the role
// tags the rest of the system authorizes against.
package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
	"github.com/mintzusung/restaurant-orders/internal/rbac"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	AddRole(ctx context.Context, id string, role rbac.RoleSet) error
	Roles(ctx context.Context, id string) (rbac.RoleSet, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, roles, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Roles)
	return insertErr(err)
}

// insertErr classifies a users insert failure: a unique violation on
// username/email is a Conflict, anything else passes through unclassified.
func insertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return apperr.New(apperr.Conflict, "user already exists (username/email)")
	}
	return err
}

// scanErr maps a missing row to NotFound; other failures pass through.
func scanErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return err
}

const userCols = `id, username, email, password_hash, roles, created_at, updated_at`

func (r *PGRepo) GetByID(ctx context.Context, id string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &u, nil
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &u, nil
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddRole appends the tag if the user does not already hold it.
func (r *PGRepo) AddRole(ctx context.Context, id string, role rbac.RoleSet) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tags := role.Tags()
	if len(tags) != 1 {
		return apperr.New(apperr.Validation, "exactly one role must be granted at a time")
	}
	cmd, err := r.db.Exec(ctx, `
		UPDATE users
		SET roles = array_append(roles, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(roles))
	`, id, tags[0])
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// distinguish missing user from an already-held role
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Roles is the lookup the order engine consumes for crew validation.
func (r *PGRepo) Roles(ctx context.Context, id string) (rbac.RoleSet, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return rbac.ParseRoles(u.Roles), nil
}
