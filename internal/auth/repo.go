package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
)

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Insert(ctx context.Context, t *Token) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO auth_tokens (token, user_id, kind, expires_at)
		VALUES ($1,$2,$3,$4)
	`, t.Value, t.UserID, t.Kind, t.ExpiresAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, value string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var t Token
	err := r.db.QueryRow(ctx, `
		SELECT token, user_id, kind, expires_at
		FROM auth_tokens WHERE token=$1
	`, value).Scan(&t.Value, &t.UserID, &t.Kind, &t.ExpiresAt)
	if err != nil {
		return nil, getErr(err)
	}
	return &t, nil
}

// getErr keeps an unknown token indistinguishable from an absent one; other
// failures pass through unclassified.
func getErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.Authentication, "invalid credential")
	}
	return err
}
