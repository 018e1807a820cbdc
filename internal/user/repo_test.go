package user

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
)

func TestInsertErr(t *testing.T) {
	if k := apperr.KindOf(insertErr(&pgconn.PgError{Code: "23505"})); k != apperr.Conflict {
		t.Fatalf("unique violation kind=%s, want conflict", k)
	}
	// an infrastructure failure must not read as a client fault
	if k := apperr.KindOf(insertErr(context.DeadlineExceeded)); k != apperr.Internal {
		t.Fatalf("timeout kind=%s, want internal", k)
	}
	if insertErr(nil) != nil {
		t.Fatal("nil must pass through")
	}
}

func TestScanErr(t *testing.T) {
	if k := apperr.KindOf(scanErr(pgx.ErrNoRows)); k != apperr.NotFound {
		t.Fatalf("no rows kind=%s, want not_found", k)
	}
	if k := apperr.KindOf(scanErr(context.DeadlineExceeded)); k != apperr.Internal {
		t.Fatalf("timeout kind=%s, want internal", k)
	}
}
