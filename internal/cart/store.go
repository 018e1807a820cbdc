// Package cart holds the per-user line-item collection. Every operation is
// scoped to the caller's own identity; handlers never accept a foreign user id.
package cart

import (
	"context"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
	"github.com/mintzusung/restaurant-orders/internal/catalog"
)

// MenuResolver is the read-only slice of the catalog the cart needs.
type MenuResolver interface {
	GetItem(ctx context.Context, id string) (*catalog.MenuItem, error)
}

type Store struct {
	repo Repository
	menu MenuResolver
}

func NewStore(repo Repository, menu MenuResolver) *Store {
	return &Store{repo: repo, menu: menu}
}

// AddItem validates before any write: quantity must be positive and the menu
// item must resolve in the catalog.
func (s *Store) AddItem(ctx context.Context, userID, menuItemID string, qty int) (*Line, error) {
	if qty <= 0 {
		return nil, apperr.New(apperr.Validation, "quantity must be a positive integer")
	}
	if menuItemID == "" {
		return nil, apperr.New(apperr.Validation, "menu_item_id is required")
	}
	if _, err := s.menu.GetItem(ctx, menuItemID); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, userID, menuItemID, qty)
}

func (s *Store) ListItems(ctx context.Context, userID string) ([]Line, error) {
	lines, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []Line{}
	}
	return lines, nil
}

// RemoveItem is idempotent: removing an absent line succeeds.
func (s *Store) RemoveItem(ctx context.Context, userID, menuItemID string) error {
	if menuItemID == "" {
		return apperr.New(apperr.Validation, "menu_item_id is required")
	}
	return s.repo.Remove(ctx, userID, menuItemID)
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}
