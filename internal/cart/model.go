package cart

import "time"

// Line is one (user, menu item) entry. At most one line exists per pair;
// re-adding an item merges quantities instead of duplicating the line.
type Line struct {
	UserID     string    `json:"user_id"`
	MenuItemID string    `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddItemRequest payload for adding to the caller's cart.
// swagger:model AddItemRequest
type AddItemRequest struct {
	MenuItemID string `json:"menu_item_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity   int    `json:"quantity"     example:"2"`
}
