package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type MenuItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// NUMERIC in Postgres; decimal avoids float rounding on totals
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CreateCategoryRequest payload for category creation.
// swagger:model CreateCategoryRequest
type CreateCategoryRequest struct {
	Title string `json:"title" example:"Desserts"`
}

// CreateMenuItemRequest payload for menu item creation.
// swagger:model CreateMenuItemRequest
type CreateMenuItemRequest struct {
	Title      string `json:"title"       example:"Lemon Cake"`
	Price      string `json:"price"       example:"4.50"`
	CategoryID string `json:"category_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
}

// UpdateMenuItemRequest payload for partial menu item update.
// swagger:model UpdateMenuItemRequest
type UpdateMenuItemRequest struct {
	Title      string `json:"title"`
	Price      string `json:"price"`
	CategoryID string `json:"category_id"`
}
