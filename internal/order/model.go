package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
)

// Status follows the fixed progression created -> assigned -> delivered.
// No transition skips a state; no transition reverses.
type Status string

const (
	StatusCreated   Status = "created"
	StatusAssigned  Status = "assigned"
	StatusDelivered Status = "delivered"
)

// Order and its Lines form one aggregate: lines are created only during
// cart conversion and die with the order.
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	DeliveryCrewID *string         `json:"delivery_crew_id,omitempty"`
	Status         Status          `json:"status"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Line struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	// UnitPrice is frozen at conversion time; later menu price changes
	// never touch it.
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Assign binds a delivery crew user. Only a freshly created order accepts one.
func (o *Order) Assign(crewID string) error {
	if o.Status != StatusCreated {
		return apperr.New(apperr.Conflict, "cannot assign order in status %q", o.Status)
	}
	o.DeliveryCrewID = &crewID
	o.Status = StatusAssigned
	return nil
}

// Deliver moves an assigned order to its terminal state.
func (o *Order) Deliver() error {
	if o.Status != StatusAssigned {
		return apperr.New(apperr.Conflict, "cannot deliver order in status %q", o.Status)
	}
	o.Status = StatusDelivered
	return nil
}

// AssignRequest payload for binding a delivery crew user.
// swagger:model AssignRequest
type AssignRequest struct {
	DeliveryCrewID string `json:"delivery_crew_id" example:"b2f5ff47-2b1e-4f22-8a96-5f3c1f2f2e7b"`
}
