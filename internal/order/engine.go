// Package order owns the order aggregate: cart-to-order conversion, the
// lifecycle state machine, and role-scoped visibility.
package order

import (
	"context"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
	"github.com/mintzusung/restaurant-orders/internal/rbac"
)

// Directory is the slice of the identity directory the engine consumes:
// which roles a given user holds.
type Directory interface {
	Roles(ctx context.Context, userID string) (rbac.RoleSet, error)
}

type Engine struct {
	repo  Repository
	users Directory
}

func NewEngine(repo Repository, users Directory) *Engine {
	return &Engine{repo: repo, users: users}
}

// CreateFromCart converts the actor's own cart into a new order. Price
// snapshotting, total computation, and cart clearing happen atomically in the
// repository transaction.
func (e *Engine) CreateFromCart(ctx context.Context, actor rbac.Identity) (*Order, []Line, error) {
	if !rbac.Authorize(actor.Roles, rbac.CreateOrder, rbac.Hint{IsOwner: true}) {
		return nil, nil, apperr.New(apperr.Permission, "not allowed to create orders")
	}
	return e.repo.CreateFromCart(ctx, actor.UserID)
}

// List applies the role visibility filter server-side; callers cannot widen it.
func (e *Engine) List(ctx context.Context, actor rbac.Identity) ([]Order, error) {
	if !rbac.Authorize(actor.Roles, rbac.ListOrders, rbac.Hint{}) {
		return nil, apperr.New(apperr.Permission, "not allowed to list orders")
	}
	var (
		out []Order
		err error
	)
	switch {
	case actor.Roles.Has(rbac.Admin | rbac.Manager):
		out, err = e.repo.ListAll(ctx)
	case actor.Roles.Has(rbac.DeliveryCrew):
		out, err = e.repo.ListByCrew(ctx, actor.UserID)
	default:
		out, err = e.repo.ListByOwner(ctx, actor.UserID)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

// Get returns one order under the same visibility rules as List. Orders
// outside the actor's scope read as not found rather than forbidden.
func (e *Engine) Get(ctx context.Context, actor rbac.Identity, orderID string) (*Order, []Line, error) {
	o, lines, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !visible(actor, o) {
		return nil, nil, apperr.New(apperr.NotFound, "order not found")
	}
	return o, lines, nil
}

func visible(actor rbac.Identity, o *Order) bool {
	if actor.Roles.Has(rbac.Admin | rbac.Manager) {
		return true
	}
	if actor.Roles.Has(rbac.DeliveryCrew) {
		return o.DeliveryCrewID != nil && *o.DeliveryCrewID == actor.UserID
	}
	return o.UserID == actor.UserID
}

// Assign binds a delivery-crew user to a freshly created order.
func (e *Engine) Assign(ctx context.Context, actor rbac.Identity, orderID, crewID string) (*Order, error) {
	if !rbac.Authorize(actor.Roles, rbac.AssignOrder, rbac.Hint{}) {
		return nil, apperr.New(apperr.Permission, "only admins or managers may assign orders")
	}
	if crewID == "" {
		return nil, apperr.New(apperr.Validation, "delivery_crew_id is required")
	}
	roles, err := e.users.Roles(ctx, crewID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.Validation, "delivery_crew_id does not identify a delivery crew user")
		}
		return nil, err
	}
	if !roles.Has(rbac.DeliveryCrew) {
		return nil, apperr.New(apperr.Validation, "delivery_crew_id does not identify a delivery crew user")
	}
	return e.repo.Assign(ctx, orderID, crewID)
}

// MarkDelivered is allowed for the bound crew user, with an admin/manager
// override. The state guard lives in the repository transition.
func (e *Engine) MarkDelivered(ctx context.Context, actor rbac.Identity, orderID string) (*Order, error) {
	o, _, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	hint := rbac.Hint{
		IsAssignedCrew: o.DeliveryCrewID != nil && *o.DeliveryCrewID == actor.UserID,
	}
	if !rbac.Authorize(actor.Roles, rbac.DeliverOrder, hint) {
		return nil, apperr.New(apperr.Permission, "only the assigned delivery crew, an admin, or a manager may mark delivery")
	}
	return e.repo.MarkDelivered(ctx, orderID)
}

// Delete removes the order and its lines atomically.
func (e *Engine) Delete(ctx context.Context, actor rbac.Identity, orderID string) error {
	if !rbac.Authorize(actor.Roles, rbac.DeleteOrder, rbac.Hint{}) {
		return apperr.New(apperr.Permission, "only admins or managers may delete orders")
	}
	ok, err := e.repo.Delete(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.NotFound, "order not found")
	}
	return nil
}
