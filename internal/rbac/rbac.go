// Package rbac holds the role model and the action policy table. Authorize is a
// pure function of the caller's role set, the action, and the ownership hint, so
// the whole policy is unit-testable without storage or HTTP.
package rbac

import "strings"

// RoleSet is a bitset of elevated roles. The empty set is a plain customer.
type RoleSet uint8

const (
	Admin RoleSet = 1 << iota
	Manager
	DeliveryCrew
)

func (s RoleSet) Has(r RoleSet) bool { return s&r != 0 }

func (s RoleSet) Add(r RoleSet) RoleSet { return s | r }

// ParseRole maps a stored role tag to its bit. Unknown tags map to zero.
func ParseRole(tag string) RoleSet {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "admin":
		return Admin
	case "manager":
		return Manager
	case "delivery_crew":
		return DeliveryCrew
	}
	return 0
}

func ParseRoles(tags []string) RoleSet {
	var s RoleSet
	for _, t := range tags {
		s = s.Add(ParseRole(t))
	}
	return s
}

// Tags returns the stored representation, ordered admin, manager, delivery_crew.
func (s RoleSet) Tags() []string {
	out := []string{}
	if s.Has(Admin) {
		out = append(out, "admin")
	}
	if s.Has(Manager) {
		out = append(out, "manager")
	}
	if s.Has(DeliveryCrew) {
		out = append(out, "delivery_crew")
	}
	return out
}

// Identity is the authenticated caller every operation receives.
type Identity struct {
	UserID string
	Roles  RoleSet
}

type Action string

const (
	BrowseCatalog Action = "catalog.browse"
	ManageCatalog Action = "catalog.manage"
	UseCart       Action = "cart.use"
	CreateOrder   Action = "order.create"
	ListOrders    Action = "order.list"
	DeleteOrder   Action = "order.delete"
	AssignOrder   Action = "order.assign"
	DeliverOrder  Action = "order.deliver"
	ListUsers     Action = "user.list"
	PromoteUser   Action = "user.promote"
)

// Hint carries the resource-ownership facts the policy may consult.
type Hint struct {
	IsOwner        bool
	IsAssignedCrew bool
}

// policy is a tagged variant: an action passes if any enabled clause matches.
type policy struct {
	anyAuthenticated bool
	roles            RoleSet
	owner            bool
	assignedCrew     bool
}

var policies = map[Action]policy{
	BrowseCatalog: {anyAuthenticated: true},
	ManageCatalog: {roles: Admin | Manager},
	UseCart:       {owner: true},
	CreateOrder:   {owner: true},
	ListOrders:    {anyAuthenticated: true}, // scope is narrowed by the visibility filter
	DeleteOrder:   {roles: Admin | Manager},
	AssignOrder:   {roles: Admin | Manager},
	DeliverOrder:  {roles: Admin | Manager, assignedCrew: true},
	ListUsers:     {roles: Admin | Manager},
	PromoteUser:   {roles: Admin | Manager},
}

// Authorize decides allow/deny. Actions missing from the table deny.
func Authorize(set RoleSet, action Action, hint Hint) bool {
	p, ok := policies[action]
	if !ok {
		return false
	}
	if p.anyAuthenticated {
		return true
	}
	if p.roles != 0 && set.Has(p.roles) {
		return true
	}
	if p.owner && hint.IsOwner {
		return true
	}
	if p.assignedCrew && hint.IsAssignedCrew {
		return true
	}
	return false
}
