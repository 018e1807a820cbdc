package rbac

import "testing"

func TestParseRoles(t *testing.T) {
	s := ParseRoles([]string{"admin", "Manager", "bogus"})
	if !s.Has(Admin) || !s.Has(Manager) {
		t.Fatalf("parsed set missing tags: %v", s.Tags())
	}
	if s.Has(DeliveryCrew) {
		t.Fatalf("delivery_crew should not be set")
	}
	if got := ParseRoles(nil); got != 0 {
		t.Fatalf("empty tags should parse to customer (0), got %v", got.Tags())
	}
}

func TestTagsRoundTrip(t *testing.T) {
	s := Admin | DeliveryCrew
	if got := ParseRoles(s.Tags()); got != s {
		t.Fatalf("round trip mismatch: %v", got.Tags())
	}
}

func TestAuthorize_PolicyTable(t *testing.T) {
	customer := RoleSet(0)
	cases := []struct {
		name   string
		set    RoleSet
		action Action
		hint   Hint
		want   bool
	}{
		{"anyone browses catalog", customer, BrowseCatalog, Hint{}, true},
		{"customer cannot manage catalog", customer, ManageCatalog, Hint{}, false},
		{"manager manages catalog", Manager, ManageCatalog, Hint{}, true},
		{"admin manages catalog", Admin, ManageCatalog, Hint{}, true},
		{"delivery crew cannot manage catalog", DeliveryCrew, ManageCatalog, Hint{}, false},

		{"owner uses own cart", customer, UseCart, Hint{IsOwner: true}, true},
		{"non-owner denied cart", Admin, UseCart, Hint{}, false},
		{"owner creates order", customer, CreateOrder, Hint{IsOwner: true}, true},
		{"non-owner cannot create order", Manager, CreateOrder, Hint{}, false},

		{"anyone lists orders (filtered later)", customer, ListOrders, Hint{}, true},
		{"customer cannot delete order", customer, DeleteOrder, Hint{IsOwner: true}, false},
		{"manager deletes order", Manager, DeleteOrder, Hint{}, true},
		{"crew cannot assign", DeliveryCrew, AssignOrder, Hint{}, false},
		{"admin assigns", Admin, AssignOrder, Hint{}, true},

		{"bound crew delivers", DeliveryCrew, DeliverOrder, Hint{IsAssignedCrew: true}, true},
		{"unbound crew cannot deliver", DeliveryCrew, DeliverOrder, Hint{}, false},
		{"manager override delivers", Manager, DeliverOrder, Hint{}, true},
		{"owner cannot deliver own order", customer, DeliverOrder, Hint{IsOwner: true}, false},

		{"customer cannot list users", customer, ListUsers, Hint{}, false},
		{"manager lists users", Manager, ListUsers, Hint{}, true},
		{"manager promotes", Manager, PromoteUser, Hint{}, true},
		{"admin promotes", Admin, PromoteUser, Hint{}, true},
		{"crew cannot promote", DeliveryCrew, PromoteUser, Hint{}, false},

		{"multi-role user keeps strongest grant", Admin | DeliveryCrew, DeleteOrder, Hint{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Authorize(tc.set, tc.action, tc.hint); got != tc.want {
				t.Fatalf("Authorize(%v, %s, %+v)=%v, want %v", tc.set.Tags(), tc.action, tc.hint, got, tc.want)
			}
		})
	}
}

func TestAuthorize_UnknownActionDenies(t *testing.T) {
	if Authorize(Admin, Action("order.teleport"), Hint{}) {
		t.Fatal("unknown action must deny, even for admin")
	}
}
