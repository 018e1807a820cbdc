package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
	"github.com/mintzusung/restaurant-orders/internal/rbac"
)

//
// ===== in-memory Repository with the same atomicity guarantees as PGRepo =====
//

type cartEntry struct {
	menuItemID string
	quantity   int
}

type memRepo struct {
	mu     sync.Mutex
	carts  map[string][]cartEntry
	prices map[string]decimal.Decimal
	orders map[string]*Order
	lines  map[string][]Line

	// duringConvert, when set, runs after the cart snapshot is taken and
	// before the snapshotted entries are removed
	duringConvert func(*memRepo)
}

func newMemRepo() *memRepo {
	return &memRepo{
		carts:  map[string][]cartEntry{},
		prices: map[string]decimal.Decimal{},
		orders: map[string]*Order{},
		lines:  map[string][]Line{},
	}
}

func (m *memRepo) setPrice(itemID, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[itemID] = decimal.RequireFromString(price)
}

func (m *memRepo) addToCart(userID, itemID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = append(m.carts[userID], cartEntry{menuItemID: itemID, quantity: qty})
}

func (m *memRepo) CreateFromCart(ctx context.Context, userID string) (*Order, []Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.carts[userID]
	if len(entries) == 0 {
		return nil, nil, apperr.New(apperr.EmptyCart, "cart is empty")
	}
	now := time.Now().UTC()
	o := &Order{ID: uuid.NewString(), UserID: userID, Status: StatusCreated, CreatedAt: now, UpdatedAt: now}
	total := decimal.Zero
	var lines []Line
	for _, e := range entries {
		price := m.prices[e.menuItemID]
		l := Line{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			MenuItemID: e.menuItemID,
			Quantity:   e.quantity,
			UnitPrice:  price,
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(e.quantity))))
		lines = append(lines, l)
	}
	o.Total = total
	m.orders[o.ID] = o
	m.lines[o.ID] = lines
	if m.duringConvert != nil {
		m.duringConvert(m)
	}
	// remove only the snapshotted entries, like the targeted DELETE
	rest := append([]cartEntry(nil), m.carts[userID][len(entries):]...)
	if len(rest) == 0 {
		delete(m.carts, userID)
	} else {
		m.carts[userID] = rest
	}

	cp := *o
	return &cp, append([]Line(nil), lines...), nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*Order, []Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil, apperr.New(apperr.NotFound, "order not found")
	}
	cp := *o
	return &cp, append([]Line(nil), m.lines[id]...), nil
}

func (m *memRepo) ListAll(ctx context.Context) ([]Order, error) {
	return m.listWhere(func(*Order) bool { return true })
}

func (m *memRepo) ListByOwner(ctx context.Context, userID string) ([]Order, error) {
	return m.listWhere(func(o *Order) bool { return o.UserID == userID })
}

func (m *memRepo) ListByCrew(ctx context.Context, crewID string) ([]Order, error) {
	return m.listWhere(func(o *Order) bool {
		return o.DeliveryCrewID != nil && *o.DeliveryCrewID == crewID
	})
}

func (m *memRepo) listWhere(pred func(*Order) bool) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if pred(o) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memRepo) transition(id string, fn func(*Order) error) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

func (m *memRepo) Assign(ctx context.Context, orderID, crewID string) (*Order, error) {
	return m.transition(orderID, func(o *Order) error { return o.Assign(crewID) })
}

func (m *memRepo) MarkDelivered(ctx context.Context, orderID string) (*Order, error) {
	return m.transition(orderID, func(o *Order) error { return o.Deliver() })
}

func (m *memRepo) Delete(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderID]; !ok {
		return false, nil
	}
	delete(m.orders, orderID)
	delete(m.lines, orderID)
	return true, nil
}

type stubDirectory struct{ roles map[string]rbac.RoleSet }

func (d *stubDirectory) Roles(ctx context.Context, userID string) (rbac.RoleSet, error) {
	r, ok := d.roles[userID]
	if !ok {
		return 0, apperr.New(apperr.NotFound, "user not found")
	}
	return r, nil
}

//
// ===== fixtures =====
//

var (
	customer = rbac.Identity{UserID: "cust-1"}
	other    = rbac.Identity{UserID: "cust-2"}
	crew     = rbac.Identity{UserID: "crew-1", Roles: rbac.DeliveryCrew}
	crewTwo  = rbac.Identity{UserID: "crew-2", Roles: rbac.DeliveryCrew}
	manager  = rbac.Identity{UserID: "mgr-1", Roles: rbac.Manager}
	admin    = rbac.Identity{UserID: "adm-1", Roles: rbac.Admin}
)

func newEngine() (*Engine, *memRepo) {
	repo := newMemRepo()
	dir := &stubDirectory{roles: map[string]rbac.RoleSet{
		customer.UserID: 0,
		other.UserID:    0,
		crew.UserID:     rbac.DeliveryCrew,
		crewTwo.UserID:  rbac.DeliveryCrew,
		manager.UserID:  rbac.Manager,
		admin.UserID:    rbac.Admin,
	}}
	return NewEngine(repo, dir), repo
}

func mustCreate(t *testing.T, e *Engine, repo *memRepo, who rbac.Identity) *Order {
	t.Helper()
	repo.setPrice("item-a", "5.00")
	repo.addToCart(who.UserID, "item-a", 1)
	o, _, err := e.CreateFromCart(context.Background(), who)
	if err != nil {
		t.Fatalf("createFromCart: %v", err)
	}
	return o
}

//
// ===== conversion =====
//

func TestCreateFromCart_SnapshotsPricesAndClearsCart(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	repo.setPrice("item-a", "5.00")
	repo.setPrice("item-b", "3.00")
	repo.addToCart(customer.UserID, "item-a", 2)
	repo.addToCart(customer.UserID, "item-b", 1)

	o, lines, err := e.CreateFromCart(ctx, customer)
	if err != nil {
		t.Fatalf("createFromCart: %v", err)
	}
	if o.Status != StatusCreated {
		t.Fatalf("status=%s, want created", o.Status)
	}
	if !o.Total.Equal(decimal.RequireFromString("13.00")) {
		t.Fatalf("total=%s, want 13.00", o.Total)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !lines[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) || lines[0].Quantity != 2 {
		t.Fatalf("line 0 not frozen correctly: %+v", lines[0])
	}

	// cart must be gone: a second conversion sees it empty
	_, _, err = e.CreateFromCart(ctx, customer)
	if !apperr.Is(err, apperr.EmptyCart) {
		t.Fatalf("second conversion err=%v, want empty_cart", err)
	}
}

func TestCreateFromCart_EmptyCart(t *testing.T) {
	e, repo := newEngine()
	_, _, err := e.CreateFromCart(context.Background(), customer)
	if !apperr.Is(err, apperr.EmptyCart) {
		t.Fatalf("err=%v, want empty_cart", err)
	}
	if len(repo.orders) != 0 {
		t.Fatal("no order may exist after a failed conversion")
	}
}

func TestPriceChangeDoesNotAffectExistingOrder(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	repo.setPrice("item-a", "5.00")
	repo.addToCart(customer.UserID, "item-a", 2)

	o, _, err := e.CreateFromCart(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}

	repo.setPrice("item-a", "9.99")

	got, lines, err := e.Get(ctx, customer, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Total.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("total drifted after price change: %s", got.Total)
	}
	if !lines[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("unit price drifted: %s", lines[0].UnitPrice)
	}
}

func TestConcurrentConversion_OneWinner(t *testing.T) {
	e, repo := newEngine()
	repo.setPrice("item-a", "5.00")
	repo.addToCart(customer.UserID, "item-a", 1)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.CreateFromCart(context.Background(), customer)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var okCount, emptyCount int
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		case apperr.Is(err, apperr.EmptyCart):
			emptyCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || emptyCount != 1 {
		t.Fatalf("ok=%d empty=%d, want exactly one winner", okCount, emptyCount)
	}
	if len(repo.orders) != 1 {
		t.Fatalf("orders created=%d, want 1", len(repo.orders))
	}
}

func TestCreateFromCart_AddDuringConversionStaysInCart(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	repo.setPrice("item-a", "5.00")
	repo.setPrice("item-b", "3.00")
	repo.addToCart(customer.UserID, "item-a", 1)

	// a line committed after the conversion snapshot must end up either in
	// the order or still in the cart, never nowhere
	repo.duringConvert = func(m *memRepo) {
		m.carts[customer.UserID] = append(m.carts[customer.UserID], cartEntry{menuItemID: "item-b", quantity: 2})
	}

	o, lines, err := e.CreateFromCart(ctx, customer)
	if err != nil {
		t.Fatalf("createFromCart: %v", err)
	}
	if len(lines) != 1 || lines[0].MenuItemID != "item-a" {
		t.Fatalf("order lines=%+v, want only item-a", lines)
	}
	if !o.Total.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("total=%s, want 5.00", o.Total)
	}

	repo.duringConvert = nil
	second, secondLines, err := e.CreateFromCart(ctx, customer)
	if err != nil {
		t.Fatalf("second conversion: %v", err)
	}
	if len(secondLines) != 1 || secondLines[0].MenuItemID != "item-b" || secondLines[0].Quantity != 2 {
		t.Fatalf("second order lines=%+v, want item-b x2", secondLines)
	}
	if !second.Total.Equal(decimal.RequireFromString("6.00")) {
		t.Fatalf("second total=%s, want 6.00", second.Total)
	}
}

//
// ===== assignment =====
//

func TestAssign_HappyPathThenConflict(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)

	got, err := e.Assign(ctx, manager, o.ID, crew.UserID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Status != StatusAssigned || got.DeliveryCrewID == nil || *got.DeliveryCrewID != crew.UserID {
		t.Fatalf("bad order after assign: %+v", got)
	}

	_, err = e.Assign(ctx, manager, o.ID, crewTwo.UserID)
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("re-assign err=%v, want conflict", err)
	}
}

func TestAssign_RequiresAdminOrManager(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)

	for _, actor := range []rbac.Identity{customer, crew} {
		_, err := e.Assign(ctx, actor, o.ID, crew.UserID)
		if !apperr.Is(err, apperr.Permission) {
			t.Fatalf("actor %s: err=%v, want permission", actor.UserID, err)
		}
	}
}

func TestAssign_TargetMustHoldDeliveryCrewRole(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)

	// plain customer as target
	_, err := e.Assign(ctx, admin, o.ID, other.UserID)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("non-crew target err=%v, want validation", err)
	}
	// unknown user as target
	_, err = e.Assign(ctx, admin, o.ID, "ghost")
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("unknown target err=%v, want validation", err)
	}
	// empty id
	_, err = e.Assign(ctx, admin, o.ID, "")
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("empty target err=%v, want validation", err)
	}
}

//
// ===== delivery =====
//

func TestMarkDelivered_OnUnassignedOrderConflicts(t *testing.T) {
	e, repo := newEngine()
	o := mustCreate(t, e, repo, customer)

	_, err := e.MarkDelivered(context.Background(), admin, o.ID)
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("err=%v, want conflict on created order", err)
	}
}

func TestMarkDelivered_WrongActorDeniedEvenWhenAssigned(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)
	if _, err := e.Assign(ctx, manager, o.ID, crew.UserID); err != nil {
		t.Fatal(err)
	}

	// the owner and an unrelated crew member both lack authority
	for _, actor := range []rbac.Identity{customer, crewTwo} {
		_, err := e.MarkDelivered(ctx, actor, o.ID)
		if !apperr.Is(err, apperr.Permission) {
			t.Fatalf("actor %s: err=%v, want permission", actor.UserID, err)
		}
	}
}

func TestMarkDelivered_BoundCrewSucceedsTerminal(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)
	if _, err := e.Assign(ctx, manager, o.ID, crew.UserID); err != nil {
		t.Fatal(err)
	}

	got, err := e.MarkDelivered(ctx, crew, o.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.Status != StatusDelivered {
		t.Fatalf("status=%s, want delivered", got.Status)
	}

	// terminal: even an admin cannot move it again
	_, err = e.MarkDelivered(ctx, admin, o.ID)
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("second deliver err=%v, want conflict", err)
	}
}

func TestMarkDelivered_ManagerOverride(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)
	if _, err := e.Assign(ctx, manager, o.ID, crew.UserID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.MarkDelivered(ctx, manager, o.ID); err != nil {
		t.Fatalf("manager override: %v", err)
	}
}

//
// ===== visibility =====
//

func TestList_Visibility(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()

	repo.setPrice("item-a", "5.00")
	repo.addToCart(customer.UserID, "item-a", 1)
	mine, _, err := e.CreateFromCart(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	repo.addToCart(other.UserID, "item-a", 1)
	theirs, _, err := e.CreateFromCart(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Assign(ctx, manager, theirs.ID, crew.UserID); err != nil {
		t.Fatal(err)
	}

	// customer: own orders only
	got, err := e.List(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("customer sees %+v, want only own order", got)
	}

	// delivery crew: assigned orders only
	got, err = e.List(ctx, crew)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != theirs.ID {
		t.Fatalf("crew sees %+v, want only assigned order", got)
	}
	got, err = e.List(ctx, crewTwo)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("unassigned crew sees %+v, want none", got)
	}

	// manager and admin: everything
	for _, actor := range []rbac.Identity{manager, admin} {
		got, err = e.List(ctx, actor)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("%s sees %d orders, want 2", actor.UserID, len(got))
		}
	}
}

func TestGet_ForeignOrderReadsAsNotFound(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)

	_, _, err := e.Get(ctx, other, o.ID)
	if !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("err=%v, want not_found for foreign order", err)
	}
	if _, _, err := e.Get(ctx, customer, o.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
}

//
// ===== deletion =====
//

func TestDelete(t *testing.T) {
	e, repo := newEngine()
	ctx := context.Background()
	o := mustCreate(t, e, repo, customer)

	if err := e.Delete(ctx, customer, o.ID); !apperr.Is(err, apperr.Permission) {
		t.Fatalf("customer delete err=%v, want permission", err)
	}
	if err := e.Delete(ctx, manager, "missing"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("missing order err=%v, want not_found", err)
	}
	if err := e.Delete(ctx, manager, o.ID); err != nil {
		t.Fatalf("manager delete: %v", err)
	}
	if _, ok := repo.lines[o.ID]; ok {
		t.Fatal("order lines must die with the order")
	}
}
