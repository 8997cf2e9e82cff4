package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/restaurant-table-service/internal/model"
)

// MemoryStore is an in-memory Store used by tests and local
// development.  Reads take a shared lock and writes an exclusive one,
// so concurrent readers never observe a torn write.  WithinTx stages
// all writes on a deep copy of the state and swaps it in only when fn
// succeeds, giving the same all-or-nothing guarantee as the MySQL
// implementation.
type MemoryStore struct {
	mu sync.RWMutex
	st *memState
}

// memState holds the whole document set.  All mutating methods are
// defined on memState so the top-level store and transactional views
// can share them.
type memState struct {
	tables   map[string]*model.Table
	numbers  map[int]string // table number -> table id
	carts    map[string]*model.Cart
	byTable  map[string]string // table id -> cart id
	orders   map[string]*model.Order
	products map[string]*model.Product
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{st: &memState{
		tables:   map[string]*model.Table{},
		numbers:  map[int]string{},
		carts:    map[string]*model.Cart{},
		byTable:  map[string]string{},
		orders:   map[string]*model.Order{},
		products: map[string]*model.Product{},
	}}
}

func (st *memState) clone() *memState {
	cp := &memState{
		tables:   make(map[string]*model.Table, len(st.tables)),
		numbers:  make(map[int]string, len(st.numbers)),
		carts:    make(map[string]*model.Cart, len(st.carts)),
		byTable:  make(map[string]string, len(st.byTable)),
		orders:   make(map[string]*model.Order, len(st.orders)),
		products: make(map[string]*model.Product, len(st.products)),
	}
	for id, t := range st.tables {
		tc := *t
		tc.OrderIDs = append([]string(nil), t.OrderIDs...)
		cp.tables[id] = &tc
	}
	for n, id := range st.numbers {
		cp.numbers[n] = id
	}
	for id, c := range st.carts {
		cc := *c
		cc.Items = append([]model.CartItem(nil), c.Items...)
		cp.carts[id] = &cc
	}
	for tid, cid := range st.byTable {
		cp.byTable[tid] = cid
	}
	for id, o := range st.orders {
		oc := *o
		oc.Items = append([]model.CartItem(nil), o.Items...)
		cp.orders[id] = &oc
	}
	for id, p := range st.products {
		pc := *p
		cp.products[id] = &pc
	}
	return cp
}

// WithinTx runs fn against a staged copy of the state.  The copy
// replaces the live state only when fn returns nil.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := m.st.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	m.st = staged
	return nil
}

// memTx is a transactional view over a staged memState.  It requires
// no locking: the owning MemoryStore holds its write lock for the
// duration of the transaction.
type memTx struct{ st *memState }

func (t *memTx) WithinTx(ctx context.Context, fn func(tx Store) error) error { return fn(t) }

func (t *memTx) CreateTable(ctx context.Context, tb *model.Table) error { return t.st.createTable(tb) }
func (t *memTx) GetTable(ctx context.Context, id string) (*model.Table, error) {
	return t.st.getTable(id)
}
func (t *memTx) ListTables(ctx context.Context, s model.TableStatus) ([]model.Table, error) {
	return t.st.listTables(s)
}
func (t *memTx) UpdateTableStatus(ctx context.Context, id string, s model.TableStatus) error {
	return t.st.updateTableStatus(id, s)
}
func (t *memTx) DeleteTable(ctx context.Context, id string) error { return t.st.deleteTable(id) }
func (t *memTx) GetCartByTable(ctx context.Context, tableID string) (*model.Cart, error) {
	return t.st.getCartByTable(tableID)
}
func (t *memTx) ReplaceCartItems(ctx context.Context, cartID string, items []model.CartItem) error {
	return t.st.replaceCartItems(cartID, items)
}
func (t *memTx) CreateOrder(ctx context.Context, o *model.Order) error { return t.st.createOrder(o) }
func (t *memTx) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return t.st.getOrder(id)
}
func (t *memTx) ListOrders(ctx context.Context) ([]model.Order, error) { return t.st.listOrders("") }
func (t *memTx) ListOrdersByTable(ctx context.Context, tableID string) ([]model.Order, error) {
	return t.st.listOrders(tableID)
}
func (t *memTx) UpdateOrderStatus(ctx context.Context, id string, s model.OrderStatus) error {
	return t.st.updateOrderStatus(id, s)
}
func (t *memTx) UpdateOrderPayment(ctx context.Context, id string, s model.PaymentStatus) error {
	return t.st.updateOrderPayment(id, s)
}
func (t *memTx) DeleteOrder(ctx context.Context, id string) error { return t.st.deleteOrder(id) }
func (t *memTx) CountActiveOrders(ctx context.Context, tableID string) (int, error) {
	return t.st.countActiveOrders(tableID)
}
func (t *memTx) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return t.st.getProduct(id)
}
func (t *memTx) ListProducts(ctx context.Context) ([]model.Product, error) {
	return t.st.listProducts()
}
func (t *memTx) CreateProduct(ctx context.Context, p *model.Product) error {
	return t.st.createProduct(p)
}

// Top-level methods lock around the shared state.

func (m *MemoryStore) CreateTable(ctx context.Context, tb *model.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createTable(tb)
}

func (m *MemoryStore) GetTable(ctx context.Context, id string) (*model.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getTable(id)
}

func (m *MemoryStore) ListTables(ctx context.Context, s model.TableStatus) ([]model.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listTables(s)
}

func (m *MemoryStore) UpdateTableStatus(ctx context.Context, id string, s model.TableStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateTableStatus(id, s)
}

func (m *MemoryStore) DeleteTable(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.deleteTable(id)
}

func (m *MemoryStore) GetCartByTable(ctx context.Context, tableID string) (*model.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getCartByTable(tableID)
}

func (m *MemoryStore) ReplaceCartItems(ctx context.Context, cartID string, items []model.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.replaceCartItems(cartID, items)
}

func (m *MemoryStore) CreateOrder(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createOrder(o)
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getOrder(id)
}

func (m *MemoryStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listOrders("")
}

func (m *MemoryStore) ListOrdersByTable(ctx context.Context, tableID string) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listOrders(tableID)
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, s model.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateOrderStatus(id, s)
}

func (m *MemoryStore) UpdateOrderPayment(ctx context.Context, id string, s model.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateOrderPayment(id, s)
}

func (m *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.deleteOrder(id)
}

func (m *MemoryStore) CountActiveOrders(ctx context.Context, tableID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.countActiveOrders(tableID)
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getProduct(id)
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listProducts()
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createProduct(p)
}

// State-level operations.  Entities are copied on the way in and out
// so callers can never mutate the store through a returned pointer.

func (st *memState) createTable(tb *model.Table) error {
	if _, taken := st.numbers[tb.Number]; taken {
		return fmt.Errorf("%w: table number %d already exists", ErrConflict, tb.Number)
	}
	tc := *tb
	tc.OrderIDs = append([]string(nil), tb.OrderIDs...)
	st.tables[tc.ID] = &tc
	st.numbers[tc.Number] = tc.ID
	st.carts[tc.CartID] = &model.Cart{ID: tc.CartID, TableID: tc.ID, Items: []model.CartItem{}}
	st.byTable[tc.ID] = tc.CartID
	return nil
}

func (st *memState) getTable(id string) (*model.Table, error) {
	t, ok := st.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	tc := *t
	tc.OrderIDs = append([]string(nil), t.OrderIDs...)
	return &tc, nil
}

func (st *memState) listTables(status model.TableStatus) ([]model.Table, error) {
	out := []model.Table{}
	for _, t := range st.tables {
		if status != "" && t.Status != status {
			continue
		}
		tc := *t
		tc.OrderIDs = append([]string(nil), t.OrderIDs...)
		out = append(out, tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (st *memState) updateTableStatus(id string, status model.TableStatus) error {
	t, ok := st.tables[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	return nil
}

func (st *memState) deleteTable(id string) error {
	t, ok := st.tables[id]
	if !ok {
		return ErrNotFound
	}
	delete(st.numbers, t.Number)
	if cid, ok := st.byTable[id]; ok {
		delete(st.carts, cid)
		delete(st.byTable, id)
	}
	delete(st.tables, id)
	return nil
}

func (st *memState) getCartByTable(tableID string) (*model.Cart, error) {
	cid, ok := st.byTable[tableID]
	if !ok {
		return nil, ErrNotFound
	}
	c := st.carts[cid]
	cc := *c
	cc.Items = append([]model.CartItem{}, c.Items...)
	return &cc, nil
}

func (st *memState) replaceCartItems(cartID string, items []model.CartItem) error {
	c, ok := st.carts[cartID]
	if !ok {
		return ErrNotFound
	}
	c.Items = append([]model.CartItem{}, items...)
	return nil
}

func (st *memState) createOrder(o *model.Order) error {
	if _, exists := st.orders[o.ID]; exists {
		return ErrConflict
	}
	oc := *o
	oc.Items = append([]model.CartItem(nil), o.Items...)
	st.orders[oc.ID] = &oc
	if t, ok := st.tables[oc.TableID]; ok {
		t.OrderIDs = append(t.OrderIDs, oc.ID)
	}
	return nil
}

func (st *memState) getOrder(id string) (*model.Order, error) {
	o, ok := st.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	oc := *o
	oc.Items = append([]model.CartItem(nil), o.Items...)
	return &oc, nil
}

func (st *memState) listOrders(tableID string) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range st.orders {
		if tableID != "" && o.TableID != tableID {
			continue
		}
		oc := *o
		oc.Items = append([]model.CartItem(nil), o.Items...)
		out = append(out, oc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *memState) updateOrderStatus(id string, status model.OrderStatus) error {
	o, ok := st.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (st *memState) updateOrderPayment(id string, status model.PaymentStatus) error {
	o, ok := st.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (st *memState) deleteOrder(id string) error {
	o, ok := st.orders[id]
	if !ok {
		return ErrNotFound
	}
	if t, ok := st.tables[o.TableID]; ok {
		kept := t.OrderIDs[:0]
		for _, oid := range t.OrderIDs {
			if oid != id {
				kept = append(kept, oid)
			}
		}
		t.OrderIDs = kept
	}
	delete(st.orders, id)
	return nil
}

func (st *memState) countActiveOrders(tableID string) (int, error) {
	n := 0
	for _, o := range st.orders {
		if o.TableID == tableID && !o.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

func (st *memState) getProduct(id string) (*model.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	pc := *p
	return &pc, nil
}

func (st *memState) listProducts() ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range st.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Caption < out[j].Caption })
	return out, nil
}

func (st *memState) createProduct(p *model.Product) error {
	if _, exists := st.products[p.ID]; exists {
		return ErrConflict
	}
	pc := *p
	st.products[pc.ID] = &pc
	return nil
}
