package repository

import (
	"context"

	"github.com/iliyamo/restaurant-table-service/internal/model"
)

// Store is the persistence contract for the table/cart/order
// lifecycle.  It is deliberately document-shaped: every method reads
// or writes whole entities, and multi-step transitions are grouped
// with WithinTx so that a failure partway leaves the store exactly as
// it was before the operation began.
//
// Cross-references between entities are id-based: a table's OrderIDs
// and a cart's TableID are resolved through the store, never held as
// owning pointers, so deleting one entity cannot dangle another.
type Store interface {
	// WithinTx runs fn against a transactional view of the store.
	// When fn returns nil the staged writes are committed atomically;
	// any error discards them.  Calling WithinTx on a transactional
	// view joins the enclosing transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Tables.  CreateTable persists the table together with its fresh
	// cart and fails with ErrConflict when the number is taken.
	// GetTable populates OrderIDs from the order ledger.
	CreateTable(ctx context.Context, t *model.Table) error
	GetTable(ctx context.Context, id string) (*model.Table, error)
	ListTables(ctx context.Context, status model.TableStatus) ([]model.Table, error)
	UpdateTableStatus(ctx context.Context, id string, status model.TableStatus) error
	DeleteTable(ctx context.Context, id string) error

	// Carts.  ReplaceCartItems swaps the full item set in one write;
	// passing an empty slice clears the cart.
	GetCartByTable(ctx context.Context, tableID string) (*model.Cart, error)
	ReplaceCartItems(ctx context.Context, cartID string, items []model.CartItem) error

	// Orders.
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListOrdersByTable(ctx context.Context, tableID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	UpdateOrderPayment(ctx context.Context, id string, status model.PaymentStatus) error
	DeleteOrder(ctx context.Context, id string) error
	CountActiveOrders(ctx context.Context, tableID string) (int, error)

	// Products.  The catalog is read-mostly; CreateProduct exists for
	// seeding and tests, catalog CRUD proper lives elsewhere.
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
}
