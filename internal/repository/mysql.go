package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/restaurant-table-service/internal/model"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// MySQLStore methods run against it so the same code serves both the
// autocommit path and transactional views handed out by WithinTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MySQLStore implements Store on top of MySQL.  All timestamps are
// stored in UTC (the DSN sets parseTime=true&loc=UTC).
type MySQLStore struct {
	db *sql.DB // nil when this store is a transactional view
	q  querier
}

// NewMySQL returns a MySQLStore bound to the given database handle.
func NewMySQL(db *sql.DB) *MySQLStore { return &MySQLStore{db: db, q: db} }

// WithinTx starts a transaction and runs fn against a view of the
// store backed by it.  fn returning nil commits; any error rolls
// back.  A store that already wraps a transaction joins it instead of
// nesting.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	if err := fn(&MySQLStore{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	return nil
}

// mapErr converts driver-level failures into the package sentinels.
// Duplicate-key violations become ErrConflict, missing rows become
// ErrNotFound, and timeouts / dead connections become ErrTransient so
// the coordinator can retry them.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return fmt.Errorf("%w: %s", ErrConflict, me.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

func (s *MySQLStore) CreateTable(ctx context.Context, t *model.Table) error {
	const q = `INSERT INTO tables (id, number, status, qr_ref, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.q.ExecContext(ctx, q, t.ID, t.Number, string(t.Status), t.QRRef, t.CreatedAt.UTC()); err != nil {
		return mapErr(err)
	}
	// The cart is born with its table.
	const cq = `INSERT INTO carts (id, table_id) VALUES (?, ?)`
	if _, err := s.q.ExecContext(ctx, cq, t.CartID, t.ID); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *MySQLStore) GetTable(ctx context.Context, id string) (*model.Table, error) {
	const q = `SELECT t.id, t.number, t.status, t.qr_ref, t.created_at, c.id
	           FROM tables t JOIN carts c ON c.table_id = t.id
	           WHERE t.id = ?`
	var t model.Table
	var status string
	err := s.q.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Number, &status, &t.QRRef, &t.CreatedAt, &t.CartID)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Status = model.TableStatus(status)
	t.OrderIDs, err = s.orderIDsByTable(ctx, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MySQLStore) orderIDsByTable(ctx context.Context, tableID string) ([]string, error) {
	const q = `SELECT id FROM orders WHERE table_id = ? ORDER BY created_at, id`
	rows, err := s.q.QueryContext(ctx, q, tableID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var oid string
		if err := rows.Scan(&oid); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, oid)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return ids, nil
}

func (s *MySQLStore) ListTables(ctx context.Context, status model.TableStatus) ([]model.Table, error) {
	q := `SELECT t.id, t.number, t.status, t.qr_ref, t.created_at, c.id
	      FROM tables t JOIN carts c ON c.table_id = t.id`
	args := []any{}
	if status != "" {
		q += ` WHERE t.status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY t.number`
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	tables := []model.Table{}
	for rows.Next() {
		var t model.Table
		var st string
		if err := rows.Scan(&t.ID, &t.Number, &st, &t.QRRef, &t.CreatedAt, &t.CartID); err != nil {
			return nil, mapErr(err)
		}
		t.Status = model.TableStatus(st)
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	for i := range tables {
		ids, err := s.orderIDsByTable(ctx, tables[i].ID)
		if err != nil {
			return nil, err
		}
		tables[i].OrderIDs = ids
	}
	return tables, nil
}

func (s *MySQLStore) UpdateTableStatus(ctx context.Context, id string, status model.TableStatus) error {
	const q = `UPDATE tables SET status = ? WHERE id = ?`
	res, err := s.q.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (s *MySQLStore) DeleteTable(ctx context.Context, id string) error {
	// Orders survive table deletion as historical records; only the
	// cart goes with the table.
	const itemsQ = `DELETE ci FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE c.table_id = ?`
	if _, err := s.q.ExecContext(ctx, itemsQ, id); err != nil {
		return mapErr(err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM carts WHERE table_id = ?`, id); err != nil {
		return mapErr(err)
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (s *MySQLStore) GetCartByTable(ctx context.Context, tableID string) (*model.Cart, error) {
	const q = `SELECT id FROM carts WHERE table_id = ?`
	cart := &model.Cart{TableID: tableID, Items: []model.CartItem{}}
	if err := s.q.QueryRowContext(ctx, q, tableID).Scan(&cart.ID); err != nil {
		return nil, mapErr(err)
	}
	const iq = `SELECT product_id, quantity FROM cart_items WHERE cart_id = ? ORDER BY position`
	rows, err := s.q.QueryContext(ctx, iq, cart.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, mapErr(err)
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return cart, nil
}

func (s *MySQLStore) ReplaceCartItems(ctx context.Context, cartID string, items []model.CartItem) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return mapErr(err)
	}
	if len(items) == 0 {
		return nil
	}
	q := `INSERT INTO cart_items (cart_id, product_id, quantity, position) VALUES `
	args := make([]any, 0, len(items)*4)
	for i, it := range items {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?, ?)"
		args = append(args, cartID, it.ProductID, it.Quantity, i)
	}
	_, err := s.q.ExecContext(ctx, q, args...)
	return mapErr(err)
}

func (s *MySQLStore) CreateOrder(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (id, table_id, total_cents, status, payment_status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.q.ExecContext(ctx, q, o.ID, o.TableID, o.TotalCents,
		string(o.Status), string(o.PaymentStatus), o.CreatedAt.UTC()); err != nil {
		return mapErr(err)
	}
	if len(o.Items) == 0 {
		return nil
	}
	iq := `INSERT INTO order_items (order_id, product_id, quantity) VALUES `
	args := make([]any, 0, len(o.Items)*3)
	for i, it := range o.Items {
		if i > 0 {
			iq += ","
		}
		iq += "(?, ?, ?)"
		args = append(args, o.ID, it.ProductID, it.Quantity)
	}
	_, err := s.q.ExecContext(ctx, iq, args...)
	return mapErr(err)
}

func (s *MySQLStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	const q = `SELECT id, table_id, total_cents, status, payment_status, created_at FROM orders WHERE id = ?`
	o, err := s.scanOrder(s.q.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func (s *MySQLStore) scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	var status, pay string
	if err := row.Scan(&o.ID, &o.TableID, &o.TotalCents, &status, &pay, &o.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	o.Status = model.OrderStatus(status)
	o.PaymentStatus = model.PaymentStatus(pay)
	o.Items = []model.CartItem{}
	return &o, nil
}

func (s *MySQLStore) loadOrderItems(ctx context.Context, o *model.Order) error {
	const q = `SELECT product_id, quantity FROM order_items WHERE order_id = ?`
	rows, err := s.q.QueryContext(ctx, q, o.ID)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return mapErr(err)
		}
		o.Items = append(o.Items, it)
	}
	return mapErr(rows.Err())
}

func (s *MySQLStore) listOrders(ctx context.Context, q string, args ...any) ([]model.Order, error) {
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	orders := []model.Order{}
	for rows.Next() {
		o, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	for i := range orders {
		if err := s.loadOrderItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *MySQLStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.listOrders(ctx, `SELECT id, table_id, total_cents, status, payment_status, created_at
	                          FROM orders ORDER BY created_at, id`)
}

func (s *MySQLStore) ListOrdersByTable(ctx context.Context, tableID string) ([]model.Order, error) {
	return s.listOrders(ctx, `SELECT id, table_id, total_cents, status, payment_status, created_at
	                          FROM orders WHERE table_id = ? ORDER BY created_at, id`, tableID)
}

func (s *MySQLStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	res, err := s.q.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (s *MySQLStore) UpdateOrderPayment(ctx context.Context, id string, status model.PaymentStatus) error {
	res, err := s.q.ExecContext(ctx, `UPDATE orders SET payment_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (s *MySQLStore) DeleteOrder(ctx context.Context, id string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return mapErr(err)
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (s *MySQLStore) CountActiveOrders(ctx context.Context, tableID string) (int, error) {
	const q = `SELECT COUNT(*) FROM orders WHERE table_id = ? AND status NOT IN (?, ?)`
	var n int
	err := s.q.QueryRowContext(ctx, q, tableID,
		string(model.OrderDelivered), string(model.OrderCancelled)).Scan(&n)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (s *MySQLStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	const q = `SELECT id, caption, category, type, description, image, special, price_cents, rating
	           FROM products WHERE id = ?`
	var p model.Product
	err := s.q.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Caption, &p.Category, &p.Type,
		&p.Description, &p.Image, &p.Special, &p.PriceCents, &p.Rating)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *MySQLStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	const q = `SELECT id, caption, category, type, description, image, special, price_cents, rating
	           FROM products ORDER BY caption`
	rows, err := s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Caption, &p.Category, &p.Type,
			&p.Description, &p.Image, &p.Special, &p.PriceCents, &p.Rating); err != nil {
			return nil, mapErr(err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return products, nil
}

func (s *MySQLStore) CreateProduct(ctx context.Context, p *model.Product) error {
	const q = `INSERT INTO products (id, caption, category, type, description, image, special, price_cents, rating)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.q.ExecContext(ctx, q, p.ID, p.Caption, p.Category, p.Type,
		p.Description, p.Image, p.Special, p.PriceCents, p.Rating)
	return mapErr(err)
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
