package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-table-service/internal/broadcast"
	"github.com/iliyamo/restaurant-table-service/internal/lock"
	"github.com/iliyamo/restaurant-table-service/internal/model"
	"github.com/iliyamo/restaurant-table-service/internal/repository"
)

// OrderCoordinator orchestrates the atomic cart→order→table
// transition and the order status workflow, publishing an event after
// every committed change.  Each multi-step transition runs inside the
// table's exclusive section and inside one store transaction, so a
// failure partway leaves no partial effect: no order without a
// cleared cart, no table flip without a persisted order.
type OrderCoordinator struct {
	store        repository.Store
	hub          *broadcast.Hub
	locks        *lock.Keyed
	priceTimeout time.Duration
	retryBackoff time.Duration
}

// NewOrderCoordinator constructs an OrderCoordinator.  priceTimeout
// bounds catalog price resolution inside PlaceOrder; retryBackoff is
// the pause before the single internal retry of a transient store
// failure.  Zero values pick sane defaults.
func NewOrderCoordinator(store repository.Store, hub *broadcast.Hub, locks *lock.Keyed,
	priceTimeout, retryBackoff time.Duration) *OrderCoordinator {
	if store == nil || hub == nil || locks == nil {
		panic("nil dependency passed to NewOrderCoordinator")
	}
	if priceTimeout <= 0 {
		priceTimeout = 2 * time.Second
	}
	if retryBackoff <= 0 {
		retryBackoff = 100 * time.Millisecond
	}
	return &OrderCoordinator{
		store:        store,
		hub:          hub,
		locks:        locks,
		priceTimeout: priceTimeout,
		retryBackoff: retryBackoff,
	}
}

// PlaceOrder turns the table's cart into an immutable order snapshot.
// Inside the table's section and one transaction it: loads the cart
// (ErrEmptyCart when empty, table untouched), resolves current
// catalog prices, rejects a table that is not free, creates the order
// (Pending / NotPaid), clears the cart and flips the table to
// occupied.  OrderCreated is published only after the commit.
func (c *OrderCoordinator) PlaceOrder(ctx context.Context, tableID string) (*model.Order, error) {
	release := c.locks.Acquire(tableID)
	defer release()

	var order *model.Order
	var table *model.Table
	err := c.withRetry(ctx, func() error {
		order, table = nil, nil
		return c.store.WithinTx(ctx, func(tx repository.Store) error {
			cart, err := tx.GetCartByTable(ctx, tableID)
			if err != nil {
				return err
			}
			if cart.Empty() {
				return ErrEmptyCart
			}
			total, err := c.priceCart(ctx, tx, cart.Items)
			if err != nil {
				return err
			}
			t, err := tx.GetTable(ctx, tableID)
			if err != nil {
				return err
			}
			if t.Status != model.TableFree {
				return fmt.Errorf("%w: table %d is %s", ErrTableUnavailable, t.Number, t.Status)
			}
			o := &model.Order{
				ID:            uuid.NewString(),
				TableID:       tableID,
				Items:         append([]model.CartItem(nil), cart.Items...),
				TotalCents:    total,
				Status:        model.OrderPending,
				PaymentStatus: model.PaymentNotPaid,
				CreatedAt:     time.Now().UTC(),
			}
			if err := tx.CreateOrder(ctx, o); err != nil {
				return err
			}
			if err := tx.ReplaceCartItems(ctx, cart.ID, nil); err != nil {
				return err
			}
			if err := tx.UpdateTableStatus(ctx, tableID, model.TableOccupied); err != nil {
				return err
			}
			t.Status = model.TableOccupied
			t.OrderIDs = append(t.OrderIDs, o.ID)
			order, table = o, t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	c.hub.Publish(broadcast.NewEvent(broadcast.EventOrderCreated, tableID, order.ID, order))
	c.hub.Publish(broadcast.NewEvent(broadcast.EventTableUpdated, tableID, "", table))
	return order, nil
}

// priceCart resolves the current catalog price of every cart line and
// sums the total.  Prices are fixed at order time, not at cart-add
// time.  The lookup is bounded by the configured timeout; hitting it
// surfaces as a retryable transient error with nothing committed.
func (c *OrderCoordinator) priceCart(ctx context.Context, tx repository.Store, items []model.CartItem) (int64, error) {
	pctx, cancel := context.WithTimeout(ctx, c.priceTimeout)
	defer cancel()
	var total int64
	for _, it := range items {
		p, err := tx.GetProduct(pctx, it.ProductID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return 0, fmt.Errorf("%w: price lookup timed out", repository.ErrTransient)
			}
			return 0, err
		}
		if pctx.Err() != nil {
			return 0, fmt.Errorf("%w: price lookup timed out", repository.ErrTransient)
		}
		total += p.PriceCents * int64(it.Quantity)
	}
	return total, nil
}

// UpdateStatus advances the order along the workflow.  Illegal edges,
// including skipped stages and any move out of a terminal state, fail
// with ErrInvalidTransition.  Entering Delivered or Cancelled
// releases the table when no other active orders remain.
func (c *OrderCoordinator) UpdateStatus(ctx context.Context, orderID string, target model.OrderStatus) (*model.Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, target)
	}
	o, err := c.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	release := c.locks.Acquire(o.TableID)
	defer release()

	var updated *model.Order
	var freed *model.Table
	err = c.withRetry(ctx, func() error {
		updated, freed = nil, nil
		return c.store.WithinTx(ctx, func(tx repository.Store) error {
			cur, err := tx.GetOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if !cur.Status.CanTransition(target) {
				return fmt.Errorf("%w: %s→%s", ErrInvalidTransition, cur.Status, target)
			}
			if err := tx.UpdateOrderStatus(ctx, orderID, target); err != nil {
				return err
			}
			cur.Status = target
			if target.Terminal() {
				freed, err = releaseTable(ctx, tx, cur.TableID)
				if err != nil {
					return err
				}
			}
			updated = cur
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	c.hub.Publish(broadcast.NewEvent(broadcast.EventOrderUpdated, updated.TableID, orderID, updated))
	if freed != nil {
		c.hub.Publish(broadcast.NewEvent(broadcast.EventTableUpdated, freed.ID, "", freed))
	}
	return updated, nil
}

// UpdatePayment sets the order's payment status.  It is the only
// integration point for the external payment gateway and is
// independent of the workflow state machine.
func (c *OrderCoordinator) UpdatePayment(ctx context.Context, orderID string, status model.PaymentStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, status)
	}
	o, err := c.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	release := c.locks.Acquire(o.TableID)
	defer release()

	var updated *model.Order
	err = c.withRetry(ctx, func() error {
		updated = nil
		return c.store.WithinTx(ctx, func(tx repository.Store) error {
			cur, err := tx.GetOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if err := tx.UpdateOrderPayment(ctx, orderID, status); err != nil {
				return err
			}
			cur.PaymentStatus = status
			updated = cur
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	c.hub.Publish(broadcast.NewEvent(broadcast.EventOrderUpdated, updated.TableID, orderID, updated))
	return updated, nil
}

// Delete removes the order, detaches it from its table and releases
// the table when it was the last active order.  Intended for
// administrative cleanup only; the normal path is cancellation.
func (c *OrderCoordinator) Delete(ctx context.Context, orderID string) error {
	o, err := c.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	release := c.locks.Acquire(o.TableID)
	defer release()

	var freed *model.Table
	err = c.withRetry(ctx, func() error {
		freed = nil
		return c.store.WithinTx(ctx, func(tx repository.Store) error {
			cur, err := tx.GetOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if err := tx.DeleteOrder(ctx, orderID); err != nil {
				return err
			}
			freed, err = releaseTable(ctx, tx, cur.TableID)
			return err
		})
	})
	if err != nil {
		return err
	}
	c.hub.Publish(broadcast.NewEvent(broadcast.EventOrderDeleted, o.TableID, orderID, nil))
	if freed != nil {
		c.hub.Publish(broadcast.NewEvent(broadcast.EventTableUpdated, freed.ID, "", freed))
	}
	return nil
}

// Get returns a single order by id.
func (c *OrderCoordinator) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return c.store.GetOrder(ctx, orderID)
}

// ListAll returns every order in the ledger in creation order.
func (c *OrderCoordinator) ListAll(ctx context.Context) ([]model.Order, error) {
	return c.store.ListOrders(ctx)
}

// ListByTable returns the orders placed from one table.
func (c *OrderCoordinator) ListByTable(ctx context.Context, tableID string) ([]model.Order, error) {
	return c.store.ListOrdersByTable(ctx, tableID)
}

// withRetry runs fn and retries it exactly once, after a short
// backoff, when it failed with a transient store error.
func (c *OrderCoordinator) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if !errors.Is(err, repository.ErrTransient) {
		return err
	}
	select {
	case <-time.After(c.retryBackoff):
	case <-ctx.Done():
		return err
	}
	return fn()
}
