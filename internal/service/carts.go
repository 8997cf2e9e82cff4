package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/restaurant-table-service/internal/lock"
	"github.com/iliyamo/restaurant-table-service/internal/model"
	"github.com/iliyamo/restaurant-table-service/internal/repository"
)

// CartStore owns the mutable item collection attached to each table.
// Every mutation runs inside the table's exclusive section and inside
// one store transaction, so concurrent mutations of the same cart
// serialize and no update is ever lost.  Reads take no lock and may
// observe a slightly stale but internally consistent snapshot.
type CartStore struct {
	store repository.Store
	locks *lock.Keyed
}

// NewCartStore constructs a CartStore.
func NewCartStore(store repository.Store, locks *lock.Keyed) *CartStore {
	if store == nil || locks == nil {
		panic("nil dependency passed to NewCartStore")
	}
	return &CartStore{store: store, locks: locks}
}

// Get returns the cart attached to the table.
func (s *CartStore) Get(ctx context.Context, tableID string) (*model.Cart, error) {
	return s.store.GetCartByTable(ctx, tableID)
}

// AddItem puts qty units of the product into the table's cart.  An
// existing entry for the same product is merged (quantity += qty), so
// repeated adds are commutative and order-independent.  qty must be
// positive and the product must exist in the catalog.
func (s *CartStore) AddItem(ctx context.Context, tableID, productID string, qty int) (*model.Cart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, qty)
	}
	release := s.locks.Acquire(tableID)
	defer release()

	var out *model.Cart
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		cart, err := tx.GetCartByTable(ctx, tableID)
		if err != nil {
			return err
		}
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		merged := false
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				cart.Items[i].Quantity += qty
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, model.CartItem{ProductID: productID, Quantity: qty})
		}
		if err := tx.ReplaceCartItems(ctx, cart.ID, cart.Items); err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem adjusts the quantity of an existing entry by delta.  The
// entry is removed when the result drops to zero or below; a cart
// never stores a zero quantity.  A product with no entry in the cart
// fails with ErrNotFound.
func (s *CartStore) UpdateItem(ctx context.Context, tableID, productID string, delta int) (*model.Cart, error) {
	release := s.locks.Acquire(tableID)
	defer release()

	var out *model.Cart
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		cart, err := tx.GetCartByTable(ctx, tableID)
		if err != nil {
			return err
		}
		idx := -1
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: product %s not in cart", repository.ErrNotFound, productID)
		}
		cart.Items[idx].Quantity += delta
		if cart.Items[idx].Quantity <= 0 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		}
		if err := tx.ReplaceCartItems(ctx, cart.ID, cart.Items); err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem deletes the entry for the product regardless of its
// quantity.  An absent product fails with ErrNotFound.
func (s *CartStore) RemoveItem(ctx context.Context, tableID, productID string) (*model.Cart, error) {
	release := s.locks.Acquire(tableID)
	defer release()

	var out *model.Cart
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		cart, err := tx.GetCartByTable(ctx, tableID)
		if err != nil {
			return err
		}
		idx := -1
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: product %s not in cart", repository.ErrNotFound, productID)
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		if err := tx.ReplaceCartItems(ctx, cart.ID, cart.Items); err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clear empties the cart and returns the removed items.  The snapshot
// is what the coordinator turns into an order.
func (s *CartStore) Clear(ctx context.Context, tableID string) ([]model.CartItem, error) {
	release := s.locks.Acquire(tableID)
	defer release()

	var snapshot []model.CartItem
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		cart, err := tx.GetCartByTable(ctx, tableID)
		if err != nil {
			return err
		}
		snapshot = cart.Items
		return tx.ReplaceCartItems(ctx, cart.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
