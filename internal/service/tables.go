package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-table-service/internal/broadcast"
	"github.com/iliyamo/restaurant-table-service/internal/lock"
	"github.com/iliyamo/restaurant-table-service/internal/model"
	"github.com/iliyamo/restaurant-table-service/internal/repository"
)

// TableRegistry owns table identity and status.  Status edges are
// restricted: clients may request free↔reserved, while the occupied
// edges belong to the order coordinator alone.
type TableRegistry struct {
	store repository.Store
	hub   *broadcast.Hub
	locks *lock.Keyed
}

// NewTableRegistry constructs a TableRegistry.  All dependencies must
// be non-nil.
func NewTableRegistry(store repository.Store, hub *broadcast.Hub, locks *lock.Keyed) *TableRegistry {
	if store == nil || hub == nil || locks == nil {
		panic("nil dependency passed to NewTableRegistry")
	}
	return &TableRegistry{store: store, hub: hub, locks: locks}
}

// Create provisions a new table with the given unique number and an
// opaque QR reference supplied by the provisioning system.  The table
// starts free with a fresh empty cart.  A duplicate number fails with
// ErrConflict.
func (r *TableRegistry) Create(ctx context.Context, number int, qrRef string) (*model.Table, error) {
	if number <= 0 {
		return nil, fmt.Errorf("%w: table number must be positive", ErrInvalidInput)
	}
	t := &model.Table{
		ID:        uuid.NewString(),
		Number:    number,
		Status:    model.TableFree,
		CartID:    uuid.NewString(),
		OrderIDs:  []string{},
		QRRef:     qrRef,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.CreateTable(ctx, t); err != nil {
		return nil, err
	}
	r.hub.Publish(broadcast.NewEvent(broadcast.EventTableUpdated, t.ID, "", t))
	return t, nil
}

// Get returns a single table by id.
func (r *TableRegistry) Get(ctx context.Context, id string) (*model.Table, error) {
	return r.store.GetTable(ctx, id)
}

// List returns all tables, optionally filtered by status.  It takes
// no lock; the result may be slightly stale but never torn.
func (r *TableRegistry) List(ctx context.Context, status model.TableStatus) ([]model.Table, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown table status %q", ErrInvalidInput, status)
	}
	return r.store.ListTables(ctx, status)
}

// SetStatus applies a client-requested status change.  Only the
// free↔reserved edges are accepted here; anything touching occupied
// fails with ErrInvalidTransition because those edges are driven by
// order placement and release.
func (r *TableRegistry) SetStatus(ctx context.Context, id string, target model.TableStatus) (*model.Table, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown table status %q", ErrInvalidInput, target)
	}
	release := r.locks.Acquire(id)
	defer release()

	var updated *model.Table
	err := r.store.WithinTx(ctx, func(tx repository.Store) error {
		t, err := tx.GetTable(ctx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanRequest(target) {
			return fmt.Errorf("%w: %s→%s", ErrInvalidTransition, t.Status, target)
		}
		if err := tx.UpdateTableStatus(ctx, id, target); err != nil {
			return err
		}
		t.Status = target
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.hub.Publish(broadcast.NewEvent(broadcast.EventTableUpdated, id, "", updated))
	return updated, nil
}

// Release moves the table back to free if no active orders remain.
// It is idempotent: releasing a free or reserved table, or a table
// that still has active orders, is a no-op.
func (r *TableRegistry) Release(ctx context.Context, id string) error {
	release := r.locks.Acquire(id)
	defer release()

	var freed *model.Table
	err := r.store.WithinTx(ctx, func(tx repository.Store) error {
		t, err := releaseTable(ctx, tx, id)
		freed = t
		return err
	})
	if err != nil {
		return err
	}
	if freed != nil {
		r.hub.Publish(broadcast.NewEvent(broadcast.EventTableUpdated, id, "", freed))
	}
	return nil
}

// Delete removes the table and its cart.  Orders placed from the
// table survive as historical records.  The opaque QR reference is
// handed back to provisioning, which here amounts to logging it.
func (r *TableRegistry) Delete(ctx context.Context, id string) error {
	release := r.locks.Acquire(id)
	defer release()

	var removed *model.Table
	err := r.store.WithinTx(ctx, func(tx repository.Store) error {
		t, err := tx.GetTable(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTable(ctx, id); err != nil {
			return err
		}
		removed = t
		return nil
	})
	if err != nil {
		return err
	}
	if removed.QRRef != "" {
		log.Printf("qr provisioning: released ref %s for table %d", removed.QRRef, removed.Number)
	}
	r.hub.Publish(broadcast.NewEvent(broadcast.EventTableUpdated, id, "", removed))
	return nil
}

// releaseTable frees the table when it is occupied and no active
// orders remain.  It returns the updated table snapshot when the
// status changed and nil otherwise.  A missing table is treated as
// already released.
func releaseTable(ctx context.Context, tx repository.Store, tableID string) (*model.Table, error) {
	t, err := tx.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if t.Status != model.TableOccupied {
		return nil, nil
	}
	n, err := tx.CountActiveOrders(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}
	if err := tx.UpdateTableStatus(ctx, tableID, model.TableFree); err != nil {
		return nil, err
	}
	t.Status = model.TableFree
	return t, nil
}
