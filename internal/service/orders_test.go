package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-service/internal/broadcast"
	"github.com/iliyamo/restaurant-table-service/internal/lock"
	"github.com/iliyamo/restaurant-table-service/internal/model"
	"github.com/iliyamo/restaurant-table-service/internal/repository"
)

func TestPlaceOrderSnapshotsCartAndOccupiesTable(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	f.seedProduct(t, "cola", 300)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, tb.ID, "cola", 1)
	require.NoError(t, err)

	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2700), o.TotalCents)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, model.PaymentNotPaid, o.PaymentStatus)
	assert.Len(t, o.Items, 2)

	cart, err := f.carts.Get(ctx, tb.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	got, err := f.tables.Get(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableOccupied, got.Status)
	assert.Equal(t, []string{o.ID}, got.OrderIDs)
}

func TestPlaceOrderEmptyCartLeavesTableUntouched(t *testing.T) {
	f := newFixture(t)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, tb.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)

	got, err := f.tables.Get(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableFree, got.Status)
	orders, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderRequiresFreeTable(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.tables.SetStatus(ctx, tb.ID, model.TableReserved)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(ctx, tb.ID)
	assert.ErrorIs(t, err, ErrTableUnavailable)

	// The rejected placement must not have cleared the cart.
	cart, err := f.carts.Get(ctx, tb.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestPlaceOrderConcurrentDoubleSubmitOneWins(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.PlaceOrder(ctx, tb.ID)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		lost++
		// The loser sees the cleared cart or the occupied table,
		// depending on where it was queued.
		assert.True(t,
			errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrTableUnavailable),
			"unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	orders, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestOrderSnapshotImmuneToLaterEdits(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 2)
	require.NoError(t, err)
	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	// Later cart activity has no effect on the placed order.
	_, err = f.carts.AddItem(ctx, tb.ID, "pizza", 5)
	require.NoError(t, err)

	kept, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), kept.TotalCents)
	require.Len(t, kept.Items, 1)
	assert.Equal(t, 2, kept.Items[0].Quantity)
}

func TestUpdateStatusWalksWorkflow(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)
	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	for _, next := range []model.OrderStatus{model.OrderStarted, model.OrderReady, model.OrderDelivered} {
		got, err := f.orders.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, got.Status)
	}

	// Delivered was the last active order, so the table is free again.
	table, err := f.tables.Get(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableFree, table.Status)
}

func TestUpdateStatusRejectsIllegalEdges(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)
	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	// Skipping Started is rejected and nothing changes.
	_, err = f.orders.UpdateStatus(ctx, o.ID, model.OrderReady)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	kept, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, kept.Status)

	_, err = f.orders.UpdateStatus(ctx, o.ID, model.OrderStatus("Burnt"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Terminal states admit nothing.
	_, err = f.orders.UpdateStatus(ctx, o.ID, model.OrderCancelled)
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, o.ID, model.OrderPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.orders.UpdateStatus(ctx, "missing", model.OrderStarted)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelReleasesTable(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)
	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, o.ID, model.OrderCancelled)
	require.NoError(t, err)

	table, err := f.tables.Get(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableFree, table.Status)

	// The cancelled order stays in the ledger.
	kept, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, kept.Status)
}

func TestUpdatePaymentIndependentOfWorkflow(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)
	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	got, err := f.orders.UpdatePayment(ctx, o.ID, model.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, model.OrderPending, got.Status)

	_, err = f.orders.UpdatePayment(ctx, o.ID, model.PaymentStatus("Maybe"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteOrderFreesTableAndPublishes(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)
	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	sub := f.hub.Subscribe()
	defer sub.Close()

	require.NoError(t, f.orders.Delete(ctx, o.ID))
	_, err = f.orders.Get(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	table, err := f.tables.Get(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableFree, table.Status)
	assert.Empty(t, table.OrderIDs)

	ev := <-sub.Events()
	assert.Equal(t, broadcast.EventOrderDeleted, ev.Type)
	assert.Equal(t, o.ID, ev.OrderID)
	ev = <-sub.Events()
	assert.Equal(t, broadcast.EventTableUpdated, ev.Type)
}

func TestPlacementPublishesOrderCreatedThenTableUpdated(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)

	sub := f.hub.Subscribe()
	defer sub.Close()

	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	ev := <-sub.Events()
	assert.Equal(t, broadcast.EventOrderCreated, ev.Type)
	assert.Equal(t, o.ID, ev.OrderID)
	ev = <-sub.Events()
	assert.Equal(t, broadcast.EventTableUpdated, ev.Type)
	assert.Equal(t, tb.ID, ev.TableID)
}

func TestLateSubscriberMissesEventButSeesState(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "pizza", 1200)
	tb := f.seedTable(t, 1)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)
	o, err := f.orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)

	// Connecting after the fact yields no replay; the order is only
	// observable through a state query.
	sub := f.hub.Subscribe()
	defer sub.Close()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected replayed event: %s", ev.Type)
	default:
	}

	orders, err := f.orders.ListByTable(ctx, tb.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)
}

// flakyStore fails the first n top-level transactions with a
// transient error, then delegates.
type flakyStore struct {
	repository.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: connection reset", repository.ErrTransient)
	}
	return s.Store.WithinTx(ctx, fn)
}

func TestPlaceOrderRetriesTransientFailureOnce(t *testing.T) {
	mem := repository.NewMemory()
	flaky := &flakyStore{Store: mem, failures: 1}
	hub := broadcast.New(8)
	locks := lock.NewKeyed()
	tables := NewTableRegistry(mem, hub, locks)
	carts := NewCartStore(mem, locks)
	orders := NewOrderCoordinator(flaky, hub, locks, 0, 1)

	ctx := context.Background()
	require.NoError(t, mem.CreateProduct(ctx, &model.Product{ID: "pizza", Caption: "pizza", PriceCents: 1200}))
	tb, err := tables.Create(ctx, 1, "")
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, tb.ID, "pizza", 1)
	require.NoError(t, err)

	o, err := orders.PlaceOrder(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), o.TotalCents)

	// Two consecutive transient failures exhaust the single retry.
	flaky.failures = 2
	_, err = orders.UpdateStatus(ctx, o.ID, model.OrderStarted)
	assert.ErrorIs(t, err, repository.ErrTransient)
}
