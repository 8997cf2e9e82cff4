package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-service/internal/broadcast"
	"github.com/iliyamo/restaurant-table-service/internal/lock"
	"github.com/iliyamo/restaurant-table-service/internal/model"
	"github.com/iliyamo/restaurant-table-service/internal/repository"
)

// fixture wires the services against the in-memory store the way main
// wires them against MySQL.
type fixture struct {
	store  *repository.MemoryStore
	hub    *broadcast.Hub
	tables *TableRegistry
	carts  *CartStore
	orders *OrderCoordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemory()
	hub := broadcast.New(64)
	locks := lock.NewKeyed()
	return &fixture{
		store:  store,
		hub:    hub,
		tables: NewTableRegistry(store, hub, locks),
		carts:  NewCartStore(store, locks),
		orders: NewOrderCoordinator(store, hub, locks, 0, 0),
	}
}

func (f *fixture) seedProduct(t *testing.T, id string, priceCents int64) {
	t.Helper()
	require.NoError(t, f.store.CreateProduct(context.Background(), &model.Product{
		ID:         id,
		Caption:    "product " + id,
		Category:   "mains",
		PriceCents: priceCents,
	}))
}

func (f *fixture) seedTable(t *testing.T, number int) *model.Table {
	t.Helper()
	tb, err := f.tables.Create(context.Background(), number, "")
	require.NoError(t, err)
	return tb
}
