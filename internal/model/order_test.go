package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderStarted, true},
		{OrderStarted, OrderReady, true},
		{OrderReady, OrderDelivered, true},
		{OrderPending, OrderCancelled, true},
		{OrderStarted, OrderCancelled, true},
		{OrderReady, OrderCancelled, true},

		// Skipping a stage is not allowed.
		{OrderPending, OrderReady, false},
		{OrderPending, OrderDelivered, false},
		{OrderStarted, OrderDelivered, false},

		// No moving backwards.
		{OrderStarted, OrderPending, false},
		{OrderReady, OrderStarted, false},

		// Terminal states admit nothing, including revival.
		{OrderDelivered, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderDelivered, false},

		// Self-transitions are not edges.
		{OrderPending, OrderPending, false},
		{OrderDelivered, OrderDelivered, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.from.CanTransition(c.to), "%s→%s", c.from, c.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderDelivered.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.False(t, OrderPending.Terminal())
	assert.False(t, OrderStarted.Terminal())
	assert.False(t, OrderReady.Terminal())
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderPending.Valid())
	assert.False(t, OrderStatus("Preparing").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestTableStatusCanRequest(t *testing.T) {
	// Clients may only move between free and reserved; the occupied
	// edges belong to order placement and release.
	assert.True(t, TableFree.CanRequest(TableReserved))
	assert.True(t, TableReserved.CanRequest(TableFree))

	assert.False(t, TableFree.CanRequest(TableOccupied))
	assert.False(t, TableOccupied.CanRequest(TableFree))
	assert.False(t, TableOccupied.CanRequest(TableReserved))
	assert.False(t, TableReserved.CanRequest(TableOccupied))
	assert.False(t, TableFree.CanRequest(TableFree))
}

func TestPaymentStatusValid(t *testing.T) {
	assert.True(t, PaymentPaid.Valid())
	assert.True(t, PaymentNotPaid.Valid())
	assert.False(t, PaymentStatus("Pending").Valid())
}
