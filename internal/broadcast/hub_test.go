package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	h := New(8)
	sub := h.Subscribe()
	defer sub.Close()

	h.Publish(NewEvent(EventOrderCreated, "t1", "o1", nil))
	h.Publish(NewEvent(EventOrderUpdated, "t1", "o1", nil))
	h.Publish(NewEvent(EventTableUpdated, "t1", "", nil))

	assert.Equal(t, EventOrderCreated, (<-sub.Events()).Type)
	assert.Equal(t, EventOrderUpdated, (<-sub.Events()).Type)
	assert.Equal(t, EventTableUpdated, (<-sub.Events()).Type)
}

func TestLateSubscriberGetsNoReplay(t *testing.T) {
	h := New(8)
	h.Publish(NewEvent(EventOrderCreated, "t1", "o1", nil))

	sub := h.Subscribe()
	defer sub.Close()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected replayed event: %s", ev.Type)
	default:
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := New(1)
	slow := h.Subscribe()
	defer slow.Close()
	fast := h.Subscribe()
	defer fast.Close()

	// The second publish overflows slow's buffer of one; it must not
	// block and fast must still receive both.
	h.Publish(NewEvent(EventOrderCreated, "t1", "o1", nil))
	h.Publish(NewEvent(EventOrderUpdated, "t1", "o1", nil))

	assert.Equal(t, EventOrderCreated, (<-fast.Events()).Type)
	assert.Equal(t, EventOrderUpdated, (<-fast.Events()).Type)
	assert.Equal(t, EventOrderCreated, (<-slow.Events()).Type)
	select {
	case ev := <-slow.Events():
		t.Fatalf("dropped event was delivered: %s", ev.Type)
	default:
	}
}

func TestCloseDetachesAndIsIdempotent(t *testing.T) {
	h := New(4)
	sub := h.Subscribe()
	require.Equal(t, 1, h.Subscribers())

	sub.Close()
	sub.Close() // second close must not panic
	assert.Equal(t, 0, h.Subscribers())

	_, open := <-sub.Events()
	assert.False(t, open)

	// Publishing with no subscribers is a no-op.
	h.Publish(NewEvent(EventTableUpdated, "t1", "", nil))
}

func TestEventJSONRoundsThroughPayload(t *testing.T) {
	ev := NewEvent(EventOrderCreated, "t1", "o1", map[string]int{"total_cents": 2500})
	body := ev.JSON()
	require.NotNil(t, body)
	assert.Contains(t, string(body), `"type":"order_created"`)
	assert.Contains(t, string(body), `"total_cents":2500`)
}
