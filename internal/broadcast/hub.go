// Package broadcast fans state-change events out to connected
// subscribers.  Delivery is best-effort and strictly ordered per
// process: Publish never blocks, never retries and never fails the
// mutating call that triggered it, and there is no replay — a
// subscriber that connects after an event was published will not
// receive it and must query current state instead.
package broadcast

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names follow the socket events emitted by earlier
// versions of the staff dashboard.
type EventType string

const (
	EventOrderCreated EventType = "order_created"
	EventOrderUpdated EventType = "order_updated"
	EventOrderDeleted EventType = "order_deleted"
	EventTableUpdated EventType = "table_updated"
)

// Event is a single state-change notification.  Payload carries the
// entity snapshot taken at commit time (an order or a table).
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TableID   string    `json:"table_id,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current UTC time.
func NewEvent(t EventType, tableID, orderID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		TableID:   tableID,
		OrderID:   orderID,
		EmittedAt: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the event; the error path only triggers for
// non-marshalable payloads, which the coordinator never produces.
func (e Event) JSON() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		log.Printf("broadcast: marshal event %s failed: %v", e.ID, err)
		return nil
	}
	return b
}

// Hub is the in-process publish/subscribe core.  Each subscriber owns
// a buffered channel; publishing under the hub mutex gives every
// subscriber the same total event order.  A subscriber that cannot
// keep up loses events rather than slowing publishers down.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	buffer int
}

// Subscriber is one connected consumer of the event stream.
type Subscriber struct {
	hub    *Hub
	ch     chan Event
	closed bool
}

// New creates a Hub whose subscribers buffer up to buffer events.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: map[*Subscriber]struct{}{}, buffer: buffer}
}

// Subscribe registers a new subscriber.  The caller must Close it
// when done or the hub will keep delivering into its buffer.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{hub: h, ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish delivers ev to every currently connected subscriber.  The
// send is non-blocking: a full subscriber buffer drops the event for
// that subscriber only, which is logged and otherwise ignored.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			log.Printf("broadcast: dropping event %s (%s) for slow subscriber", ev.ID, ev.Type)
		}
	}
}

// Subscribers reports the number of currently connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Events returns the subscriber's receive channel.  It is closed by
// Close.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Close detaches the subscriber from the hub and closes its channel.
// Close is idempotent.
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.hub.subs, s)
	close(s.ch)
}
