// Package queue bridges in-process broadcast events onto RabbitMQ so
// kitchen displays and analytics consumers outside this process can
// follow the order stream.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/restaurant-table-service/internal/broadcast"
)

// Forwarder subscribes to the broadcast hub and republishes every
// event to a durable queue.  Delivery is best-effort: a publish error
// is logged and the event is dropped, never retried, so a broker
// outage cannot stall the order flow.
type Forwarder struct {
	URL   string
	Queue string
	Hub   *broadcast.Hub
}

// NewForwarder constructs a Forwarder.
func NewForwarder(url, queue string, hub *broadcast.Hub) *Forwarder {
	if hub == nil {
		panic("nil hub passed to NewForwarder")
	}
	return &Forwarder{URL: url, Queue: queue, Hub: hub}
}

// Run forwards events until ctx is cancelled.  It maintains its own
// reconnect loop with exponential backoff; events published while the
// broker is unreachable are dropped, matching the no-replay contract
// of the hub itself.
func (f *Forwarder) Run(ctx context.Context) error {
	sub := f.Hub.Subscribe()
	defer sub.Close()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(f.URL)
		if err != nil {
			log.Printf("event-forwarder: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = f.forwardLoop(ctx, conn, sub)
		_ = conn.Close()
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("event-forwarder: forward loop ended: %v; reconnecting", err)
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *Forwarder) forwardLoop(ctx context.Context, conn *amqp.Connection, sub *broadcast.Subscriber) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(f.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return errors.New("hub subscription closed")
			}
			body := ev.JSON()
			if body == nil {
				continue
			}
			err := ch.PublishWithContext(ctx, "", f.Queue, false, false, amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    ev.ID,
				Type:         string(ev.Type),
				Timestamp:    ev.EmittedAt,
				Body:         body,
			})
			if err != nil {
				log.Printf("event-forwarder: publish %s failed: %v", ev.Type, err)
				return fmt.Errorf("publish: %w", err)
			}
		case amqpErr := <-closed:
			return fmt.Errorf("connection closed: %v", amqpErr)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
