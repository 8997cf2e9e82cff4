package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-service/internal/broadcast"
)

// EventsHandler streams broadcast events to staff dashboards over
// Server-Sent Events.  There is no replay: a client that connects
// after an event was published must query current state first and
// then follow the stream.
type EventsHandler struct {
	Hub *broadcast.Hub
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(hub *broadcast.Hub) *EventsHandler {
	if hub == nil {
		panic("nil hub passed to NewEventsHandler")
	}
	return &EventsHandler{Hub: hub}
}

// Stream handles GET /v1/events.  Each event is written as one SSE
// data frame in publish order.  The subscription ends when the client
// disconnects.
func (h *EventsHandler) Stream(c echo.Context) error {
	sub := h.Hub.Subscribe()
	defer sub.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			body := ev.JSON()
			if body == nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, body); err != nil {
				return nil
			}
			w.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}
