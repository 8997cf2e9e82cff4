package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-service/internal/model"
	"github.com/iliyamo/restaurant-table-service/internal/service"
)

// OrderHandler serves order placement, listing and workflow
// transitions.
type OrderHandler struct {
	Coordinator *service.OrderCoordinator
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(coordinator *service.OrderCoordinator) *OrderHandler {
	if coordinator == nil {
		panic("nil coordinator passed to NewOrderHandler")
	}
	return &OrderHandler{Coordinator: coordinator}
}

// Place handles POST /v1/tables/:id/orders.  It snapshots the
// table's cart into a new Pending order, clears the cart and flips
// the table to occupied, all atomically.
func (h *OrderHandler) Place(c echo.Context) error {
	tableID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	order, err := h.Coordinator.PlaceOrder(c.Request().Context(), tableID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": order})
}

// ListAll handles GET /v1/orders.
func (h *OrderHandler) ListAll(c echo.Context) error {
	orders, err := h.Coordinator.ListAll(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(orders), "items": orders})
}

// ListByTable handles GET /v1/tables/:id/orders.
func (h *OrderHandler) ListByTable(c echo.Context) error {
	tableID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	orders, err := h.Coordinator.ListByTable(c.Request().Context(), tableID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(orders), "items": orders})
}

// Get handles GET /v1/orders/:id.
func (h *OrderHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "order")
	}
	order, err := h.Coordinator.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": order})
}

// UpdateStatus handles PATCH /v1/orders/:id/status.  Only workflow
// edges are accepted; entering a terminal state releases the table if
// it was the last active order.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "order")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": "invalid request body"})
	}
	order, err := h.Coordinator.UpdateStatus(c.Request().Context(), id, model.OrderStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": order})
}

// UpdatePayment handles PATCH /v1/orders/:id/payment.  The payment
// gateway calls this after verifying a payment out of band.
func (h *OrderHandler) UpdatePayment(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "order")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": "invalid request body"})
	}
	order, err := h.Coordinator.UpdatePayment(c.Request().Context(), id, model.PaymentStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": order})
}

// Delete handles DELETE /v1/orders/:id (administrative).
func (h *OrderHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "order")
	}
	if err := h.Coordinator.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
