package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-service/internal/model"
	"github.com/iliyamo/restaurant-table-service/internal/service"
)

// TableHandler serves table provisioning and status endpoints.
type TableHandler struct {
	Registry *service.TableRegistry
}

// NewTableHandler constructs a TableHandler.
func NewTableHandler(registry *service.TableRegistry) *TableHandler {
	if registry == nil {
		panic("nil registry passed to NewTableHandler")
	}
	return &TableHandler{Registry: registry}
}

// List handles GET /v1/tables.  The optional ?status= query filters
// by table status.
func (h *TableHandler) List(c echo.Context) error {
	status := model.TableStatus(c.QueryParam("status"))
	tables, err := h.Registry.List(c.Request().Context(), status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(tables), "items": tables})
}

// Get handles GET /v1/tables/:id.
func (h *TableHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	t, err := h.Registry.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": t})
}

// Create handles POST /v1/tables.  The QR reference comes from the
// provisioning system and is stored opaquely.
func (h *TableHandler) Create(c echo.Context) error {
	var body struct {
		Number int    `json:"number"`
		QRRef  string `json:"qr_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": "invalid request body"})
	}
	t, err := h.Registry.Create(c.Request().Context(), body.Number, body.QRRef)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": t})
}

// SetStatus handles PATCH /v1/tables/:id/status.  Only the
// free↔reserved edges may be requested; the occupied edges are driven
// by order placement and release.
func (h *TableHandler) SetStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": "invalid request body"})
	}
	t, err := h.Registry.SetStatus(c.Request().Context(), id, model.TableStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": t})
}

// Delete handles DELETE /v1/tables/:id.  Deletion cascades the cart
// and hands the QR reference back to provisioning; orders survive as
// history.
func (h *TableHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	if err := h.Registry.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
