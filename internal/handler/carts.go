package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-service/internal/service"
)

// CartHandler serves the per-table cart endpoints.
type CartHandler struct {
	Carts *service.CartStore
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(carts *service.CartStore) *CartHandler {
	if carts == nil {
		panic("nil cart store passed to NewCartHandler")
	}
	return &CartHandler{Carts: carts}
}

// Get handles GET /v1/tables/:id/cart.
func (h *CartHandler) Get(c echo.Context) error {
	tableID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	cart, err := h.Carts.Get(c.Request().Context(), tableID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": cart})
}

// AddItem handles POST /v1/tables/:id/cart/items.  Adding a product
// already in the cart merges quantities.
func (h *CartHandler) AddItem(c echo.Context) error {
	tableID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	var body struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": "invalid request body"})
	}
	cart, err := h.Carts.AddItem(c.Request().Context(), tableID, body.ProductID, body.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": cart})
}

// UpdateItem handles PATCH /v1/tables/:id/cart/items/:productID.  The
// body carries a signed delta; a quantity reaching zero removes the
// entry.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	tableID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	productID, ok := pathID(c, "productID")
	if !ok {
		return badID(c, "product")
	}
	var body struct {
		Delta int `json:"delta"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": "invalid request body"})
	}
	cart, err := h.Carts.UpdateItem(c.Request().Context(), tableID, productID, body.Delta)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": cart})
}

// RemoveItem handles DELETE /v1/tables/:id/cart/items/:productID.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	tableID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	productID, ok := pathID(c, "productID")
	if !ok {
		return badID(c, "product")
	}
	cart, err := h.Carts.RemoveItem(c.Request().Context(), tableID, productID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": cart})
}

// Clear handles DELETE /v1/tables/:id/cart.
func (h *CartHandler) Clear(c echo.Context) error {
	tableID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "table")
	}
	removed, err := h.Carts.Clear(c.Request().Context(), tableID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}
