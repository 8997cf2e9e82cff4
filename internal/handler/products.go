package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-service/internal/repository"
)

// ProductHandler serves read-only catalog endpoints.  Catalog
// maintenance happens in a separate back-office system; this service
// only lists products and resolves prices.
type ProductHandler struct {
	Store repository.Store
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(store repository.Store) *ProductHandler {
	if store == nil {
		panic("nil store passed to NewProductHandler")
	}
	return &ProductHandler{Store: store}
}

// List handles GET /v1/products.
func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.Store.ListProducts(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(products), "items": products})
}

// Get handles GET /v1/products/:id.
func (h *ProductHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "product")
	}
	p, err := h.Store.GetProduct(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": p})
}
