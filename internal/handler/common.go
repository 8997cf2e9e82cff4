// Package handler exposes the table/cart/order lifecycle over HTTP.
// Handlers bind and validate input, delegate to the service layer and
// translate its errors into stable client-facing reason codes.
package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-service/internal/repository"
	"github.com/iliyamo/restaurant-table-service/internal/service"
)

// fail maps a service or repository error onto an HTTP status and a
// stable reason code.  Unknown errors are reported as a generic 500
// without leaking internals.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": err.Error()})
	case errors.Is(err, service.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty_cart", "detail": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_transition", "detail": err.Error()})
	case errors.Is(err, service.ErrTableUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "table_unavailable", "detail": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "detail": err.Error()})
	case errors.Is(err, repository.ErrTransient):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "transient", "retryable": true})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
}

// pathID extracts and validates a UUID path parameter.
func pathID(c echo.Context, name string) (string, bool) {
	id := c.Param(name)
	if uuid.Validate(id) != nil {
		return "", false
	}
	return id, true
}

func badID(c echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "detail": "invalid " + what + " id"})
}
