// Package router wires HTTP routes to their handlers and applies the
// middleware chain each group needs.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-table-service/internal/config"
	"github.com/iliyamo/restaurant-table-service/internal/handler"
	"github.com/iliyamo/restaurant-table-service/internal/middleware"
)

// Handlers bundles every handler the router registers.
type Handlers struct {
	Tables   *handler.TableHandler
	Carts    *handler.CartHandler
	Orders   *handler.OrderHandler
	Products *handler.ProductHandler
	Events   *handler.EventsHandler
}

// Register mounts all routes on the Echo instance.
//
// Three access tiers exist.  Guest routes carry no identity check:
// they are reached from the QR code on the table and cover browsing
// the catalog, editing the table's cart, and placing an order.  Staff
// routes require a STAFF or ADMIN token and cover the lifecycle
// operations the floor and kitchen perform.  Destructive routes
// (deleting tables and orders) require ADMIN.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rl config.RateLimitConfig, rdb *redis.Client, cacheTTL time.Duration) {
	e.Use(middleware.RateLimit(rl, rdb))

	e.GET("/healthz", handler.Health)

	// Guest routes.  The table id in the path comes from the QR code,
	// so possession of the URL is the access credential here.
	e.GET("/v1/products", h.Products.List, middleware.CatalogCache(rdb, cacheTTL))
	e.GET("/v1/products/:id", h.Products.Get, middleware.CatalogCache(rdb, cacheTTL))
	e.GET("/v1/tables/:id", h.Tables.Get)
	e.GET("/v1/tables/:id/cart", h.Carts.Get)
	e.POST("/v1/tables/:id/cart/items", h.Carts.AddItem)
	e.PATCH("/v1/tables/:id/cart/items/:productID", h.Carts.UpdateItem)
	e.DELETE("/v1/tables/:id/cart/items/:productID", h.Carts.RemoveItem)
	e.DELETE("/v1/tables/:id/cart", h.Carts.Clear)
	e.POST("/v1/tables/:id/orders", h.Orders.Place)
	e.GET("/v1/tables/:id/orders", h.Orders.ListByTable)

	// Staff routes: floor and kitchen operations.
	staff := e.Group("/v1")
	staff.Use(middleware.Identity(cfg.JWTSecret))
	staff.Use(middleware.RequireRole("STAFF", "ADMIN"))
	staff.GET("/events", h.Events.Stream)
	staff.GET("/tables", h.Tables.List)
	staff.POST("/tables", h.Tables.Create)
	staff.PATCH("/tables/:id/status", h.Tables.SetStatus)
	staff.GET("/orders", h.Orders.ListAll)
	staff.GET("/orders/:id", h.Orders.Get)
	staff.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
	staff.PATCH("/orders/:id/payment", h.Orders.UpdatePayment)

	// Admin routes: destructive operations only.
	admin := e.Group("/v1")
	admin.Use(middleware.Identity(cfg.JWTSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.DELETE("/tables/:id", h.Tables.Delete)
	admin.DELETE("/orders/:id", h.Orders.Delete)
}
