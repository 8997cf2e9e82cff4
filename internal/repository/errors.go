// Package repository defines the transactional document store behind
// the table/cart/order lifecycle, with a MySQL implementation for
// production and an in-memory implementation for tests and local
// development.  Sentinel errors declared here are shared across both
// implementations so higher layers can map failures to stable,
// client-facing reason codes with errors.Is.
package repository

import "errors"

// ErrNotFound is returned when a table, cart, order or product does
// not exist.  Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation collides with existing
// state, such as creating a table whose number is already taken.
// Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrTransient marks a retryable storage failure (timeout, dropped
// connection).  The coordinator retries once with backoff before
// letting it surface.
var ErrTransient = errors.New("transient store error")
