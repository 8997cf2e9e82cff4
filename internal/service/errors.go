// Package service implements the table→cart→order lifecycle on top of
// the repository store: table provisioning and status edges, cart
// mutation, and the atomic cart→order→table transition with its
// real-time broadcast.  All mutations for a table run inside that
// table's mutual-exclusion section (see internal/lock), so two
// operations on the same table never interleave while different
// tables proceed independently.
package service

import "errors"

// ErrInvalidInput is returned for malformed requests such as a
// non-positive quantity or an unknown status target.  Maps to 400.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidTransition is returned when a requested table or order
// status edge does not exist in the workflow.  Maps to 409.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrEmptyCart is returned by PlaceOrder when the table's cart has no
// items; the table status is left untouched.  Maps to 400.
var ErrEmptyCart = errors.New("cart is empty")

// ErrTableUnavailable is returned by PlaceOrder when the table is not
// free at placement time, which prevents double placement.  Maps to 409.
var ErrTableUnavailable = errors.New("table unavailable")
