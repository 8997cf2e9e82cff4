package model

import "time"

// OrderStatus is the workflow state of an order.  The only forward
// path is Pending→Started→Ready→Delivered; Cancelled is reachable
// from any non-terminal state.  Delivered and Cancelled are terminal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderStarted   OrderStatus = "Started"
	OrderReady     OrderStatus = "Ready"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// orderEdges is the transition table for the order workflow.  Absent
// keys (terminal states) admit no transition at all.
var orderEdges = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderStarted, OrderCancelled},
	OrderStarted: {OrderReady, OrderCancelled},
	OrderReady:   {OrderDelivered, OrderCancelled},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderStarted, OrderReady, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition reports whether the edge s→target exists in the
// workflow.  Skipping forward stages and leaving a terminal state are
// both rejected here, so illegal transitions never reach the store.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, t := range orderEdges[s] {
		if t == target {
			return true
		}
	}
	return false
}

// PaymentStatus tracks whether an order has been paid.  It is
// independent of the order workflow status.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentNotPaid PaymentStatus = "NotPaid"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPaid || p == PaymentNotPaid
}

// Order is an immutable snapshot of a cart at placement time.  Items
// and TotalCents are captured when the order is created and never
// change afterwards, regardless of later cart or catalog edits.  Only
// Status and PaymentStatus are mutable, and only through the
// coordinator's transition operations.
//
// Fields:
//  ID            – primary key identifier (UUID).
//  TableID       – table the order was placed from.
//  Items         – snapshot of the cart lines at placement time.
//  TotalCents    – total price in cents, priced at placement time.
//  Status        – workflow state, see OrderStatus.
//  PaymentStatus – Paid or NotPaid.
//  CreatedAt     – creation timestamp (UTC).
type Order struct {
	ID            string        `json:"id"`
	TableID       string        `json:"table_id"`
	Items         []CartItem    `json:"items"`
	TotalCents    int64         `json:"total_cents"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Active reports whether the order still occupies its table.  An
// order is active until it reaches a terminal status.
func (o *Order) Active() bool { return !o.Status.Terminal() }
