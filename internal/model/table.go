package model

import "time"

// TableStatus enumerates the lifecycle states of a physical table.
// Transitions are restricted: free↔reserved may be requested by staff,
// free→occupied happens only when an order is placed and occupied→free
// only when the table's last active order is resolved.
type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
	TableReserved TableStatus = "reserved"
)

// Valid reports whether s is one of the known table statuses.
func (s TableStatus) Valid() bool {
	switch s {
	case TableFree, TableOccupied, TableReserved:
		return true
	}
	return false
}

// CanRequest reports whether a client-requested transition from s to
// target is allowed. Only the free↔reserved edges may be requested
// directly; the occupied edges are driven by order placement and
// release and are never accepted from a request.
func (s TableStatus) CanRequest(target TableStatus) bool {
	switch {
	case s == TableFree && target == TableReserved:
		return true
	case s == TableReserved && target == TableFree:
		return true
	}
	return false
}

// Table represents a physical seating unit.  Each table owns exactly
// one cart and accumulates order references over its lifetime.  The
// QR reference is an opaque string supplied by the provisioning
// system at creation time; the service only stores and forwards it.
//
// Fields:
//  ID        – primary key identifier (UUID).
//  Number    – unique human-facing table number.
//  Status    – current TableStatus.
//  CartID    – the cart attached to this table.
//  OrderIDs  – ids of orders placed from this table, newest last.
//  QRRef     – opaque QR artifact reference.
//  CreatedAt – creation timestamp.
type Table struct {
	ID        string      `json:"id"`
	Number    int         `json:"number"`
	Status    TableStatus `json:"status"`
	CartID    string      `json:"cart_id"`
	OrderIDs  []string    `json:"order_ids"`
	QRRef     string      `json:"qr_ref"`
	CreatedAt time.Time   `json:"created_at"`
}
