package model

// Product is a catalog entry referenced by cart items and order
// snapshots.  The catalog is maintained elsewhere; this service reads
// it to resolve prices at order time and to serve menu listings.
//
// Fields:
//  ID          – primary key identifier (UUID).
//  Caption     – display name.
//  Category    – mainDish, breakFast or desserts.
//  Type        – veg or non veg.
//  Description – menu description text.
//  Image       – image URL.
//  Special     – featured flag.
//  PriceCents  – current price in cents.
//  Rating      – aggregate customer rating.
type Product struct {
	ID          string  `json:"id"`
	Caption     string  `json:"caption"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Special     bool    `json:"special"`
	PriceCents  int64   `json:"price_cents"`
	Rating      float64 `json:"rating"`
}
