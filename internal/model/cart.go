package model

// CartItem is a single line in a cart: a product reference plus a
// quantity.  Quantities are always >= 1; an item whose quantity drops
// to zero or below is removed rather than stored at zero.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart is the mutable pre-order item collection attached to a table.
// A cart holds at most one entry per product; adding an existing
// product merges quantities.  The cart is cleared, not destroyed,
// when an order is placed from it.
type Cart struct {
	ID      string     `json:"id"`
	TableID string     `json:"table_id"`
	Items   []CartItem `json:"items"`
}

// Quantity returns the quantity of the given product in the cart, or
// zero when the product is absent.
func (c *Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Empty reports whether the cart holds no items.
func (c *Cart) Empty() bool { return len(c.Items) == 0 }
