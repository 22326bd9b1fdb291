package domain

// Cart is owned by exactly one user and created lazily on first access.
type Cart struct {
	ID     string
	UserID string
	Items  []CartItem
}

// CartItem identity is (cart, product): at most one line per product.
type CartItem struct {
	ProductID string
	Quantity  int
}

// Line returns the cart line for productID, or nil.
func (c *Cart) Line(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }
