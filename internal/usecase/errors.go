package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrAlreadyFinalized  = errors.New("order already finalized")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// InsufficientStockError names the offending product so the client can
// correct the cart and retry.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// StockIntegrityError means an order item references a product that no longer
// exists. The order's invariant was violated upstream; finalize escalates
// instead of skipping the line.
type StockIntegrityError struct {
	OrderID   string
	ProductID string
}

func (e *StockIntegrityError) Error() string {
	return fmt.Sprintf("order %s references missing product %s", e.OrderID, e.ProductID)
}
