package domain

import "errors"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

var ErrInvalidAmount = errors.New("invalid amount")

// Order is an immutable snapshot of the cart at checkout time. Only
// PaymentStatus changes after creation.
type Order struct {
	ID         string
	UserID     string
	Status     PaymentStatus
	TotalCents int64
	Currency   string
	Items      []OrderItem
}

// OrderItem captures the unit price at order time. The live product price is
// irrelevant for billing once the order exists; ProductID is kept only for
// the stock debit at finalize.
type OrderItem struct {
	ProductID  string
	PriceCents int64
	Quantity   int
}

func (o *Order) Validate() error {
	if o.TotalCents <= 0 || o.Currency == "" {
		return ErrInvalidAmount
	}
	return nil
}
