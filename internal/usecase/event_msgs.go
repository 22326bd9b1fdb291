package usecase

// Analytics event types mirrored from the storefront pipeline.
const (
	EventAddToCart      = "ADD_TO_CART"
	EventRemoveFromCart = "REMOVE_FROM_CART"
	EventPaymentSuccess = "PAYMENT_SUCCESS"
)

// AnalyticsEvent is the fire-and-forget payload sent to the event sink.
type AnalyticsEvent struct {
	UserID    string         `json:"userId"`
	EventType string         `json:"eventType"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Outbox channels drained by the queue publisher.
const (
	ChannelOrderPlaced = "orders.placed.v1"
	ChannelOrderPaid   = "orders.paid.v1"
)

// OrderPlacedMsg goes to the outbox when checkout persists a pending order.
type OrderPlacedMsg struct {
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	TotalCents int64  `json:"totalCents"`
	Currency   string `json:"currency"`
}

// OrderPaidMsg goes to the outbox inside the finalize transaction.
type OrderPaidMsg struct {
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	TotalCents int64  `json:"totalCents"`
	Currency   string `json:"currency"`
}
