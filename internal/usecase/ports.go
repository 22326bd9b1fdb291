package usecase

import (
	"context"

	domain "github.com/aq2208/commerce-api/internal/entity"
)

// Repos return ErrNotFound for missing rows so callers can map outcomes
// without knowing the driver.

type UserRepo interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type ProductRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type CartRepo interface {
	// GetByUser loads the cart with its lines; ErrNotFound when the user has
	// no cart yet.
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	Create(ctx context.Context, userID string) (*domain.Cart, error)
	// UpsertItem sets the line quantity, creating the line if absent.
	UpsertItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
}

type OrderRepo interface {
	// CreateWithItems persists the order and its snapshotted items in one
	// transaction.
	CreateWithItems(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// FinalizeStore scopes one finalize call to a single transaction: either
// every effect inside fn commits, or none do.
type FinalizeStore interface {
	WithinTx(ctx context.Context, fn func(tx FinalizeTx) error) error
}

// FinalizeTx exposes the conditional primitives the state machine needs.
// MarkIfStatus is the idempotency gate; DebitStock is the oversell guard.
// Both report affected-rows as a bool instead of read-then-write.
type FinalizeTx interface {
	MarkIfStatus(ctx context.Context, orderID string, from, to domain.PaymentStatus) (bool, error)
	DebitStock(ctx context.Context, productID string, qty int) (bool, error)
	ProductExists(ctx context.Context, productID string) (bool, error)
	ClearCartByUser(ctx context.Context, userID string) error
	InsertOutbox(ctx context.Context, channel string, payload []byte) error
}

type OutboxRepo interface {
	Insert(ctx context.Context, channel string, payload []byte) error
}

// IntentRef is the opaque reference handed back to the client to complete
// payment out-of-band. Which fields are set depends on the strategy.
type IntentRef struct {
	IntentID     string `json:"paymentIntentId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	PaymentURL   string `json:"paymentUrl,omitempty"`
}

type Outcome string

const (
	OutcomePaid   Outcome = "paid"
	OutcomeFailed Outcome = "failed"
)

// WebhookEvent is what the gateway envelope reduces to: which order, and
// whether payment succeeded. Everything else in the envelope is opaque here.
type WebhookEvent struct {
	ID      string
	OrderID string
	Outcome Outcome
	// Handled is false for event types this service does not react to.
	Handled bool
}

// PaymentGateway is the single contract both strategies implement.
type PaymentGateway interface {
	IssueIntent(ctx context.Context, orderID string, amountCents int64, currency string) (IntentRef, error)
	// VerifyCallback must reject with ErrInvalidSignature before the payload
	// is interpreted in any way.
	VerifyCallback(payload []byte, signature string) (WebhookEvent, error)
}

// EventSink receives fire-and-forget notifications. Callers never treat a
// sink error as their own failure.
type EventSink interface {
	Publish(ctx context.Context, ev AnalyticsEvent) error
}

type OrderCache interface {
	SetStatus(ctx context.Context, orderID, status string) error
}

// EventDedup is a best-effort pre-filter for redelivered webhook events.
// The conditional status update remains the authoritative gate.
type EventDedup interface {
	// FirstDelivery reports whether eventID has not been seen before,
	// recording it as seen.
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
	// Forget drops the record so a retried delivery is processed again,
	// used when handling an event failed after it was marked seen.
	Forget(ctx context.Context, eventID string)
}
