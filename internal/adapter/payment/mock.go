package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/google/uuid"
)

// mockWebhookSecret signs synthesized callbacks so the mock strategy
// exercises the same verify-then-parse path as the real one.
const mockWebhookSecret = "whsec_mock"

// MockGateway is the deterministic test strategy: instead of a client secret
// it hands back a same-process confirmation URL that forces the paid outcome.
type MockGateway struct {
	confirmPath string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{confirmPath: "/_test/mock-payment/"}
}

func (g *MockGateway) IssueIntent(_ context.Context, orderID string, _ int64, _ string) (usecase.IntentRef, error) {
	return usecase.IntentRef{PaymentURL: g.confirmPath + orderID}, nil
}

type mockCallback struct {
	ID      string          `json:"id"`
	OrderID string          `json:"orderId"`
	Outcome usecase.Outcome `json:"outcome"`
}

func (g *MockGateway) VerifyCallback(payload []byte, signature string) (usecase.WebhookEvent, error) {
	if err := verifySignature(payload, signature, mockWebhookSecret, 0, time.Now()); err != nil {
		return usecase.WebhookEvent{}, usecase.ErrInvalidSignature
	}
	var cb mockCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return usecase.WebhookEvent{}, err
	}
	return usecase.WebhookEvent{ID: cb.ID, OrderID: cb.OrderID, Outcome: cb.Outcome, Handled: true}, nil
}

// SignedCallback builds a payload+signature pair for an order outcome. Test
// helpers and the mock confirmation endpoint use it to drive the webhook
// path end to end.
func SignedCallback(orderID string, outcome usecase.Outcome) ([]byte, string) {
	payload, _ := json.Marshal(mockCallback{
		ID:      "evt_" + uuid.NewString(),
		OrderID: orderID,
		Outcome: outcome,
	})
	return payload, SignPayload(payload, mockWebhookSecret, time.Now())
}

var _ usecase.PaymentGateway = (*MockGateway)(nil)
