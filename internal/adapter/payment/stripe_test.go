package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func signedEvent(t *testing.T, body string, at time.Time) (payload []byte, sig string) {
	t.Helper()
	payload = []byte(body)
	return payload, SignPayload(payload, testWebhookSecret, at)
}

func TestIssueIntent(t *testing.T) {
	var gotAuth, gotOrderID, gotAmount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotAuth = r.Header.Get("Authorization")
		gotOrderID = r.PostForm.Get("metadata[orderId]")
		gotAmount = r.PostForm.Get("amount")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret_abc"}`))
	}))
	defer srv.Close()

	gw := NewStripeGateway("sk_test_key", testWebhookSecret, WithAPIBase(srv.URL))

	ref, err := gw.IssueIntent(context.Background(), "order-1", 5400, "USD")
	require.NoError(t, err)

	assert.Equal(t, "pi_123", ref.IntentID)
	assert.Equal(t, "pi_123_secret_abc", ref.ClientSecret)
	assert.Equal(t, "Bearer sk_test_key", gotAuth)
	assert.Equal(t, "order-1", gotOrderID)
	assert.Equal(t, "5400", gotAmount)
}

func TestIssueIntentGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	gw := NewStripeGateway("sk_bad", testWebhookSecret, WithAPIBase(srv.URL))

	_, err := gw.IssueIntent(context.Background(), "order-1", 100, "usd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestVerifyCallbackSucceeded(t *testing.T) {
	now := time.Now()
	gw := NewStripeGateway("sk", testWebhookSecret, WithClock(func() time.Time { return now }))

	payload, sig := signedEvent(t, `{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {"metadata": {"orderId": "order-1"}}}
	}`, now)

	ev, err := gw.VerifyCallback(payload, sig)
	require.NoError(t, err)
	assert.True(t, ev.Handled)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "order-1", ev.OrderID)
	assert.Equal(t, usecase.OutcomePaid, ev.Outcome)
}

func TestVerifyCallbackFailed(t *testing.T) {
	now := time.Now()
	gw := NewStripeGateway("sk", testWebhookSecret, WithClock(func() time.Time { return now }))

	payload, sig := signedEvent(t, `{
		"id": "evt_2",
		"type": "payment_intent.payment_failed",
		"data": {"object": {"metadata": {"orderId": "order-2"}}}
	}`, now)

	ev, err := gw.VerifyCallback(payload, sig)
	require.NoError(t, err)
	assert.True(t, ev.Handled)
	assert.Equal(t, usecase.OutcomeFailed, ev.Outcome)
}

func TestVerifyCallbackUnhandledType(t *testing.T) {
	now := time.Now()
	gw := NewStripeGateway("sk", testWebhookSecret, WithClock(func() time.Time { return now }))

	payload, sig := signedEvent(t, `{"id": "evt_3", "type": "charge.refunded", "data": {"object": {"metadata": {}}}}`, now)

	ev, err := gw.VerifyCallback(payload, sig)
	require.NoError(t, err)
	assert.False(t, ev.Handled)
}

func TestVerifyCallbackWrongSecret(t *testing.T) {
	now := time.Now()
	gw := NewStripeGateway("sk", testWebhookSecret, WithClock(func() time.Time { return now }))

	payload := []byte(`{"id":"evt_4","type":"payment_intent.succeeded"}`)
	sig := SignPayload(payload, "whsec_other", now)

	_, err := gw.VerifyCallback(payload, sig)
	assert.ErrorIs(t, err, usecase.ErrInvalidSignature)
}

func TestVerifyCallbackTamperedPayload(t *testing.T) {
	now := time.Now()
	gw := NewStripeGateway("sk", testWebhookSecret, WithClock(func() time.Time { return now }))

	payload, sig := signedEvent(t, `{"id":"evt_5","type":"payment_intent.succeeded"}`, now)
	payload[len(payload)-2] = 'X'

	_, err := gw.VerifyCallback(payload, sig)
	assert.ErrorIs(t, err, usecase.ErrInvalidSignature)
}

func TestVerifyCallbackStaleTimestamp(t *testing.T) {
	now := time.Now()
	gw := NewStripeGateway("sk", testWebhookSecret,
		WithClock(func() time.Time { return now }),
		WithTolerance(5*time.Minute),
	)

	payload, sig := signedEvent(t, `{"id":"evt_6","type":"payment_intent.succeeded"}`, now.Add(-10*time.Minute))

	_, err := gw.VerifyCallback(payload, sig)
	assert.ErrorIs(t, err, usecase.ErrInvalidSignature)
}

func TestVerifyCallbackMalformedHeader(t *testing.T) {
	gw := NewStripeGateway("sk", testWebhookSecret)

	for _, header := range []string{"", "garbage", "t=123", "v1=deadbeef", "t=abc,v1=deadbeef"} {
		_, err := gw.VerifyCallback([]byte(`{}`), header)
		assert.ErrorIs(t, err, usecase.ErrInvalidSignature, "header %q", header)
	}
}

func TestMockGatewayRoundTrip(t *testing.T) {
	gw := NewMockGateway()

	ref, err := gw.IssueIntent(context.Background(), "order-9", 100, "usd")
	require.NoError(t, err)
	assert.Equal(t, "/_test/mock-payment/order-9", ref.PaymentURL)

	payload, sig := SignedCallback("order-9", usecase.OutcomePaid)
	ev, err := gw.VerifyCallback(payload, sig)
	require.NoError(t, err)
	assert.True(t, ev.Handled)
	assert.Equal(t, "order-9", ev.OrderID)
	assert.Equal(t, usecase.OutcomePaid, ev.Outcome)
	assert.NotEmpty(t, ev.ID)
}

func TestMockGatewayRejectsUnsigned(t *testing.T) {
	gw := NewMockGateway()
	_, err := gw.VerifyCallback([]byte(`{"orderId":"order-9","outcome":"paid"}`), "t=1,v1=00")
	assert.ErrorIs(t, err, usecase.ErrInvalidSignature)
}
