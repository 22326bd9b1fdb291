package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aq2208/commerce-api/internal/logging"
	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 * 1024

// WebhookHandler is the gateway-facing entry point. The raw body is verified
// against the signature header before any of it is interpreted; only then is
// the finalize state machine invoked.
type WebhookHandler struct {
	gateway  usecase.PaymentGateway
	finalize *usecase.FinalizePayment
	dedup    usecase.EventDedup
}

func NewWebhookHandler(gateway usecase.PaymentGateway, finalize *usecase.FinalizePayment, dedup usecase.EventDedup) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, finalize: finalize, dedup: dedup}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
		return
	}

	ev, err := h.gateway.VerifyCallback(raw, c.GetHeader("Stripe-Signature"))
	if err != nil {
		// One opaque rejection for every verification failure; nothing was
		// read from the payload, nothing was mutated.
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
		return
	}
	if !ev.Handled {
		c.String(http.StatusOK, "ignored")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	log := logging.From(c).With("event_id", ev.ID, "order_id", ev.OrderID, "outcome", string(ev.Outcome))

	// Cheap redelivery filter; losing the key is harmless because finalize
	// is idempotent on its own.
	if h.dedup != nil && ev.ID != "" {
		first, derr := h.dedup.FirstDelivery(ctx, ev.ID)
		if derr == nil && !first {
			log.Info("webhook redelivery skipped")
			c.String(http.StatusOK, "already processed")
			return
		}
	}

	_, err = h.finalize.Execute(ctx, ev.OrderID, ev.Outcome)
	if err != nil {
		// Un-mark the event so the gateway's retry is processed rather than
		// swallowed by the dedup filter.
		if h.dedup != nil && ev.ID != "" {
			h.dedup.Forget(ctx, ev.ID)
		}
		switch {
		case errors.Is(err, usecase.ErrAlreadyFinalized):
			// Contradicting terminal outcome (e.g. late paid-after-failed).
			// Acknowledge so the gateway stops retrying; a human follows up.
			log.Error("conflicting webhook outcome for finalized order")
			c.String(http.StatusOK, "conflict recorded")
		case errors.Is(err, usecase.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_order"})
		default:
			log.Error("webhook finalize failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "finalize_failed"})
		}
		return
	}

	c.String(http.StatusOK, "webhook received")
}
