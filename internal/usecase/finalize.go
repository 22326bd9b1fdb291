package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	finalizeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_finalize_total",
			Help: "Finalize calls by result",
		},
		[]string{"result"},
	)

	stockDebitRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_debit_rejected_total",
			Help: "Debits refused because remaining stock was insufficient",
		},
	)
)

// errRaced signals that another finalize won the conditional update while
// this call was in flight. Internal to this file.
var errRaced = errors.New("finalize raced")

// FinalizePayment drives the pending -> {paid, failed} transition. The
// conditional status update inside the store transaction is the idempotency
// gate; stock debit, cart clear and the outgoing order-paid event are all
// consequences gated on that update, committed atomically with it.
type FinalizePayment struct {
	orders OrderRepo
	store  FinalizeStore
	sink   EventSink
	cache  OrderCache
	log    *slog.Logger
}

func NewFinalizePayment(orders OrderRepo, store FinalizeStore, sink EventSink, cache OrderCache) *FinalizePayment {
	return &FinalizePayment{
		orders: orders,
		store:  store,
		sink:   sink,
		cache:  cache,
		log:    logging.New("finalize"),
	}
}

// Execute applies outcome to the order. Calling it again with any outcome
// after the order is paid returns the order unchanged with no side effects.
// A paid callback arriving after a recorded failure is rejected with
// ErrAlreadyFinalized rather than silently accepted.
func (uc *FinalizePayment) Execute(ctx context.Context, orderID string, outcome Outcome) (*domain.Order, error) {
	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if done, res, err := terminalResult(order, outcome); done {
		if err == nil {
			finalizeOutcomes.WithLabelValues("noop").Inc()
		}
		return res, err
	}

	to := domain.PaymentFailed
	if outcome == OutcomePaid {
		to = domain.PaymentPaid
	}

	err = uc.store.WithinTx(ctx, func(tx FinalizeTx) error {
		flipped, err := tx.MarkIfStatus(ctx, orderID, domain.PaymentPending, to)
		if err != nil {
			return err
		}
		if !flipped {
			return errRaced
		}
		if to != domain.PaymentPaid {
			return nil
		}

		for _, item := range order.Items {
			ok, err := tx.DebitStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			// Zero rows means either the product vanished (data corruption,
			// escalate) or stock ran out between checkout and now (reject
			// this finalize; the rollback keeps the order pending).
			exists, err := tx.ProductExists(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if !exists {
				return &StockIntegrityError{OrderID: orderID, ProductID: item.ProductID}
			}
			stockDebitRejected.Inc()
			return &InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity}
		}

		if err := tx.ClearCartByUser(ctx, order.UserID); err != nil {
			return err
		}

		paid, _ := json.Marshal(OrderPaidMsg{
			OrderID:    order.ID,
			UserID:     order.UserID,
			TotalCents: order.TotalCents,
			Currency:   order.Currency,
		})
		return tx.InsertOutbox(ctx, ChannelOrderPaid, paid)
	})

	if errors.Is(err, errRaced) {
		// Another delivery won the gate. Re-read and apply the same terminal
		// rules as if we had seen the terminal state up front.
		current, rerr := uc.orders.GetByID(ctx, orderID)
		if rerr != nil {
			return nil, rerr
		}
		if done, res, terr := terminalResult(current, outcome); done {
			if terr == nil {
				finalizeOutcomes.WithLabelValues("noop").Inc()
			}
			return res, terr
		}
		return nil, ErrAlreadyFinalized
	}
	if err != nil {
		finalizeOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}

	order.Status = to
	finalizeOutcomes.WithLabelValues(string(to)).Inc()
	uc.afterCommit(ctx, order)
	return order, nil
}

// terminalResult resolves a finalize request against an already-terminal
// order: repeating the recorded outcome is a no-op, contradicting a recorded
// failure with a late "paid" is rejected.
func terminalResult(order *domain.Order, outcome Outcome) (bool, *domain.Order, error) {
	switch order.Status {
	case domain.PaymentPaid:
		return true, order, nil
	case domain.PaymentFailed:
		if outcome == OutcomeFailed {
			return true, order, nil
		}
		return true, nil, ErrAlreadyFinalized
	default:
		return false, nil, nil
	}
}

// afterCommit runs the best-effort effects that must never fail the finalize:
// the status cache and the payment-success notification.
func (uc *FinalizePayment) afterCommit(ctx context.Context, order *domain.Order) {
	if uc.cache != nil {
		if err := uc.cache.SetStatus(ctx, order.ID, string(order.Status)); err != nil {
			uc.log.Warn("status cache update failed", "order_id", order.ID, "error", err)
		}
	}
	if order.Status != domain.PaymentPaid || uc.sink == nil {
		return
	}
	ev := AnalyticsEvent{
		UserID:    order.UserID,
		EventType: EventPaymentSuccess,
		Metadata:  map[string]any{"orderId": order.ID, "totalCents": order.TotalCents},
	}
	if err := uc.sink.Publish(ctx, ev); err != nil {
		uc.log.Warn("payment success notification failed", "order_id", order.ID, "error", err)
	}
}
