package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/logging"
	"github.com/google/uuid"
)

type CheckoutInput struct {
	UserID        string
	PaymentMethod string
}

type CheckoutOutput struct {
	OrderID    string
	TotalCents int64
	Currency   string
	Ref        IntentRef
}

// Checkout turns the user's cart into a pending order and asks the selected
// gateway for a payment reference. It never debits stock and never clears the
// cart; both belong to the finalize path.
type Checkout struct {
	carts    CartRepo
	products ProductRepo
	orders   OrderRepo
	outbox   OutboxRepo
	gateways map[string]PaymentGateway
	log      *slog.Logger
}

func NewCheckout(carts CartRepo, products ProductRepo, orders OrderRepo, outbox OutboxRepo, gateways map[string]PaymentGateway) *Checkout {
	return &Checkout{
		carts:    carts,
		products: products,
		orders:   orders,
		outbox:   outbox,
		gateways: gateways,
		log:      logging.New("checkout"),
	}
}

func (uc *Checkout) Execute(ctx context.Context, in CheckoutInput) (CheckoutOutput, error) {
	gw, ok := uc.gateways[in.PaymentMethod]
	if !ok {
		return CheckoutOutput{}, ErrUnsupportedMethod
	}

	cart, err := uc.carts.GetByUser(ctx, in.UserID)
	if err != nil {
		return CheckoutOutput{}, err
	}
	if cart.Empty() {
		return CheckoutOutput{}, ErrEmptyCart
	}

	// Re-validate every line against current stock; quantities were only
	// checked at add-to-cart time and stock may have moved since.
	order := &domain.Order{
		ID:     uuid.NewString(),
		UserID: in.UserID,
		Status: domain.PaymentPending,
	}
	for _, line := range cart.Items {
		product, err := uc.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return CheckoutOutput{}, err
		}
		if line.Quantity > product.Stock {
			return CheckoutOutput{}, &InsufficientStockError{
				ProductID: product.ID,
				Requested: line.Quantity,
				Available: product.Stock,
			}
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:  product.ID,
			PriceCents: product.PriceCents,
			Quantity:   line.Quantity,
		})
		order.TotalCents += product.PriceCents * int64(line.Quantity)
		order.Currency = product.Currency
	}
	if err := order.Validate(); err != nil {
		return CheckoutOutput{}, err
	}

	if err := uc.orders.CreateWithItems(ctx, order); err != nil {
		return CheckoutOutput{}, err
	}

	// Best-effort; the order row is the source of truth.
	placed, _ := json.Marshal(OrderPlacedMsg{
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
	})
	if err := uc.outbox.Insert(ctx, ChannelOrderPlaced, placed); err != nil {
		uc.log.Warn("outbox insert failed", "order_id", order.ID, "error", err)
	}

	// A gateway failure here leaves the order pending, which is safe: the
	// client can retry payment, and finalize is the idempotent authority.
	ref, err := gw.IssueIntent(ctx, order.ID, order.TotalCents, order.Currency)
	if err != nil {
		return CheckoutOutput{}, err
	}

	return CheckoutOutput{
		OrderID:    order.ID,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
		Ref:        ref,
	}, nil
}
