package usecase

import (
	"context"
	"errors"
	"log/slog"

	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/logging"
)

// CartService owns the per-user cart lifecycle. Stock checks here are
// best-effort; checkout re-validates against current stock.
type CartService struct {
	carts    CartRepo
	products ProductRepo
	users    UserRepo
	sink     EventSink
	log      *slog.Logger
}

func NewCartService(carts CartRepo, products ProductRepo, users UserRepo, sink EventSink) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		users:    users,
		sink:     sink,
		log:      logging.New("cart"),
	}
}

// GetOrCreate returns the user's cart, creating an empty one on first access.
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.carts.Create(ctx, userID)
}

// AddItem merges quantity into an existing line or creates a new one. The
// combined quantity is validated against current stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	newQty := quantity
	if line := cart.Line(productID); line != nil {
		newQty += line.Quantity
	}
	if newQty > product.Stock {
		return nil, &InsufficientStockError{ProductID: productID, Requested: newQty, Available: product.Stock}
	}

	if err := s.carts.UpsertItem(ctx, cart.ID, productID, newQty); err != nil {
		return nil, err
	}
	s.notify(ctx, AnalyticsEvent{
		UserID:    userID,
		EventType: EventAddToCart,
		Metadata:  map[string]any{"productId": productID, "quantity": quantity},
	})

	return s.carts.GetByUser(ctx, userID)
}

// UpdateItem replaces the line quantity. The line must already exist.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.Line(productID) == nil {
		return nil, ErrNotFound
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, &InsufficientStockError{ProductID: productID, Requested: quantity, Available: product.Stock}
	}

	if err := s.carts.UpsertItem(ctx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}
	return s.carts.GetByUser(ctx, userID)
}

// RemoveItem is idempotent: removing an absent line succeeds silently.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if cart.Line(productID) == nil {
		return nil
	}
	if err := s.carts.RemoveItem(ctx, cart.ID, productID); err != nil {
		return err
	}
	s.notify(ctx, AnalyticsEvent{
		UserID:    userID,
		EventType: EventRemoveFromCart,
		Metadata:  map[string]any{"productId": productID},
	})
	return nil
}

func (s *CartService) notify(ctx context.Context, ev AnalyticsEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, ev); err != nil {
		s.log.Warn("analytics publish failed", "event", ev.EventType, "error", err)
	}
}
