package usecase

import (
	"context"
	"strings"
	"sync"

	domain "github.com/aq2208/commerce-api/internal/entity"
)

// memState backs every repo port with one mutex-guarded store so tests get
// the same conditional-update semantics the MySQL adapters provide.
type memState struct {
	mu       sync.Mutex
	users    map[string]bool
	products map[string]*domain.Product
	carts    map[string]*domain.Cart // keyed by user id
	orders   map[string]*domain.Order
	outbox   []outboxRow
}

type outboxRow struct {
	channel string
	payload []byte
}

func newMemState() *memState {
	return &memState{
		users:    map[string]bool{},
		products: map[string]*domain.Product{},
		carts:    map[string]*domain.Cart{},
		orders:   map[string]*domain.Order{},
	}
}

func (s *memState) seedUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = true
}

func (s *memState) seedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

func (s *memState) seedCart(userID string, items ...domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = true
	s.carts[userID] = &domain.Cart{ID: "cart-" + userID, UserID: userID, Items: items}
}

func (s *memState) stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *memState) setPrice(productID string, cents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID].PriceCents = cents
}

func (s *memState) cartLines(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[userID]; ok {
		return len(c.Items)
	}
	return 0
}

func (s *memState) outboxCount(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.outbox {
		if row.channel == channel {
			n++
		}
	}
	return n
}

// --- UserRepo ---

func (s *memState) Exists(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID], nil
}

// --- ProductRepo ---

func (s *memState) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// --- CartRepo ---

func (s *memState) GetByUser(_ context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (s *memState) Create(_ context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &domain.Cart{ID: "cart-" + userID, UserID: userID}
	s.carts[userID] = c
	cp := *c
	return &cp, nil
}

func (s *memState) cartByID(cartID string) *domain.Cart {
	for _, c := range s.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (s *memState) UpsertItem(_ context.Context, cartID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartByID(cartID)
	if c == nil {
		return ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	c.Items = append(c.Items, domain.CartItem{ProductID: productID, Quantity: quantity})
	return nil
}

func (s *memState) RemoveItem(_ context.Context, cartID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartByID(cartID)
	if c == nil {
		return ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return nil
}

// --- OrderRepo ---

func (s *memState) CreateWithItems(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	s.orders[o.ID] = &cp
	return nil
}

func (s *memState) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

// orderRepo adapts memState to OrderRepo without colliding with the
// ProductRepo GetByID method set.
type orderRepo struct{ s *memState }

func (r orderRepo) CreateWithItems(ctx context.Context, o *domain.Order) error {
	return r.s.CreateWithItems(ctx, o)
}

func (r orderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.s.GetOrder(ctx, id)
}

// --- OutboxRepo ---

func (s *memState) Insert(_ context.Context, channel string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, outboxRow{channel: channel, payload: payload})
	return nil
}

// --- FinalizeStore ---

// WithinTx holds the store lock for the whole callback, so finalize calls
// serialize exactly like they would on row locks, and restores a snapshot on
// error to model transaction rollback.
func (s *memState) WithinTx(_ context.Context, fn func(tx FinalizeTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked()
	if err := fn(&memTx{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	stocks   map[string]int
	statuses map[string]domain.PaymentStatus
	carts    map[string][]domain.CartItem
	outbox   int
}

func (s *memState) snapshotLocked() memSnapshot {
	snap := memSnapshot{
		stocks:   map[string]int{},
		statuses: map[string]domain.PaymentStatus{},
		carts:    map[string][]domain.CartItem{},
		outbox:   len(s.outbox),
	}
	for id, p := range s.products {
		snap.stocks[id] = p.Stock
	}
	for id, o := range s.orders {
		snap.statuses[id] = o.Status
	}
	for uid, c := range s.carts {
		snap.carts[uid] = append([]domain.CartItem(nil), c.Items...)
	}
	return snap
}

func (s *memState) restoreLocked(snap memSnapshot) {
	for id, stock := range snap.stocks {
		s.products[id].Stock = stock
	}
	for id, status := range snap.statuses {
		s.orders[id].Status = status
	}
	for uid, items := range snap.carts {
		s.carts[uid].Items = items
	}
	s.outbox = s.outbox[:snap.outbox]
}

type memTx struct{ s *memState }

func (t *memTx) MarkIfStatus(_ context.Context, orderID string, from, to domain.PaymentStatus) (bool, error) {
	o, ok := t.s.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (t *memTx) DebitStock(_ context.Context, productID string, qty int) (bool, error) {
	p, ok := t.s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (t *memTx) ProductExists(_ context.Context, productID string) (bool, error) {
	_, ok := t.s.products[productID]
	return ok, nil
}

func (t *memTx) ClearCartByUser(_ context.Context, userID string) error {
	if c, ok := t.s.carts[userID]; ok {
		c.Items = nil
	}
	return nil
}

func (t *memTx) InsertOutbox(_ context.Context, channel string, payload []byte) error {
	t.s.outbox = append(t.s.outbox, outboxRow{channel: channel, payload: payload})
	return nil
}

// --- EventSink ---

type recordSink struct {
	mu     sync.Mutex
	events []AnalyticsEvent
	err    error
}

func (s *recordSink) Publish(_ context.Context, ev AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordSink) count(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.EventType == eventType {
			n++
		}
	}
	return n
}

// --- OrderCache ---

type recordCache struct {
	mu       sync.Mutex
	statuses map[string]string
}

func newRecordCache() *recordCache {
	return &recordCache{statuses: map[string]string{}}
}

func (c *recordCache) SetStatus(_ context.Context, orderID, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[orderID] = status
	return nil
}

// --- PaymentGateway ---

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	ref   IntentRef
	err   error
}

func (g *fakeGateway) IssueIntent(_ context.Context, orderID string, _ int64, _ string) (IntentRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return IntentRef{}, g.err
	}
	ref := g.ref
	if ref == (IntentRef{}) {
		ref = IntentRef{PaymentURL: "/_test/mock-payment/" + orderID}
	}
	return ref, nil
}

func (g *fakeGateway) VerifyCallback(payload []byte, signature string) (WebhookEvent, error) {
	if !strings.HasPrefix(signature, "valid") {
		return WebhookEvent{}, ErrInvalidSignature
	}
	return WebhookEvent{}, nil
}
