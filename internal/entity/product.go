package domain

// Product carries the authoritative stock counter. Stock is mutated by admin
// edits and by the finalize path on confirmed payment; both must go through
// a conditional decrement, never load-then-store.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	Currency   string
	Stock      int
}
