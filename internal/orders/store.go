package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
)

// Store persists orders. Create must insert the order and decrement every item's variant in one
// transaction, failing with a *StockConflictError (and persisting nothing) when a decrement
// matches no row.
type Store interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) (*Order, error)
	// Delete removes the order and reports the status it had at that moment, read under a lock.
	// Cancelled and refunded orders give every item back to its variant in the same transaction.
	Delete(ctx context.Context, o *Order) (Status, error)
	Customers(ctx context.Context) ([]CustomerSummary, error)
}

type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error)
}

// Cache holds orders by lookup key (id or order number).
type Cache interface {
	Get(ctx context.Context, key string) (*Order, bool)
	Set(ctx context.Context, key string, o *Order)
	Invalidate(ctx context.Context, keys ...string)
}

// EventSink receives order events after the change is committed. Delivery is best effort.
type EventSink interface {
	Emit(ctx context.Context, topic string, env Envelope)
}
