package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
)

const maxNumberAttempts = 3

type Service struct {
	Store   Store
	Catalog ProductFinder
	Cache   Cache     // optional
	Events  EventSink // optional
	Source  string
	// Strict enables the lifecycle table; otherwise any status can follow any other.
	Strict bool

	Now       func() time.Time
	NewNumber func(time.Time) string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newNumber(t time.Time) string {
	if s.NewNumber != nil {
		return s.NewNumber(t)
	}
	return NewOrderNumber(t)
}

// Create places an order from the back office. Prices always come from the catalog.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	return s.create(ctx, req, false)
}

// CreatePublic places a storefront order. Same workflow, but every client price must equal the
// stored price.
func (s *Service) CreatePublic(ctx context.Context, req CreateRequest) (*Order, error) {
	return s.create(ctx, req, true)
}

func (s *Service) create(ctx context.Context, req CreateRequest, public bool) (*Order, error) {
	if err := req.validate(public); err != nil {
		return nil, err
	}

	products, err := s.Catalog.FindByIDs(ctx, req.productIDs())
	if err != nil {
		return nil, fmt.Errorf("service: load products: %w", err)
	}

	items, err := priceItems(req.Items, products, public)
	if err != nil {
		return nil, err
	}

	now := s.now()
	totals := ComputeTotals(items)
	o := &Order{
		ID:            uuid.New(),
		Customer:      req.Customer.snapshot(),
		Items:         items,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Shipping:      totals.Shipping,
		Discount:      totals.Discount,
		Total:         totals.Total,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		PaymentMethod: req.paymentMethod(public),
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for attempt := 1; ; attempt++ {
		o.OrderNumber = s.newNumber(now)
		err = s.Store.Create(ctx, o)
		if errors.Is(err, ErrDuplicateNumber) && attempt < maxNumberAttempts {
			log.Debug().Str("order_number", o.OrderNumber).Int("attempt", attempt).Msg("service: order number taken, regenerating")
			continue
		}
		break
	}
	if err != nil {
		var sc *StockConflictError
		if errors.As(err, &sc) {
			log.Warn().Err(err).Str("product_id", sc.ProductID).Str("color", sc.Color).Str("size", sc.Size).
				Msg("service: stock decrement lost a race, order rolled back")
			return nil, err
		}
		return nil, fmt.Errorf("service: create order: %w", err)
	}

	attachSummaries(o, products)
	log.Info().Stringer("order_id", o.ID).Str("order_number", o.OrderNumber).
		Str("total", o.Total.StringFixed(2)).Bool("public", public).Msg("service: order created")

	s.emit(ctx, TopicOrderCreated, EventOrderCreated, o, OrderCreatedPayload{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		CustomerEmail: o.Customer.Email,
		Items:         itemQty(o.Items),
		Total:         o.Total,
		Status:        string(o.Status),
	})
	return o, nil
}

type variantKey struct {
	product     uuid.UUID
	color, size string
}

// priceItems checks every item against the catalog and snapshots name, price and image.
// Several lines for the same variant are checked against its combined quantity.
func priceItems(in []ItemInput, products map[uuid.UUID]catalog.Product, public bool) ([]Item, error) {
	taken := make(map[variantKey]int, len(in))
	items := make([]Item, 0, len(in))
	for _, it := range in {
		id := uuid.MustParse(it.ProductID)
		p, ok := products[id]
		if !ok {
			return nil, apperr.NotFound("product", it.ProductID)
		}
		if public && !it.Price.Equal(p.Price) {
			return nil, &PriceMismatchError{Product: p.Name}
		}

		k := variantKey{id, it.Color, it.Size}
		v, found := p.Variant(it.Color, it.Size)
		available := 0
		if found {
			available = v.Quantity - taken[k]
		}
		if !found || available < it.Quantity {
			return nil, &InsufficientStockError{Product: p.Name, Color: it.Color, Size: it.Size, Available: max(available, 0)}
		}
		taken[k] += it.Quantity

		items = append(items, Item{
			ProductID: id,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Price:     p.Price,
			Color:     it.Color,
			Size:      it.Size,
			Image:     p.PrimaryImage(),
		})
	}
	return items, nil
}

func attachSummaries(o *Order, products map[uuid.UUID]catalog.Product) {
	for i := range o.Items {
		if p, ok := products[o.Items[i].ProductID]; ok {
			o.Items[i].Product = &ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, Images: p.Images}
		}
	}
}

// Get looks an order up by id or by order number. Inputs that parse as an id are tried as an id
// first and fall back to the order number. Orders are cached only under their canonical id and
// their order number, so every spelling of an id shares one entry.
func (s *Service) Get(ctx context.Context, key string) (*Order, error) {
	if s.Cache != nil {
		if o, ok := s.Cache.Get(ctx, cacheKey(key)); ok {
			return o, nil
		}
	}
	o, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, o.ID.String(), o)
		s.Cache.Set(ctx, o.OrderNumber, o)
	}
	return o, nil
}

func cacheKey(key string) string {
	if id, err := uuid.Parse(key); err == nil {
		return id.String()
	}
	return key
}

func (s *Service) lookup(ctx context.Context, key string) (*Order, error) {
	if id, err := uuid.Parse(key); err == nil {
		o, err := s.Store.GetByID(ctx, id)
		if err == nil {
			return o, nil
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("service: get order: %w", err)
		}
	}
	o, err := s.Store.GetByNumber(ctx, key)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("order", key)
		}
		return nil, fmt.Errorf("service: get order: %w", err)
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) (Page, error) {
	list, total, err := s.Store.List(ctx, f)
	if err != nil {
		return Page{}, fmt.Errorf("service: list orders: %w", err)
	}
	if list == nil {
		list = []Order{}
	}
	return Page{Orders: list, Pagination: NewPagination(f.Page, f.Limit, total)}, nil
}

// UpdateStatus moves the order to raw. shippedAt and deliveredAt are stamped on the first
// transition into that status only.
func (s *Service) UpdateStatus(ctx context.Context, key, raw string) (*Order, error) {
	st, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	cur, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.Strict && !CanTransition(cur.Status, st) {
		return nil, &IllegalTransitionError{From: cur.Status, To: st}
	}

	o, err := s.Store.UpdateStatus(ctx, cur.ID, st, s.now())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service: update status: %w", err)
	}
	s.invalidate(ctx, cur)

	log.Info().Stringer("order_id", o.ID).Str("from", string(cur.Status)).Str("to", string(st)).Msg("service: order status changed")
	s.emit(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, o, OrderStatusChangedPayload{
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		From:        string(cur.Status),
		To:          string(st),
	})
	return o, nil
}

// Delete removes an order. Cancelled and refunded orders give their items back to stock in
// the same transaction.
func (s *Service) Delete(ctx context.Context, key string) (*Order, error) {
	o, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	st, err := s.Store.Delete(ctx, o)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service: delete order: %w", err)
	}
	o.Status = st
	restore := o.RestoresStockOnDelete()
	s.invalidate(ctx, o)

	log.Info().Stringer("order_id", o.ID).Str("status", string(o.Status)).Bool("stock_restored", restore).Msg("service: order deleted")
	s.emit(ctx, TopicOrderDeleted, EventOrderDeleted, o, OrderDeletedPayload{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		StockRestored: restore,
		Items:         itemQty(o.Items),
	})
	return o, nil
}

// Customers aggregates all orders per customer email. Always computed fresh.
func (s *Service) Customers(ctx context.Context) ([]CustomerSummary, error) {
	out, err := s.Store.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: customers: %w", err)
	}
	if out == nil {
		out = []CustomerSummary{}
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, o *Order) {
	if s.Cache == nil {
		return
	}
	s.Cache.Invalidate(ctx, o.ID.String(), o.OrderNumber)
}

func (s *Service) emit(ctx context.Context, topic, eventType string, o *Order, payload any) {
	if s.Events == nil {
		return
	}
	env, err := NewEnvelope(eventType, s.Source, o.ID.String(), middleware.GetReqID(ctx), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("service: build event")
		return
	}
	s.Events.Emit(ctx, topic, env)
}

func itemQty(items []Item) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQty{ProductID: it.ProductID.String(), Color: it.Color, Size: it.Size, Qty: it.Quantity})
	}
	return out
}
