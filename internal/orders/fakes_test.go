package orders

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
)

// memCatalog is an in-memory product table with the same conditional decrement semantics as
// catalog.DecrementStock.
type memCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.Product
}

func newMemCatalog(ps ...catalog.Product) *memCatalog {
	c := &memCatalog{products: map[uuid.UUID]catalog.Product{}}
	for _, p := range ps {
		c.products[p.ID] = p
	}
	return c
}

func (c *memCatalog) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[uuid.UUID]catalog.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			p.Stock = slices.Clone(p.Stock)
			out[id] = p
		}
	}
	return out, nil
}

func (c *memCatalog) variantIndex(p catalog.Product, color, size string) int {
	for i, s := range p.Stock {
		if s.Color == color && s.Size == size {
			return i
		}
	}
	return -1
}

func (c *memCatalog) add(id uuid.UUID, color, size string, delta int) bool {
	p, ok := c.products[id]
	if !ok {
		return false
	}
	i := c.variantIndex(p, color, size)
	if i < 0 || p.Stock[i].Quantity+delta < 0 {
		return false
	}
	p.Stock = slices.Clone(p.Stock)
	p.Stock[i].Quantity += delta
	c.products[id] = p
	return true
}

func (c *memCatalog) qty(id uuid.UUID, color, size string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, _ := c.products[id].Variant(color, size)
	return v.Quantity
}

func (c *memCatalog) setQty(id uuid.UUID, color, size string, q int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	i := c.variantIndex(p, color, size)
	p.Stock = slices.Clone(p.Stock)
	p.Stock[i].Quantity = q
	c.products[id] = p
}

// memStore mimics Repo: Create is all-or-nothing, order numbers are unique.
type memStore struct {
	mu     sync.Mutex
	cat    *memCatalog
	orders map[uuid.UUID]*Order

	beforeCreate func()
	beforeDelete func()
	createCalls  int
}

func newMemStore(cat *memCatalog) *memStore {
	return &memStore{cat: cat, orders: map[uuid.UUID]*Order{}}
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

func (s *memStore) Create(_ context.Context, o *Order) error {
	if s.beforeCreate != nil {
		s.beforeCreate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	for _, existing := range s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return ErrDuplicateNumber
		}
	}

	s.cat.mu.Lock()
	defer s.cat.mu.Unlock()
	snapshot := make(map[uuid.UUID]catalog.Product, len(s.cat.products))
	for k, v := range s.cat.products {
		snapshot[k] = v
	}
	for _, it := range o.Items {
		if !s.cat.add(it.ProductID, it.Color, it.Size, -it.Quantity) {
			s.cat.products = snapshot // rollback
			return &StockConflictError{ProductID: it.ProductID.String(), Color: it.Color, Size: it.Size}
		}
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order", id.String())
	}
	return cloneOrder(o), nil
}

func (s *memStore) GetByNumber(_ context.Context, number string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNumber == number {
			return cloneOrder(o), nil
		}
	}
	return nil, apperr.NotFound("order", number)
}

func (s *memStore) List(_ context.Context, f ListFilter) ([]Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !o.CreatedAt.Before(*f.To) {
			continue
		}
		if f.CustomerEmail != "" && !strings.Contains(strings.ToLower(o.Customer.Email), strings.ToLower(f.CustomerEmail)) {
			continue
		}
		all = append(all, *cloneOrder(o))
	}
	sort.Slice(all, func(i, j int) bool {
		if f.SortDesc {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	total := len(all)
	start := min(f.Offset(), total)
	end := min(start+f.Limit, total)
	return all[start:end], total, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, st Status, at time.Time) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order", id.String())
	}
	o.Status = st
	o.UpdatedAt = at
	if st == StatusShipped && o.ShippedAt == nil {
		t := at
		o.ShippedAt = &t
	}
	if st == StatusDelivered && o.DeliveredAt == nil {
		t := at
		o.DeliveredAt = &t
	}
	return cloneOrder(o), nil
}

func (s *memStore) Delete(_ context.Context, o *Order) (Status, error) {
	if s.beforeDelete != nil {
		s.beforeDelete()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID]
	if !ok {
		return "", apperr.NotFound("order", o.ID.String())
	}
	if cur.RestoresStockOnDelete() {
		s.cat.mu.Lock()
		for _, it := range cur.Items {
			s.cat.add(it.ProductID, it.Color, it.Size, it.Quantity)
		}
		s.cat.mu.Unlock()
	}
	delete(s.orders, o.ID)
	return cur.Status, nil
}

func (s *memStore) Customers(_ context.Context) ([]CustomerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*Order
	for _, o := range s.orders {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	byEmail := map[string]*CustomerSummary{}
	var out []CustomerSummary
	for _, o := range all {
		c, ok := byEmail[o.Customer.Email]
		if !ok {
			c = &CustomerSummary{Name: o.Customer.Name, Email: o.Customer.Email, Phone: o.Customer.Phone,
				Address: o.Customer.Address, TotalSpent: decimal.Zero}
			byEmail[o.Customer.Email] = c
		}
		c.TotalOrders++
		if o.Status != StatusCancelled && o.Status != StatusRefunded {
			c.TotalSpent = c.TotalSpent.Add(o.Total)
		}
		if o.CreatedAt.After(c.LastOrderDate) {
			c.LastOrderDate = o.CreatedAt
		}
	}
	for _, c := range byEmail {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastOrderDate.After(out[j].LastOrderDate) })
	return out, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]*Order
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string]*Order{}} }

func (c *memCache) Get(_ context.Context, key string) (*Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.data[key]
	if ok {
		c.hits++
	}
	return o, ok
}

func (c *memCache) Set(_ context.Context, key string, o *Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = o
}

func (c *memCache) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
}

type recordedEvent struct {
	Topic string
	Env   Envelope
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSink) Emit(_ context.Context, topic string, env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic, env})
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Env.EventType)
	}
	return out
}

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}
