package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backoffice/internal/activity"
	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/auth"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
	"github.com/ariefcatur/go-shop-backoffice/internal/reporting"
)

var testIssuer = auth.Issuer{Secret: []byte("test-secret"), TTL: time.Hour}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := testIssuer.Issue(uuid.New(), "admin@shop.test", auth.RoleAdmin)
	require.NoError(t, err)
	return tok
}

type fakeOrders struct {
	mu sync.Mutex

	order      *orders.Order
	err        error
	created    int
	public     int
	lastFilter orders.ListFilter
	lastKey    string
	lastStatus string
}

func sampleOrder() *orders.Order {
	return &orders.Order{
		ID:          uuid.MustParse("7b0c5b8e-3f0e-4c7b-9a55-0f5f7c1a2d11"),
		OrderNumber: "ORD-123456-789",
		Status:      orders.StatusPending,
		Total:       decimal.RequireFromString("107.99"),
	}
}

func (f *fakeOrders) result() (*orders.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeOrders) Create(_ context.Context, _ orders.CreateRequest) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f.result()
}

func (f *fakeOrders) CreatePublic(_ context.Context, _ orders.CreateRequest) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.public++
	return f.result()
}

func (f *fakeOrders) Get(_ context.Context, key string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey = key
	if f.order == nil || (key != f.order.ID.String() && key != f.order.OrderNumber) {
		return nil, apperr.NotFound("order", key)
	}
	return f.order, nil
}

func (f *fakeOrders) List(_ context.Context, lf orders.ListFilter) (orders.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = lf
	if f.err != nil {
		return orders.Page{}, f.err
	}
	return orders.Page{Orders: []orders.Order{*f.order}, Pagination: orders.NewPagination(lf.Page, lf.Limit, 12)}, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, key, status string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey, f.lastStatus = key, status
	return f.result()
}

func (f *fakeOrders) Delete(_ context.Context, key string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey = key
	return f.result()
}

func (f *fakeOrders) Customers(context.Context) ([]orders.CustomerSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []orders.CustomerSummary{{Name: "Jane", Email: "jane@x.io", TotalOrders: 2, TotalSpent: decimal.NewFromInt(50)}}, nil
}

type fakeActivity struct{ entries []activity.Entry }

func (f fakeActivity) ListByOrder(_ context.Context, orderID uuid.UUID, limit int) ([]activity.Entry, error) {
	var out []activity.Entry
	for _, e := range f.entries {
		if e.OrderID == orderID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type memIdem struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemIdem() *memIdem { return &memIdem{keys: map[string]string{}} }

func (m *memIdem) Claim(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	if !ok {
		m.keys[key] = idemPending
		return "", true, nil
	}
	if v == idemPending {
		return "", false, &apperr.ConflictError{Msg: "in progress"}
	}
	return v, false, nil
}

func (m *memIdem) Complete(_ context.Context, key, orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
}

func (m *memIdem) Release(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
}

type fakeCatalog struct {
	products   map[uuid.UUID]catalog.Product
	categories []catalog.Category
	lastFilter catalog.ListFilter
	createErr  error
}

func newFakeCatalog(ps ...catalog.Product) *fakeCatalog {
	c := &fakeCatalog{products: map[uuid.UUID]catalog.Product{}}
	for _, p := range ps {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) Get(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id.String())
	}
	return p, nil
}

func (c *fakeCatalog) List(_ context.Context, f catalog.ListFilter) ([]catalog.Product, int, error) {
	c.lastFilter = f
	out := []catalog.Product{}
	for _, p := range c.products {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (c *fakeCatalog) Create(_ context.Context, p *catalog.Product) error {
	if c.createErr != nil {
		return c.createErr
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p.ID = uuid.New()
	p.Slug = catalog.Slugify(p.Name)
	c.products[p.ID] = *p
	return nil
}

func (c *fakeCatalog) ReplaceStock(_ context.Context, id uuid.UUID, entries []catalog.StockEntry) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id.String())
	}
	if err := catalog.ValidateStock(entries); err != nil {
		return catalog.Product{}, err
	}
	p.Stock = entries
	c.products[id] = p
	return p, nil
}

func (c *fakeCatalog) SetActive(_ context.Context, id uuid.UUID, active bool) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id.String())
	}
	p.IsActive = active
	c.products[id] = p
	return p, nil
}

func (c *fakeCatalog) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := c.products[id]; !ok {
		return apperr.NotFound("product", id.String())
	}
	delete(c.products, id)
	return nil
}

func (c *fakeCatalog) CreateCategory(_ context.Context, cat *catalog.Category) error {
	cat.ID = uuid.New()
	cat.Slug = catalog.Slugify(cat.Name)
	c.categories = append(c.categories, *cat)
	return nil
}

func (c *fakeCatalog) ListCategories(_ context.Context, activeOnly bool) ([]catalog.Category, error) {
	out := []catalog.Category{}
	for _, cat := range c.categories {
		if activeOnly && !cat.IsActive {
			continue
		}
		out = append(out, cat)
	}
	return out, nil
}

func (c *fakeCatalog) Update(_ context.Context, id uuid.UUID, pt catalog.ProductPatch) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id.String())
	}
	pt.Apply(&p)
	if err := p.Validate(); err != nil {
		return catalog.Product{}, err
	}
	c.products[id] = p
	return p, nil
}

func (c *fakeCatalog) GetBySlug(_ context.Context, slug string) (catalog.Product, error) {
	for _, p := range c.products {
		if p.Slug == slug && p.IsActive {
			return p, nil
		}
	}
	return catalog.Product{}, apperr.NotFound("product", slug)
}

func (c *fakeCatalog) Stats(context.Context) (catalog.Stats, error) {
	var s catalog.Stats
	for _, p := range c.products {
		if p.IsActive {
			s.Products++
		}
	}
	for _, cat := range c.categories {
		if cat.IsActive {
			s.Categories++
		}
	}
	return s, nil
}

func (c *fakeCatalog) categoryIndex(id uuid.UUID) int {
	for i, cat := range c.categories {
		if cat.ID == id {
			return i
		}
	}
	return -1
}

func (c *fakeCatalog) GetCategory(_ context.Context, id uuid.UUID) (catalog.Category, error) {
	i := c.categoryIndex(id)
	if i < 0 {
		return catalog.Category{}, apperr.NotFound("category", id.String())
	}
	return c.categories[i], nil
}

func (c *fakeCatalog) UpdateCategory(_ context.Context, id uuid.UUID, pt catalog.CategoryPatch) (catalog.Category, error) {
	i := c.categoryIndex(id)
	if i < 0 {
		return catalog.Category{}, apperr.NotFound("category", id.String())
	}
	pt.Apply(&c.categories[i])
	return c.categories[i], nil
}

func (c *fakeCatalog) SetCategoryActive(_ context.Context, id uuid.UUID, active bool) (catalog.Category, error) {
	i := c.categoryIndex(id)
	if i < 0 {
		return catalog.Category{}, apperr.NotFound("category", id.String())
	}
	c.categories[i].IsActive = active
	return c.categories[i], nil
}

func (c *fakeCatalog) DeleteCategory(_ context.Context, id uuid.UUID) error {
	i := c.categoryIndex(id)
	if i < 0 {
		return apperr.NotFound("category", id.String())
	}
	n := 0
	for _, p := range c.products {
		if p.CategoryID == id {
			n++
		}
	}
	if n > 0 {
		return apperr.Invalid("category", "cannot delete category, it has %d product(s) associated with it", n)
	}
	c.categories = append(c.categories[:i], c.categories[i+1:]...)
	return nil
}

type fakeReports struct {
	window reporting.Window
	err    error
}

func (f *fakeReports) Overview(context.Context) (reporting.Overview, error) {
	var o reporting.Overview
	o.Overview.TotalProducts = 3
	return o, f.err
}

func (f *fakeReports) Sales(_ context.Context, w reporting.Window) (reporting.Sales, error) {
	f.window = w
	return reporting.Sales{Window: w}, f.err
}

func (f *fakeReports) Products(context.Context) (reporting.Products, error) {
	return reporting.Products{}, f.err
}

func (f *fakeReports) Customers(context.Context) (reporting.Customers, error) {
	return reporting.Customers{}, f.err
}

type testServer struct {
	router  *chi.Mux
	orders  *fakeOrders
	idem    *memIdem
	catalog *fakeCatalog
	reports *fakeReports
}

func newTestServer(t *testing.T, dev bool) *testServer {
	t.Helper()
	rs := Responder{Development: dev}
	s := &testServer{
		orders:  &fakeOrders{order: sampleOrder()},
		idem:    newMemIdem(),
		catalog: newFakeCatalog(),
		reports: &fakeReports{},
	}
	authed := testIssuer.Middleware(rs.Error)
	s.router = NewRouter(rs)
	(&OrdersHandler{Orders: s.orders, Activity: fakeActivity{}, Idem: s.idem, Resp: rs}).Register(s.router, authed)
	(&CatalogHandler{Store: s.catalog, Resp: rs}).Register(s.router, authed)
	(&ReportsHandler{Reports: s.reports, Resp: rs,
		Now: func() time.Time { return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) }}).Register(s.router, authed)
	return s
}

// do sends a request; token may be empty.
func (s *testServer) do(t *testing.T, method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}
