package seed

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
)

type memStore struct {
	categories []catalog.Category
	products   map[string]catalog.Product // by sku
}

func (m *memStore) ListCategories(context.Context, bool) ([]catalog.Category, error) {
	return m.categories, nil
}

func (m *memStore) CreateCategory(_ context.Context, c *catalog.Category) error {
	c.ID = uuid.New()
	m.categories = append(m.categories, *c)
	return nil
}

func (m *memStore) Create(_ context.Context, p *catalog.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, dup := m.products[*p.SKU]; dup {
		return &apperr.ConflictError{Msg: "product with this slug or sku already exists"}
	}
	m.products[*p.SKU] = *p
	return nil
}

func TestSpread(t *testing.T) {
	st := Spread(25, []string{"Red", "Blue", "Black"}, []string{"S", "M", "L", "XL"})
	require.Len(t, st, 12)
	total := 0
	for _, e := range st {
		total += e.Quantity
	}
	assert.Equal(t, 25, total)
	assert.Equal(t, 3, st[0].Quantity)
	assert.Equal(t, 2, st[11].Quantity)
	require.NoError(t, catalog.ValidateStock(st))

	assert.Nil(t, Spread(10, nil, []string{"M"}))
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := &memStore{products: map[string]catalog.Product{}}

	res, err := Run(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, Result{Categories: 3, Products: 3}, res)

	dress := st.products["APH-DRESS-001"]
	assert.Equal(t, "89.99", dress.Price.StringFixed(2))
	assert.True(t, dress.OriginalPrice.Valid)
	assert.Equal(t, 25, dress.TotalStock())
	v, ok := dress.Variant("Red", "M")
	require.True(t, ok)
	assert.Positive(t, v.Quantity)

	res, err = Run(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Len(t, st.categories, 3)
}
