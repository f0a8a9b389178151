package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/postgres/pgtest"
)

func seedCatalog(t *testing.T) (*Repo, Category, Product) {
	t.Helper()
	r := &Repo{DB: pgtest.Open(t)}
	ctx := context.Background()

	c := Category{Name: "Shoes", IsActive: true}
	require.NoError(t, r.CreateCategory(ctx, &c))
	p := Product{
		Name:       "Trail Boots",
		Price:      decimal.RequireFromString("80.00"),
		CategoryID: c.ID,
		IsActive:   true,
		Stock:      []StockEntry{{Color: "brown", Size: "42", Quantity: 3}},
	}
	require.NoError(t, r.Create(ctx, &p))
	return r, c, p
}

func TestDecrementStock_OnlyWhenEnoughLeft(t *testing.T) {
	r, _, p := seedCatalog(t)
	ctx := context.Background()

	ok, err := DecrementStock(ctx, r.DB, p.ID, "brown", "42", 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = DecrementStock(ctx, r.DB, p.ID, "black", "42", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = DecrementStock(ctx, r.DB, p.ID, "brown", "42", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalStock())

	ok, err = RestoreStock(ctx, r.DB, p.ID, "brown", "42", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalStock())
}

func TestRepoUpdate_PartialAndStockReplace(t *testing.T) {
	r, _, p := seedCatalog(t)
	ctx := context.Background()

	name := "Trail Boots Pro"
	orig := decimal.NewNullDecimal(decimal.RequireFromString("99.00"))
	stock := []StockEntry{{Color: "black", Size: "43", Quantity: 7}}
	got, err := r.Update(ctx, p.ID, ProductPatch{Name: &name, OriginalPrice: &orig, Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, "trail-boots-pro", got.Slug)
	assert.True(t, got.IsOnSale)

	reread, err := r.GetBySlug(ctx, "trail-boots-pro")
	require.NoError(t, err)
	assert.Equal(t, p.ID, reread.ID)
	assert.True(t, reread.Price.Equal(p.Price))
	assert.Equal(t, stock, reread.Stock)

	_, err = r.GetBySlug(ctx, p.Slug)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRepoUpdate_Errors(t *testing.T) {
	r, _, p := seedCatalog(t)
	ctx := context.Background()

	_, err := r.Update(ctx, uuid.New(), ProductPatch{})
	assert.True(t, apperr.IsNotFound(err))

	neg := decimal.RequireFromString("-1")
	_, err = r.Update(ctx, p.ID, ProductPatch{Price: &neg})
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)

	other := Product{Name: "Rain Boots", Price: decimal.RequireFromString("40"), CategoryID: p.CategoryID}
	require.NoError(t, r.Create(ctx, &other))
	taken := "Trail Boots"
	_, err = r.Update(ctx, other.ID, ProductPatch{Name: &taken})
	var ce *apperr.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestRepoDeleteCategory_RefusesWhileProductsRemain(t *testing.T) {
	r, c, p := seedCatalog(t)
	ctx := context.Background()

	err := r.DeleteCategory(ctx, c.ID)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "1 product(s)")

	require.NoError(t, r.Delete(ctx, p.ID))
	require.NoError(t, r.DeleteCategory(ctx, c.ID))
	_, err = r.GetCategory(ctx, c.ID)
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(r.DeleteCategory(ctx, c.ID)))
}

func TestRepoCategoryToggleAndStats(t *testing.T) {
	r, c, _ := seedCatalog(t)
	ctx := context.Background()

	s, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Products: 1, Categories: 1}, s)

	got, err := r.SetCategoryActive(ctx, c.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	s, err = r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Categories)

	name := "Footwear"
	got, err = r.UpdateCategory(ctx, c.ID, CategoryPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "footwear", got.Slug)
	assert.False(t, got.IsActive)
}
