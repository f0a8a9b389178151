package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestProductPatch_Apply(t *testing.T) {
	base := Product{
		ID:         uuid.New(),
		Name:       "Aphrodite Summer Dress",
		Slug:       "aphrodite-summer-dress",
		Price:      decimal.RequireFromString("89.99"),
		CategoryID: uuid.New(),
		Stock:      []StockEntry{{Color: "Red", Size: "M", Quantity: 3}},
		IsActive:   true,
	}

	t.Run("empty patch changes nothing", func(t *testing.T) {
		p := base
		ProductPatch{}.Apply(&p)
		assert.Equal(t, base, p)
	})

	t.Run("same name keeps slug", func(t *testing.T) {
		p := base
		p.Slug = "custom-slug"
		ProductPatch{Name: ptr(" Aphrodite Summer Dress ")}.Apply(&p)
		assert.Equal(t, "custom-slug", p.Slug)
	})

	t.Run("rename regenerates slug", func(t *testing.T) {
		p := base
		ProductPatch{Name: ptr("Hera Gown")}.Apply(&p)
		assert.Equal(t, "Hera Gown", p.Name)
		assert.Equal(t, "hera-gown", p.Slug)
	})

	t.Run("original price drives the sale flag", func(t *testing.T) {
		p := base
		ProductPatch{OriginalPrice: &decimal.NullDecimal{Decimal: decimal.RequireFromString("109.99"), Valid: true}}.Apply(&p)
		assert.True(t, p.IsOnSale)

		ProductPatch{OriginalPrice: &decimal.NullDecimal{}}.Apply(&p)
		assert.False(t, p.OriginalPrice.Valid)
		assert.False(t, p.IsOnSale)

		ProductPatch{OriginalPrice: &decimal.NullDecimal{Decimal: decimal.RequireFromString("50"), Valid: true}}.Apply(&p)
		assert.False(t, p.IsOnSale, "original below price is not a sale")
	})

	t.Run("blank sku clears it", func(t *testing.T) {
		p := base
		ProductPatch{SKU: ptr(" aph-1 ")}.Apply(&p)
		assert.Equal(t, "APH-1", *p.SKU)
		ProductPatch{SKU: ptr("  ")}.Apply(&p)
		assert.Nil(t, p.SKU)
	})

	t.Run("stock replaced wholesale", func(t *testing.T) {
		p := base
		ProductPatch{Stock: ptr([]StockEntry{{Color: "Blue", Size: "S", Quantity: 1}})}.Apply(&p)
		assert.Equal(t, []StockEntry{{Color: "Blue", Size: "S", Quantity: 1}}, p.Stock)
	})
}

func TestCategoryPatch_Apply(t *testing.T) {
	c := Category{Name: "Shoes", Slug: "shoes", IsActive: true}
	CategoryPatch{Name: ptr("Summer Shoes"), IsActive: ptr(false), SortOrder: ptr(2)}.Apply(&c)
	assert.Equal(t, Category{Name: "Summer Shoes", Slug: "summer-shoes", SortOrder: 2}, c)
}
