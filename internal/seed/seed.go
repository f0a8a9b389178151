// Package seed loads the demo catalog used by local environments.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
)

type Store interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, c *catalog.Category) error
	Create(ctx context.Context, p *catalog.Product) error
}

type product struct {
	name, short, desc, sku string
	price, original        string
	category               string // slug
	total                  int
	colors, sizes          []string
	featured, onSale       bool
}

var categories = []catalog.Category{
	{Name: "Clothing", Slug: "clothing", Description: "Fashion clothing collection", IsActive: true, SortOrder: 1},
	{Name: "Shoes", Slug: "shoes", Description: "Footwear collection", IsActive: true, SortOrder: 2},
	{Name: "Accessories", Slug: "accessories", Description: "Fashion accessories", IsActive: true, SortOrder: 3},
}

var products = []product{
	{
		name: "Aphrodite Summer Dress", short: "Elegant summer dress", sku: "APH-DRESS-001",
		desc:  "Elegant summer dress perfect for any occasion. Made from high-quality fabric with excellent craftsmanship.",
		price: "89.99", original: "109.99", category: "clothing", total: 25,
		colors: []string{"Red", "Blue", "Black"}, sizes: []string{"S", "M", "L", "XL"},
		featured: true, onSale: true,
	},
	{
		name: "Classic Sneakers", short: "Comfortable classic sneakers", sku: "APH-SHOES-001",
		desc:  "Comfortable and stylish sneakers for everyday wear. Premium materials and modern design.",
		price: "79.99", category: "shoes", total: 40,
		colors: []string{"White", "Black"}, sizes: []string{"37", "38", "39", "40", "41", "42"},
		featured: true,
	},
	{
		name: "Designer Handbag", short: "Luxury designer handbag", sku: "APH-BAG-001",
		desc:  "Luxury designer handbag crafted from premium leather. Perfect accessory for any outfit.",
		price: "199.99", category: "accessories", total: 15,
		colors: []string{"Brown", "Black"}, sizes: []string{"One Size"},
	},
}

// Spread splits total across every color/size pair; the first variants take the remainder.
func Spread(total int, colors, sizes []string) []catalog.StockEntry {
	n := len(colors) * len(sizes)
	if n == 0 {
		return nil
	}
	out := make([]catalog.StockEntry, 0, n)
	each, rest := total/n, total%n
	for _, c := range colors {
		for _, s := range sizes {
			q := each
			if rest > 0 {
				q++
				rest--
			}
			out = append(out, catalog.StockEntry{Color: c, Size: s, Quantity: q})
		}
	}
	return out
}

type Result struct {
	Categories int
	Products   int
}

// Run inserts whatever part of the demo catalog is missing. Safe to run repeatedly.
func Run(ctx context.Context, store Store) (Result, error) {
	var res Result
	existing, err := store.ListCategories(ctx, false)
	if err != nil {
		return res, err
	}
	bySlug := make(map[string]uuid.UUID, len(existing))
	for _, c := range existing {
		bySlug[c.Slug] = c.ID
	}

	for _, c := range categories {
		if _, ok := bySlug[c.Slug]; ok {
			continue
		}
		if err := store.CreateCategory(ctx, &c); err != nil {
			return res, fmt.Errorf("seed: category %s: %w", c.Slug, err)
		}
		bySlug[c.Slug] = c.ID
		res.Categories++
	}

	for _, sp := range products {
		sku := sp.sku
		p := catalog.Product{
			Name:             sp.name,
			Description:      sp.desc,
			ShortDescription: sp.short,
			Price:            decimal.RequireFromString(sp.price),
			CategoryID:       bySlug[sp.category],
			Images:           []string{},
			SKU:              &sku,
			Stock:            Spread(sp.total, sp.colors, sp.sizes),
			IsActive:         true,
			IsFeatured:       sp.featured,
			IsOnSale:         sp.onSale,
		}
		if sp.original != "" {
			p.OriginalPrice = decimal.NewNullDecimal(decimal.RequireFromString(sp.original))
		}
		err := store.Create(ctx, &p)
		var ce *apperr.ConflictError
		if errors.As(err, &ce) {
			log.Debug().Str("sku", sku).Msg("seed: product exists, skipped")
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed: product %s: %w", sku, err)
		}
		res.Products++
	}
	return res, nil
}
