package catalog

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
)

// StockEntry is the quantity held for one variant (color, size) of a product.
type StockEntry struct {
	Color    string `json:"color"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type Product struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	Slug             string              `json:"slug"`
	Description      string              `json:"description"`
	ShortDescription string              `json:"shortDescription,omitempty"`
	Price            decimal.Decimal     `json:"price"`
	OriginalPrice    decimal.NullDecimal `json:"originalPrice"`
	CategoryID       uuid.UUID           `json:"category"`
	Images           []string            `json:"images"`
	SKU              *string             `json:"sku,omitempty"`
	Stock            []StockEntry        `json:"stock"`
	IsActive         bool                `json:"isActive"`
	IsFeatured       bool                `json:"isFeatured"`
	IsOnSale         bool                `json:"isOnSale"`
	SortOrder        int                 `json:"sortOrder"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// Variant returns the stock entry matching color and size exactly.
func (p Product) Variant(color, size string) (StockEntry, bool) {
	for _, s := range p.Stock {
		if s.Color == color && s.Size == size {
			return s, true
		}
	}
	return StockEntry{}, false
}

func (p Product) TotalStock() int {
	n := 0
	for _, s := range p.Stock {
		n += s.Quantity
	}
	return n
}

func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and collapses every run of non-alphanumerics into one dash.
func Slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// Validate checks the fields a product cannot be stored without.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Invalid("name", "is required")
	}
	if p.Price.IsNegative() {
		return apperr.Invalid("price", "must not be negative")
	}
	if p.OriginalPrice.Valid && p.OriginalPrice.Decimal.IsNegative() {
		return apperr.Invalid("originalPrice", "must not be negative")
	}
	if p.CategoryID == uuid.Nil {
		return apperr.Invalid("category", "is required")
	}
	return ValidateStock(p.Stock)
}

// ValidateStock rejects negative quantities and duplicate (color, size) pairs.
func ValidateStock(entries []StockEntry) error {
	seen := make(map[[2]string]struct{}, len(entries))
	for i, e := range entries {
		if e.Quantity < 0 {
			return apperr.Invalid("stock", "entry %d: quantity must not be negative", i)
		}
		k := [2]string{e.Color, e.Size}
		if _, dup := seen[k]; dup {
			return apperr.Invalid("stock", "duplicate variant color=%q size=%q", e.Color, e.Size)
		}
		seen[k] = struct{}{}
	}
	return nil
}
