package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductPatch is a partial product update; nil fields stay as they are.
// OriginalPrice set to a null value clears it.
type ProductPatch struct {
	Name             *string
	Description      *string
	ShortDescription *string
	Price            *decimal.Decimal
	OriginalPrice    *decimal.NullDecimal
	CategoryID       *uuid.UUID
	Images           *[]string
	SKU              *string
	Stock            *[]StockEntry
	IsActive         *bool
	IsFeatured       *bool
	SortOrder        *int
}

// Apply writes the patch onto p. A new name gets a new slug, and touching originalPrice
// recomputes the sale flag.
func (pt ProductPatch) Apply(p *Product) {
	if pt.Name != nil {
		name := strings.TrimSpace(*pt.Name)
		if name != p.Name {
			p.Name = name
			p.Slug = Slugify(name)
		}
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.ShortDescription != nil {
		p.ShortDescription = *pt.ShortDescription
	}
	if pt.Price != nil {
		p.Price = *pt.Price
	}
	if pt.CategoryID != nil {
		p.CategoryID = *pt.CategoryID
	}
	if pt.Images != nil {
		p.Images = *pt.Images
	}
	if pt.SKU != nil {
		if sku := strings.ToUpper(strings.TrimSpace(*pt.SKU)); sku != "" {
			p.SKU = &sku
		} else {
			p.SKU = nil
		}
	}
	if pt.Stock != nil {
		p.Stock = *pt.Stock
	}
	if pt.IsActive != nil {
		p.IsActive = *pt.IsActive
	}
	if pt.IsFeatured != nil {
		p.IsFeatured = *pt.IsFeatured
	}
	if pt.SortOrder != nil {
		p.SortOrder = *pt.SortOrder
	}
	if pt.OriginalPrice != nil {
		p.OriginalPrice = *pt.OriginalPrice
		p.IsOnSale = p.OriginalPrice.Valid && p.Price.LessThan(p.OriginalPrice.Decimal)
	}
}

type CategoryPatch struct {
	Name        *string
	Description *string
	IsActive    *bool
	SortOrder   *int
}

func (pt CategoryPatch) Apply(c *Category) {
	if pt.Name != nil {
		name := strings.TrimSpace(*pt.Name)
		if name != c.Name {
			c.Name = name
			c.Slug = Slugify(name)
		}
	}
	if pt.Description != nil {
		c.Description = *pt.Description
	}
	if pt.IsActive != nil {
		c.IsActive = *pt.IsActive
	}
	if pt.SortOrder != nil {
		c.SortOrder = *pt.SortOrder
	}
}

// Stats are the storefront counters.
type Stats struct {
	Products   int `json:"products"`
	Categories int `json:"categories"`
}
