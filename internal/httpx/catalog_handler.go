package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
)

type CatalogStore interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	List(ctx context.Context, f catalog.ListFilter) ([]catalog.Product, int, error)
	Create(ctx context.Context, p *catalog.Product) error
	ReplaceStock(ctx context.Context, id uuid.UUID, entries []catalog.StockEntry) (catalog.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (catalog.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, pt catalog.ProductPatch) (catalog.Product, error)
	GetBySlug(ctx context.Context, slug string) (catalog.Product, error)
	Stats(ctx context.Context) (catalog.Stats, error)

	CreateCategory(ctx context.Context, c *catalog.Category) error
	ListCategories(ctx context.Context, activeOnly bool) ([]catalog.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (catalog.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, pt catalog.CategoryPatch) (catalog.Category, error)
	SetCategoryActive(ctx context.Context, id uuid.UUID, active bool) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type CatalogHandler struct {
	Store CatalogStore
	Resp  Responder
}

func (h *CatalogHandler) Register(r chi.Router, authed func(http.Handler) http.Handler) {
	r.Route("/public", func(r chi.Router) {
		r.Get("/products", h.listPublic)
		r.Get("/products/{slug}", h.productBySlug)
		r.Get("/featured", h.featured)
		r.Get("/stats", h.stats)
		r.Get("/categories", h.listCategoriesPublic)
	})

	r.Group(func(r chi.Router) {
		r.Use(authed)
		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Get("/products/{id}", h.getProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Put("/products/{id}/stock", h.replaceStock)
		r.Put("/products/{id}/toggle-status", h.toggleStatus)
		r.Delete("/products/{id}", h.deleteProduct)
		r.Get("/categories", h.listCategories)
		r.Post("/categories", h.createCategory)
		r.Get("/categories/{id}", h.getCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Put("/categories/{id}/toggle-status", h.toggleCategory)
		r.Delete("/categories/{id}", h.deleteCategory)
	})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Invalid("id", "must be a valid id")
	}
	return id, nil
}

func queryInt(q string, field string, def int) (int, error) {
	if q == "" {
		return def, nil
	}
	n, err := strconv.Atoi(q)
	if err != nil || n < 1 {
		return 0, apperr.Invalid(field, "must be a positive integer")
	}
	return n, nil
}

func productFilter(r *http.Request) (catalog.ListFilter, error) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page", 1)
	if err != nil {
		return catalog.ListFilter{}, err
	}
	limit, err := queryInt(q.Get("limit"), "limit", 12)
	if err != nil {
		return catalog.ListFilter{}, err
	}
	sort := q.Get("sort")
	switch sort {
	case "", "newest", "price-low", "price-high", "name":
	default:
		return catalog.ListFilter{}, apperr.Invalid("sort", "must be one of newest, price-low, price-high, name")
	}
	return catalog.ListFilter{
		Category:   q.Get("category"),
		Search:     strings.TrimSpace(q.Get("search")),
		ActiveOnly: q.Get("active") == "true",
		Featured:   q.Get("featured") == "true",
		OnSale:     q.Get("sale") == "true",
		Sort:       sort,
		Page:       page,
		Limit:      limit,
	}, nil
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request, public bool) {
	f, err := productFilter(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if public {
		f.ActiveOnly = true
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, total, err := h.Store.List(ctx, f)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	limit := min(f.Limit, 50)
	writeJSON(w, http.StatusOK, map[string]any{
		"products":   ps,
		"pagination": orders.NewPagination(f.Page, limit, total),
	})
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) { h.list(w, r, false) }
func (h *CatalogHandler) listPublic(w http.ResponseWriter, r *http.Request)   { h.list(w, r, true) }

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	p, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

type productReq struct {
	Name             string               `json:"name" validate:"required,max=200"`
	Description      string               `json:"description" validate:"max=2000"`
	ShortDescription string               `json:"shortDescription" validate:"max=500"`
	Price            decimal.Decimal      `json:"price"`
	OriginalPrice    decimal.NullDecimal  `json:"originalPrice"`
	Category         string               `json:"category" validate:"required,uuid"`
	Images           []string             `json:"images" validate:"dive,required"`
	SKU              string               `json:"sku" validate:"max=64"`
	Stock            []catalog.StockEntry `json:"stock"`
	IsActive         *bool                `json:"isActive"`
	IsFeatured       bool                 `json:"isFeatured"`
	IsOnSale         bool                 `json:"isOnSale"`
	SortOrder        int                  `json:"sortOrder"`
}

func (req productReq) product() catalog.Product {
	p := catalog.Product{
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Price:            req.Price,
		OriginalPrice:    req.OriginalPrice,
		CategoryID:       uuid.MustParse(req.Category), // sudah lolos validasi uuid
		Images:           req.Images,
		Stock:            req.Stock,
		IsActive:         req.IsActive == nil || *req.IsActive,
		IsFeatured:       req.IsFeatured,
		IsOnSale:         req.IsOnSale,
		SortOrder:        req.SortOrder,
	}
	if sku := strings.ToUpper(strings.TrimSpace(req.SKU)); sku != "" {
		p.SKU = &sku
	}
	return p
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := apperr.CheckStruct(req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	p := req.product()
	if err := h.Store.Create(r.Context(), &p); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Product created successfully", "product": p})
}

type stockReq struct {
	Stock []catalog.StockEntry `json:"stock"`
}

func (h *CatalogHandler) replaceStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var req stockReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	p, err := h.Store.ReplaceStock(r.Context(), id, req.Stock)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *CatalogHandler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	cur, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	p, err := h.Store.SetActive(r.Context(), id, !cur.IsActive)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	state := "deactivated"
	if p.IsActive {
		state = "activated"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product " + state + " successfully", "product": p})
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	h.categories(w, r, r.URL.Query().Get("active") == "true")
}

func (h *CatalogHandler) listCategoriesPublic(w http.ResponseWriter, r *http.Request) {
	h.categories(w, r, true)
}

func (h *CatalogHandler) categories(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	cs, err := h.Store.ListCategories(r.Context(), activeOnly)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cs})
}

type categoryReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"isActive"`
	SortOrder   int    `json:"sortOrder"`
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := apperr.CheckStruct(req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	c := catalog.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
		SortOrder:   req.SortOrder,
	}
	if err := h.Store.CreateCategory(r.Context(), &c); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Category created successfully", "category": c})
}

// optionalPrice tells an absent field apart from an explicit null.
type optionalPrice struct {
	Set   bool
	Value decimal.NullDecimal
}

func (o *optionalPrice) UnmarshalJSON(b []byte) error {
	o.Set = true
	return json.Unmarshal(b, &o.Value)
}

type productPatchReq struct {
	Name             *string               `json:"name" validate:"omitempty,max=200"`
	Description      *string               `json:"description" validate:"omitempty,max=2000"`
	ShortDescription *string               `json:"shortDescription" validate:"omitempty,max=500"`
	Price            *decimal.Decimal      `json:"price"`
	OriginalPrice    optionalPrice         `json:"originalPrice"`
	Category         *string               `json:"category"`
	Images           *[]string             `json:"images"`
	SKU              *string               `json:"sku" validate:"omitempty,max=64"`
	Stock            *[]catalog.StockEntry `json:"stock"`
	IsActive         *bool                 `json:"isActive"`
	IsFeatured       *bool                 `json:"isFeatured"`
	SortOrder        *int                  `json:"sortOrder"`
}

func (req productPatchReq) patch() (catalog.ProductPatch, error) {
	pt := catalog.ProductPatch{
		Name:             req.Name,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Price:            req.Price,
		Images:           req.Images,
		SKU:              req.SKU,
		Stock:            req.Stock,
		IsActive:         req.IsActive,
		IsFeatured:       req.IsFeatured,
		SortOrder:        req.SortOrder,
	}
	if req.OriginalPrice.Set {
		v := req.OriginalPrice.Value
		pt.OriginalPrice = &v
	}
	if req.Category != nil {
		id, err := uuid.Parse(*req.Category)
		if err != nil {
			return catalog.ProductPatch{}, apperr.Invalid("category", "must be a valid id")
		}
		pt.CategoryID = &id
	}
	return pt, nil
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var req productPatchReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := apperr.CheckStruct(req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	pt, err := req.patch()
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	p, err := h.Store.Update(r.Context(), id, pt)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *CatalogHandler) productBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *CatalogHandler) featured(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query().Get("limit"), "limit", 8)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	ps, _, err := h.Store.List(r.Context(), catalog.ListFilter{
		ActiveOnly: true,
		Featured:   true,
		Sort:       "newest",
		Page:       1,
		Limit:      limit,
	})
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *CatalogHandler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.Stats(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": s})
}

func (h *CatalogHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	c, err := h.Store.GetCategory(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": c})
}

type categoryPatchReq struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"isActive"`
	SortOrder   *int    `json:"sortOrder"`
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var req categoryPatchReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := apperr.CheckStruct(req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	c, err := h.Store.UpdateCategory(r.Context(), id, catalog.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": c})
}

func (h *CatalogHandler) toggleCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	cur, err := h.Store.GetCategory(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	c, err := h.Store.SetCategoryActive(r.Context(), id, !cur.IsActive)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	state := "deactivated"
	if c.IsActive {
		state = "activated"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Category " + state + " successfully", "category": c})
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := h.Store.DeleteCategory(r.Context(), id); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}
