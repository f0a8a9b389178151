package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `p.id, p.name, p.slug, p.description, p.short_description, p.price, p.original_price,
	p.category_id, p.images, p.sku, p.is_active, p.is_featured, p.is_on_sale, p.sort_order, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription, &p.Price, &p.OriginalPrice,
		&p.CategoryID, &p.Images, &p.SKU, &p.IsActive, &p.IsFeatured, &p.IsOnSale, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// FindByIDs loads the products and their stock in two round trips. Unknown ids are simply absent.
func (r *Repo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	out := make(map[uuid.UUID]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = ANY($1::uuid[])`, keys)
	if err != nil {
		return nil, fmt.Errorf("catalog: find products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: find products: %w", err)
	}

	if err := r.attachStock(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) attachStock(ctx context.Context, products map[uuid.UUID]Product) error {
	if len(products) == 0 {
		return nil
	}
	keys := make([]string, 0, len(products))
	for id := range products {
		keys = append(keys, id.String())
	}
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, color, size, quantity
		FROM product_stock
		WHERE product_id = ANY($1::uuid[])
		ORDER BY product_id, position, color, size`, keys)
	if err != nil {
		return fmt.Errorf("catalog: load stock: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var e StockEntry
		if err := rows.Scan(&id, &e.Color, &e.Size, &e.Quantity); err != nil {
			return fmt.Errorf("catalog: scan stock: %w", err)
		}
		p := products[id]
		p.Stock = append(p.Stock, e)
		products[id] = p
	}
	return rows.Err()
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	m, err := r.FindByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return Product{}, err
	}
	p, ok := m[id]
	if !ok {
		return Product{}, apperr.NotFound("product", id.String())
	}
	return p, nil
}

type ListFilter struct {
	Category   string // id atau slug
	Search     string
	ActiveOnly bool
	Featured   bool
	OnSale     bool
	Sort       string // newest | price-low | price-high | name
	Page       int
	Limit      int
}

const (
	maxProductLimit = 50
	maxProductPage  = math.MaxInt32 / maxProductLimit
)

func (f *ListFilter) normalize() {
	f.Page = min(max(f.Page, 1), maxProductPage)
	if f.Limit < 1 {
		f.Limit = 12
	}
	if f.Limit > maxProductLimit {
		f.Limit = maxProductLimit
	}
}

func (f ListFilter) orderBy() string {
	switch f.Sort {
	case "price-low":
		return "p.price ASC, p.created_at DESC"
	case "price-high":
		return "p.price DESC, p.created_at DESC"
	case "name":
		return "p.name ASC"
	case "newest":
		return "p.created_at DESC"
	default:
		return "p.sort_order ASC, p.created_at DESC"
	}
}

// List returns one page of products plus the total count for the filter.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Product, int, error) {
	f.normalize()

	conds := []string{"TRUE"}
	args := pgx.NamedArgs{}
	if f.ActiveOnly {
		conds = append(conds, "p.is_active")
	}
	if f.Featured {
		conds = append(conds, "p.is_featured")
	}
	if f.OnSale {
		conds = append(conds, "p.is_on_sale")
	}
	if f.Category != "" {
		if id, err := uuid.Parse(f.Category); err == nil {
			conds = append(conds, "p.category_id = @category_id")
			args["category_id"] = id.String()
		} else {
			conds = append(conds, "c.slug = @category_slug")
			args["category_slug"] = f.Category
		}
	}
	if f.Search != "" {
		conds = append(conds, "(p.name ILIKE @search OR p.sku ILIKE @search)")
		args["search"] = "%" + EscapeLike(f.Search) + "%"
	}
	where := " WHERE " + strings.Join(conds, " AND ")
	from := " FROM products p JOIN categories c ON c.id = p.category_id"

	var total int
	if err := r.DB.QueryRow(ctx, "SELECT count(*)"+from+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}

	args["limit"] = f.Limit
	args["offset"] = (f.Page - 1) * f.Limit
	rows, err := r.DB.Query(ctx, "SELECT "+productColumns+from+where+
		" ORDER BY "+f.orderBy()+" LIMIT @limit OFFSET @offset", args)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var list []Product
	byID := map[uuid.UUID]Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("catalog: scan product: %w", err)
		}
		list = append(list, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	if err := r.attachStock(ctx, byID); err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].Stock = byID[list[i].ID].Stock
	}
	return list, total, nil
}

// Create inserts the product and its stock entries in one transaction.
func (r *Repo) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	p.CreatedAt, p.UpdatedAt = now, now

	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO products(id, name, slug, description, short_description, price, original_price,
				category_id, images, sku, is_active, is_featured, is_on_sale, sort_order, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)`,
			p.ID, p.Name, p.Slug, p.Description, p.ShortDescription, p.Price, p.OriginalPrice,
			p.CategoryID, p.Images, p.SKU, p.IsActive, p.IsFeatured, p.IsOnSale, p.SortOrder, now)
		if err != nil {
			return err
		}
		return insertStock(ctx, tx, p.ID, p.Stock)
	})
	return mapWriteErr(err, "product")
}

func insertStock(ctx context.Context, q postgres.Querier, productID uuid.UUID, entries []StockEntry) error {
	for i, e := range entries {
		if _, err := q.Exec(ctx, `
			INSERT INTO product_stock(product_id, color, size, quantity, position)
			VALUES ($1,$2,$3,$4,$5)`, productID, e.Color, e.Size, e.Quantity, i); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceStock swaps the full variant list of a product.
func (r *Repo) ReplaceStock(ctx context.Context, id uuid.UUID, entries []StockEntry) (Product, error) {
	if err := ValidateStock(entries); err != nil {
		return Product{}, err
	}
	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `UPDATE products SET updated_at = now() WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return apperr.NotFound("product", id.String())
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_stock WHERE product_id = $1`, id); err != nil {
			return err
		}
		return insertStock(ctx, tx, id, entries)
	})
	if err != nil {
		return Product{}, mapWriteErr(err, "stock")
	}
	return r.Get(ctx, id)
}

func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, active bool) (Product, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: set active: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return Product{}, apperr.NotFound("product", id.String())
	}
	return r.Get(ctx, id)
}

// Delete removes the product. Orders keep their snapshot; order items only hold a weak reference.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product", id.String())
	}
	return nil
}

// GetBySlug returns an active product by its slug, for the storefront.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	p, err := getProduct(ctx, r.DB, "p.slug = $1 AND p.is_active", slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product", slug)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product by slug: %w", err)
	}
	return p, nil
}

func getProduct(ctx context.Context, q postgres.Querier, cond string, arg any) (Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE `+cond, arg))
	if err != nil {
		return Product{}, err
	}
	p.Stock, err = loadStock(ctx, q, p.ID)
	return p, err
}

func loadStock(ctx context.Context, q postgres.Querier, id uuid.UUID) ([]StockEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT color, size, quantity FROM product_stock
		WHERE product_id = $1
		ORDER BY position, color, size`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: load stock: %w", err)
	}
	defer rows.Close()
	out := []StockEntry{}
	for rows.Next() {
		var e StockEntry
		if err := rows.Scan(&e.Color, &e.Size, &e.Quantity); err != nil {
			return nil, fmt.Errorf("catalog: scan stock: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update applies a partial update under a row lock. When the patch carries stock, the whole
// variant list is replaced.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, pt ProductPatch) (Product, error) {
	var out Product
	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		p, err := getProduct(ctx, tx, "p.id = $1 FOR UPDATE", id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("product", id.String())
		}
		if err != nil {
			return err
		}
		pt.Apply(&p)
		if err := p.Validate(); err != nil {
			return err
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		p.UpdatedAt = time.Now().UTC()

		_, err = tx.Exec(ctx, `
			UPDATE products SET
				name = $2, slug = $3, description = $4, short_description = $5, price = $6,
				original_price = $7, category_id = $8, images = $9, sku = $10, is_active = $11,
				is_featured = $12, is_on_sale = $13, sort_order = $14, updated_at = $15
			WHERE id = $1`,
			p.ID, p.Name, p.Slug, p.Description, p.ShortDescription, p.Price,
			p.OriginalPrice, p.CategoryID, p.Images, p.SKU, p.IsActive,
			p.IsFeatured, p.IsOnSale, p.SortOrder, p.UpdatedAt)
		if err != nil {
			return err
		}
		if pt.Stock != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM product_stock WHERE product_id = $1`, id); err != nil {
				return err
			}
			if err := insertStock(ctx, tx, id, p.Stock); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return Product{}, mapWriteErr(err, "product")
	}
	return out, nil
}

// Stats counts active products and active categories.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.DB.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM products WHERE is_active),
		       (SELECT count(*) FROM categories WHERE is_active)`).Scan(&s.Products, &s.Categories)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog: stats: %w", err)
	}
	return s, nil
}

func (r *Repo) CreateCategory(ctx context.Context, c *Category) error {
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO categories(id, name, slug, description, is_active, sort_order, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`,
		c.ID, c.Name, c.Slug, c.Description, c.IsActive, c.SortOrder, now)
	return mapWriteErr(err, "category")
}

func (r *Repo) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE is_active OR NOT $1
		ORDER BY sort_order, name`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const categoryColumns = `id, name, slug, description, is_active, sort_order, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repo) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	c, err := scanCategory(r.DB.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, apperr.NotFound("category", id.String())
	}
	if err != nil {
		return Category{}, fmt.Errorf("catalog: get category: %w", err)
	}
	return c, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, id uuid.UUID, pt CategoryPatch) (Category, error) {
	var out Category
	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		c, err := scanCategory(tx.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("category", id.String())
		}
		if err != nil {
			return err
		}
		pt.Apply(&c)
		if c.Name == "" {
			return apperr.Invalid("name", "is required")
		}
		c.UpdatedAt = time.Now().UTC()
		_, err = tx.Exec(ctx, `
			UPDATE categories SET name = $2, slug = $3, description = $4, is_active = $5, sort_order = $6, updated_at = $7
			WHERE id = $1`, c.ID, c.Name, c.Slug, c.Description, c.IsActive, c.SortOrder, c.UpdatedAt)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Category{}, mapWriteErr(err, "category")
	}
	return out, nil
}

func (r *Repo) SetCategoryActive(ctx context.Context, id uuid.UUID, active bool) (Category, error) {
	c, err := scanCategory(r.DB.QueryRow(ctx, `
		UPDATE categories SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+categoryColumns, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, apperr.NotFound("category", id.String())
	}
	if err != nil {
		return Category{}, fmt.Errorf("catalog: set category active: %w", err)
	}
	return c, nil
}

// DeleteCategory refuses to remove a category that still has products.
func (r *Repo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		var found bool
		if err := tx.QueryRow(ctx, `SELECT true FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&found); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("category", id.String())
			}
			return fmt.Errorf("catalog: lock category: %w", err)
		}
		var n int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM products WHERE category_id = $1`, id).Scan(&n); err != nil {
			return fmt.Errorf("catalog: count category products: %w", err)
		}
		if n > 0 {
			return apperr.Invalid("category", "cannot delete category, it has %d product(s) associated with it", n)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			return fmt.Errorf("catalog: delete category: %w", err)
		}
		return nil
	})
}

// mapWriteErr turns constraint violations into domain errors.
func mapWriteErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return &apperr.ConflictError{Msg: fmt.Sprintf("%s already exists (%s)", what, pgErr.ConstraintName)}
		case pgerrcode.ForeignKeyViolation:
			return apperr.NotFound("category", "")
		case pgerrcode.CheckViolation:
			return apperr.Invalid(what, "violates %s", pgErr.ConstraintName)
		}
	}
	var ve *apperr.ValidationError
	var nf *apperr.NotFoundError
	if errors.As(err, &ve) || errors.As(err, &nf) {
		return err
	}
	return fmt.Errorf("catalog: write %s: %w", what, err)
}

// EscapeLike escapes LIKE metacharacters so user input matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
