package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
	"github.com/ariefcatur/go-shop-backoffice/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const orderNumberConstraint = "orders_order_number_key"

const orderColumns = `o.id, o.order_number, o.customer_name, o.customer_email, o.customer_phone,
	o.street, o.city, o.state, o.zip_code, o.country,
	o.subtotal, o.tax, o.shipping, o.discount, o.total,
	o.status, o.payment_status, o.payment_method, o.notes, o.tracking_number,
	o.shipped_at, o.delivered_at, o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	c := &o.Customer
	err := row.Scan(&o.ID, &o.OrderNumber, &c.Name, &c.Email, &c.Phone,
		&c.Address.Street, &c.Address.City, &c.Address.State, &c.Address.ZipCode, &c.Address.Country,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Discount, &o.Total,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.Notes, &o.TrackingNumber,
		&o.ShippedAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts the order, its items and every stock decrement in a single transaction.
// Kalau satu decrement tidak match, semuanya di-rollback (order tidak tersimpan).
func (r *Repo) Create(ctx context.Context, o *Order) error {
	return postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		c := o.Customer
		_, err := tx.Exec(ctx, `
			INSERT INTO orders(id, order_number, customer_name, customer_email, customer_phone,
				street, city, state, zip_code, country,
				subtotal, tax, shipping, discount, total,
				status, payment_status, payment_method, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$20)`,
			o.ID, o.OrderNumber, c.Name, c.Email, c.Phone,
			c.Address.Street, c.Address.City, c.Address.State, c.Address.ZipCode, c.Address.Country,
			o.Subtotal, o.Tax, o.Shipping, o.Discount, o.Total,
			o.Status, o.PaymentStatus, o.PaymentMethod, o.Notes, o.CreatedAt)
		if err != nil {
			if isUniqueViolation(err, orderNumberConstraint) {
				return ErrDuplicateNumber
			}
			return fmt.Errorf("repo: insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for i, it := range o.Items {
			batch.Queue(`
				INSERT INTO order_items(order_id, position, product_id, name, quantity, price, color, size, image)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				o.ID, i, it.ProductID, it.Name, it.Quantity, it.Price, it.Color, it.Size, it.Image)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("repo: insert items: %w", err)
		}

		for _, it := range o.Items {
			ok, err := catalog.DecrementStock(ctx, tx, it.ProductID, it.Color, it.Size, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return &StockConflictError{ProductID: it.ProductID.String(), Color: it.Color, Size: it.Size}
			}
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id.String(), id)
}

func (r *Repo) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.order_number = $1`, number, number)
}

func (r *Repo) getOne(ctx context.Context, sql, key string, arg any) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order", key)
	}
	if err != nil {
		return nil, fmt.Errorf("repo: get order: %w", err)
	}
	list := []Order{o}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// loadItems fills Items for every order, with the live product summary when the product still exists.
func (r *Repo) loadItems(ctx context.Context, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[uuid.UUID]int, len(list))
	keys := make([]string, 0, len(list))
	for i := range list {
		idx[list[i].ID] = i
		keys = append(keys, list[i].ID.String())
		list[i].Items = []Item{}
	}

	rows, err := r.DB.Query(ctx, `
		SELECT oi.order_id, oi.product_id, oi.name, oi.quantity, oi.price, oi.color, oi.size, oi.image,
		       p.id, p.name, p.price, p.images
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.order_id, oi.position`, keys)
	if err != nil {
		return fmt.Errorf("repo: load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			it      Item
			pid     *uuid.UUID
			pname   *string
			pprice  decimal.NullDecimal
			pimages []string
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.Price, &it.Color, &it.Size, &it.Image,
			&pid, &pname, &pprice, &pimages); err != nil {
			return fmt.Errorf("repo: scan item: %w", err)
		}
		if pid != nil {
			it.Product = &ProductSummary{ID: *pid, Name: deref(pname), Price: pprice.Decimal, Images: pimages}
			if it.Product.Images == nil {
				it.Product.Images = []string{}
			}
		}
		i := idx[orderID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	conds := []string{"TRUE"}
	args := pgx.NamedArgs{}
	if f.Status != "" {
		conds = append(conds, "o.status = @status")
		args["status"] = string(f.Status)
	}
	if f.From != nil {
		conds = append(conds, "o.created_at >= @from")
		args["from"] = *f.From
	}
	if f.To != nil {
		conds = append(conds, "o.created_at < @to")
		args["to"] = *f.To
	}
	if f.CustomerEmail != "" {
		conds = append(conds, "o.customer_email ILIKE @email")
		args["email"] = "%" + catalog.EscapeLike(f.CustomerEmail) + "%"
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT count(*) FROM orders o`+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo: count orders: %w", err)
	}

	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	args["limit"] = f.Limit
	args["offset"] = f.Offset()
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders o`+where+
		fmt.Sprintf(" ORDER BY %s %s, o.id %s LIMIT @limit OFFSET @offset", f.SortColumn(), dir, dir), args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo: list orders: %w", err)
	}
	defer rows.Close()

	list := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo: scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo: list orders: %w", err)
	}
	rows.Close()

	if err := r.loadItems(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateStatus sets the status. COALESCE keeps the first shipped/delivered timestamp.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) (*Order, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET
			status = $2,
			updated_at = $3,
			shipped_at = CASE WHEN $2 = 'shipped' THEN COALESCE(shipped_at, $3) ELSE shipped_at END,
			delivered_at = CASE WHEN $2 = 'delivered' THEN COALESCE(delivered_at, $3) ELSE delivered_at END
		WHERE id = $1`, id, string(status), at)
	if err != nil {
		return nil, fmt.Errorf("repo: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, apperr.NotFound("order", id.String())
	}
	return r.GetByID(ctx, id)
}

// Delete removes the order and returns the status it had under the row lock. Cancelled and
// refunded orders give their items back to stock in the same transaction.
func (r *Repo) Delete(ctx context.Context, o *Order) (Status, error) {
	var locked Order
	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, o.ID).Scan(&locked.Status)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("order", o.ID.String())
		}
		if err != nil {
			return fmt.Errorf("repo: lock order: %w", err)
		}
		if locked.RestoresStockOnDelete() {
			for _, it := range o.Items {
				ok, err := catalog.RestoreStock(ctx, tx, it.ProductID, it.Color, it.Size, it.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					log.Warn().Stringer("order_id", o.ID).Stringer("product_id", it.ProductID).
						Str("color", it.Color).Str("size", it.Size).Msg("repo: variant gone, stock not restored")
				}
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, o.ID); err != nil {
			return fmt.Errorf("repo: delete order: %w", err)
		}
		return nil
	})
	return locked.Status, err
}

// Customers groups orders by email. Name, phone and address come from the earliest order.
func (r *Repo) Customers(ctx context.Context) ([]CustomerSummary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT customer_email,
		       (array_agg(customer_name  ORDER BY created_at))[1],
		       (array_agg(customer_phone ORDER BY created_at))[1],
		       (array_agg(street   ORDER BY created_at))[1],
		       (array_agg(city     ORDER BY created_at))[1],
		       (array_agg(state    ORDER BY created_at))[1],
		       (array_agg(zip_code ORDER BY created_at))[1],
		       (array_agg(country  ORDER BY created_at))[1],
		       count(*),
		       COALESCE(sum(total) FILTER (WHERE status NOT IN ('cancelled', 'refunded')), 0),
		       max(created_at)
		FROM orders
		GROUP BY customer_email
		ORDER BY max(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("repo: customers: %w", err)
	}
	defer rows.Close()

	out := []CustomerSummary{}
	for rows.Next() {
		var c CustomerSummary
		a := &c.Address
		if err := rows.Scan(&c.Email, &c.Name, &c.Phone, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Country,
			&c.TotalOrders, &c.TotalSpent, &c.LastOrderDate); err != nil {
			return nil, fmt.Errorf("repo: scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraint
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
