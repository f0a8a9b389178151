package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-shop-backoffice/internal/postgres"
)

// revenue never counts cancelled or refunded orders.
const countsTowardRevenue = "status NOT IN ('cancelled', 'refunded')"

type Service struct {
	DB    postgres.Querier
	Cache Cache
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func collect[T any](ctx context.Context, db postgres.Querier, scan func(pgx.CollectableRow) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scan)
	if out == nil {
		out = []T{}
	}
	return out, err
}

func fail(report, part string, err error) error {
	if err == nil {
		return nil
	}
	log.Error().Err(err).Str("report", report).Str("part", part).Msg("reporting: query failed")
	return fmt.Errorf("reporting: %s %s: %w", report, part, err)
}

// Overview is the dashboard landing report.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	now := s.now()
	day, _, _ := Bounds(now)
	return cached(ctx, s.Cache, "overview", day.Format(time.DateOnly), func(ctx context.Context) (Overview, error) {
		return s.overview(ctx, now)
	})
}

func (s *Service) overview(ctx context.Context, now time.Time) (Overview, error) {
	var out Overview
	day, week, month := Bounds(now)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.DB.QueryRow(ctx, `
SELECT (SELECT count(*) FROM products),
       (SELECT count(*) FROM products WHERE is_active),
       (SELECT count(*) FROM categories WHERE is_active),
       (SELECT count(*) FROM users WHERE is_active),
       (SELECT count(*) FROM orders)`).Scan(
			&out.Overview.TotalProducts, &out.Overview.ActiveProducts, &out.Overview.TotalCategories,
			&out.Overview.TotalUsers, &out.Overview.TotalOrders)
		return fail("overview", "counts", err)
	})

	g.Go(func() error {
		err := s.DB.QueryRow(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE created_at >= $1),
       count(*) FILTER (WHERE created_at >= $2),
       count(*) FILTER (WHERE created_at >= $3),
       COALESCE(sum(total) FILTER (WHERE `+countsTowardRevenue+`), 0),
       COALESCE(sum(total) FILTER (WHERE `+countsTowardRevenue+` AND created_at >= $1), 0),
       COALESCE(sum(total) FILTER (WHERE `+countsTowardRevenue+` AND created_at >= $2), 0),
       COALESCE(sum(total) FILTER (WHERE `+countsTowardRevenue+` AND created_at >= $3), 0)
FROM orders`, month, week, day).Scan(
			&out.Orders.Total, &out.Orders.Monthly, &out.Orders.Weekly, &out.Orders.Daily,
			&out.Revenue.Total, &out.Revenue.Monthly, &out.Revenue.Weekly, &out.Revenue.Daily)
		return fail("overview", "orders", err)
	})

	g.Go(func() error {
		rows, err := s.lowStock(ctx, 5)
		out.Alerts.LowStockProducts = rows
		return fail("overview", "low stock", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, func(r pgx.CollectableRow) (RecentOrder, error) {
			var o RecentOrder
			err := r.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.Total, &o.Status, &o.CreatedAt)
			return o, err
		}, `
SELECT id, order_number, customer_name, customer_email, total, status, created_at
FROM orders ORDER BY created_at DESC LIMIT 5`)
		out.Recent.Orders = rows
		return fail("overview", "recent orders", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, scanNamedCount, `
SELECT c.id, c.name, count(*)
FROM products p JOIN categories c ON c.id = p.category_id
WHERE p.is_active
GROUP BY c.id, c.name
ORDER BY count(*) DESC, c.name
LIMIT 5`)
		out.Analytics.TopCategories = rows
		return fail("overview", "top categories", err)
	})

	g.Go(func() error {
		// join on products: deleted products drop out of the ranking
		rows, err := collect(ctx, s.DB, scanNamedCount, `
SELECT p.id, p.name, sum(oi.quantity)
FROM order_items oi JOIN products p ON p.id = oi.product_id
GROUP BY p.id, p.name
ORDER BY sum(oi.quantity) DESC, p.name
LIMIT 5`)
		out.Analytics.TopProducts = rows
		return fail("overview", "top products", err)
	})

	return out, g.Wait()
}

func scanNamedCount(r pgx.CollectableRow) (NamedCount, error) {
	var n NamedCount
	err := r.Scan(&n.ID, &n.Name, &n.Count)
	return n, err
}

func (s *Service) lowStock(ctx context.Context, limit int) ([]StockLevel, error) {
	return collect(ctx, s.DB, func(r pgx.CollectableRow) (StockLevel, error) {
		var l StockLevel
		err := r.Scan(&l.ProductID, &l.Name, &l.Category, &l.Price, &l.TotalStock)
		return l, err
	}, `
SELECT p.id, p.name, COALESCE(c.name, ''), p.price, COALESCE(sum(s.quantity), 0) AS total_stock
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN product_stock s ON s.product_id = p.id
WHERE p.is_active
GROUP BY p.id, p.name, c.name, p.price
HAVING COALESCE(sum(s.quantity), 0) <= $1
ORDER BY total_stock ASC, p.name
LIMIT $2`, LowStockThreshold, limit)
}

// Sales reports order activity inside w.
func (s *Service) Sales(ctx context.Context, w Window) (Sales, error) {
	return cached(ctx, s.Cache, "sales", w.Key(), func(ctx context.Context) (Sales, error) {
		return s.sales(ctx, w)
	})
}

func (s *Service) sales(ctx context.Context, w Window) (Sales, error) {
	out := Sales{Window: w}
	g, ctx := errgroup.WithContext(ctx)
	const inWindow = "o.created_at >= $1 AND ($2::timestamptz IS NULL OR o.created_at < $2)"

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, func(r pgx.CollectableRow) (DailySales, error) {
			var d DailySales
			err := r.Scan(&d.Date, &d.Sales, &d.Orders, &d.AvgOrder)
			return d, err
		}, `
SELECT date_trunc('day', o.created_at AT TIME ZONE 'UTC') AS day,
       sum(o.total), count(*), round(avg(o.total), 2)
FROM orders o
WHERE `+inWindow+` AND o.`+countsTowardRevenue+`
GROUP BY day
ORDER BY day`, w.From, w.To)
		out.Daily = rows
		return fail("sales", "daily", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, scanBucket, `
SELECT o.status, count(*), COALESCE(sum(o.total), 0)
FROM orders o WHERE `+inWindow+`
GROUP BY o.status ORDER BY count(*) DESC, o.status`, w.From, w.To)
		out.Statuses = rows
		return fail("sales", "statuses", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, scanBucket, `
SELECT o.payment_method, count(*), COALESCE(sum(o.total), 0)
FROM orders o WHERE `+inWindow+`
GROUP BY o.payment_method ORDER BY count(*) DESC, o.payment_method`, w.From, w.To)
		out.PaymentMethods = rows
		return fail("sales", "payment methods", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, func(r pgx.CollectableRow) (ProductSales, error) {
			var p ProductSales
			err := r.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue)
			return p, err
		}, `
SELECT p.id, p.name, sum(oi.quantity), sum(oi.price * oi.quantity)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN products p ON p.id = oi.product_id
WHERE `+inWindow+` AND o.`+countsTowardRevenue+`
GROUP BY p.id, p.name
ORDER BY sum(oi.quantity) DESC, p.name
LIMIT 10`, w.From, w.To)
		out.TopProducts = rows
		return fail("sales", "top products", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, func(r pgx.CollectableRow) (CategorySales, error) {
			var c CategorySales
			err := r.Scan(&c.CategoryID, &c.Name, &c.Quantity, &c.Revenue)
			return c, err
		}, `
SELECT c.id, COALESCE(c.name, 'Uncategorized'), sum(oi.quantity), sum(oi.price * oi.quantity)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN products p ON p.id = oi.product_id
LEFT JOIN categories c ON c.id = p.category_id
WHERE `+inWindow+` AND o.`+countsTowardRevenue+`
GROUP BY c.id, c.name
ORDER BY sum(oi.price * oi.quantity) DESC`, w.From, w.To)
		out.ByCategory = rows
		return fail("sales", "categories", err)
	})

	return out, g.Wait()
}

func scanBucket(r pgx.CollectableRow) (Bucket, error) {
	var b Bucket
	err := r.Scan(&b.Key, &b.Count, &b.Total)
	return b, err
}

// Products reports catalog composition and stock health.
func (s *Service) Products(ctx context.Context) (Products, error) {
	return cached(ctx, s.Cache, "products", "all", s.products)
}

func (s *Service) products(ctx context.Context) (Products, error) {
	var out Products
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st := &out.Stats
		err := s.DB.QueryRow(ctx, `
WITH totals AS (
  SELECT p.id, COALESCE(sum(s.quantity), 0) AS qty
  FROM products p LEFT JOIN product_stock s ON s.product_id = p.id
  GROUP BY p.id
)
SELECT count(*),
       count(*) FILTER (WHERE p.is_active),
       count(*) FILTER (WHERE p.is_featured),
       count(*) FILTER (WHERE p.is_on_sale),
       COALESCE(round(avg(p.price), 2), 0),
       COALESCE(sum(t.qty), 0),
       count(*) FILTER (WHERE t.qty <= $1)
FROM products p JOIN totals t ON t.id = p.id`, LowStockThreshold).Scan(
			&st.TotalProducts, &st.ActiveProducts, &st.FeaturedProducts, &st.OnSaleProducts,
			&st.AveragePrice, &st.TotalStock, &st.LowStockProducts)
		return fail("products", "stats", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, func(r pgx.CollectableRow) (CategoryStats, error) {
			var c CategoryStats
			err := r.Scan(&c.ID, &c.Name, &c.ProductCount, &c.AveragePrice, &c.TotalStock)
			return c, err
		}, `
SELECT c.id, c.name, count(DISTINCT p.id),
       COALESCE(round(avg(p.price), 2), 0),
       COALESCE((SELECT sum(s.quantity) FROM product_stock s JOIN products pp ON pp.id = s.product_id
                 WHERE pp.category_id = c.id), 0)
FROM categories c
LEFT JOIN products p ON p.category_id = c.id
WHERE c.is_active
GROUP BY c.id, c.name
ORDER BY count(DISTINCT p.id) DESC, c.name`)
		out.Categories = rows
		return fail("products", "categories", err)
	})

	g.Go(func() error {
		rows, err := s.lowStock(ctx, 50)
		out.StockAlerts = rows
		return fail("products", "stock alerts", err)
	})

	return out, g.Wait()
}

// Customers reports admin users and the best paying storefront customers.
func (s *Service) Customers(ctx context.Context) (Customers, error) {
	now := s.now()
	return cached(ctx, s.Cache, "customers", now.Format("2006-01"), func(ctx context.Context) (Customers, error) {
		return s.customers(ctx, now)
	})
}

func (s *Service) customers(ctx context.Context, now time.Time) (Customers, error) {
	var out Customers
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		u := &out.Users
		err := s.DB.QueryRow(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE is_active),
       count(*) FILTER (WHERE role = 'admin'),
       count(*) FILTER (WHERE role = 'super-admin')
FROM users`).Scan(&u.TotalUsers, &u.ActiveUsers, &u.Admins, &u.SuperAdmins)
		return fail("customers", "users", err)
	})

	g.Go(func() error {
		rows, err := collect(ctx, s.DB, func(r pgx.CollectableRow) (TopCustomer, error) {
			var c TopCustomer
			err := r.Scan(&c.Name, &c.Email, &c.TotalOrders, &c.TotalSpent, &c.LastOrder)
			return c, err
		}, `
SELECT (array_agg(customer_name ORDER BY created_at))[1], customer_email,
       count(*), sum(total), max(created_at)
FROM orders
WHERE `+countsTowardRevenue+`
GROUP BY customer_email
ORDER BY sum(total) DESC, customer_email
LIMIT 10`)
		out.TopCustomers = rows
		return fail("customers", "top customers", err)
	})

	g.Go(func() error {
		_, _, month := Bounds(now)
		rows, err := collect(ctx, s.DB, func(r pgx.CollectableRow) (MonthCount, error) {
			var m MonthCount
			err := r.Scan(&m.Month, &m.Count)
			return m, err
		}, `
SELECT date_trunc('month', created_at AT TIME ZONE 'UTC') AS month, count(*)
FROM users
WHERE created_at >= $1
GROUP BY month
ORDER BY month`, month.AddDate(0, -11, 0))
		out.Growth = rows
		return fail("customers", "growth", err)
	})

	return out, g.Wait()
}
