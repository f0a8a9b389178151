package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-backoffice/internal/reporting"
)

type Reports interface {
	Overview(ctx context.Context) (reporting.Overview, error)
	Sales(ctx context.Context, w reporting.Window) (reporting.Sales, error)
	Products(ctx context.Context) (reporting.Products, error)
	Customers(ctx context.Context) (reporting.Customers, error)
}

type ReportsHandler struct {
	Reports Reports
	Resp    Responder
	Now     func() time.Time
}

func (h *ReportsHandler) Register(r chi.Router, authed func(http.Handler) http.Handler) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(authed)
		r.Get("/stats", serveReport(h, h.Reports.Overview))
		r.Get("/sales-analytics", h.sales)
		r.Get("/product-analytics", serveReport(h, h.Reports.Products))
		r.Get("/customer-analytics", serveReport(h, h.Reports.Customers))
	})
}

func serveReport[T any](h *ReportsHandler, fn func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		v, err := fn(ctx)
		if err != nil {
			h.Resp.Error(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *ReportsHandler) sales(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}
	win, err := reporting.WindowFromQuery(r.URL.Query(), now)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	serveReport(h, func(ctx context.Context) (reporting.Sales, error) {
		return h.Reports.Sales(ctx, win)
	})(w, r)
}
