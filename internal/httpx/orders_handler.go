package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-backoffice/internal/activity"
	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
)

// OrderService is the order workflow as seen by HTTP. *orders.Service implements it.
type OrderService interface {
	Create(ctx context.Context, req orders.CreateRequest) (*orders.Order, error)
	CreatePublic(ctx context.Context, req orders.CreateRequest) (*orders.Order, error)
	Get(ctx context.Context, key string) (*orders.Order, error)
	List(ctx context.Context, f orders.ListFilter) (orders.Page, error)
	UpdateStatus(ctx context.Context, key, status string) (*orders.Order, error)
	Delete(ctx context.Context, key string) (*orders.Order, error)
	Customers(ctx context.Context) ([]orders.CustomerSummary, error)
}

type ActivityLister interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID, limit int) ([]activity.Entry, error)
}

type OrdersHandler struct {
	Orders   OrderService
	Activity ActivityLister
	Idem     Idempotency
	Resp     Responder
}

// Register mounts the order routes. authed wraps the admin-only ones.
func (h *OrdersHandler) Register(r chi.Router, authed func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/create", h.createPublic)
		r.Get("/{id}", h.getOrder)

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/customers/all", h.customers)
			r.Patch("/{id}/status", h.updateStatus)
			r.Delete("/{id}", h.deleteOrder)
			r.Get("/{id}/activity", h.activity)
		})
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.Orders.Create)
}

func (h *OrdersHandler) createPublic(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.Orders.CreatePublic)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request, fn func(context.Context, orders.CreateRequest) (*orders.Order, error)) {
	var req orders.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.Idem != nil {
		prev, claimed, err := h.Idem.Claim(ctx, idemKey)
		if err != nil {
			h.Resp.Error(w, r, err)
			return
		}
		if !claimed {
			// replay: kembalikan order yang sama
			o, err := h.Orders.Get(ctx, prev)
			if err != nil {
				h.Resp.Error(w, r, err)
				return
			}
			w.Header().Set("Idempotent-Replayed", "true")
			writeJSON(w, http.StatusCreated, map[string]any{"order": o})
			return
		}
	}

	o, err := fn(ctx, req)
	if err != nil {
		if idemKey != "" && h.Idem != nil {
			h.Idem.Release(ctx, idemKey)
		}
		h.Resp.Error(w, r, err)
		return
	}
	if idemKey != "" && h.Idem != nil {
		h.Idem.Complete(ctx, idemKey, o.ID.String())
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": o})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orders.FilterFromQuery(r.URL.Query())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, err := h.Orders.List(ctx, f)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.Delete(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Order deleted successfully", "order": o})
}

func (h *OrdersHandler) customers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cs, err := h.Orders.Customers(ctx)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": cs})
}

func (h *OrdersHandler) activity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.Resp.Error(w, r, apperr.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	entries, err := h.Activity.ListByOrder(ctx, o.ID, limit)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderNumber": o.OrderNumber, "activity": entries})
}
