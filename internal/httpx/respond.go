package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/auth"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
)

func init() {
	// money keluar sebagai angka json, bukan string
	decimal.MarshalJSONWithoutQuotes = true
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.Invalid("body", "request body too large")
		case errors.Is(err, io.EOF):
			return apperr.Invalid("body", "request body is empty")
		default:
			return apperr.Invalid("body", "invalid json")
		}
	}
	return nil
}

// Responder writes error bodies. Development adds the raw error as "detail" on 500s.
type Responder struct {
	Development bool
}

func statusOf(err error) int {
	var (
		ve  *apperr.ValidationError
		nf  *apperr.NotFoundError
		ce  *apperr.ConflictError
		ise *orders.InsufficientStockError
		pme *orders.PriceMismatchError
		inv *orders.InvalidStatusError
		ite *orders.IllegalTransitionError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ise), errors.As(err, &pme), errors.As(err, &inv),
		errors.Is(err, orders.ErrStockConflict):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ce), errors.As(err, &ite):
		return http.StatusConflict
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrInvalidCredentials):
		return auth.Status(err)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (rs Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	switch code {
	case http.StatusInternalServerError, http.StatusGatewayTimeout:
		log.Error().Err(err).
			Str("req_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).Str("path", r.URL.Path).
			Msg("request failed")
		body := map[string]string{"error": "Internal server error"}
		if rs.Development {
			body["detail"] = err.Error()
		}
		writeJSON(w, code, body)
	case http.StatusUnauthorized:
		msg := "Access denied. Valid token required."
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = "Invalid credentials"
		}
		writeJSON(w, code, map[string]string{"error": msg})
	case http.StatusForbidden:
		writeJSON(w, code, map[string]string{"error": "Access denied. Admin role required."})
	default:
		writeJSON(w, code, map[string]string{"error": err.Error()})
	}
}
