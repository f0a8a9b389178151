package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/auth"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (auth.User, error)
}

type AuthHandler struct {
	Users  Authenticator
	Issuer auth.Issuer
	Resp   Responder
}

func (h *AuthHandler) Register(r chi.Router, authed func(http.Handler) http.Handler) {
	r.Post("/auth/login", h.login)
	r.With(authed).Get("/auth/me", h.me)
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := apperr.CheckStruct(req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	u, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	tok, err := h.Issuer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": u})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{
		"id": p.UserID.String(), "email": p.Email, "role": p.Role,
	}})
}
