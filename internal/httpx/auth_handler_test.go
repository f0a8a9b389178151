package httpx

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backoffice/internal/auth"
)

type fakeUsers map[string]string // email -> password

func (f fakeUsers) Authenticate(_ context.Context, email, password string) (auth.User, error) {
	if pw, ok := f[email]; !ok || pw != password {
		return auth.User{}, auth.ErrInvalidCredentials
	}
	return auth.User{ID: uuid.New(), Email: email, Role: auth.RoleSuperAdmin, IsActive: true}, nil
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, false)
	rs := Responder{}
	(&AuthHandler{Users: fakeUsers{"admin@shop.test": "admin123"}, Issuer: testIssuer, Resp: rs}).
		Register(s.router, testIssuer.Middleware(rs.Error))

	rec := s.do(t, http.MethodPost, "/auth/login", `{"email":"admin@shop.test","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec.Body.Bytes())["error"])

	rec = s.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", `{"email":"admin@shop.test","password":"admin123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tok, _ := decode(t, rec.Body.Bytes())["token"].(string)
	require.NotEmpty(t, tok)

	rec = s.do(t, http.MethodGet, "/auth/me", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec.Body.Bytes())["user"].(map[string]any)
	assert.Equal(t, auth.RoleSuperAdmin, me["role"])

	// the token also opens the admin routes
	rec = s.do(t, http.MethodGet, "/orders", "", tok)
	assert.Equal(t, http.StatusOK, rec.Code)
}
