package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func testIssuer() Issuer {
	return Issuer{Secret: []byte("s3cret"), TTL: time.Hour, Now: func() time.Time { return fixedNow }}
}

func TestIssueAndParse(t *testing.T) {
	iss := testIssuer()
	id := uuid.New()
	tok, err := iss.Issue(id, "ops@shop.test", RoleSuperAdmin)
	require.NoError(t, err)

	p, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, id, p.UserID)
	assert.Equal(t, "ops@shop.test", p.Email)
	assert.True(t, p.IsAdmin())
}

func TestParse_Rejects(t *testing.T) {
	iss := testIssuer()
	id := uuid.New()

	expired := iss
	expired.Now = func() time.Time { return fixedNow.Add(-2 * time.Hour) }
	old, err := expired.Issue(id, "a@b.c", RoleAdmin)
	require.NoError(t, err)

	other := Issuer{Secret: []byte("other"), TTL: time.Hour, Now: iss.Now}
	forged, err := other.Issue(id, "a@b.c", RoleAdmin)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{"expired": old, "wrong key": forged, "alg none": none, "garbage": "abc.def"} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Parse(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	customer, err := iss.Issue(id, "c@b.c", "customer")
	require.NoError(t, err)
	_, err = iss.Parse(customer)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMiddleware(t *testing.T) {
	iss := testIssuer()
	admin, _ := iss.Issue(uuid.New(), "a@b.c", RoleAdmin)
	customer, _ := iss.Issue(uuid.New(), "c@b.c", "customer")

	var seen Principal
	h := iss.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(Status(err))
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"non admin", "Bearer " + customer, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusNoContent},
		{"lowercase scheme", "bearer " + admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "a@b.c", seen.Email)
}
