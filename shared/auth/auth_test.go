package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAuthenticatorVerify(t *testing.T) {
	authenticator := NewStaticAuthenticator(map[string]Credential{
		"CUST-1": {Secret: "s3cret", Role: RoleCustomer},
		"ops":    {Secret: "adminpw", Role: RoleAdmin},
	})

	role, err := authenticator.Verify(context.Background(), "CUST-1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, role)

	_, err = authenticator.Verify(context.Background(), "CUST-1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = authenticator.Verify(context.Background(), "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMiddleware(t *testing.T) {
	authenticator := NewStaticAuthenticator(map[string]Credential{
		"CUST-1": {Secret: "s3cret", Role: RoleCustomer},
	})

	var gotCustomer string
	var gotRole Role
	handler := Middleware(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCustomer = CustomerID(r.Context())
		gotRole = RoleFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("authenticated request passes identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.SetBasicAuth("CUST-1", "s3cret")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "CUST-1", gotCustomer)
		assert.Equal(t, RoleCustomer, gotRole)
	})

	t.Run("missing credentials rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("bad secret rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.SetBasicAuth("CUST-1", "nope")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
