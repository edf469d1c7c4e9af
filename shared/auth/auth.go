// Package auth supplies a trusted customer identity to the HTTP front
// doors. Credentials are injected through configuration, never hardcoded.
package auth

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// Role of an authenticated principal.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator verifies a principal's credentials.
type Authenticator interface {
	Verify(ctx context.Context, id, secret string) (Role, error)
}

// Credential is one configured principal.
type Credential struct {
	Secret string
	Role   Role
}

// StaticAuthenticator verifies against a credential set loaded from
// configuration.
type StaticAuthenticator struct {
	credentials map[string]Credential
}

// NewStaticAuthenticator creates a new StaticAuthenticator
func NewStaticAuthenticator(credentials map[string]Credential) *StaticAuthenticator {
	if credentials == nil {
		credentials = make(map[string]Credential)
	}
	return &StaticAuthenticator{credentials: credentials}
}

func (a *StaticAuthenticator) Verify(_ context.Context, id, secret string) (Role, error) {
	cred, ok := a.credentials[id]
	if !ok || cred.Secret != secret {
		return "", ErrInvalidCredentials
	}
	return cred.Role, nil
}

type contextKey string

const (
	principalKey contextKey = "auth_principal"
	roleKey      contextKey = "auth_role"
)

// CustomerID returns the authenticated principal id from ctx.
func CustomerID(ctx context.Context) string {
	if v, ok := ctx.Value(principalKey).(string); ok {
		return v
	}
	return ""
}

// RoleFrom returns the authenticated role from ctx.
func RoleFrom(ctx context.Context) Role {
	if v, ok := ctx.Value(roleKey).(Role); ok {
		return v
	}
	return ""
}

// WithPrincipal injects an authenticated identity, used by tests and by
// the middleware below.
func WithPrincipal(ctx context.Context, id string, role Role) context.Context {
	ctx = context.WithValue(ctx, principalKey, id)
	return context.WithValue(ctx, roleKey, role)
}

// Middleware authenticates requests with HTTP basic credentials and puts
// the verified identity on the request context.
func Middleware(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, secret, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="fulfillment"`)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			role, err := authenticator.Verify(r.Context(), id, secret)
			if err != nil {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), id, role)))
		})
	}
}
