package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

// ErrNoBearerToken is passed to the error writer when the request carries
// no usable Authorization header.
var ErrNoBearerToken = errors.New("httpx: missing bearer token")

// Authenticator turns a raw bearer token into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (Principal, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (Principal, error) {
	return f(ctx, token)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// AuthnMiddleware requires a valid bearer token and injects the principal
// into the request context.
func AuthnMiddleware(a Authenticator, onError ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_request"`)
				onError(w, r, ErrNoBearerToken)
				return
			}

			p, err := a.Authenticate(ctx, raw)
			if err != nil {
				log.Warn("bearer authentication failed", "err", err)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				onError(w, r, err)
				return
			}

			ctx = contextWithPrincipal(ctx, p, raw)
			ctx = slogx.WithAccount(ctx, p.Variant(), p.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(authz[len("Bearer "):])
	return raw, raw != ""
}
