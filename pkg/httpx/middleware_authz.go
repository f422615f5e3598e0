package httpx

import (
	"net/http"
	"slices"
)

// RequireRoles lets the request through only when the authenticated caller
// holds one of roles. It must run after AuthnMiddleware.
func RequireRoles(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, RoleFromContext(r.Context())) {
				WriteError(w, http.StatusForbidden, "insufficient_permissions", "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
