package httpx

import (
	"context"

	"github.com/aussiebroadwan/ridebook/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyAccountID   ctxKey = "account_id"
	CtxKeyRole        ctxKey = "role"
	CtxKeyClaims      ctxKey = "claims"
	CtxKeyAccessToken ctxKey = "access_token"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	AccountID string
	Role      string
	Claims    jwtx.AccessClaims
}

// Variant is the account variant the access token was issued for.
func (p Principal) Variant() string {
	if len(p.Claims.Audience) == 0 {
		return ""
	}
	return p.Claims.Audience[0]
}

func contextWithPrincipal(ctx context.Context, p Principal, rawToken string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyAccountID, p.AccountID)
	ctx = context.WithValue(ctx, CtxKeyRole, p.Role)
	ctx = context.WithValue(ctx, CtxKeyClaims, p.Claims)
	ctx = context.WithValue(ctx, CtxKeyAccessToken, rawToken)
	return ctx
}

// AccountIDFromContext returns the authenticated account id, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyAccountID).(string)
	return v, ok && v != ""
}

// RoleFromContext returns the authenticated caller's role, if any.
func RoleFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyRole).(string)
	return v
}

// ClaimsFromContext returns the verified access claims, if any.
func ClaimsFromContext(ctx context.Context) (jwtx.AccessClaims, bool) {
	v, ok := ctx.Value(CtxKeyClaims).(jwtx.AccessClaims)
	return v, ok
}

// AccessTokenFromContext returns the raw bearer token the caller presented.
func AccessTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyAccessToken).(string)
	return v
}
