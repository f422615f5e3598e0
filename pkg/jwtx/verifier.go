package jwtx

import (
	"errors"
	"time"
)

// Verifier checks a signed token and returns its claims.
type Verifier[C any] interface {
	Verify(token string) (C, error)
}

var (
	_ Verifier[AccessClaims]  = (*AccessVerifier)(nil)
	_ Verifier[RefreshClaims] = (*RefreshVerifier)(nil)
)

// VerifyOptions are the expectations a token must meet beyond its signature.
// Zero values skip the corresponding check.
type VerifyOptions struct {
	Issuer string

	// Audience lists acceptable values; the token must carry at least one.
	// Tokens are bound to an account variant this way.
	Audience []string

	// Leeway is the clock skew tolerated on exp and nbf.
	Leeway time.Duration
}

// Signature and encoding failures.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrWeakSecret  = errors.New("jwtx: signing secret must be at least 32 bytes")
)

// Claim failures.
var (
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)
