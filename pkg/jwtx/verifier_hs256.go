package jwtx

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessVerifier validates HS256 access tokens.
type AccessVerifier struct {
	secret []byte
	opts   VerifyOptions
}

// NewAccessVerifier creates a verifier for access tokens signed with secret.
func NewAccessVerifier(secret []byte, opts VerifyOptions) (*AccessVerifier, error) {
	if len(secret) < MinSecretSize {
		return nil, ErrWeakSecret
	}
	return &AccessVerifier{secret: append([]byte(nil), secret...), opts: opts}, nil
}

// Verify validates the JWT string and returns its parsed claims.
func (v *AccessVerifier) Verify(tokenStr string) (AccessClaims, error) {
	var claims AccessClaims
	if err := parseHS256(tokenStr, v.secret, &claims); err != nil {
		return AccessClaims{}, err
	}
	if err := validate(&claims.Registered, v.opts); err != nil {
		return AccessClaims{}, err
	}
	if claims.AccountID == "" || claims.AccountID != claims.Subject {
		return AccessClaims{}, ErrInvalidClaim
	}
	return claims, nil
}

// RefreshVerifier validates HS256 refresh tokens.
type RefreshVerifier struct {
	secret []byte
	opts   VerifyOptions
}

// NewRefreshVerifier creates a verifier for refresh tokens signed with secret.
func NewRefreshVerifier(secret []byte, opts VerifyOptions) (*RefreshVerifier, error) {
	if len(secret) < MinSecretSize {
		return nil, ErrWeakSecret
	}
	return &RefreshVerifier{secret: append([]byte(nil), secret...), opts: opts}, nil
}

// Verify validates the refresh JWT and returns its claims.
func (v *RefreshVerifier) Verify(tokenStr string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := parseHS256(tokenStr, v.secret, &claims); err != nil {
		return RefreshClaims{}, err
	}
	if err := validate(&claims.Registered, v.opts); err != nil {
		return RefreshClaims{}, err
	}
	if claims.AccountID == "" || claims.AccountID != claims.Subject {
		return RefreshClaims{}, ErrInvalidClaim
	}
	return claims, nil
}

func parseHS256(tokenStr string, secret []byte, claims jwt.Claims) error {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(), // exp/nbf checked in validate so the error maps cleanly
	)

	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAlgMismatch
		}
		return secret, nil
	})
	if err != nil {
		return mapParseError(err)
	}
	if !token.Valid {
		return ErrInvalidClaim
	}
	return nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgMismatch
	default:
		return ErrMalformed
	}
}

func validate(c *Registered, opts VerifyOptions) error {
	if err := c.ValidateIssuer(opts.Issuer); err != nil {
		return err
	}
	if err := c.ValidateAudience(opts.Audience); err != nil {
		return err
	}
	return c.ValidateExpiryWithLeeway(opts.Leeway)
}
