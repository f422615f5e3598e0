package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Both can be overridden per deployment.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Registered wraps the standard claims with the validation helpers shared by
// access and refresh tokens.
type Registered struct {
	jwt.RegisteredClaims
}

// AccessClaims are the claims of a bearer access token. The audience is the
// account variant the token was issued for.
type AccessClaims struct {
	Registered

	AccountID   string `json:"accountId"`
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode,omitempty"`
	Role        string `json:"role"`
}

// RefreshClaims carry only the account id. A refresh token is honoured only
// while it is the one stored on the account.
type RefreshClaims struct {
	Registered

	AccountID string `json:"accountId"`
}

// NewAccessClaims builds access claims valid from now for ttl.
func NewAccessClaims(
	accountID, phone, countryCode, role string,
	issuer string,
	audience []string,
	ttl time.Duration,
	now time.Time,
) AccessClaims {
	return AccessClaims{
		Registered:  newRegistered(accountID, issuer, audience, ttl, now),
		AccountID:   accountID,
		Phone:       phone,
		CountryCode: countryCode,
		Role:        role,
	}
}

// NewRefreshClaims builds refresh claims valid from now for ttl.
func NewRefreshClaims(accountID, issuer string, audience []string, ttl time.Duration, now time.Time) RefreshClaims {
	return RefreshClaims{
		Registered: newRegistered(accountID, issuer, audience, ttl, now),
		AccountID:  accountID,
	}
}

func newRegistered(subject, issuer string, audience []string, ttl time.Duration, now time.Time) Registered {
	return Registered{jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings(audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two pairs
// minted for the same account in the same second therefore never collide.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Registered) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Registered) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Registered) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Registered) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// ExpiresIn is the remaining lifetime at now, never negative.
func (c *Registered) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}
